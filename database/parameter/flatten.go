package parameter

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/spiral-modules/dbal/database/internal/sqllex"
	"github.com/spiral-modules/dbal/database/types"
)

// DefaultDateTimeLayout is the datetime format used when a dialect does not define one.
const DefaultDateTimeLayout = "2006-01-02 15:04:05"

// Options controls how temporal values are normalized during flattening.
type Options struct {
	// Location is the timezone temporal values are converted to. Defaults to UTC.
	Location *time.Location
	// DateTimeLayout is the driver's datetime string format. Defaults to DefaultDateTimeLayout.
	DateTimeLayout string
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) layout() string {
	if o.DateTimeLayout == "" {
		return DefaultDateTimeLayout
	}
	return o.DateTimeLayout
}

// Flatten normalizes bound values into the flat argument list passed to database/sql.
//
// Bare values are wrapped with a detected type, array parameters expand in place into one
// positional argument per element, and sql.NamedArg entries are kept as named arguments.
// Binding an array to a named argument fails with *types.InvalidBindingError, as does an
// array nested inside another array. Temporal values are converted to opts.Location and
// rendered with opts.DateTimeLayout.
func Flatten(params []any, opts Options) ([]any, error) {
	if len(params) == 0 {
		return nil, nil
	}

	out := make([]any, 0, len(params))
	for i, raw := range params {
		if named, ok := raw.(sql.NamedArg); ok {
			p := Wrap(named.Value)
			if p.IsArray() {
				return nil, &types.InvalidBindingError{
					Key:    ":" + named.Name,
					Reason: "arrays can only be bound to positional parameters",
				}
			}
			out = append(out, sql.NamedArg{Name: named.Name, Value: opts.normalize(p.Value())})
			continue
		}

		p := Wrap(raw)
		if !p.IsArray() {
			out = append(out, opts.normalize(p.Value()))
			continue
		}

		elements, err := p.Elements()
		if err != nil {
			return nil, &types.InvalidBindingError{Key: strconv.Itoa(i), Reason: err.Error()}
		}
		for _, elem := range elements {
			out = append(out, opts.normalize(elem))
		}
	}

	return out, nil
}

// Count returns the number of positional placeholders params occupy once flattened.
func Count(params []any) int {
	total := 0
	for _, raw := range params {
		if _, ok := raw.(sql.NamedArg); ok {
			continue
		}
		total += Wrap(raw).Len()
	}
	return total
}

func (o Options) normalize(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.In(o.location()).Format(o.layout())
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.In(o.location()).Format(o.layout())
	default:
		return value
	}
}

// Expand rewrites every "?" bound to an array parameter into one marker per element, so
// "id IN (?)" with a three element array becomes "id IN (?, ?, ?)". An empty array renders
// as NULL. Named arguments do not occupy positional markers.
func Expand(query string, params []any) string {
	positional := make([]Parameter, 0, len(params))
	expand := false
	for _, raw := range params {
		if _, ok := raw.(sql.NamedArg); ok {
			continue
		}
		p := Wrap(raw)
		expand = expand || p.IsArray()
		positional = append(positional, p)
	}
	if !expand {
		return query
	}

	var b strings.Builder
	last, index := 0, 0
	for _, marker := range sqllex.Scan(query) {
		if marker.Kind != sqllex.Positional {
			continue
		}
		if index >= len(positional) {
			break
		}
		p := positional[index]
		index++
		if !p.IsArray() {
			continue
		}

		b.WriteString(query[last:marker.Offset])
		if n := p.Len(); n == 0 {
			b.WriteString("NULL")
		} else {
			b.WriteString(strings.Repeat("?, ", n-1) + "?")
		}
		last = marker.Offset + marker.Length
	}
	b.WriteString(query[last:])
	return b.String()
}

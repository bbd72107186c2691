package query

import (
	"database/sql"
	"strings"

	"github.com/spiral-modules/dbal/database/internal/sqllex"
)

// Interpolate substitutes bound values into sql for diagnostics. quote renders one value as
// a literal, normally dialect.Dialect.Quote. The result is for logs and error messages
// only and must never be executed.
func Interpolate(query string, params []any, quote func(any) string) string {
	if len(params) == 0 {
		return query
	}

	positional := make([]any, 0, len(params))
	named := make(map[string]any)
	for _, p := range params {
		if n, ok := p.(sql.NamedArg); ok {
			named[n.Name] = n.Value
			continue
		}
		positional = append(positional, p)
	}

	var b strings.Builder
	last, index := 0, 0
	for _, marker := range sqllex.Scan(query) {
		var value any
		switch marker.Kind {
		case sqllex.Positional:
			if index >= len(positional) {
				continue
			}
			value = positional[index]
			index++
		case sqllex.Named:
			v, ok := named[marker.Name]
			if !ok {
				continue
			}
			value = v
		}
		b.WriteString(query[last:marker.Offset])
		b.WriteString(quote(value))
		last = marker.Offset + marker.Length
	}
	b.WriteString(query[last:])
	return b.String()
}

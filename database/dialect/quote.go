package dialect

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// quoteIdentifier wraps each segment of name between open and close. Segments that are
// already quoted are unwrapped and quoted again so a stray close character can never
// terminate the identifier early.
func quoteIdentifier(name string, open, close byte) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}

	if expr, alias, ok := splitAlias(name); ok {
		return quoteIdentifier(expr, open, close) + " AS " + quoteIdentifier(alias, open, close)
	}

	parts := strings.Split(name, ".")
	for i, part := range parts {
		if part == "*" {
			continue
		}
		parts[i] = quoteSegment(strings.TrimSpace(part), open, close)
	}
	return strings.Join(parts, ".")
}

func quoteSegment(part string, open, close byte) string {
	closing := string(close)
	doubled := closing + closing

	if len(part) >= 2 && part[0] == open && part[len(part)-1] == close {
		part = strings.ReplaceAll(part[1:len(part)-1], doubled, closing)
	}
	return string(open) + strings.ReplaceAll(part, closing, doubled) + closing
}

// splitAlias splits "expr AS alias" (case insensitive) on the last AS keyword.
func splitAlias(name string) (expr, alias string, ok bool) {
	idx := strings.LastIndex(strings.ToLower(name), " as ")
	if idx <= 0 {
		return "", "", false
	}
	expr = strings.TrimSpace(name[:idx])
	alias = strings.TrimSpace(name[idx+4:])
	if expr == "" || alias == "" {
		return "", "", false
	}
	return expr, alias, true
}

// ansiString quotes a string literal by doubling single quotes.
func ansiString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteValue renders a Go value as a SQL literal.
func quoteValue(v any, quoteText func(string) string, boolTrue, boolFalse, layout string) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return boolTrue
		}
		return boolFalse
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return quoteText(val)
	case []byte:
		return quoteText(string(val))
	case time.Time:
		return quoteText(val.Format(layout))
	case *time.Time:
		if val == nil {
			return "NULL"
		}
		return quoteText(val.Format(layout))
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return quoteText(fmt.Sprint(val))
		}
		return quoteValue(inner, quoteText, boolTrue, boolFalse, layout)
	case fmt.Stringer:
		return quoteText(val.String())
	default:
		return quoteText(fmt.Sprint(val))
	}
}

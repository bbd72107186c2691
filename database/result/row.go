package result

import (
	"fmt"
	"strconv"
)

// Row is one fetched row. Values are addressable by position (numeric fetch mode)
// or by column name (associative fetch mode).
type Row struct {
	columns []string
	values  []any
}

// NewRow builds a row from parallel column and value slices.
func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

// Values returns the row values in column order.
func (r Row) Values() []any {
	return r.values
}

// Columns returns the column names of the row.
func (r Row) Columns() []string {
	return r.columns
}

// Len returns the number of values in the row.
func (r Row) Len() int {
	return len(r.values)
}

// Index returns the value at position i, or nil when out of range.
func (r Row) Index(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// Get returns the value of column and whether the column exists. When a column name
// repeats, the last occurrence wins, matching associative fetch semantics.
func (r Row) Get(column string) (any, bool) {
	for i := len(r.columns) - 1; i >= 0; i-- {
		if r.columns[i] == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// String returns the column value rendered as a string; NULL becomes "".
func (r Row) String(column string) string {
	v, _ := r.Get(column)
	return AsString(v)
}

// Int returns the column value as int64, parsing textual driver output when needed.
func (r Row) Int(column string) int64 {
	v, _ := r.Get(column)
	n, _ := AsInt(v)
	return n
}

// IsNull reports whether the column is absent or NULL.
func (r Row) IsNull(column string) bool {
	v, ok := r.Get(column)
	return !ok || v == nil
}

// Map returns the row keyed by column name.
func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r.columns))
	for i, name := range r.columns {
		out[name] = r.values[i]
	}
	return out
}

// AsString renders a driver value as a string. NULL becomes "".
func AsString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// AsInt converts a driver value to int64.
func AsInt(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float64:
		return int64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(val), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

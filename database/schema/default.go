package schema

import (
	"math"
	"strconv"
	"strings"
)

// DefaultKind tags the variant held by a Default.
type DefaultKind int

const (
	// DefaultNull means no default value; it is the zero Default.
	DefaultNull DefaultKind = iota
	DefaultInt
	DefaultFloat
	DefaultString
	DefaultBool
	// DefaultRaw is a SQL expression rendered verbatim, e.g. CURRENT_TIMESTAMP.
	DefaultRaw
)

// EpochDateTime replaces zero-date defaults ("0000-00-00 00:00:00").
const EpochDateTime = "1970-01-01 00:00:00"

// Default is a typed column default.
type Default struct {
	kind DefaultKind
	i    int64
	f    float64
	s    string
	b    bool
}

func NullDefault() Default           { return Default{} }
func IntDefault(v int64) Default     { return Default{kind: DefaultInt, i: v} }
func FloatDefault(v float64) Default { return Default{kind: DefaultFloat, f: v} }
func StringDefault(v string) Default { return Default{kind: DefaultString, s: v} }
func BoolDefault(v bool) Default     { return Default{kind: DefaultBool, b: v} }
func RawDefault(sql string) Default  { return Default{kind: DefaultRaw, s: sql} }

// Kind returns the variant tag.
func (d Default) Kind() DefaultKind { return d.kind }

// IsNull reports whether no default is set.
func (d Default) IsNull() bool { return d.kind == DefaultNull }

// Value returns the default as a Go value: nil, int64, float64, string or bool. Raw
// expressions are returned as their SQL text.
func (d Default) Value() any {
	switch d.kind {
	case DefaultInt:
		return d.i
	case DefaultFloat:
		return d.f
	case DefaultString, DefaultRaw:
		return d.s
	case DefaultBool:
		return d.b
	default:
		return nil
	}
}

// Equal compares two defaults by value. Numeric variants compare numerically and a
// boolean equals the integer 1 or 0; raw expressions compare case-insensitively.
func (d Default) Equal(o Default) bool {
	return d.canonical() == o.canonical()
}

func (d Default) canonical() string {
	switch d.kind {
	case DefaultInt:
		return "n:" + strconv.FormatInt(d.i, 10)
	case DefaultFloat:
		if d.f == math.Trunc(d.f) && math.Abs(d.f) < 1e15 {
			return "n:" + strconv.FormatInt(int64(d.f), 10)
		}
		return "n:" + strconv.FormatFloat(d.f, 'f', -1, 64)
	case DefaultBool:
		if d.b {
			return "n:1"
		}
		return "n:0"
	case DefaultString:
		return "s:" + d.s
	case DefaultRaw:
		return "r:" + strings.ToUpper(strings.Join(strings.Fields(d.s), " "))
	default:
		return ""
	}
}

// SQL renders the default as a literal using quote for strings and booleans.
func (d Default) SQL(quote func(any) string) string {
	switch d.kind {
	case DefaultInt:
		return strconv.FormatInt(d.i, 10)
	case DefaultFloat:
		return strconv.FormatFloat(d.f, 'f', -1, 64)
	case DefaultBool:
		return quote(d.b)
	case DefaultString:
		return quote(d.s)
	case DefaultRaw:
		return d.s
	default:
		return "NULL"
	}
}

func (d Default) String() string {
	switch d.kind {
	case DefaultNull:
		return "NULL"
	case DefaultString:
		return strconv.Quote(d.s)
	default:
		return strings.TrimPrefix(strings.TrimPrefix(d.canonical(), "n:"), "r:")
	}
}

// TypedDefault converts an unquoted catalog value into the variant matching the column
// type. Values that do not parse for numeric or boolean columns are kept as raw SQL.
func TypedDefault(value string, t AbstractType) Default {
	switch {
	case t.isInteger():
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return IntDefault(n)
		}
		return RawDefault(value)
	case t == Boolean:
		switch strings.ToLower(value) {
		case "1", "true", "t", "b'1'":
			return BoolDefault(true)
		case "0", "false", "f", "b'0'":
			return BoolDefault(false)
		}
		return RawDefault(value)
	case t.isFloat():
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return FloatDefault(f)
		}
		return RawDefault(value)
	case t.isTemporal() && isZeroDate(value):
		return StringDefault(EpochDateTime)
	default:
		return StringDefault(value)
	}
}

func isZeroDate(value string) bool {
	return strings.HasPrefix(value, "0000-00-00")
}

// Package parameter models bound statement values and flattens them into the positional
// and named argument lists handed to database/sql drivers.
package parameter

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"
)

// SQLType tags a bound value with the SQL type it is sent as.
type SQLType int

const (
	// TypeDetect resolves the type from the Go value at bind time.
	TypeDetect SQLType = iota
	TypeNull
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeTime
	TypeBytes
	// TypeArray expands into one positional placeholder per element.
	TypeArray
)

var sqlTypeNames = map[SQLType]string{
	TypeDetect: "DETECT",
	TypeNull:   "NULL",
	TypeBool:   "BOOL",
	TypeInt:    "INT",
	TypeFloat:  "FLOAT",
	TypeString: "STRING",
	TypeTime:   "TIME",
	TypeBytes:  "BYTES",
	TypeArray:  "ARRAY",
}

func (t SQLType) String() string {
	if name, ok := sqlTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SQLType(%d)", int(t))
}

// Parameter is an immutable bound value with an explicit SQL type.
// Use WithValue to derive a parameter carrying a different value.
type Parameter struct {
	value    any
	typ      SQLType
	explicit bool
}

// New wraps value and detects its SQL type.
func New(value any) Parameter {
	return Parameter{value: value, typ: Detect(value)}
}

// Typed wraps value with an explicit SQL type. TypeDetect behaves like New.
func Typed(value any, typ SQLType) Parameter {
	if typ == TypeDetect {
		return New(value)
	}
	return Parameter{value: value, typ: typ, explicit: true}
}

// Array is shorthand for a parameter expanding into one placeholder per element.
func Array[T any](values ...T) Parameter {
	return Parameter{value: values, typ: TypeArray, explicit: true}
}

// Wrap returns value unchanged when it already is a Parameter, otherwise wraps it with New.
func Wrap(value any) Parameter {
	switch v := value.(type) {
	case Parameter:
		return v
	case *Parameter:
		if v == nil {
			return New(nil)
		}
		return *v
	default:
		return New(value)
	}
}

// Value returns the raw bound value.
func (p Parameter) Value() any {
	return p.value
}

// Type returns the SQL type of the parameter.
func (p Parameter) Type() SQLType {
	return p.typ
}

// IsArray reports whether the parameter expands into multiple placeholders.
func (p Parameter) IsArray() bool {
	return p.typ == TypeArray
}

// WithValue returns a new parameter carrying value. Explicitly typed parameters keep
// their type; detected parameters re-detect it from the new value.
func (p Parameter) WithValue(value any) Parameter {
	if !p.explicit {
		return New(value)
	}
	return Parameter{value: value, typ: p.typ, explicit: true}
}

// Len returns the number of placeholders the parameter occupies once flattened.
func (p Parameter) Len() int {
	if !p.IsArray() {
		return 1
	}
	rv := reflect.ValueOf(p.value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len()
	}
	return 1
}

// Elements returns the scalar values of an array parameter in order. Non-array parameters
// return their single value. Elements that are themselves arrays are rejected: arrays
// never nest more than one level.
func (p Parameter) Elements() ([]any, error) {
	if !p.IsArray() {
		return []any{p.value}, nil
	}

	rv := reflect.ValueOf(p.value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{p.value}, nil
	}

	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if inner, ok := elem.(Parameter); ok {
			elem = inner.value
		}
		if isList(elem) {
			return nil, fmt.Errorf("element %d is itself an array", i)
		}
		out = append(out, elem)
	}
	return out, nil
}

func (p Parameter) String() string {
	return fmt.Sprintf("%s(%v)", p.typ, p.value)
}

// Detect resolves the SQL type of a Go value.
func Detect(value any) SQLType {
	switch v := value.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	case string:
		return TypeString
	case []byte:
		return TypeBytes
	case time.Time, *time.Time:
		return TypeTime
	case driver.Valuer:
		return TypeDetect
	default:
		if isList(v) {
			return TypeArray
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return TypeNull
		}
		return TypeDetect
	}
}

// isList reports whether value is a slice or array other than a byte slice.
func isList(value any) bool {
	if value == nil {
		return false
	}
	if _, ok := value.([]byte); ok {
		return false
	}
	if _, ok := value.(driver.Valuer); ok {
		return false
	}
	kind := reflect.TypeOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

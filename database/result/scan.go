package result

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spiral-modules/dbal/database/internal/columns"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02",
}

// Scan copies the row into dest, a pointer to a struct whose fields carry
// `db:"column"` tags. Columns without a matching field are ignored.
func (r Row) Scan(dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("scan destination must be a non-nil struct pointer, got %T", dest)
	}
	meta, err := columns.For(dest)
	if err != nil {
		return err
	}
	return r.scanInto(meta, rv.Elem())
}

func (r Row) scanInto(meta *columns.Metadata, target reflect.Value) error {
	for i, name := range r.columns {
		col, ok := meta.Lookup(name)
		if !ok {
			continue
		}
		if err := assign(target.FieldByIndex(col.Index), r.values[i]); err != nil {
			return fmt.Errorf("column %s into %s.%s: %w", name, meta.TypeName, col.Field, err)
		}
	}
	return nil
}

// FetchInto fetches the next row into dest like Row.Scan. It returns io.EOF once the
// cursor is exhausted.
func (c *Cursor) FetchInto(dest any) error {
	row, err := c.Fetch()
	if err != nil {
		return err
	}
	return row.Scan(dest)
}

// FetchAllInto drains the cursor into dest, a pointer to a slice of structs or struct
// pointers, and closes it.
func (c *Cursor) FetchAllInto(dest any) error {
	defer c.Close()

	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("destination must be a pointer to a slice, got %T", dest)
	}
	slice := rv.Elem()
	elem := slice.Type().Elem()
	byPointer := elem.Kind() == reflect.Pointer
	if byPointer {
		elem = elem.Elem()
	}

	meta, err := columns.For(dest)
	if err != nil {
		return err
	}

	for {
		row, err := c.Fetch()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		item := reflect.New(elem)
		if err := row.scanInto(meta, item.Elem()); err != nil {
			return err
		}
		if byPointer {
			slice.Set(reflect.Append(slice, item))
		} else {
			slice.Set(reflect.Append(slice, item.Elem()))
		}
	}
}

func assign(field reflect.Value, value any) error {
	if scanner, ok := field.Addr().Interface().(sql.Scanner); ok {
		return scanner.Scan(value)
	}
	if value == nil {
		field.SetZero()
		return nil
	}
	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(field.Type()) {
		field.Set(v)
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(AsString(value))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := AsInt(value)
		if !ok || field.OverflowInt(n) {
			return fmt.Errorf("cannot store %v in %s", value, field.Type())
		}
		field.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := AsInt(value)
		if !ok || n < 0 || field.OverflowUint(uint64(n)) {
			return fmt.Errorf("cannot store %v in %s", value, field.Type())
		}
		field.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := asFloat(value)
		if err != nil {
			return err
		}
		field.SetFloat(f)
		return nil
	case reflect.Bool:
		b, err := asBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
		return nil
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			field.SetBytes([]byte(AsString(value)))
			return nil
		}
	case reflect.Struct:
		if field.Type() == reflect.TypeOf(time.Time{}) {
			t, err := asTime(value)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(t))
			return nil
		}
	}
	return fmt.Errorf("unsupported conversion from %T to %s", value, field.Type())
}

func asFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	default:
		if n, ok := AsInt(v); ok {
			if _, isString := v.(string); !isString {
				return float64(n), nil
			}
		}
		return strconv.ParseFloat(strings.TrimSpace(AsString(v)), 64)
	}
}

func asBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if n, ok := AsInt(v); ok {
		return n != 0, nil
	}
	switch strings.ToLower(AsString(v)) {
	case "t", "true", "y", "yes":
		return true, nil
	case "f", "false", "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("cannot convert %v to bool", v)
}

func asTime(v any) (time.Time, error) {
	s := AsString(v)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

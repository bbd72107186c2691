package columns

import (
	"fmt"
	"reflect"
	"strings"
)

// parse extracts column metadata from a struct type. Embedded structs without a db tag
// contribute their own tagged fields.
func parse(t reflect.Type) (*Metadata, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected a struct, got %s", t.Kind())
	}

	m := &Metadata{TypeName: t.Name(), byName: make(map[string]int)}
	if err := collect(m, t, nil); err != nil {
		return nil, err
	}
	if len(m.Columns) == 0 {
		return nil, fmt.Errorf("no fields with `db` tags found in struct %s", t.Name())
	}
	return m, nil
}

func collect(m *Metadata, t reflect.Type, prefix []int) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		index := append(append([]int(nil), prefix...), i)

		tag := field.Tag.Get("db")
		if tag == "-" {
			continue
		}
		if tag == "" {
			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				if err := collect(m, field.Type, index); err != nil {
					return err
				}
			}
			continue
		}

		if err := validateTag(tag, t.Name(), field.Name); err != nil {
			return err
		}
		if _, dup := m.byName[tag]; dup {
			return fmt.Errorf("duplicate db tag %q in struct %s", tag, m.TypeName)
		}

		m.Columns = append(m.Columns, Column{Field: field.Name, Name: tag, Index: index, Type: field.Type})
		pos := len(m.Columns) - 1
		m.byName[tag] = pos
		if lower := strings.ToLower(tag); lower != tag {
			if _, taken := m.byName[lower]; !taken {
				m.byName[lower] = pos
			}
		}
	}
	return nil
}

// validateTag rejects tags carrying SQL syntax or quotes.
func validateTag(tag, structName, fieldName string) error {
	for _, d := range []string{";", "--", "/*", "*/"} {
		if strings.Contains(tag, d) {
			return fmt.Errorf("invalid db tag %q in field %s.%s: contains dangerous SQL characters %q",
				tag, structName, fieldName, d)
		}
	}
	if strings.ContainsAny(tag, `"'`+"`") {
		return fmt.Errorf("invalid db tag %q in field %s.%s: contains quotes", tag, structName, fieldName)
	}
	return nil
}

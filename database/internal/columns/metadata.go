// Package columns extracts `db:"column"` tag metadata from structs so result rows can be
// hydrated into them.
package columns

import (
	"reflect"
	"strings"
)

// Column maps one result column to a struct field.
type Column struct {
	// Field is the Go field name, e.g. "UserID".
	Field string
	// Name is the column name from the db tag, e.g. "user_id".
	Name string
	// Index is the field path for reflect.Value.FieldByIndex; embedded structs add levels.
	Index []int
	Type  reflect.Type
}

// Metadata is the cached column mapping of one struct type.
type Metadata struct {
	TypeName string
	Columns  []Column

	byName map[string]int
}

// Lookup returns the field mapped to column. Names match exactly first, then
// case-insensitively, since some engines fold unquoted identifiers.
func (m *Metadata) Lookup(column string) (Column, bool) {
	if i, ok := m.byName[column]; ok {
		return m.Columns[i], true
	}
	if i, ok := m.byName[strings.ToLower(column)]; ok {
		return m.Columns[i], true
	}
	return Column{}, false
}

// Names returns the column names in field order.
func (m *Metadata) Names() []string {
	out := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		out[i] = c.Name
	}
	return out
}

package schema

import (
	"slices"
	"strings"
)

// Index is a secondary index over an ordered column list.
type Index struct {
	table   string
	name    string
	unique  bool
	columns []string
}

// NewIndex creates a normal index. An empty name is generated from the table and columns.
func NewIndex(table, name string, columns ...string) *Index {
	if name == "" {
		name = indexName(table, columns)
	}
	return &Index{table: table, name: name, columns: slices.Clone(columns)}
}

func indexName(table string, columns []string) string {
	return table + "_index_" + strings.Join(columns, "_")
}

func (i *Index) Name() string      { return i.name }
func (i *Index) Table() string     { return i.table }
func (i *Index) IsUnique() bool    { return i.unique }
func (i *Index) Columns() []string { return slices.Clone(i.columns) }

// Unique switches between UNIQUE and normal indexes.
func (i *Index) Unique(unique bool) *Index {
	i.unique = unique
	return i
}

// SetColumns replaces the indexed columns, keeping their order.
func (i *Index) SetColumns(columns ...string) *Index {
	i.columns = slices.Clone(columns)
	return i
}

// Equal compares uniqueness and the ordered column list.
func (i *Index) Equal(o *Index) bool {
	return i.unique == o.unique && slices.Equal(i.columns, o.columns)
}

func (i *Index) clone() *Index {
	cp := *i
	cp.columns = slices.Clone(i.columns)
	return &cp
}

// Rule is a foreign key ON DELETE / ON UPDATE action.
type Rule string

const (
	Cascade  Rule = "CASCADE"
	SetNull  Rule = "SET NULL"
	Restrict Rule = "RESTRICT"
	NoAction Rule = "NO ACTION"
)

// ParseRule normalizes catalog output such as "set null" or "NO_ACTION"; unknown values
// become NoAction.
func ParseRule(value string) Rule {
	v := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(value, "_", " ")))
	switch Rule(v) {
	case Cascade, SetNull, Restrict:
		return Rule(v)
	default:
		return NoAction
	}
}

// equivalent treats RESTRICT and NO ACTION as one rule: engines report them
// interchangeably when constraints are not deferred.
func (r Rule) equivalent(o Rule) bool {
	norm := func(r Rule) Rule {
		if r == Restrict || r == "" {
			return NoAction
		}
		return r
	}
	return norm(r) == norm(o)
}

// Reference is a single column foreign key.
type Reference struct {
	table        string
	name         string
	column       string
	foreignTable string
	foreignKey   string
	onDelete     Rule
	onUpdate     Rule
}

// NewReference creates a foreign key on column. An empty name is generated from the table
// and column.
func NewReference(table, name, column string) *Reference {
	if name == "" {
		name = referenceName(table, column)
	}
	return &Reference{table: table, name: name, column: column, onDelete: NoAction, onUpdate: NoAction}
}

func referenceName(table, column string) string {
	return table + "_" + column + "_fk"
}

func (r *Reference) Name() string         { return r.name }
func (r *Reference) Table() string        { return r.table }
func (r *Reference) Column() string       { return r.column }
func (r *Reference) ForeignTable() string { return r.foreignTable }
func (r *Reference) ForeignKey() string   { return r.foreignKey }
func (r *Reference) DeleteRule() Rule     { return r.onDelete }
func (r *Reference) UpdateRule() Rule     { return r.onUpdate }

// References points the key at table.key.
func (r *Reference) References(table, key string) *Reference {
	r.foreignTable, r.foreignKey = table, key
	return r
}

func (r *Reference) OnDelete(rule Rule) *Reference {
	r.onDelete = rule
	return r
}

func (r *Reference) OnUpdate(rule Rule) *Reference {
	r.onUpdate = rule
	return r
}

// Equal compares the local column, the target and both rules.
func (r *Reference) Equal(o *Reference) bool {
	return r.column == o.column &&
		r.foreignTable == o.foreignTable &&
		r.foreignKey == o.foreignKey &&
		r.onDelete.equivalent(o.onDelete) &&
		r.onUpdate.equivalent(o.onUpdate)
}

func (r *Reference) clone() *Reference {
	cp := *r
	return &cp
}

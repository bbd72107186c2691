package schema

import (
	"strings"
)

// Quoter quotes identifiers and literals. dialect.Dialect satisfies it.
type Quoter interface {
	QuoteIdentifier(name string) string
	Quote(value any) string
}

// Identifiers quotes and joins names with ", ".
func Identifiers(q Quoter, names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = q.QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}

// DefaultClause renders " DEFAULT ..." or "" when the column has no default or its type
// forbids one.
func DefaultClause(q Quoter, c *Column) string {
	if c.def.IsNull() {
		return ""
	}
	if c.types != nil && c.types.ForbidsDefault(c.typ) {
		return ""
	}
	return " DEFAULT " + c.def.SQL(q.Quote)
}

// EnumCheck renders CHECK ("col" IN ('a', 'b')) for dialects without a native enum.
func EnumCheck(q Quoter, c *Column) string {
	values := make([]string, len(c.enumValues))
	for i, v := range c.enumValues {
		values[i] = q.Quote(v)
	}
	return "CHECK (" + q.QuoteIdentifier(c.name) + " IN (" + strings.Join(values, ", ") + "))"
}

// ReferenceClause renders a named FOREIGN KEY constraint.
func ReferenceClause(q Quoter, r *Reference) string {
	var b strings.Builder
	b.WriteString("CONSTRAINT ")
	b.WriteString(q.QuoteIdentifier(r.name))
	b.WriteString(" FOREIGN KEY (")
	b.WriteString(q.QuoteIdentifier(r.column))
	b.WriteString(") REFERENCES ")
	b.WriteString(q.QuoteIdentifier(r.foreignTable))
	b.WriteString(" (")
	b.WriteString(q.QuoteIdentifier(r.foreignKey))
	b.WriteString(") ON DELETE ")
	b.WriteString(string(ruleOrDefault(r.onDelete)))
	b.WriteString(" ON UPDATE ")
	b.WriteString(string(ruleOrDefault(r.onUpdate)))
	return b.String()
}

func ruleOrDefault(r Rule) Rule {
	if r == "" {
		return NoAction
	}
	return r
}

// CreateIndex renders CREATE [UNIQUE] INDEX.
func CreateIndex(q Quoter, idx *Index) string {
	kind := "INDEX"
	if idx.unique {
		kind = "UNIQUE INDEX"
	}
	return "CREATE " + kind + " " + q.QuoteIdentifier(idx.name) +
		" ON " + q.QuoteIdentifier(idx.table) + " (" + Identifiers(q, idx.columns) + ")"
}

// CreateTableStatement renders CREATE TABLE for state. define renders each column; extra adds
// table level clauses after the columns. skipPrimary omits the PRIMARY KEY clause, for
// dialects that declare it inline on an auto incremented column.
func CreateTableStatement(q Quoter, state *State, define func(*Column) string, extra []string, skipPrimary bool) string {
	lines := make([]string, 0, len(state.columns)+len(state.references)+len(extra)+1)
	for _, c := range state.columns {
		lines = append(lines, define(c))
	}
	if len(state.primaryKeys) > 0 && !skipPrimary {
		lines = append(lines, "PRIMARY KEY ("+Identifiers(q, state.primaryKeys)+")")
	}
	lines = append(lines, extra...)
	for _, r := range state.references {
		lines = append(lines, ReferenceClause(q, r))
	}
	return "CREATE TABLE " + q.QuoteIdentifier(state.name) + " (\n    " +
		strings.Join(lines, ",\n    ") + "\n)"
}

// DropTableStatement renders DROP TABLE.
func DropTableStatement(q Quoter, table string) string {
	return "DROP TABLE " + q.QuoteIdentifier(table)
}

// AlterTable prefixes clause with ALTER TABLE "table".
func AlterTable(q Quoter, table, clause string) string {
	return "ALTER TABLE " + q.QuoteIdentifier(table) + " " + clause
}

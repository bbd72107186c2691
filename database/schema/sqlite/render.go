package sqlite

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spiral-modules/dbal/database/schema"
	"github.com/spiral-modules/dbal/database/types"
)

// ColumnDefinition renders "name" type PRIMARY KEY AUTOINCREMENT NOT NULL DEFAULT .. CHECK (..).
func (h *Handler) ColumnDefinition(c *schema.Column) string {
	var b strings.Builder
	b.WriteString(h.q.QuoteIdentifier(c.Name()))
	b.WriteByte(' ')
	b.WriteString(columnType(c, h.types))

	if c.IsAutoIncrement() {
		b.WriteString(" PRIMARY KEY AUTOINCREMENT")
	}
	if c.IsNullable() && !c.IsAutoIncrement() {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if !c.IsAutoIncrement() {
		b.WriteString(schema.DefaultClause(h.q, c))
	}
	if c.AbstractType() == schema.Enum && len(c.EnumValues()) > 0 {
		b.WriteString(" " + schema.EnumCheck(h.q, c))
	}
	return b.String()
}

func columnType(c *schema.Column, m *schema.TypeMap) string {
	switch {
	case c.Precision() > 0:
		return c.Type() + "(" + strconv.Itoa(c.Precision()) + ", " + strconv.Itoa(c.Scale()) + ")"
	case c.Size() > 0 && m.Sized(c.Type()):
		return c.Type() + "(" + strconv.Itoa(c.Size()) + ")"
	default:
		return c.Type()
	}
}

// inlinePrimary reports whether the primary key is declared on its auto incremented column.
func inlinePrimary(state *schema.State) bool {
	for _, c := range state.Columns() {
		if c.IsAutoIncrement() && slices.Equal(state.PrimaryKeys(), []string{c.Name()}) {
			return true
		}
	}
	return false
}

func (h *Handler) createTable(state *schema.State) string {
	return schema.CreateTableStatement(h.q, state, h.ColumnDefinition, nil, inlinePrimary(state))
}

// Render returns the DDL for op. Column alterations, foreign key changes and dropping an
// index that backs a UNIQUE constraint need WithTableRebuild.
func (h *Handler) Render(op schema.Operation) ([]string, error) {
	q := h.q
	switch op.Kind {
	case schema.CreateTable:
		return []string{h.createTable(op.State)}, nil
	case schema.DropTable:
		return []string{schema.DropTableStatement(q, op.Table)}, nil
	case schema.AddColumn:
		return []string{schema.AlterTable(q, op.Table, "ADD COLUMN "+h.ColumnDefinition(op.Column))}, nil
	case schema.DropColumn:
		return []string{schema.AlterTable(q, op.Table, "DROP COLUMN "+q.QuoteIdentifier(op.InitialColumn.Name()))}, nil
	case schema.AddIndex:
		return []string{schema.CreateIndex(q, op.Index)}, nil
	case schema.AlterIndex:
		if isAutoIndex(op.InitialIndex) {
			break
		}
		return []string{"DROP INDEX " + q.QuoteIdentifier(op.InitialIndex.Name()), schema.CreateIndex(q, op.Index)}, nil
	case schema.DropIndex:
		if isAutoIndex(op.InitialIndex) {
			break
		}
		return []string{"DROP INDEX " + q.QuoteIdentifier(op.InitialIndex.Name())}, nil
	case schema.RebuildTable:
		if !h.rebuild {
			break
		}
		return h.rebuildTable(op.Initial, op.State), nil
	}
	return nil, fmt.Errorf("%s: %w", op.Kind, types.ErrNotSupported)
}

// Plan replaces the operation list with a single rebuild when it holds an operation
// SQLite cannot run in place and rebuilding is enabled.
func (h *Handler) Plan(initial, current *schema.State, ops []schema.Operation) []schema.Operation {
	if !h.rebuild {
		return ops
	}
	for _, op := range ops {
		if needsRebuild(op) {
			return []schema.Operation{{
				Kind:    schema.RebuildTable,
				Table:   current.Name(),
				State:   current,
				Initial: initial,
			}}
		}
	}
	return ops
}

func needsRebuild(op schema.Operation) bool {
	switch op.Kind {
	case schema.AlterColumn, schema.AddForeignKey, schema.DropForeignKey:
		return true
	case schema.AlterIndex, schema.DropIndex:
		return isAutoIndex(op.InitialIndex)
	}
	return false
}

// autoIndexPrefix starts the names SQLite gives the indexes behind UNIQUE constraints.
// The names are reserved and the indexes go away only with their table.
const autoIndexPrefix = "sqlite_autoindex_"

func isAutoIndex(idx *schema.Index) bool {
	return idx != nil && strings.HasPrefix(idx.Name(), autoIndexPrefix)
}

// rebuildTable creates the desired table under a temporary name, copies the columns both
// states share, swaps the tables and recreates the indexes. Constraint indexes come back
// as plain indexes under a generated name.
func (h *Handler) rebuildTable(initial, current *schema.State) []string {
	q := h.q
	table := current.Name()
	temp := h.tempName(table)

	var shared []string
	for _, c := range current.Columns() {
		if initial.Column(c.Name()) != nil {
			shared = append(shared, c.Name())
		}
	}

	stmts := []string{h.createTable(current.Renamed(temp))}
	if len(shared) > 0 {
		cols := schema.Identifiers(q, shared)
		stmts = append(stmts, "INSERT INTO "+q.QuoteIdentifier(temp)+" ("+cols+") SELECT "+cols+" FROM "+q.QuoteIdentifier(table))
	}
	stmts = append(stmts,
		schema.DropTableStatement(q, table),
		schema.AlterTable(q, temp, "RENAME TO "+q.QuoteIdentifier(table)),
	)
	for _, idx := range current.Indexes() {
		if isAutoIndex(idx) {
			idx = schema.NewIndex(table, "", idx.Columns()...).Unique(idx.IsUnique())
		}
		stmts = append(stmts, schema.CreateIndex(q, idx))
	}
	return stmts
}

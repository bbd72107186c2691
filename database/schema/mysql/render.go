package mysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spiral-modules/dbal/database/schema"
	"github.com/spiral-modules/dbal/database/types"
)

// ColumnDefinition renders `name` type NOT NULL DEFAULT .. AUTO_INCREMENT.
func (h *Handler) ColumnDefinition(c *schema.Column) string {
	var b strings.Builder
	b.WriteString(h.q.QuoteIdentifier(c.Name()))
	b.WriteByte(' ')
	b.WriteString(h.columnType(c))

	if c.IsNullable() {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if !c.IsAutoIncrement() {
		b.WriteString(schema.DefaultClause(h.q, c))
	}
	if c.IsAutoIncrement() {
		b.WriteString(" AUTO_INCREMENT")
	}
	return b.String()
}

func (h *Handler) columnType(c *schema.Column) string {
	switch {
	case c.AbstractType() == schema.Enum || strings.EqualFold(c.Type(), "enum"):
		values := make([]string, 0, len(c.EnumValues()))
		for _, v := range c.EnumValues() {
			values = append(values, h.q.Quote(v))
		}
		return "enum(" + strings.Join(values, ", ") + ")"
	case c.Precision() > 0:
		return c.Type() + "(" + strconv.Itoa(c.Precision()) + ", " + strconv.Itoa(c.Scale()) + ")"
	case c.Size() > 0:
		return c.Type() + "(" + strconv.Itoa(c.Size()) + ")"
	default:
		return c.Type()
	}
}

// Render returns the DDL for op. Table rebuilds are not supported.
func (h *Handler) Render(op schema.Operation) ([]string, error) {
	q := h.q
	switch op.Kind {
	case schema.CreateTable:
		stmt := schema.CreateTableStatement(q, op.State, h.ColumnDefinition, nil, false)
		if h.engine != "" {
			stmt += " ENGINE = " + h.engine
		}
		return []string{stmt}, nil
	case schema.DropTable:
		return []string{schema.DropTableStatement(q, op.Table)}, nil
	case schema.AddColumn:
		return []string{schema.AlterTable(q, op.Table, "ADD COLUMN "+h.ColumnDefinition(op.Column))}, nil
	case schema.AlterColumn:
		return []string{schema.AlterTable(q, op.Table,
			"CHANGE "+q.QuoteIdentifier(op.InitialColumn.Name())+" "+h.ColumnDefinition(op.Column))}, nil
	case schema.DropColumn:
		return []string{schema.AlterTable(q, op.Table, "DROP COLUMN "+q.QuoteIdentifier(op.InitialColumn.Name()))}, nil
	case schema.AddIndex:
		return []string{schema.CreateIndex(q, op.Index)}, nil
	case schema.AlterIndex:
		return []string{h.dropIndex(op.Table, op.InitialIndex), schema.CreateIndex(q, op.Index)}, nil
	case schema.DropIndex:
		return []string{h.dropIndex(op.Table, op.InitialIndex)}, nil
	case schema.AddForeignKey:
		return []string{schema.AlterTable(q, op.Table, "ADD "+schema.ReferenceClause(q, op.Reference))}, nil
	case schema.DropForeignKey:
		return []string{schema.AlterTable(q, op.Table, "DROP FOREIGN KEY "+q.QuoteIdentifier(op.InitialReference.Name()))}, nil
	default:
		return nil, fmt.Errorf("%s: %w", op.Kind, types.ErrNotSupported)
	}
}

func (h *Handler) dropIndex(table string, idx *schema.Index) string {
	return "DROP INDEX " + h.q.QuoteIdentifier(idx.Name()) + " ON " + h.q.QuoteIdentifier(table)
}

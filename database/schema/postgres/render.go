package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spiral-modules/dbal/database/schema"
	"github.com/spiral-modules/dbal/database/types"
)

// ColumnDefinition renders "name" type NOT NULL DEFAULT .. with serial types for auto
// incremented integers and a named CHECK constraint for enums.
func (h *Handler) ColumnDefinition(c *schema.Column) string {
	var b strings.Builder
	b.WriteString(h.q.QuoteIdentifier(c.Name()))
	b.WriteByte(' ')
	b.WriteString(h.columnType(c))

	if c.IsNullable() && !c.IsAutoIncrement() {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if !c.IsAutoIncrement() {
		b.WriteString(schema.DefaultClause(h.q, c))
	}
	if c.AbstractType() == schema.Enum && len(c.EnumValues()) > 0 {
		b.WriteString(" CONSTRAINT " + h.q.QuoteIdentifier(checkName(c)) + " " + schema.EnumCheck(h.q, c))
	}
	return b.String()
}

// checkName matches the name PostgreSQL gives an unnamed column check.
func checkName(c *schema.Column) string {
	return c.Table() + "_" + c.Name() + "_check"
}

func (h *Handler) columnType(c *schema.Column) string {
	if c.IsAutoIncrement() {
		if strings.EqualFold(c.Type(), "bigint") {
			return "bigserial"
		}
		return "serial"
	}
	switch {
	case c.Precision() > 0:
		return c.Type() + "(" + strconv.Itoa(c.Precision()) + ", " + strconv.Itoa(c.Scale()) + ")"
	case c.Size() > 0 && h.types.Sized(c.Type()):
		return c.Type() + "(" + strconv.Itoa(c.Size()) + ")"
	default:
		return c.Type()
	}
}

// alterColumn renders every ALTER COLUMN action needed to turn before into after.
func (h *Handler) alterColumn(table string, before, after *schema.Column) []string {
	q := h.q
	name := q.QuoteIdentifier(after.Name())
	var actions []string

	if !strings.EqualFold(before.Type(), after.Type()) || before.Size() != after.Size() ||
		before.Precision() != after.Precision() || before.Scale() != after.Scale() {
		typ := h.columnType(after)
		if after.IsAutoIncrement() {
			typ = after.Type()
		}
		actions = append(actions, "ALTER COLUMN "+name+" TYPE "+typ+" USING "+name+"::"+typ)
	}
	if before.IsNullable() != after.IsNullable() {
		if after.IsNullable() {
			actions = append(actions, "ALTER COLUMN "+name+" DROP NOT NULL")
		} else {
			actions = append(actions, "ALTER COLUMN "+name+" SET NOT NULL")
		}
	}
	if !after.IsAutoIncrement() && !before.DefaultValue().Equal(after.DefaultValue()) {
		if clause := schema.DefaultClause(q, after); clause != "" {
			actions = append(actions, "ALTER COLUMN "+name+" SET"+clause)
		} else {
			actions = append(actions, "ALTER COLUMN "+name+" DROP DEFAULT")
		}
	}

	check := q.QuoteIdentifier(checkName(after))
	enumChanged := before.AbstractType() != after.AbstractType() ||
		strings.Join(before.EnumValues(), "\x00") != strings.Join(after.EnumValues(), "\x00")
	if enumChanged {
		if before.AbstractType() == schema.Enum {
			actions = append(actions, "DROP CONSTRAINT IF EXISTS "+check)
		}
		if after.AbstractType() == schema.Enum && len(after.EnumValues()) > 0 {
			actions = append(actions, "ADD CONSTRAINT "+check+" "+schema.EnumCheck(q, after))
		}
	}

	if len(actions) == 0 {
		return nil
	}
	return []string{schema.AlterTable(q, table, strings.Join(actions, ", "))}
}

// Render returns the DDL for op. Table rebuilds are not supported.
func (h *Handler) Render(op schema.Operation) ([]string, error) {
	q := h.q
	switch op.Kind {
	case schema.CreateTable:
		return []string{schema.CreateTableStatement(q, op.State, h.ColumnDefinition, nil, false)}, nil
	case schema.DropTable:
		return []string{schema.DropTableStatement(q, op.Table)}, nil
	case schema.AddColumn:
		return []string{schema.AlterTable(q, op.Table, "ADD COLUMN "+h.ColumnDefinition(op.Column))}, nil
	case schema.AlterColumn:
		return h.alterColumn(op.Table, op.InitialColumn, op.Column), nil
	case schema.DropColumn:
		return []string{schema.AlterTable(q, op.Table, "DROP COLUMN "+q.QuoteIdentifier(op.InitialColumn.Name()))}, nil
	case schema.AddIndex:
		return []string{schema.CreateIndex(q, op.Index)}, nil
	case schema.AlterIndex:
		return []string{"DROP INDEX " + q.QuoteIdentifier(op.InitialIndex.Name()), schema.CreateIndex(q, op.Index)}, nil
	case schema.DropIndex:
		return []string{"DROP INDEX " + q.QuoteIdentifier(op.InitialIndex.Name())}, nil
	case schema.AddForeignKey:
		return []string{schema.AlterTable(q, op.Table, "ADD "+schema.ReferenceClause(q, op.Reference))}, nil
	case schema.DropForeignKey:
		return []string{schema.AlterTable(q, op.Table, "DROP CONSTRAINT "+q.QuoteIdentifier(op.InitialReference.Name()))}, nil
	default:
		return nil, fmt.Errorf("%s: %w", op.Kind, types.ErrNotSupported)
	}
}

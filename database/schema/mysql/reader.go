package mysql

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spiral-modules/dbal/database/result"
	"github.com/spiral-modules/dbal/database/schema"
)

const primaryIndex = "PRIMARY"

const hasTableQuery = `SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`

const referencesQuery = `SELECT rc.CONSTRAINT_NAME, kcu.COLUMN_NAME, kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME, rc.DELETE_RULE, rc.UPDATE_RULE
FROM information_schema.REFERENTIAL_CONSTRAINTS rc
JOIN information_schema.KEY_COLUMN_USAGE kcu
  ON kcu.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA AND kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME AND kcu.TABLE_NAME = rc.TABLE_NAME
WHERE rc.CONSTRAINT_SCHEMA = DATABASE() AND rc.TABLE_NAME = ?
ORDER BY rc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

var bitLiteral = regexp.MustCompile(`^b'([01]+)'$`)

func (h *Handler) TableNames(ctx context.Context, exec schema.Executor) ([]string, error) {
	rows, err := schema.FetchRows(ctx, exec, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, result.AsString(row.Index(0)))
	}
	return names, nil
}

func (h *Handler) HasTable(ctx context.Context, exec schema.Executor, table string) (bool, error) {
	rows, err := schema.FetchRows(ctx, exec, hasTableQuery, table)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	n, _ := result.AsInt(rows[0].Index(0))
	return n > 0, nil
}

func (h *Handler) Columns(ctx context.Context, exec schema.Executor, table string) ([]*schema.Column, error) {
	rows, err := schema.FetchRows(ctx, exec, "SHOW FULL COLUMNS FROM "+h.q.QuoteIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	columns := make([]*schema.Column, 0, len(rows))
	for _, row := range rows {
		desc := schema.ParseType(row.String("Type"))
		extra := strings.ToLower(row.String("Extra"))

		c := schema.NewColumn(row.String("Field"), h.types).
			SetConcrete(desc, strings.Contains(extra, "auto_increment")).
			Nullable(strings.EqualFold(row.String("Null"), "YES"))
		if !row.IsNull("Default") {
			c.Default(columnDefault(row.String("Default"), extra, desc, c.AbstractType()))
		}
		columns = append(columns, c)
	}
	return columns, nil
}

// columnDefault converts SHOW COLUMNS output into a typed default: b'1' bit literals
// become integers and generated expressions stay raw SQL.
func columnDefault(value, extra string, desc schema.TypeDescriptor, t schema.AbstractType) schema.Default {
	if m := bitLiteral.FindStringSubmatch(value); m != nil {
		n, err := strconv.ParseInt(m[1], 2, 64)
		if err == nil {
			return schema.IntDefault(n)
		}
	}
	if strings.Contains(extra, "default_generated") || strings.EqualFold(value, "CURRENT_TIMESTAMP") ||
		strings.HasPrefix(strings.ToUpper(value), "CURRENT_TIMESTAMP(") {
		return schema.RawDefault(value)
	}
	if desc.Type == "bit" {
		return schema.TypedDefault(value, schema.Integer)
	}
	return schema.TypedDefault(value, t)
}

type indexRow struct {
	name   string
	unique bool
	column string
}

func (h *Handler) indexRows(ctx context.Context, exec schema.Executor, table string) ([]indexRow, error) {
	rows, err := schema.FetchRows(ctx, exec, "SHOW INDEXES FROM "+h.q.QuoteIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes of %s: %w", table, err)
	}
	out := make([]indexRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, indexRow{
			name:   row.String("Key_name"),
			unique: row.Int("Non_unique") == 0,
			column: row.String("Column_name"),
		})
	}
	return out, nil
}

// Indexes skips PRIMARY and the indexes MySQL creates implicitly for foreign keys.
func (h *Handler) Indexes(ctx context.Context, exec schema.Executor, table string) ([]*schema.Index, error) {
	rows, err := h.indexRows(ctx, exec, table)
	if err != nil {
		return nil, err
	}
	refs, err := h.References(ctx, exec, table)
	if err != nil {
		return nil, err
	}
	implicit := make(map[string]bool, len(refs))
	for _, r := range refs {
		implicit[r.Name()] = true
	}

	var indexes []*schema.Index
	byName := map[string]*schema.Index{}
	for _, row := range rows {
		if row.name == primaryIndex || implicit[row.name] {
			continue
		}
		idx, ok := byName[row.name]
		if !ok {
			idx = schema.NewIndex(table, row.name).Unique(row.unique)
			byName[row.name] = idx
			indexes = append(indexes, idx)
		}
		idx.SetColumns(append(idx.Columns(), row.column)...)
	}
	return indexes, nil
}

func (h *Handler) References(ctx context.Context, exec schema.Executor, table string) ([]*schema.Reference, error) {
	rows, err := schema.FetchRows(ctx, exec, referencesQuery, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}
	refs := make([]*schema.Reference, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, schema.NewReference(table, row.String("CONSTRAINT_NAME"), row.String("COLUMN_NAME")).
			References(row.String("REFERENCED_TABLE_NAME"), row.String("REFERENCED_COLUMN_NAME")).
			OnDelete(schema.ParseRule(row.String("DELETE_RULE"))).
			OnUpdate(schema.ParseRule(row.String("UPDATE_RULE"))))
	}
	return refs, nil
}

func (h *Handler) PrimaryKeys(ctx context.Context, exec schema.Executor, table string) ([]string, error) {
	rows, err := h.indexRows(ctx, exec, table)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, row := range rows {
		if row.name == primaryIndex {
			keys = append(keys, row.column)
		}
	}
	return keys, nil
}

package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spiral-modules/dbal/database/result"
	"github.com/spiral-modules/dbal/database/schema"
)

const (
	tableNamesQuery = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name`

	hasTableQuery = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' AND table_name = ?`

	columnsQuery = `SELECT column_name, data_type, is_nullable, column_default, character_maximum_length, numeric_precision, numeric_scale
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = ?
ORDER BY ordinal_position`

	checksQuery = `SELECT a.attname AS column_name, pg_get_constraintdef(c.oid) AS definition
FROM pg_constraint c
JOIN pg_class t ON t.oid = c.conrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = c.conkey[1]
WHERE c.contype = 'c' AND array_length(c.conkey, 1) = 1 AND n.nspname = current_schema() AND t.relname = ?`

	indexesQuery = `SELECT i.relname AS index_name, ix.indisunique AS is_unique, a.attname AS column_name
FROM pg_index ix
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE NOT ix.indisprimary AND n.nspname = current_schema() AND t.relname = ?
ORDER BY i.relname, k.ord`

	referencesQuery = `SELECT tc.constraint_name, kcu.column_name, ccu.table_name AS foreign_table, ccu.column_name AS foreign_column, rc.delete_rule, rc.update_rule
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
JOIN information_schema.constraint_column_usage ccu ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
JOIN information_schema.referential_constraints rc ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = current_schema() AND tc.table_name = ?
ORDER BY tc.constraint_name`

	primaryKeysQuery = `SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema AND kcu.table_name = tc.table_name
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = current_schema() AND tc.table_name = ?
ORDER BY kcu.ordinal_position`
)

var (
	castSuffix  = regexp.MustCompile(`::[a-z ]+(\[\])?$`)
	enumCheck   = regexp.MustCompile(`(?i)(= ANY|\sIN\s*\()`)
	literalBody = regexp.MustCompile(`^'((?:[^']|'')*)'$`)
)

func (h *Handler) TableNames(ctx context.Context, exec schema.Executor) ([]string, error) {
	rows, err := schema.FetchRows(ctx, exec, tableNamesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.String("table_name"))
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

// enumValues maps columns to the values of their single column IN / = ANY checks.
func (h *Handler) enumValues(ctx context.Context, exec schema.Executor, table string) (map[string][]string, error) {
	rows, err := schema.FetchRows(ctx, exec, checksQuery, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read check constraints of %s: %w", table, err)
	}
	out := map[string][]string{}
	for _, row := range rows {
		def := row.String("definition")
		if !enumCheck.MatchString(def) {
			continue
		}
		if values := schema.QuotedValues(def); len(values) > 0 {
			out[row.String("column_name")] = values
		}
	}
	return out, nil
}

func (h *Handler) Columns(ctx context.Context, exec schema.Executor, table string) ([]*schema.Column, error) {
	rows, err := schema.FetchRows(ctx, exec, columnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	enums, err := h.enumValues(ctx, exec, table)
	if err != nil {
		return nil, err
	}

	columns := make([]*schema.Column, 0, len(rows))
	for _, row := range rows {
		name := row.String("column_name")
		desc := schema.TypeDescriptor{Type: strings.ToLower(row.String("data_type"))}
		if n, ok := result.AsInt(row.Index(4)); ok {
			desc.Size = int(n)
		}
		if desc.Type == "numeric" {
			p, _ := result.AsInt(row.Index(5))
			s, _ := result.AsInt(row.Index(6))
			desc.Precision, desc.Scale = int(p), int(s)
		}
		desc.Values = enums[name]

		def := row.String("column_default")
		auto := strings.HasPrefix(def, "nextval(")

		c := schema.NewColumn(name, h.types).
			SetConcrete(desc, auto).
			Nullable(strings.EqualFold(row.String("is_nullable"), "YES"))
		if !auto && !row.IsNull("column_default") {
			c.Default(parseDefault(def, c.AbstractType()))
		}
		columns = append(columns, c)
	}
	return columns, nil
}

// parseDefault strips casts and parentheses from a catalog default expression.
func parseDefault(value string, t schema.AbstractType) schema.Default {
	v := strings.TrimSpace(value)
	for strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	v = castSuffix.ReplaceAllString(v, "")

	if strings.EqualFold(v, "NULL") {
		return schema.NullDefault()
	}
	if m := literalBody.FindStringSubmatch(v); m != nil {
		return schema.TypedDefault(strings.ReplaceAll(m[1], "''", "'"), t)
	}
	d := schema.TypedDefault(v, t)
	if d.Kind() == schema.DefaultString {
		return schema.RawDefault(v)
	}
	return d
}

func (h *Handler) Indexes(ctx context.Context, exec schema.Executor, table string) ([]*schema.Index, error) {
	rows, err := schema.FetchRows(ctx, exec, indexesQuery, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes of %s: %w", table, err)
	}

	var indexes []*schema.Index
	byName := map[string]*schema.Index{}
	for _, row := range rows {
		name := row.String("index_name")
		idx, ok := byName[name]
		if !ok {
			unique, _ := row.Get("is_unique")
			idx = schema.NewIndex(table, name).Unique(isTrue(unique))
			byName[name] = idx
			indexes = append(indexes, idx)
		}
		idx.SetColumns(append(idx.Columns(), row.String("column_name"))...)
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
		refs = append(refs, schema.NewReference(table, row.String("constraint_name"), row.String("column_name")).
			References(row.String("foreign_table"), row.String("foreign_column")).
			OnDelete(schema.ParseRule(row.String("delete_rule"))).
			OnUpdate(schema.ParseRule(row.String("update_rule"))))
	}
	return refs, nil
}

func (h *Handler) PrimaryKeys(ctx context.Context, exec schema.Executor, table string) ([]string, error) {
	rows, err := schema.FetchRows(ctx, exec, primaryKeysQuery, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary key of %s: %w", table, err)
	}
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.String("column_name"))
	}
	return keys, nil
}

func isTrue(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	default:
		s := strings.ToLower(result.AsString(v))
		return s == "t" || s == "true" || s == "1"
	}
}

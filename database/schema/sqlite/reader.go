package sqlite

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spiral-modules/dbal/database/result"
	"github.com/spiral-modules/dbal/database/schema"
)

const (
	tableNamesQuery = `SELECT "name" FROM "sqlite_master" WHERE "type" = 'table' AND "name" NOT LIKE 'sqlite_%' ORDER BY "name"`
	hasTableQuery   = `SELECT COUNT(*) FROM "sqlite_master" WHERE "type" = 'table' AND "name" = ?`
	tableSQLQuery   = `SELECT "sql" FROM "sqlite_master" WHERE "type" = 'table' AND "name" = ?`
)

var (
	checkPattern   = regexp.MustCompile("(?is)CHECK\\s*\\(\\s*[\"`\\[]?(\\w+)[\"`\\]]?\\s+IN\\s*\\(([^)]*)\\)\\s*\\)")
	autoIncPattern = regexp.MustCompile(`(?i)\bAUTOINCREMENT\b`)
)

func (h *Handler) pragma(name, table string) string {
	return "PRAGMA " + name + "(" + h.q.QuoteIdentifier(table) + ")"
}

func (h *Handler) TableNames(ctx context.Context, exec schema.Executor) ([]string, error) {
	rows, err := schema.FetchRows(ctx, exec, tableNamesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.String("name"))
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

func (h *Handler) tableSQL(ctx context.Context, exec schema.Executor, table string) (string, error) {
	rows, err := schema.FetchRows(ctx, exec, tableSQLQuery, table)
	if err != nil || len(rows) == 0 {
		return "", err
	}
	return rows[0].String("sql"), nil
}

// enumChecks maps column names to the values of CHECK ("col" IN (...)) constraints.
func enumChecks(ddl string) map[string][]string {
	out := map[string][]string{}
	for _, m := range checkPattern.FindAllStringSubmatch(ddl, -1) {
		out[m[1]] = schema.QuotedValues(m[2])
	}
	return out
}

func (h *Handler) Columns(ctx context.Context, exec schema.Executor, table string) ([]*schema.Column, error) {
	ddl, err := h.tableSQL(ctx, exec, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition of %s: %w", table, err)
	}
	rows, err := schema.FetchRows(ctx, exec, h.pragma("table_info", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	enums := enumChecks(ddl)
	autoIncrement := autoIncPattern.MatchString(ddl)

	columns := make([]*schema.Column, 0, len(rows))
	for _, row := range rows {
		name := row.String("name")
		desc := schema.ParseType(row.String("type"))
		if values, ok := enums[name]; ok {
			desc.Values = values
		}
		auto := autoIncrement && row.Int("pk") > 0 && desc.Type == "integer"

		c := schema.NewColumn(name, h.types).
			SetConcrete(desc, auto).
			Nullable(row.Int("notnull") == 0 && row.Int("pk") == 0)
		if !row.IsNull("dflt_value") {
			c.Default(parseDefault(row.String("dflt_value"), c.AbstractType()))
		}
		columns = append(columns, c)
	}
	return columns, nil
}

// parseDefault converts the SQL text SQLite stores for a default.
func parseDefault(value string, t schema.AbstractType) schema.Default {
	value = strings.TrimSpace(value)
	switch {
	case strings.EqualFold(value, "NULL"):
		return schema.NullDefault()
	case len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'':
		return schema.TypedDefault(strings.ReplaceAll(value[1:len(value)-1], "''", "'"), t)
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return schema.TypedDefault(value, t)
	}
	if t == schema.Boolean {
		return schema.TypedDefault(value, t)
	}
	return schema.RawDefault(value)
}

// Indexes skips the automatic indexes SQLite creates for primary keys. Indexes behind
// UNIQUE constraints are listed under their sqlite_autoindex_ name.
func (h *Handler) Indexes(ctx context.Context, exec schema.Executor, table string) ([]*schema.Index, error) {
	list, err := schema.FetchRows(ctx, exec, h.pragma("index_list", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes of %s: %w", table, err)
	}

	var indexes []*schema.Index
	for _, row := range list {
		if row.String("origin") == "pk" {
			continue
		}
		name := row.String("name")
		info, err := schema.FetchRows(ctx, exec, h.pragma("index_info", name))
		if err != nil {
			return nil, fmt.Errorf("failed to read index %s: %w", name, err)
		}
		sort.SliceStable(info, func(i, j int) bool { return info[i].Int("seqno") < info[j].Int("seqno") })

		columns := make([]string, 0, len(info))
		for _, col := range info {
			columns = append(columns, col.String("name"))
		}
		indexes = append(indexes, schema.NewIndex(table, name, columns...).Unique(row.Int("unique") == 1))
	}

	// index_list reports the newest index first.
	sort.SliceStable(indexes, func(i, j int) bool { return indexes[i].Name() < indexes[j].Name() })
	return indexes, nil
}

// References names foreign keys {table}_{column}_fk, as SQLite does not report
// constraint names.
func (h *Handler) References(ctx context.Context, exec schema.Executor, table string) ([]*schema.Reference, error) {
	rows, err := schema.FetchRows(ctx, exec, h.pragma("foreign_key_list", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}
	refs := make([]*schema.Reference, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, schema.NewReference(table, "", row.String("from")).
			References(row.String("table"), row.String("to")).
			OnDelete(schema.ParseRule(row.String("on_delete"))).
			OnUpdate(schema.ParseRule(row.String("on_update"))))
	}
	return refs, nil
}

func (h *Handler) PrimaryKeys(ctx context.Context, exec schema.Executor, table string) ([]string, error) {
	rows, err := schema.FetchRows(ctx, exec, h.pragma("table_info", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read primary key of %s: %w", table, err)
	}
	type key struct {
		name  string
		order int64
	}
	var keys []key
	for _, row := range rows {
		if pk := row.Int("pk"); pk > 0 {
			keys = append(keys, key{name: row.String("name"), order: pk})
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].order < keys[j].order })

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.name
	}
	return out, nil
}

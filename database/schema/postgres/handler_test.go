package postgres

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiral-modules/dbal/database/dbtest"
	"github.com/spiral-modules/dbal/database/driver"
	"github.com/spiral-modules/dbal/database/schema"
)

func newTestHandler(t *testing.T) (*Handler, *driver.Driver, sqlmock.Sqlmock) {
	t.Helper()
	d, mock := dbtest.Mock(t, "postgres")
	return New(d.Dialect()), d, mock
}

// native rewrites the single ? marker of a catalog query the way the driver does.
func native(query string) string {
	return strings.Replace(query, "?", "$1", 1)
}

var columnHeader = []string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length", "numeric_precision", "numeric_scale"}

func TestColumns(t *testing.T) {
	h, d, mock := newTestHandler(t)
	mock.ExpectQuery(native(columnsQuery)).WithArgs("users").WillReturnRows(sqlmock.NewRows(columnHeader).
		AddRow("id", "bigint", "NO", "nextval('users_id_seq'::regclass)", nil, 64, 0).
		AddRow("email", "character varying", "NO", "''::character varying", 255, nil, nil).
		AddRow("status", "character varying", "NO", "'a'::character varying", 1, nil, nil).
		AddRow("active", "boolean", "YES", "true", nil, nil, nil).
		AddRow("price", "numeric", "YES", "0", nil, 8, 2).
		AddRow("delta", "integer", "YES", "'-1'::integer", nil, 32, 0).
		AddRow("created_at", "timestamp without time zone", "YES", "now()", nil, nil, nil).
		AddRow("payload", "jsonb", "YES", nil, nil, nil, nil))
	mock.ExpectQuery(native(checksQuery)).WithArgs("users").WillReturnRows(sqlmock.NewRows([]string{"column_name", "definition"}).
		AddRow("status", "CHECK (((status)::text = ANY ((ARRAY['a'::character varying, 'b'::character varying])::text[])))").
		AddRow("price", "CHECK ((price > (0)::numeric))"))

	columns, err := h.Columns(context.Background(), d, "users")
	require.NoError(t, err)
	require.Len(t, columns, 8)

	byName := map[string]*schema.Column{}
	for _, c := range columns {
		byName[c.Name()] = c
	}

	assert.Equal(t, schema.BigPrimary, byName["id"].AbstractType())
	assert.True(t, byName["id"].DefaultValue().IsNull())

	assert.Equal(t, schema.String, byName["email"].AbstractType())
	assert.Equal(t, 255, byName["email"].Size())
	assert.Equal(t, "", byName["email"].DefaultValue().Value())

	assert.Equal(t, schema.Enum, byName["status"].AbstractType())
	assert.Equal(t, []string{"a", "b"}, byName["status"].EnumValues())
	assert.Equal(t, "a", byName["status"].DefaultValue().Value())

	assert.Equal(t, true, byName["active"].DefaultValue().Value())
	assert.Equal(t, schema.Decimal, byName["price"].AbstractType())
	assert.Equal(t, 8, byName["price"].Precision())
	assert.Empty(t, byName["price"].EnumValues())
	assert.Equal(t, int64(-1), byName["delta"].DefaultValue().Value())
	assert.Equal(t, schema.DefaultRaw, byName["created_at"].DefaultValue().Kind())
	assert.Equal(t, schema.JSON, byName["payload"].AbstractType())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexesReferencesPrimaryKeys(t *testing.T) {
	h, d, mock := newTestHandler(t)
	mock.ExpectQuery(native(indexesQuery)).WithArgs("posts").WillReturnRows(
		sqlmock.NewRows([]string{"index_name", "is_unique", "column_name"}).
			AddRow("posts_index_user_id_created_at", false, "user_id").
			AddRow("posts_index_user_id_created_at", false, "created_at").
			AddRow("posts_slug_key", true, "slug"))
	mock.ExpectQuery(native(referencesQuery)).WithArgs("posts").WillReturnRows(
		sqlmock.NewRows([]string{"constraint_name", "column_name", "foreign_table", "foreign_column", "delete_rule", "update_rule"}).
			AddRow("posts_user_id_fk", "user_id", "users", "id", "SET NULL", "NO ACTION"))
	mock.ExpectQuery(native(primaryKeysQuery)).WithArgs("posts").WillReturnRows(
		sqlmock.NewRows([]string{"column_name"}).AddRow("id"))

	ctx := context.Background()
	indexes, err := h.Indexes(ctx, d, "posts")
	require.NoError(t, err)
	require.Len(t, indexes, 2)
	assert.Equal(t, []string{"user_id", "created_at"}, indexes[0].Columns())
	assert.False(t, indexes[0].IsUnique())
	assert.True(t, indexes[1].IsUnique())

	refs, err := h.References(ctx, d, "posts")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, schema.SetNull, refs[0].DeleteRule())

	keys, err := h.PrimaryKeys(ctx, d, "posts")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableNamesAndHasTable(t *testing.T) {
	h, d, mock := newTestHandler(t)
	mock.ExpectQuery(tableNamesQuery).WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))
	mock.ExpectQuery(native(hasTableQuery)).WithArgs("missing").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	names, err := h.TableNames(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, names)

	ok, err := h.HasTable(context.Background(), d, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenderCreateTable(t *testing.T) {
	h, _, _ := newTestHandler(t)
	s := schema.NewState("users")
	s.RegisterColumn(schema.NewColumn("id", h.Types())).BigPrimary()
	s.RegisterColumn(schema.NewColumn("email", h.Types())).String(255).Nullable(false)
	s.RegisterColumn(schema.NewColumn("status", h.Types())).Enum("a", "bb").Default(schema.StringDefault("a"))
	s.RegisterColumn(schema.NewColumn("active", h.Types())).Boolean().Default(schema.BoolDefault(false))

	stmts, err := h.Render(schema.Operation{Kind: schema.CreateTable, Table: "users", State: s})
	require.NoError(t, err)
	assert.Equal(t, []string{`CREATE TABLE "users" (
    "id" bigserial NOT NULL,
    "email" character varying(255) NOT NULL,
    "status" character varying(2) NULL DEFAULT 'a' CONSTRAINT "users_status_check" CHECK ("status" IN ('a', 'bb')),
    "active" boolean NULL DEFAULT FALSE,
    PRIMARY KEY ("id")
)`}, stmts)
}

func TestRenderAlterColumn(t *testing.T) {
	h, _, _ := newTestHandler(t)
	initial := schema.NewState("users")
	before := initial.RegisterColumn(schema.NewColumn("email", h.Types())).String(255).Nullable(false)
	current := initial.Clone()
	after := current.Column("email").String(320).Nullable(true).Default(schema.StringDefault("x"))

	stmts, err := h.Render(schema.Operation{Kind: schema.AlterColumn, Table: "users", Column: after, InitialColumn: before})
	require.NoError(t, err)
	assert.Equal(t, []string{`ALTER TABLE "users" ALTER COLUMN "email" TYPE character varying(320) USING "email"::character varying(320), ` +
		`ALTER COLUMN "email" DROP NOT NULL, ALTER COLUMN "email" SET DEFAULT 'x'`}, stmts)
}

func TestAlterResizedColumnThroughSchema(t *testing.T) {
	h, d, mock := newTestHandler(t)
	mock.ExpectQuery(native(hasTableQuery)).WithArgs("users").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(native(columnsQuery)).WithArgs("users").WillReturnRows(sqlmock.NewRows(columnHeader).
		AddRow("id", "bigint", "NO", "nextval('users_id_seq'::regclass)", nil, 64, 0).
		AddRow("email", "character varying", "NO", nil, 255, nil, nil).
		AddRow("created_at", "timestamp without time zone", "YES", nil, nil, nil, nil))
	mock.ExpectQuery(native(checksQuery)).WithArgs("users").WillReturnRows(sqlmock.NewRows([]string{"column_name", "definition"}))
	mock.ExpectQuery(native(indexesQuery)).WithArgs("users").WillReturnRows(sqlmock.NewRows([]string{"index_name", "is_unique", "column_name"}))
	mock.ExpectQuery(native(referencesQuery)).WithArgs("users").WillReturnRows(
		sqlmock.NewRows([]string{"constraint_name", "column_name", "foreign_table", "foreign_column", "delete_rule", "update_rule"}))
	mock.ExpectQuery(native(primaryKeysQuery)).WithArgs("users").WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))

	tbl, err := schema.New(h, d, nil).Table(context.Background(), "users")
	require.NoError(t, err)
	tbl.Column("email").String(320)

	stmts, err := tbl.Statements()
	require.NoError(t, err)
	assert.Equal(t, []string{`ALTER TABLE "users" ALTER COLUMN "email" TYPE character varying(320) USING "email"::character varying(320)`}, stmts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

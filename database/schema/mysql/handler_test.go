package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiral-modules/dbal/database/dbtest"
	"github.com/spiral-modules/dbal/database/driver"
	"github.com/spiral-modules/dbal/database/schema"
	"github.com/spiral-modules/dbal/database/types"
)

func newTestHandler(t *testing.T) (*Handler, *driver.Driver, sqlmock.Sqlmock) {
	t.Helper()
	d, mock := dbtest.Mock(t, "mysql")
	return New(d.Dialect()), d, mock
}

var columnHeader = []string{"Field", "Type", "Collation", "Null", "Key", "Default", "Extra", "Privileges", "Comment"}

func expectColumns(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SHOW FULL COLUMNS FROM `users`").WillReturnRows(sqlmock.NewRows(columnHeader).
		AddRow("id", "bigint(20)", nil, "NO", "PRI", nil, "auto_increment", "", "").
		AddRow("email", "varchar(255)", "utf8mb4_general_ci", "NO", "UNI", nil, "", "", "").
		AddRow("status", "enum('a','b','c')", "utf8mb4_general_ci", "NO", "", "a", "", "", "").
		AddRow("active", "bit(1)", nil, "NO", "", "b'1'", "", "", "").
		AddRow("bio", "text", "utf8mb4_general_ci", "YES", "", nil, "", "", "").
		AddRow("created_at", "timestamp", nil, "NO", "", "0000-00-00 00:00:00", "", "", "").
		AddRow("updated_at", "datetime", nil, "YES", "", "CURRENT_TIMESTAMP", "DEFAULT_GENERATED", "", "").
		AddRow("price", "decimal(10,2) unsigned", nil, "YES", "", "0.00", "", "", ""))
}

var indexHeader = []string{"Table", "Non_unique", "Key_name", "Seq_in_index", "Column_name"}

func expectIndexes(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SHOW INDEXES FROM `users`").WillReturnRows(sqlmock.NewRows(indexHeader).
		AddRow("users", 0, "PRIMARY", 1, "id").
		AddRow("users", 0, "users_index_email", 1, "email").
		AddRow("users", 1, "users_index_status_active", 1, "status").
		AddRow("users", 1, "users_index_status_active", 2, "active").
		AddRow("users", 1, "users_group_id_fk", 1, "group_id"))
}

var referenceHeader = []string{"CONSTRAINT_NAME", "COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "DELETE_RULE", "UPDATE_RULE"}

func expectReferences(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(referencesQuery).WithArgs("users").WillReturnRows(sqlmock.NewRows(referenceHeader).
		AddRow("users_group_id_fk", "group_id", "groups", "id", "CASCADE", "RESTRICT"))
}

func TestColumns(t *testing.T) {
	h, d, mock := newTestHandler(t)
	expectColumns(mock)

	columns, err := h.Columns(context.Background(), d, "users")
	require.NoError(t, err)
	require.Len(t, columns, 8)

	byName := map[string]*schema.Column{}
	for _, c := range columns {
		byName[c.Name()] = c
	}

	assert.Equal(t, schema.BigPrimary, byName["id"].AbstractType())
	assert.True(t, byName["id"].IsAutoIncrement())
	assert.False(t, byName["id"].IsNullable())

	assert.Equal(t, schema.String, byName["email"].AbstractType())
	assert.Equal(t, 255, byName["email"].Size())

	assert.Equal(t, schema.Enum, byName["status"].AbstractType())
	assert.Equal(t, []string{"a", "b", "c"}, byName["status"].EnumValues())
	assert.Equal(t, "a", byName["status"].DefaultValue().Value())

	assert.Equal(t, schema.Boolean, byName["active"].AbstractType())
	assert.Equal(t, int64(1), byName["active"].DefaultValue().Value())

	assert.Equal(t, schema.Text, byName["bio"].AbstractType())
	assert.True(t, byName["bio"].DefaultValue().IsNull())

	assert.Equal(t, schema.EpochDateTime, byName["created_at"].DefaultValue().Value())
	assert.Equal(t, schema.DefaultRaw, byName["updated_at"].DefaultValue().Kind())

	assert.Equal(t, schema.Decimal, byName["price"].AbstractType())
	assert.Equal(t, 10, byName["price"].Precision())
	assert.Equal(t, 2, byName["price"].Scale())
	assert.Equal(t, float64(0), byName["price"].DefaultValue().Value())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexesExcludePrimaryAndForeignKeyIndexes(t *testing.T) {
	h, d, mock := newTestHandler(t)
	expectIndexes(mock)
	expectReferences(mock)

	indexes, err := h.Indexes(context.Background(), d, "users")
	require.NoError(t, err)
	require.Len(t, indexes, 2)

	assert.Equal(t, "users_index_email", indexes[0].Name())
	assert.True(t, indexes[0].IsUnique())
	assert.Equal(t, []string{"status", "active"}, indexes[1].Columns())
	assert.False(t, indexes[1].IsUnique())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrimaryKeysAndReferences(t *testing.T) {
	h, d, mock := newTestHandler(t)
	expectIndexes(mock)
	expectReferences(mock)

	keys, err := h.PrimaryKeys(context.Background(), d, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, keys)

	refs, err := h.References(context.Background(), d, "users")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "group_id", refs[0].Column())
	assert.Equal(t, "groups", refs[0].ForeignTable())
	assert.Equal(t, schema.Cascade, refs[0].DeleteRule())
	assert.Equal(t, schema.Restrict, refs[0].UpdateRule())
}

func TestTableNamesAndHasTable(t *testing.T) {
	h, d, mock := newTestHandler(t)
	mock.ExpectQuery("SHOW TABLES").WillReturnRows(sqlmock.NewRows([]string{"Tables_in_app"}).AddRow("groups").AddRow("users"))
	mock.ExpectQuery(hasTableQuery).WithArgs("users").WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	names, err := h.TableNames(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"groups", "users"}, names)

	ok, err := h.HasTable(context.Background(), d, "users")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestColumnDefinition(t *testing.T) {
	h, _, _ := newTestHandler(t)
	s := schema.NewState("users")
	col := func(name string) *schema.Column { return s.RegisterColumn(schema.NewColumn(name, h.Types())) }

	assert.Equal(t, "`id` bigint NOT NULL AUTO_INCREMENT", h.ColumnDefinition(col("id").BigPrimary()))
	assert.Equal(t, "`email` varchar(320) NOT NULL", h.ColumnDefinition(col("email").String(320).Nullable(false)))
	assert.Equal(t, "`status` enum('a', 'b') NOT NULL DEFAULT 'a'",
		h.ColumnDefinition(col("status").Enum("a", "b").Nullable(false).Default(schema.StringDefault("a"))))
	assert.Equal(t, "`bio` text NULL", h.ColumnDefinition(col("bio").Text().Default(schema.StringDefault("x"))))
	assert.Equal(t, "`price` decimal(8, 2) NULL DEFAULT 0", h.ColumnDefinition(col("price").Decimal(8, 2).Default(schema.IntDefault(0))))
	assert.Equal(t, "`flag` tinyint(1) NULL DEFAULT TRUE", h.ColumnDefinition(col("flag").Boolean().Default(schema.BoolDefault(true))))
}

func TestRenderCreateTable(t *testing.T) {
	h, _, _ := newTestHandler(t)
	s := schema.NewState("users")
	s.RegisterColumn(schema.NewColumn("id", h.Types())).BigPrimary()
	s.RegisterColumn(schema.NewColumn("group_id", h.Types())).Integer()
	s.RegisterReference(schema.NewReference("users", "", "group_id")).References("groups", "id").OnDelete(schema.Cascade)

	stmts, err := h.Render(schema.Operation{Kind: schema.CreateTable, Table: "users", State: s})
	require.NoError(t, err)
	assert.Equal(t, []string{"CREATE TABLE `users` (\n" +
		"    `id` bigint NOT NULL AUTO_INCREMENT,\n" +
		"    `group_id` int NULL,\n" +
		"    PRIMARY KEY (`id`),\n" +
		"    CONSTRAINT `users_group_id_fk` FOREIGN KEY (`group_id`) REFERENCES `groups` (`id`) ON DELETE CASCADE ON UPDATE NO ACTION\n" +
		") ENGINE = InnoDB"}, stmts)

	_, err = h.Render(schema.Operation{Kind: schema.RebuildTable, Table: "users"})
	assert.ErrorIs(t, err, types.ErrNotSupported)
}

func TestAlterResizedColumn(t *testing.T) {
	h, d, mock := newTestHandler(t)
	mock.ExpectQuery(hasTableQuery).WithArgs("users").WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))
	mock.ExpectQuery("SHOW FULL COLUMNS FROM `users`").WillReturnRows(sqlmock.NewRows(columnHeader).
		AddRow("id", "bigint(20)", nil, "NO", "PRI", nil, "auto_increment", "", "").
		AddRow("email", "varchar(255)", nil, "NO", "", nil, "", "", "").
		AddRow("created_at", "datetime", nil, "YES", "", nil, "", "", ""))
	mock.ExpectQuery("SHOW INDEXES FROM `users`").WillReturnRows(sqlmock.NewRows(indexHeader).AddRow("users", 0, "PRIMARY", 1, "id"))
	mock.ExpectQuery(referencesQuery).WithArgs("users").WillReturnRows(sqlmock.NewRows(referenceHeader))
	mock.ExpectQuery(referencesQuery).WithArgs("users").WillReturnRows(sqlmock.NewRows(referenceHeader))
	mock.ExpectQuery("SHOW INDEXES FROM `users`").WillReturnRows(sqlmock.NewRows(indexHeader).AddRow("users", 0, "PRIMARY", 1, "id"))
	mock.ExpectExec("ALTER TABLE `users` CHANGE `email` `email` varchar(320) NOT NULL").WillReturnResult(sqlmock.NewResult(0, 0))

	err := schema.New(h, d, nil).Alter(context.Background(), "users", func(t *schema.Table) {
		t.Column("id").BigPrimary()
		t.Column("email").String(320)
		t.Column("created_at").Datetime()
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

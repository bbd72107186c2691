package declare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database"
	"github.com/spiral-modules/dbal/database/schema"
)

const blogYAML = `
tables:
  posts:
    columns:
      - name: id
        type: primary
      - name: user_id
        type: integer
        nullable: false
      - name: title
        type: string
        size: 120
        nullable: false
        default: ""
      - name: state
        type: enum
        values: [draft, published]
        default: draft
    indexes:
      - columns: [user_id]
    foreign_keys:
      - column: user_id
        table: users
        key: id
        on_delete: cascade
  users:
    columns:
      - name: id
        type: primary
      - name: email
        type: string
        nullable: false
      - name: score
        type: decimal
        precision: 8
        scale: 2
        default: 0
    indexes:
      - columns: [email]
        unique: true
`

func newSchema(t *testing.T) *schema.Schema {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Driver: "sqlite", Connection: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := db.Schema()
	require.NoError(t, err)
	return s
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(blogYAML))
	require.NoError(t, err)
	require.Len(t, f.Tables, 2)

	posts := f.Tables["posts"]
	require.Len(t, posts.Columns, 4)
	assert.Equal(t, []string{"draft", "published"}, posts.Columns[3].Values)
	require.NotNil(t, posts.Columns[1].Nullable)
	assert.False(t, *posts.Columns[1].Nullable)
	assert.Equal(t, "cascade", posts.ForeignKeys[0].OnDelete)
}

func TestParseRejectsInvalidDeclarations(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		expected string
	}{
		{
			name:     "unknown type",
			yaml:     "tables:\n  t:\n    columns:\n      - name: a\n        type: money\n",
			expected: `"abstract"`,
		},
		{
			name:     "missing column name",
			yaml:     "tables:\n  t:\n    columns:\n      - type: integer\n",
			expected: `"required"`,
		},
		{
			name:     "bad rule",
			yaml:     "tables:\n  t:\n    columns:\n      - name: a\n        type: integer\n    foreign_keys:\n      - column: a\n        table: u\n        key: id\n        on_delete: explode\n",
			expected: `"rule"`,
		},
		{
			name:     "no tables",
			yaml:     "tables: {}\n",
			expected: "invalid declaration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestOrderPutsReferencedTablesFirst(t *testing.T) {
	f, err := Parse([]byte(blogYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "posts"}, f.Order())
}

func TestApplyCreatesThenConverges(t *testing.T) {
	f, err := Parse([]byte(blogYAML))
	require.NoError(t, err)
	s := newSchema(t)
	ctx := context.Background()

	for _, name := range f.Order() {
		tbl, err := s.Table(ctx, name)
		require.NoError(t, err)
		require.NoError(t, f.Tables[name].Apply(tbl))
		require.NoError(t, tbl.Save(ctx))
	}

	for _, name := range f.Order() {
		tbl, err := s.Table(ctx, name)
		require.NoError(t, err)
		require.NoError(t, f.Tables[name].Apply(tbl))
		ops, err := tbl.Diff()
		require.NoError(t, err)
		assert.Empty(t, ops, "table %s should be up to date", name)
	}

	users, err := s.Table(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, 255, users.State().Column("email").Size())
	assert.False(t, users.State().Column("email").IsNullable())
}

func TestApplyDropsUndeclaredParts(t *testing.T) {
	s := newSchema(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "users", func(tbl *schema.Table) {
		tbl.Column("id").Primary()
		tbl.Column("email").String(255)
		tbl.Column("legacy").Integer()
		tbl.Index("legacy")
	}))

	decl := Table{Columns: []Column{{Name: "id", Type: "primary"}, {Name: "email", Type: "string"}}}
	tbl, err := s.Table(ctx, "users")
	require.NoError(t, err)
	require.NoError(t, decl.Apply(tbl))

	ops, err := tbl.Diff()
	require.NoError(t, err)
	kinds := make([]schema.OperationKind, 0, len(ops))
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []schema.OperationKind{schema.DropIndex, schema.DropColumn}, kinds)
	require.NoError(t, tbl.Save(ctx))
	assert.False(t, tbl.HasColumn("legacy"))
}

func TestDefaultValue(t *testing.T) {
	tests := []struct {
		column   Column
		expected schema.Default
	}{
		{Column{}, schema.NullDefault()},
		{Column{Default: true}, schema.BoolDefault(true)},
		{Column{Default: 3}, schema.IntDefault(3)},
		{Column{Default: 1.5}, schema.FloatDefault(1.5)},
		{Column{Default: "x"}, schema.StringDefault("x")},
		{Column{Default: "x", DefaultRaw: "CURRENT_TIMESTAMP"}, schema.RawDefault("CURRENT_TIMESTAMP")},
	}
	for _, tt := range tests {
		d, err := tt.column.defaultValue()
		require.NoError(t, err)
		assert.True(t, tt.expected.Equal(d), "%v != %v", tt.expected, d)
	}

	_, err := Column{Default: []string{"x"}}.defaultValue()
	assert.Error(t, err)
}

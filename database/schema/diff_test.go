package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiral-modules/dbal/database/types"
)

func kinds(ops []Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

func TestCompareNewTable(t *testing.T) {
	desired := usersState(testTypes())

	ops, err := Compare(nil, desired)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	op := ops[0]
	assert.Equal(t, CreateTable, op.Kind)
	assert.Equal(t, "create table users", op.String())

	var names []string
	for _, c := range op.State.Columns() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"id", "email", "created_at"}, names)
	assert.Equal(t, []string{"id"}, op.State.PrimaryKeys())
}

func TestCompareNewTableIndexesFollowCreate(t *testing.T) {
	desired := usersState(testTypes())
	desired.RegisterIndex(NewIndex("users", "", "email")).Unique(true)

	ops, err := Compare(nil, desired)
	require.NoError(t, err)
	assert.Equal(t, []string{"create table users", "add index users.users_index_email"}, kinds(ops))
}

func TestCompareResizedColumn(t *testing.T) {
	m := testTypes()
	initial := usersState(m)
	desired := initial.Clone()
	desired.Column("email").String(320)

	ops, err := Compare(initial, desired)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, AlterColumn, ops[0].Kind)
	assert.Equal(t, "email", ops[0].Column.Name())
	assert.Equal(t, 255, ops[0].InitialColumn.Size())
	assert.Equal(t, 320, ops[0].Column.Size())
}

func TestCompareUnchanged(t *testing.T) {
	initial := usersState(testTypes())
	ops, err := Compare(initial, initial.Clone())
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestCompareOrdering(t *testing.T) {
	m := testTypes()
	initial := usersState(m)
	initial.RegisterColumn(NewColumn("group_id", m)).Integer()
	initial.RegisterColumn(NewColumn("legacy", m)).Text()
	initial.RegisterIndex(NewIndex("users", "", "legacy"))
	initial.RegisterIndex(NewIndex("users", "", "email"))
	initial.RegisterReference(NewReference("users", "", "group_id")).References("groups", "id")

	desired := initial.Clone()
	desired.removeColumn("legacy")
	desired.removeIndex("users_index_legacy")
	desired.Index("users_index_email").Unique(true)
	desired.Column("email").Nullable(true)
	desired.RegisterColumn(NewColumn("name", m)).String(64)
	desired.RegisterIndex(NewIndex("users", "", "name"))
	desired.Reference("users_group_id_fk").OnDelete(Cascade)

	ops, err := Compare(initial, desired)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"drop foreign key users.users_group_id_fk",
		"drop index users.users_index_legacy",
		"drop column users.legacy",
		"alter column users.email",
		"add column users.name",
		"alter index users.users_index_email",
		"add index users.users_index_name",
		"add foreign key users.users_group_id_fk",
	}, kinds(ops))
}

func TestCompareRejectsPrimaryKeyChange(t *testing.T) {
	initial := usersState(testTypes())
	desired := initial.Clone()
	desired.SetPrimaryKeys("id", "email")

	_, err := Compare(initial, desired)
	require.ErrorIs(t, err, types.ErrNotSupported)

	var se *types.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "users", se.Table)
}

func TestReferenceRulesRestrictMatchesNoAction(t *testing.T) {
	a := NewReference("posts", "", "user_id").References("users", "id").OnDelete(Restrict)
	b := NewReference("posts", "", "user_id").References("users", "id")
	assert.True(t, a.Equal(b))

	b.OnUpdate(Cascade)
	assert.False(t, a.Equal(b))

	assert.Equal(t, SetNull, ParseRule("set_null"))
	assert.Equal(t, NoAction, ParseRule("whatever"))
}

func TestColumnEqual(t *testing.T) {
	m := testTypes()
	a := NewColumn("body", m).Text().Default(StringDefault("x"))
	b := NewColumn("body", m).Text()
	assert.True(t, a.DefaultValue().IsNull(), "text columns drop their default")
	assert.True(t, a.Equal(b))

	n := NewColumn("n", m).Integer()
	sized := NewColumn("n", m).SetConcrete(TypeDescriptor{Type: "int", Size: 11}, false)
	assert.True(t, n.Equal(sized), "int display width is not compared")

	s1 := NewColumn("s", m).String(10)
	s2 := NewColumn("s", m).String(20)
	assert.False(t, s1.Equal(s2))
}

func TestColumnZeroDateDefault(t *testing.T) {
	c := NewColumn("updated_at", testTypes()).Timestamp().Default(StringDefault("0000-00-00 00:00:00"))
	assert.Equal(t, EpochDateTime, c.DefaultValue().Value())
}

func TestColumnEnumSize(t *testing.T) {
	c := NewColumn("status", testTypes()).Enum("active", "disabled")
	assert.Equal(t, Enum, c.AbstractType())
	assert.Equal(t, []string{"active", "disabled"}, c.EnumValues())
	assert.Equal(t, 8, c.Size())
}

func TestColumnSetConcreteEnum(t *testing.T) {
	c := NewColumn("status", testTypes()).SetConcrete(ParseType("enum('a','b')"), false)
	assert.Equal(t, Enum, c.AbstractType())
	assert.Equal(t, []string{"a", "b"}, c.EnumValues())
}

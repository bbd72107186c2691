package query

import (
	"database/sql"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiral-modules/dbal/database/dialect"
	"github.com/spiral-modules/dbal/database/parameter"
	"github.com/spiral-modules/dbal/database/types"
)

func compilerFor(t *testing.T, name types.Dialect) *Compiler {
	t.Helper()
	d, err := dialect.Get(name)
	require.NoError(t, err)
	return NewCompiler(d)
}

func TestCompileArrayInExpandsPlaceholders(t *testing.T) {
	c := compilerFor(t, types.MySQL)

	sql, args, err := c.Compile(NewSelect("id").From("users").Where(In("id", []int{1, 2, 3})))
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id` FROM `users` WHERE `id` IN (?, ?, ?)", sql)
	assert.Equal(t, []any{1, 2, 3}, args)

	sql, args, err = c.Compile(NewSelect("id").From("users").Where(In("id", parameter.Array(7, 8))))
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id` FROM `users` WHERE `id` IN (?, ?)", sql)
	assert.Equal(t, []any{7, 8}, args)
}

func TestCompileWhereTreePrecedence(t *testing.T) {
	c := compilerFor(t, types.Postgres)

	q := NewSelect().From("users").
		Where(Eq("status", "active")).
		OrWhere(Eq("role", "admin"), Gt("age", 18)).
		Where(Or(IsNull("deleted_at"), Lt("deleted_at", "2024-01-01")))

	sql, args, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM "users" WHERE "status" = ? OR ("role" = ? AND "age" > ?) AND ("deleted_at" IS NULL OR "deleted_at" < ?)`,
		sql)
	assert.Equal(t, []any{"active", "admin", 18, "2024-01-01"}, args)
}

func TestCompileJoinsOrderAndPagination(t *testing.T) {
	c := compilerFor(t, types.MySQL)

	q := NewSelect("u.id", "o.total AS amount").
		From("users AS u").
		LeftJoin("orders AS o", On("o.user_id", "=", "u.id")).
		InnerJoin("profiles AS p", On("p.user_id", "=", "u.id"), Eq("p.active", true)).
		Where(Gt("o.total", 100)).
		OrderBy("o.total", "desc").
		Limit(10).
		Offset(20)

	sql, args, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT `u`.`id`, `o`.`total` AS `amount` FROM `users` AS `u` "+
		"LEFT JOIN `orders` AS `o` ON `o`.`user_id` = `u`.`id` "+
		"INNER JOIN `profiles` AS `p` ON `p`.`user_id` = `u`.`id` AND `p`.`active` = ? "+
		"WHERE `o`.`total` > ? ORDER BY `o`.`total` DESC LIMIT 10 OFFSET 20", sql)
	assert.Equal(t, []any{true, 100}, args)
}

func TestCompilePaginationPerDialect(t *testing.T) {
	tests := []struct {
		dialect  types.Dialect
		query    *Select
		expected string
	}{
		{types.SQLServer, NewSelect("id").From("users").Limit(5), "SELECT [id] FROM [users] ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY"},
		{types.SQLServer, NewSelect("id").From("users").OrderBy("id", "").Limit(5).Offset(10), "SELECT [id] FROM [users] ORDER BY [id] ASC OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY"},
		{types.Oracle, NewSelect("id").From("users").Limit(5).Offset(10), `SELECT "id" FROM "users" OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY`},
		{types.SQLite, NewSelect("id").From("users").Offset(10), `SELECT "id" FROM "users" LIMIT -1 OFFSET 10`},
		{types.MySQL, NewSelect("id").From("users").Offset(10), "SELECT `id` FROM `users` LIMIT 18446744073709551615 OFFSET 10"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			sql, _, err := compilerFor(t, tt.dialect).Compile(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sql)
		})
	}
}

func TestCompileGroupHaving(t *testing.T) {
	c := compilerFor(t, types.SQLite)

	q := NewSelect("status", Expr("COUNT(*) AS total")).
		From("users").
		GroupBy("status").
		Having(Compare(Expr("COUNT(*)"), ">", 5)).
		Distinct()

	sql, args, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT "status", COUNT(*) AS total FROM "users" GROUP BY "status" HAVING COUNT(*) > ?`, sql)
	assert.Equal(t, []any{5}, args)
}

func TestCompileNullAndArrayShortcuts(t *testing.T) {
	c := compilerFor(t, types.Postgres)

	q := NewSelect().From("t").Where(
		Eq("a", nil),
		NotEq("b", nil),
		Eq("c", []string{"x", "y"}),
		In("d", []int{}),
		NotIn("e", []int{}),
	)

	sql, args, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "t" WHERE "a" IS NULL AND "b" IS NOT NULL AND "c" IN (?, ?) AND 1 = 0 AND 1 = 1`, sql)
	assert.Equal(t, []any{"x", "y"}, args)
}

func TestCompileSubqueries(t *testing.T) {
	c := compilerFor(t, types.MySQL)

	orders := NewSelect("user_id").From("orders").Where(Gt("total", 10))
	sql, args, err := c.Compile(NewSelect("id").From("users").Where(In("id", orders)))
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id` FROM `users` WHERE `id` IN (SELECT `user_id` FROM `orders` WHERE `total` > ?)", sql)
	assert.Equal(t, []any{10}, args)

	sql, _, err = c.Compile(NewSelect("id").From("users").Where(NotExists(
		NewSelect(Expr("1")).From("bans").Where(On("bans.user_id", "=", "users.id")),
	)))
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id` FROM `users` WHERE NOT EXISTS (SELECT 1 FROM `bans` WHERE `bans`.`user_id` = `users`.`id`)", sql)

	sql, args, err = c.Compile(NewSelect("t.n").FromSelect(NewSelect("n").From("numbers").Where(Lt("n", 3)), "t"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT `t`.`n` FROM (SELECT `n` FROM `numbers` WHERE `n` < ?) AS `t`", sql)
	assert.Equal(t, []any{3}, args)
}

func TestCompileSquirrelInterop(t *testing.T) {
	c := compilerFor(t, types.Postgres)

	q := NewSelect("id").From("users").
		Where(Sqlizer(squirrel.Gt{"age": 21})).
		Where(Between("score", 1, 10), Not(Eq("banned", true)))

	sql, args, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "users" WHERE age > ? AND "score" BETWEEN ? AND ? AND NOT ("banned" = ?)`, sql)
	assert.Equal(t, []any{21, 1, 10, true}, args)

	sql, args, err = c.Compile(Raw(squirrel.Select("id").From("users").Where(squirrel.Eq{"id": 4})))
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM users WHERE id = ?", sql)
	assert.Equal(t, []any{4}, args)
}

func TestCompileUnions(t *testing.T) {
	c := compilerFor(t, types.SQLite)

	q := NewSelect("id").From("a").
		Union(NewSelect("id").From("b")).
		UnionAll(NewSelect("id").From("c")).
		OrderBy("id", "").
		Limit(3)

	sql, _, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "a" UNION SELECT "id" FROM "b" UNION ALL SELECT "id" FROM "c" ORDER BY "id" ASC LIMIT 3`, sql)
}

func TestCompileUnionMemberKeepsOwnOrderAndLimit(t *testing.T) {
	c := compilerFor(t, types.SQLite)

	q := NewSelect("id").From("a").
		Union(NewSelect("id").From("b").OrderBy("id", "DESC").Limit(1)).
		UnionAll(NewSelect("id").From("c").Where(Gt("id", 5)))

	sql, args, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "a" UNION SELECT * FROM (SELECT "id" FROM "b" ORDER BY "id" DESC LIMIT 1) AS "u1" UNION ALL SELECT "id" FROM "c" WHERE "id" > ?`, sql)
	assert.Equal(t, []any{5}, args)
}

func TestCompileInsert(t *testing.T) {
	q := NewInsert("users").Columns("email", "age").Values("a@x", 1).Values("b@x", 2).Returning("id")

	sql, args, err := compilerFor(t, types.Postgres).Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("email", "age") VALUES (?, ?), (?, ?) RETURNING "id"`, sql)
	assert.Equal(t, []any{"a@x", 1, "b@x", 2}, args)

	sql, _, err = compilerFor(t, types.SQLServer).Compile(q)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO [users] ([email], [age]) OUTPUT INSERTED.[id] VALUES (?, ?), (?, ?)", sql)

	_, _, err = compilerFor(t, types.MySQL).Compile(q)
	assert.ErrorIs(t, err, types.ErrNotSupported)

	sql, args, err = compilerFor(t, types.MySQL).Compile(NewInsert("users").SetMap(map[string]any{"name": "n", "age": 3}))
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `users` (`age`, `name`) VALUES (?, ?)", sql)
	assert.Equal(t, []any{3, "n"}, args)
}

func TestCompileInsertDefaults(t *testing.T) {
	sql, _, err := compilerFor(t, types.MySQL).Compile(NewInsert("t"))
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `t` () VALUES ()", sql)

	sql, _, err = compilerFor(t, types.SQLite).Compile(NewInsert("t"))
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "t" DEFAULT VALUES`, sql)
}

func TestCompileInsertErrors(t *testing.T) {
	c := compilerFor(t, types.SQLite)

	_, _, err := c.Compile(NewInsert("t").Columns("a", "b").Values(1))
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, _, err = c.Compile(NewInsert("t").Columns("a"))
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, _, err = c.Compile(NewInsert("t").Columns("tags").Values([]string{"a", "b"}))
	var bindErr *types.InvalidBindingError
	assert.ErrorAs(t, err, &bindErr)
}

func TestCompileUpdateAndDelete(t *testing.T) {
	c := compilerFor(t, types.MySQL)

	sql, args, err := c.Compile(NewUpdate("users").
		SetMap(map[string]any{"name": "x", "age": Expr("`age` + ?", 1)}).
		Where(Eq("id", 5)))
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `users` SET `age` = `age` + ?, `name` = ? WHERE `id` = ?", sql)
	assert.Equal(t, []any{1, "x", 5}, args)

	_, _, err = c.Compile(NewUpdate("users"))
	assert.ErrorIs(t, err, ErrInvalidQuery)

	sql, args, err = c.Compile(NewDelete("users").Where(Lt("created_at", "2020-01-01")).OrWhere(IsNull("email")))
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users` WHERE `created_at` < ? OR `email` IS NULL", sql)
	assert.Equal(t, []any{"2020-01-01"}, args)
}

func TestCompileRejectsInvalidInput(t *testing.T) {
	c := compilerFor(t, types.Postgres)

	_, _, err := c.Compile(NewSelect().From("t").Where(Compare("a", "; DROP TABLE t", 1)))
	assert.ErrorIs(t, err, ErrInvalidOperator)

	_, _, err = c.Compile(NewSelect().From("t").OrderBy("a", "sideways"))
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, _, err = c.Compile(NewSelect().From("t").Join(LeftJoin, "u"))
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, _, err = c.Compile(NewSelect().FromSelect(NewSelect().From("t"), ""))
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, _, err = c.Compile(NewSelect().From("t").Where(In("a", [][]int{{1}, {2}})))
	var bindErr *types.InvalidBindingError
	assert.ErrorAs(t, err, &bindErr)

	_, _, err = c.Compile(nil)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestCompileCrossJoin(t *testing.T) {
	sql, _, err := compilerFor(t, types.Postgres).Compile(NewSelect().From("a").Join(CrossJoin, "b"))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "a" CROSS JOIN "b"`, sql)
}

func TestCompileIsDeterministic(t *testing.T) {
	c := compilerFor(t, types.MySQL)
	q := NewUpdate("t").SetMap(map[string]any{"c": 3, "a": 1, "b": 2}).Where(In("id", []int{1, 2}))

	first, firstArgs, err := c.Compile(q)
	require.NoError(t, err)
	for range 10 {
		sql, args, err := c.Compile(q)
		require.NoError(t, err)
		assert.Equal(t, first, sql)
		assert.Equal(t, firstArgs, args)
	}
}

func TestInterpolate(t *testing.T) {
	d, err := dialect.Get(types.MySQL)
	require.NoError(t, err)

	out := Interpolate(
		"SELECT * FROM t WHERE a = ? AND b = :b AND c = '?' AND d = ?",
		[]any{"it's", sql.Named("b", 3), nil},
		d.Quote,
	)
	assert.Equal(t, "SELECT * FROM t WHERE a = 'it''s' AND b = 3 AND c = '?' AND d = NULL", out)

	assert.Equal(t, "SELECT 1", Interpolate("SELECT 1", nil, d.Quote))
	assert.Equal(t, "SELECT ?", Interpolate("SELECT ?", []any{sql.Named("x", 1)}, d.Quote))
}

//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		input    string
		expected Dialect
	}{
		{"mysql", MySQL},
		{"MariaDB", MySQL},
		{"postgresql", Postgres},
		{" pgsql ", Postgres},
		{"sqlite3", SQLite},
		{"mssql", SQLServer},
		{"ORACLE", Oracle},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDialect(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
			assert.True(t, d.Valid())
		})
	}

	_, err := ParseDialect("db2")
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
	assert.False(t, Dialect("db2").Valid())
}

func TestQueryErrorKeepsCause(t *testing.T) {
	cause := errors.New("syntax error near FROM")
	err := fmt.Errorf("statement: %w", &QueryError{
		Dialect:      MySQL,
		SQL:          "SELECT * FRM users WHERE id = ?",
		Interpolated: "SELECT * FRM users WHERE id = 1",
		Params:       []any{1},
		Err:          cause,
	})

	assert.ErrorIs(t, err, cause)

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, []any{1}, qe.Params)
	assert.Contains(t, err.Error(), "SELECT * FRM users WHERE id = 1")
}

func TestQueryErrorFallsBackToSQL(t *testing.T) {
	err := &QueryError{Dialect: SQLite, SQL: "SELECT ?", Err: errors.New("boom")}
	assert.Equal(t, "sqlite query failed: boom [SELECT ?]", err.Error())
}

func TestConnectionErrorUnwrap(t *testing.T) {
	err := &ConnectionError{Dialect: Postgres, Op: "connect", Err: driver.ErrBadConn}
	assert.ErrorIs(t, err, driver.ErrBadConn)
	assert.Contains(t, err.Error(), `postgres connection "postgres": connect failed`)

	named := &ConnectionError{Dialect: Postgres, Name: "primary", Op: "ping", Err: driver.ErrBadConn}
	assert.Contains(t, named.Error(), `"primary"`)
}

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{
		Dialect:   SQLite,
		Table:     "users",
		Operation: "alter column users.email",
		Err:       ErrNotSupported,
	}
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Equal(t, `sqlite schema "users": alter column users.email: operation not supported by dialect`, err.Error())

	err.Statement = "ALTER TABLE users"
	assert.Contains(t, err.Error(), "[ALTER TABLE users]")
}

func TestBindingErrors(t *testing.T) {
	ib := &InvalidBindingError{Key: ":ids", Reason: "arrays can only be bound to positional parameters"}
	assert.Equal(t, "invalid binding for parameter :ids: arrays can only be bound to positional parameters", ib.Error())

	bo := &BindingOrderError{Column: "email"}
	assert.Contains(t, bo.Error(), `"email"`)
}

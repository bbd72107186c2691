package dbtest

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiral-modules/dbal/database/types"
)

func TestMockUsesNativePlaceholders(t *testing.T) {
	d, mock := Mock(t, "postgres")
	assert.Equal(t, types.Postgres, d.Dialect().Name())

	mock.ExpectExec("DELETE FROM users WHERE id = $1").WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := d.Execute(context.Background(), "DELETE FROM users WHERE id = ?", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteIsPrivatePerTest(t *testing.T) {
	ctx := context.Background()
	d := SQLite(t)

	_, err := d.Execute(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	other := SQLite(t)
	_, err = other.Execute(ctx, "SELECT id FROM items")
	assert.Error(t, err)
}

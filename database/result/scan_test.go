package result

import (
	"database/sql"
	"io"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scannedUser struct {
	ID        int64          `db:"id"`
	Email     string         `db:"email"`
	Nick      *string        `db:"nick"`
	Score     float64        `db:"score"`
	Active    bool           `db:"active"`
	CreatedAt time.Time      `db:"created_at"`
	Note      sql.NullString `db:"note"`
}

func scanRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "nick", "score", "active", "created_at", "note", "extra"}).
		AddRow(int64(1), "a@example.com", nil, "1.5", int64(1), "2024-05-06 07:08:09", "hi", "ignored").
		AddRow("2", []byte("b@example.com"), "bee", int64(3), "false", "2024-05-07", nil, nil)
}

func TestFetchInto(t *testing.T) {
	c, _ := newCursor(t, scanRows())

	var u scannedUser
	require.NoError(t, c.FetchInto(&u))
	assert.Equal(t, int64(1), u.ID)
	assert.Nil(t, u.Nick)
	assert.Equal(t, 1.5, u.Score)
	assert.True(t, u.Active)
	assert.Equal(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), u.CreatedAt)
	assert.Equal(t, sql.NullString{String: "hi", Valid: true}, u.Note)

	require.NoError(t, c.FetchInto(&u))
	assert.Equal(t, int64(2), u.ID)
	require.NotNil(t, u.Nick)
	assert.Equal(t, "bee", *u.Nick)
	assert.Equal(t, 3.0, u.Score)
	assert.False(t, u.Active)
	assert.False(t, u.Note.Valid)

	assert.ErrorIs(t, c.FetchInto(&u), io.EOF)
}

func TestFetchAllInto(t *testing.T) {
	c, _ := newCursor(t, scanRows())

	var users []*scannedUser
	require.NoError(t, c.FetchAllInto(&users))
	require.Len(t, users, 2)
	assert.Equal(t, "b@example.com", users[1].Email)
	assert.Equal(t, StateClosed, c.State())

	c, _ = newCursor(t, userRows())
	var plain []scannedUser
	require.NoError(t, c.FetchAllInto(&plain))
	assert.Len(t, plain, 2)
}

func TestScanRejectsBadDestinations(t *testing.T) {
	row := NewRow([]string{"id"}, []any{int64(1)})

	var n int
	assert.Error(t, row.Scan(&n))
	assert.Error(t, row.Scan(scannedUser{}))

	var small struct {
		ID int8 `db:"id"`
	}
	require.NoError(t, row.Scan(&small))
	assert.Equal(t, int8(1), small.ID)

	overflow := NewRow([]string{"id"}, []any{int64(1000)})
	err := overflow.Scan(&small)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot store 1000")

	c, _ := newCursor(t, userRows())
	assert.Error(t, c.FetchAllInto(&n))
}

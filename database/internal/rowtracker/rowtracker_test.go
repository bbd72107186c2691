package rowtracker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	remaining int
	err       error
	closed    int
}

func (f *fakeRows) Columns() ([]string, error) { return []string{"id"}, nil }

func (f *fakeRows) Next() bool {
	if f.remaining == 0 {
		return false
	}
	f.remaining--
	return true
}

func (f *fakeRows) Scan(...any) error { return nil }
func (f *fakeRows) Err() error        { return f.err }

func (f *fakeRows) Close() error {
	f.closed++
	return nil
}

func TestFinishRunsOnceOnClose(t *testing.T) {
	inner := &fakeRows{remaining: 3}
	var calls int
	var read int64

	rows := Wrap(inner, func(n int64, err error) {
		calls++
		read = n
		assert.NoError(t, err)
	})

	for rows.Next() {
	}
	assert.Equal(t, 0, calls)

	require.NoError(t, rows.Close())
	require.NoError(t, rows.Close())
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(3), read)
	assert.Equal(t, 2, inner.closed)
}

func TestFinishReceivesIterationError(t *testing.T) {
	boom := errors.New("connection reset")
	inner := &fakeRows{remaining: 1, err: boom}

	var got error
	rows := Wrap(inner, func(_ int64, err error) { got = err })
	rows.Next()
	_ = rows.Close()

	assert.ErrorIs(t, got, boom)
}

func TestWrapWithoutFinishReturnsRows(t *testing.T) {
	inner := &fakeRows{}
	assert.Same(t, inner, Wrap(inner, nil))
}

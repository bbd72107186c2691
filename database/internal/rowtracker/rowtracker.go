// Package rowtracker defers statement tracking of a query until its rows are released.
package rowtracker

import (
	"sync"

	"github.com/spiral-modules/dbal/database/result"
)

// Wrap returns rows that invoke finish once, when they are closed, with the iteration
// error if any. A nil finish returns rows unchanged.
func Wrap(rows result.Rows, finish func(read int64, err error)) result.Rows {
	if rows == nil || finish == nil {
		return rows
	}
	return &trackedRows{Rows: rows, finish: finish}
}

type trackedRows struct {
	result.Rows
	finish func(int64, error)
	read   int64
	once   sync.Once
}

func (tr *trackedRows) Next() bool {
	if tr.Rows.Next() {
		tr.read++
		return true
	}
	return false
}

func (tr *trackedRows) Close() error {
	err := tr.Rows.Close()
	tr.once.Do(func() {
		iterErr := tr.Rows.Err()
		if iterErr == nil {
			iterErr = err
		}
		tr.finish(tr.read, iterErr)
	})
	return err
}

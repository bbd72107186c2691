package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/spiral-modules/dbal/database/internal/tracking"
	"github.com/spiral-modules/dbal/database/types"
)

// savepointName names the savepoint opened at nesting level.
func savepointName(level int) string {
	return "SVP" + strconv.Itoa(level)
}

// TransactionLevel returns the nesting depth: 0 outside a transaction, 1 for the real
// transaction and one more for every savepoint.
func (d *Driver) TransactionLevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}

// BeginTransaction starts a transaction, or a savepoint when one is already open.
// isolation only applies to the outermost transaction; an engine rejecting the level
// fails the call.
func (d *Driver) BeginTransaction(ctx context.Context, isolation sql.IsolationLevel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.connect(ctx); err != nil {
		return err
	}

	if d.level == 0 {
		start := time.Now()
		tx, err := d.conn.BeginTx(ctx, &sql.TxOptions{Isolation: isolation})
		d.trackControl(ctx, "BEGIN", start, err)
		if err != nil {
			return d.controlError("BEGIN", err)
		}
		d.tx = tx
		d.level = 1
		d.log.Debug().Str("database", d.name).Str("isolation", isolation.String()).Msg("Begin transaction")
		return nil
	}

	next := d.level + 1
	if err := d.controlStatement(ctx, d.dialect.Savepoint(savepointName(next))); err != nil {
		return err
	}
	d.level = next
	return nil
}

// CommitTransaction commits the innermost level: the real transaction at level 1, a
// savepoint release above it. At level 0 it fails with types.ErrNoActiveTransaction.
// A failed release keeps the level, so the savepoint can still be rolled back.
func (d *Driver) CommitTransaction(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.level == 0 || d.tx == nil:
		return types.ErrNoActiveTransaction
	case d.level == 1:
		start := time.Now()
		err := d.tx.Commit()
		d.trackControl(ctx, "COMMIT", start, err)
		d.tx, d.level = nil, 0
		if err != nil {
			return d.controlError("COMMIT", err)
		}
		d.log.Debug().Str("database", d.name).Msg("Commit transaction")
		return nil
	}

	release := d.dialect.ReleaseSavepoint(savepointName(d.level))
	if release != "" {
		if err := d.controlStatement(ctx, release); err != nil {
			return err
		}
	}
	d.level--
	return nil
}

// RollbackTransaction rolls back the innermost level. At level 0 it fails with
// types.ErrNoActiveTransaction.
func (d *Driver) RollbackTransaction(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.level == 0 || d.tx == nil:
		return types.ErrNoActiveTransaction
	case d.level == 1:
		start := time.Now()
		err := d.tx.Rollback()
		d.trackControl(ctx, "ROLLBACK", start, err)
		d.tx, d.level = nil, 0
		if err != nil {
			return d.controlError("ROLLBACK", err)
		}
		d.log.Debug().Str("database", d.name).Msg("Rollback transaction")
		return nil
	}

	current := d.level
	d.level--
	return d.controlStatement(ctx, d.dialect.RollbackSavepoint(savepointName(current)))
}

// Transaction runs fn inside BeginTransaction/CommitTransaction with the default
// isolation level. The level is rolled back when fn returns an error or panics; a
// panic is re-raised after the rollback.
func (d *Driver) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.TransactionIsolation(ctx, sql.LevelDefault, fn)
}

// TransactionIsolation is Transaction with an explicit isolation level.
func (d *Driver) TransactionIsolation(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) (err error) {
	if err := d.BeginTransaction(ctx, isolation); err != nil {
		return err
	}
	level := d.TransactionLevel()

	committed := false
	defer func() {
		if committed {
			return
		}
		if r := recover(); r != nil {
			if rbErr := d.RollbackTransaction(ctx); rbErr != nil {
				d.log.Error().Err(rbErr).Msg("Failed to roll back transaction after panic")
			}
			panic(r)
		}
		if rbErr := d.RollbackTransaction(ctx); rbErr != nil {
			err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
	}()

	if err = fn(ctx); err != nil {
		return err
	}
	err = d.CommitTransaction(ctx)
	committed = err == nil || d.TransactionLevel() < level
	return err
}

// controlStatement executes a savepoint statement on the open transaction.
func (d *Driver) controlStatement(ctx context.Context, statement string) error {
	start := time.Now()
	_, err := d.tx.ExecContext(ctx, statement)
	d.trackControl(ctx, statement, start, err)
	if err != nil {
		return d.controlError(statement, err)
	}
	return nil
}

func (d *Driver) trackControl(ctx context.Context, statement string, start time.Time, err error) {
	tracking.Track(ctx, d.tracking, tracking.Statement{Query: statement, Start: start, Err: err})
}

func (d *Driver) controlError(statement string, err error) error {
	if d.dialect.IsConnectionError(err) {
		return d.connectionError("transaction", err)
	}
	return &types.QueryError{Dialect: d.dialect.Name(), SQL: statement, Err: err}
}

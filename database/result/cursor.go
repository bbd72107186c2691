// Package result provides a lazy, forward-only cursor over a statement's rows.
package result

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"reflect"
	"runtime"

	"github.com/spiral-modules/dbal/database/types"
)

// State describes the cursor lifecycle: Open → Exhausted → Closed.
type State int

const (
	StateOpen State = iota
	StateExhausted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateExhausted:
		return "exhausted"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Rows is the subset of *sql.Rows the cursor consumes.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

var _ Rows = (*sql.Rows)(nil)

// Cursor wraps an executing statement. It is not safe for concurrent use.
//
// Rows are read lazily on Fetch. Column bindings registered with Bind are filled on every
// subsequent fetch. The row count is the number of rows consumed so far: Go drivers do not
// report SELECT row totals up front, so callers must not rely on Count before exhaustion.
type Cursor struct {
	rows     Rows
	columns  []string
	state    State
	fetched  int64
	started  bool
	bindings map[int]any
	cleanup  runtime.Cleanup
}

// New wraps rows into a cursor. An abandoned cursor closes its rows when collected.
func New(rows Rows) (*Cursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	c := &Cursor{
		rows:     rows,
		columns:  columns,
		bindings: make(map[int]any),
	}
	c.cleanup = runtime.AddCleanup(c, func(r Rows) { _ = r.Close() }, rows)
	return c, nil
}

// Columns returns the result column names in order.
func (c *Cursor) Columns() []string {
	return c.columns
}

// CountColumns returns the number of result columns.
func (c *Cursor) CountColumns() int {
	return len(c.columns)
}

// Count returns the number of rows fetched so far.
func (c *Cursor) Count() int64 {
	return c.fetched
}

// State returns the current lifecycle state.
func (c *Cursor) State() State {
	return c.state
}

// Bind registers target, a non-nil pointer, to receive column on every subsequent fetch.
// Binding after the first fetch fails with *types.BindingOrderError.
func (c *Cursor) Bind(column string, target any) error {
	if c.started {
		return &types.BindingOrderError{Column: column}
	}
	if c.state == StateClosed {
		return types.ErrCursorClosed
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("bind target for column %q must be a non-nil pointer", column)
	}

	for i, name := range c.columns {
		if name == column {
			c.bindings[i] = target
			return nil
		}
	}
	return fmt.Errorf("%w: %s", types.ErrUnknownColumn, column)
}

// Fetch advances the cursor and returns the next row. It returns io.EOF once the
// result set is exhausted, after which the underlying rows are released.
func (c *Cursor) Fetch() (Row, error) {
	switch c.state {
	case StateClosed:
		return Row{}, types.ErrCursorClosed
	case StateExhausted:
		return Row{}, io.EOF
	}
	c.started = true

	if !c.rows.Next() {
		err := c.rows.Err()
		c.state = StateExhausted
		_ = c.release()
		if err != nil {
			return Row{}, err
		}
		return Row{}, io.EOF
	}

	values := make([]any, len(c.columns))
	dest := make([]any, len(c.columns))
	for i := range dest {
		if target, ok := c.bindings[i]; ok {
			dest[i] = target
			continue
		}
		dest[i] = &values[i]
	}

	if err := c.rows.Scan(dest...); err != nil {
		return Row{}, fmt.Errorf("failed to scan row %d: %w", c.fetched+1, err)
	}

	for i, target := range c.bindings {
		values[i] = reflect.ValueOf(target).Elem().Interface()
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}

	c.fetched++
	return Row{columns: c.columns, values: values}, nil
}

// FetchAssoc is Fetch returning the row keyed by column name.
func (c *Cursor) FetchAssoc() (map[string]any, error) {
	row, err := c.Fetch()
	if err != nil {
		return nil, err
	}
	return row.Map(), nil
}

// FetchAll drains the cursor and closes it. Avoid on unbounded result sets.
func (c *Cursor) FetchAll() ([]Row, error) {
	defer c.Close()

	var rows []Row
	for {
		row, err := c.Fetch()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

// FetchAllAssoc drains the cursor into maps keyed by column name.
func (c *Cursor) FetchAllAssoc() ([]map[string]any, error) {
	rows, err := c.FetchAll()
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Map())
	}
	return out, err
}

// FetchColumn drains the cursor returning the values of the column at index.
func (c *Cursor) FetchColumn(index int) ([]any, error) {
	if index < 0 || index >= len(c.columns) {
		_ = c.Close()
		return nil, fmt.Errorf("%w: index %d", types.ErrUnknownColumn, index)
	}
	rows, err := c.FetchAll()
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.values[index])
	}
	return out, err
}

// Close releases the underlying rows. It is valid from any state and idempotent.
func (c *Cursor) Close() error {
	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	return c.release()
}

func (c *Cursor) release() error {
	if c.rows == nil {
		return nil
	}
	c.cleanup.Stop()
	err := c.rows.Close()
	c.rows = nil
	return err
}

//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic checks with errors.Is().
var (
	// ErrUnsupportedDialect is returned when a dialect tag is unknown or has no
	// implementation for the requested capability.
	ErrUnsupportedDialect = errors.New("unsupported database dialect")

	// ErrNotSupported is returned when a dialect cannot perform a requested operation,
	// for example altering a column in SQLite without a table rebuild.
	ErrNotSupported = errors.New("operation not supported by dialect")

	// ErrNoActiveTransaction is returned by commit/rollback when no transaction is open.
	ErrNoActiveTransaction = errors.New("no active transaction")

	// ErrCursorClosed is returned when reading from a closed result cursor.
	ErrCursorClosed = errors.New("result cursor is closed")

	// ErrUnknownColumn is returned when binding a column the result set does not contain.
	ErrUnknownColumn = errors.New("unknown result column")

	// ErrSequenceRequired is returned by LastInsertID on dialects that need a sequence name.
	ErrSequenceRequired = errors.New("sequence name is required")
)

// ConnectionError reports that the physical connection could not be established or was lost.
// It is fatal to the calling operation and never retried internally.
type ConnectionError struct {
	Dialect Dialect
	Name    string // connection alias or driver name
	Op      string // connect, ping, statement, ...
	Err     error
}

func (e *ConnectionError) Error() string {
	name := e.Name
	if name == "" {
		name = string(e.Dialect)
	}
	return fmt.Sprintf("%s connection %q: %s failed: %v", e.Dialect, name, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError reports a failed statement. It carries the statement as sent to the engine,
// a human readable interpolated form and the flattened parameters.
type QueryError struct {
	Dialect      Dialect
	SQL          string
	Interpolated string
	Params       []any
	Err          error
}

func (e *QueryError) Error() string {
	query := e.Interpolated
	if query == "" {
		query = e.SQL
	}
	return fmt.Sprintf("%s query failed: %v [%s]", e.Dialect, e.Err, query)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// SchemaError reports a DDL failure or a diff operation the dialect cannot apply.
// Operation names the failed step (e.g. "alter column users.email"); Statement is the
// DDL sent to the engine when one was rendered.
type SchemaError struct {
	Dialect   Dialect
	Table     string
	Operation string
	Statement string
	Err       error
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s schema %q: %s: %v", e.Dialect, e.Table, e.Operation, e.Err)
	if e.Statement != "" {
		fmt.Fprintf(&b, " [%s]", e.Statement)
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// InvalidBindingError reports a parameter whose shape violates the binding rules,
// such as an array bound to a named placeholder.
type InvalidBindingError struct {
	Key    string // parameter name or positional index
	Reason string
}

func (e *InvalidBindingError) Error() string {
	return fmt.Sprintf("invalid binding for parameter %s: %s", e.Key, e.Reason)
}

// BindingOrderError reports a result column binding requested after iteration began.
type BindingOrderError struct {
	Column string
}

func (e *BindingOrderError) Error() string {
	return fmt.Sprintf("cannot bind column %q: cursor iteration already started", e.Column)
}

package schema

import (
	"context"

	"github.com/spiral-modules/dbal/database/result"
	"github.com/spiral-modules/dbal/database/types"
)

// Executor runs catalog queries and DDL. *driver.Driver satisfies it.
type Executor interface {
	Query(ctx context.Context, query string, params ...any) (*result.Cursor, error)
	Execute(ctx context.Context, query string, params ...any) (int64, error)
}

// Reader introspects live catalog metadata into the abstract model.
type Reader interface {
	TableNames(ctx context.Context, exec Executor) ([]string, error)
	HasTable(ctx context.Context, exec Executor, table string) (bool, error)
	Columns(ctx context.Context, exec Executor, table string) ([]*Column, error)
	// Indexes excludes the engine's implicit primary key index.
	Indexes(ctx context.Context, exec Executor, table string) ([]*Index, error)
	References(ctx context.Context, exec Executor, table string) ([]*Reference, error)
	PrimaryKeys(ctx context.Context, exec Executor, table string) ([]string, error)
}

// Renderer turns the abstract model into DDL.
type Renderer interface {
	// ColumnDefinition renders one column for CREATE TABLE or ADD COLUMN.
	ColumnDefinition(c *Column) string
	// Render returns the statements applying op, or an error wrapping
	// types.ErrNotSupported when the dialect cannot apply it.
	Render(op Operation) ([]string, error)
}

// Handler is one dialect's schema support.
type Handler interface {
	Reader
	Renderer
	Dialect() types.Dialect
	Types() *TypeMap
}

// Planner is implemented by handlers that rewrite an operation list before execution,
// such as replacing unsupported alterations with a table rebuild.
type Planner interface {
	Plan(initial, current *State, ops []Operation) []Operation
}

// Load introspects table into a new state.
func Load(ctx context.Context, h Handler, exec Executor, table string) (*State, error) {
	state := NewState(table)

	columns, err := h.Columns(ctx, exec, table)
	if err != nil {
		return nil, err
	}
	for _, c := range columns {
		state.RegisterColumn(c)
	}

	indexes, err := h.Indexes(ctx, exec, table)
	if err != nil {
		return nil, err
	}
	for _, i := range indexes {
		state.RegisterIndex(i)
	}

	refs, err := h.References(ctx, exec, table)
	if err != nil {
		return nil, err
	}
	for _, r := range refs {
		state.RegisterReference(r)
	}

	pk, err := h.PrimaryKeys(ctx, exec, table)
	if err != nil {
		return nil, err
	}
	state.SetPrimaryKeys(pk...)
	return state, nil
}

// FetchRows runs a catalog query and drains its cursor. Readers must drain before issuing
// the next query, as the driver runs everything on one connection.
func FetchRows(ctx context.Context, exec Executor, query string, params ...any) ([]result.Row, error) {
	cur, err := exec.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	return cur.FetchAll()
}

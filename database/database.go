// Package database joins a driver with the schema handler of its dialect and manages
// named databases built from configuration.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/dialect"
	"github.com/spiral-modules/dbal/database/driver"
	"github.com/spiral-modules/dbal/database/query"
	"github.com/spiral-modules/dbal/database/result"
	"github.com/spiral-modules/dbal/database/schema"
	"github.com/spiral-modules/dbal/database/schema/mysql"
	"github.com/spiral-modules/dbal/database/schema/postgres"
	"github.com/spiral-modules/dbal/database/schema/sqlite"
	"github.com/spiral-modules/dbal/database/types"
	"github.com/spiral-modules/dbal/logger"
)

// Executor is the statement contract shared by Database and driver.Driver.
type Executor interface {
	Query(ctx context.Context, sqlText string, params ...any) (*result.Cursor, error)
	Execute(ctx context.Context, sqlText string, params ...any) (int64, error)
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

var (
	_ Executor = (*Database)(nil)
	_ Executor = (*driver.Driver)(nil)
)

// NewHandler returns the schema handler for d. SQL Server and Oracle have no schema
// support and fail with types.ErrNotSupported.
func NewHandler(d dialect.Dialect) (schema.Handler, error) {
	switch d.Name() {
	case types.MySQL:
		return mysql.New(d), nil
	case types.Postgres:
		return postgres.New(d), nil
	case types.SQLite:
		return sqlite.New(d, sqlite.WithTableRebuild()), nil
	default:
		return nil, fmt.Errorf("schema reflection for %s: %w", d.Name(), types.ErrNotSupported)
	}
}

// Database is a driver plus the schema of the database it is connected to.
type Database struct {
	driver *driver.Driver
	schema *schema.Schema
	err    error
}

// New creates a database for cfg. The connection is opened lazily by the driver.
func New(cfg *config.DatabaseConfig, log logger.Logger, opts ...driver.Option) (*Database, error) {
	if log == nil {
		log = logger.Nop()
	}
	opts = append([]driver.Option{driver.WithLogger(log)}, opts...)

	d, err := driver.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return Wrap(d, log), nil
}

// Wrap builds a Database around an existing driver.
func Wrap(d *driver.Driver, log logger.Logger) *Database {
	db := &Database{driver: d}
	h, err := NewHandler(d.Dialect())
	if err != nil {
		db.err = err
		return db
	}
	db.schema = schema.New(h, d, log)
	return db
}

// Name returns the alias the database was created under.
func (db *Database) Name() string { return db.driver.Name() }

// Dialect returns the dialect tag.
func (db *Database) Dialect() types.Dialect { return db.driver.Dialect().Name() }

// Driver exposes the underlying driver for transaction control and raw access.
func (db *Database) Driver() *driver.Driver { return db.driver }

// Schema returns the schema facade, or an error wrapping types.ErrNotSupported when the
// dialect has no schema handler.
func (db *Database) Schema() (*schema.Schema, error) {
	if db.schema == nil {
		return nil, db.err
	}
	return db.schema, nil
}

func (db *Database) Query(ctx context.Context, sqlText string, params ...any) (*result.Cursor, error) {
	return db.driver.Query(ctx, sqlText, params...)
}

func (db *Database) Execute(ctx context.Context, sqlText string, params ...any) (int64, error) {
	return db.driver.Execute(ctx, sqlText, params...)
}

// Transaction runs fn in a transaction, or in a savepoint when one is already open.
func (db *Database) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.driver.Transaction(ctx, fn)
}

// TransactionIsolation is Transaction with an explicit isolation level.
func (db *Database) TransactionIsolation(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	return db.driver.TransactionIsolation(ctx, isolation, fn)
}

// Select starts a select of columns. Run it with Run.
func (db *Database) Select(columns ...any) *query.Select {
	return query.NewSelect(columns...)
}

// Run compiles and executes q, returning a cursor for selects.
func (db *Database) Run(ctx context.Context, q *query.Select) (*result.Cursor, error) {
	return db.driver.QueryBuilder(ctx, q)
}

// Exec compiles and executes an insert, update or delete.
func (db *Database) Exec(ctx context.Context, q query.Builder) (int64, error) {
	return db.driver.ExecuteBuilder(ctx, q)
}

// Table loads name for inspection or alteration. A missing table is returned as an
// empty declaration.
func (db *Database) Table(ctx context.Context, name string) (*schema.Table, error) {
	s, err := db.Schema()
	if err != nil {
		return nil, err
	}
	return s.Table(ctx, name)
}

func (db *Database) HasTable(ctx context.Context, name string) (bool, error) {
	s, err := db.Schema()
	if err != nil {
		return false, err
	}
	return s.HasTable(ctx, name)
}

// Tables loads every table of the database.
func (db *Database) Tables(ctx context.Context) ([]*schema.Table, error) {
	s, err := db.Schema()
	if err != nil {
		return nil, err
	}
	return s.Tables(ctx)
}

// Close disconnects the driver. The database stays usable and reconnects on demand.
func (db *Database) Close() error {
	return db.driver.Disconnect()
}

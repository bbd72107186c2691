// Package driver runs statements against one database connection. A Driver owns a single
// pinned connection that is opened lazily, tracks transaction nesting through savepoints and
// reports failures with the typed errors of the types package.
//
// A Driver is not safe for concurrent use while a transaction is open.
package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/dialect"
	"github.com/spiral-modules/dbal/database/internal/rowtracker"
	"github.com/spiral-modules/dbal/database/internal/sqllex"
	"github.com/spiral-modules/dbal/database/internal/tracking"
	"github.com/spiral-modules/dbal/database/parameter"
	"github.com/spiral-modules/dbal/database/query"
	"github.com/spiral-modules/dbal/database/result"
	"github.com/spiral-modules/dbal/database/types"
	"github.com/spiral-modules/dbal/logger"
)

const pingTimeout = 10 * time.Second

// Opener creates the database handle for a configuration without connecting.
type Opener func(cfg *config.DatabaseConfig) (*sql.DB, error)

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for connection events and statement tracking.
func WithLogger(log logger.Logger) Option {
	return func(d *Driver) {
		if log != nil {
			d.log = log
		}
	}
}

// WithName sets the connection alias reported in logs, spans and errors.
func WithName(name string) Option {
	return func(d *Driver) { d.name = name }
}

// WithOpener replaces the dialect's Open, mostly for tests.
func WithOpener(open Opener) Option {
	return func(d *Driver) {
		if open != nil {
			d.open = open
		}
	}
}

// WithPoolMetrics registers connection pool gauges on every connect.
func WithPoolMetrics() Option {
	return func(d *Driver) { d.poolMetrics = true }
}

// Driver executes statements on one lazily established connection.
type Driver struct {
	name     string
	cfg      *config.DatabaseConfig
	dialect  dialect.Dialect
	compiler *query.Compiler
	log      logger.Logger
	tracking *tracking.Context
	params   parameter.Options
	open     Opener

	poolMetrics bool
	poolCleanup func()

	mu    sync.Mutex
	db    *sql.DB
	conn  *sql.Conn
	tx    *sql.Tx
	level int
}

// New creates a driver for cfg. No connection is made until the first statement or an
// explicit Connect.
func New(cfg *config.DatabaseConfig, opts ...Option) (*Driver, error) {
	if cfg == nil {
		return nil, errors.New("database config is required")
	}

	tag, err := types.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dia, err := dialect.Get(tag)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	d := &Driver{
		name:     string(tag),
		cfg:      cfg,
		dialect:  dia,
		compiler: query.NewCompiler(dia),
		log:      logger.Nop(),
		params:   parameter.Options{Location: loc, DateTimeLayout: dia.DateTimeLayout()},
		open:     dia.Open,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.tracking = &tracking.Context{
		Logger:   d.log,
		Dialect:  tag,
		Name:     d.name,
		Settings: tracking.NewSettings(cfg),
	}
	return d, nil
}

// Name returns the connection alias.
func (d *Driver) Name() string { return d.name }

// Dialect returns the dialect strategy.
func (d *Driver) Dialect() dialect.Dialect { return d.dialect }

// Compiler returns the query compiler bound to the driver's dialect.
func (d *Driver) Compiler() *query.Compiler { return d.compiler }

// Config returns the connection configuration.
func (d *Driver) Config() *config.DatabaseConfig { return d.cfg }

// Logger returns the driver logger.
func (d *Driver) Logger() logger.Logger { return d.log }

// Connect opens the connection. It is a no-op when already connected.
func (d *Driver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connect(ctx)
}

func (d *Driver) connect(ctx context.Context) error {
	if d.conn != nil {
		return nil
	}

	db, err := d.open(d.cfg)
	if err != nil {
		return d.connectionError("connect", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	conn, err := db.Conn(pingCtx)
	if err == nil {
		err = conn.PingContext(pingCtx)
		if err != nil {
			_ = conn.Close()
		}
	}
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			d.log.Error().Err(closeErr).Msg("Failed to close database handle after connect failure")
		}
		return d.connectionError("connect", err)
	}

	d.db, d.conn = db, conn
	if d.poolMetrics {
		d.poolCleanup = tracking.RegisterConnectionPoolMetrics(db, d.dialect.Name(), d.name)
	}

	d.log.Info().
		Str("database", d.name).
		Str("dialect", string(d.dialect.Name())).
		Msg("Connected to database")
	return nil
}

// Disconnect closes the connection but keeps the configuration; the next statement
// reconnects. An open transaction is rolled back and the nesting level reset.
func (d *Driver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnect()
}

func (d *Driver) disconnect() error {
	if d.conn == nil {
		return nil
	}

	var errs []error
	if d.tx != nil {
		if err := d.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
	}
	d.tx, d.level = nil, 0

	if err := d.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, err)
	}
	if err := d.db.Close(); err != nil {
		errs = append(errs, err)
	}
	d.conn, d.db = nil, nil

	if d.poolCleanup != nil {
		d.poolCleanup()
		d.poolCleanup = nil
	}

	d.log.Info().Str("database", d.name).Msg("Disconnected from database")
	if len(errs) > 0 {
		return d.connectionError("disconnect", errors.Join(errs...))
	}
	return nil
}

// IsConnected reports whether a connection is open.
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// Stats returns the pool statistics of the open handle.
func (d *Driver) Stats() sql.DBStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return sql.DBStats{}
	}
	return d.db.Stats()
}

// Quote renders value as a SQL literal of the dialect.
func (d *Driver) Quote(value any) string {
	return d.dialect.Quote(value)
}

// Identifier quotes a table or column reference.
func (d *Driver) Identifier(name string) string {
	return d.dialect.QuoteIdentifier(name)
}

type execer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// target returns the open transaction or the pinned connection, connecting if needed.
func (d *Driver) target(ctx context.Context) (execer, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	if d.tx != nil {
		return d.tx, nil
	}
	return d.conn, nil
}

// prepared is a statement ready to run: "?" markers expanded for arrays and rewritten into
// the native placeholder format, parameters flattened.
type prepared struct {
	generic string
	native  string
	args    []any
}

func (d *Driver) prepare(sqlText string, params []any) (prepared, error) {
	generic := parameter.Expand(sqlText, params)
	args, err := parameter.Flatten(params, d.params)
	if err != nil {
		return prepared{}, err
	}
	native, err := d.nativePlaceholders(generic)
	if err != nil {
		return prepared{}, fmt.Errorf("failed to rewrite placeholders: %w", err)
	}
	return prepared{generic: generic, native: native, args: args}, nil
}

// nativePlaceholders rewrites "?" markers into the dialect format. Question marks inside
// literals, quoted identifiers and comments are escaped first so squirrel leaves them alone.
func (d *Driver) nativePlaceholders(sqlText string) (string, error) {
	format := d.dialect.Placeholders()
	if format == squirrel.Question {
		return sqlText, nil
	}

	markers := make(map[int]bool)
	for _, m := range sqllex.Scan(sqlText) {
		if m.Kind == sqllex.Positional {
			markers[m.Offset] = true
		}
	}

	escaped := make([]byte, 0, len(sqlText)+4)
	for i := 0; i < len(sqlText); i++ {
		escaped = append(escaped, sqlText[i])
		if sqlText[i] == '?' && !markers[i] {
			escaped = append(escaped, '?')
		}
	}
	return format.ReplacePlaceholders(string(escaped))
}

// Query runs a statement returning rows.
func (d *Driver) Query(ctx context.Context, sqlText string, params ...any) (*result.Cursor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query(ctx, sqlText, params)
}

// Statement is Query under the name used by schema readers.
func (d *Driver) Statement(ctx context.Context, sqlText string, params ...any) (*result.Cursor, error) {
	return d.Query(ctx, sqlText, params...)
}

func (d *Driver) query(ctx context.Context, sqlText string, params []any) (*result.Cursor, error) {
	p, err := d.prepare(sqlText, params)
	if err != nil {
		return nil, err
	}
	target, err := d.target(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := target.QueryContext(ctx, p.native, p.args...)
	if err != nil {
		d.track(ctx, p, start, 0, err)
		return nil, d.statementError(p, err)
	}

	// Queries are tracked when their cursor is released.
	tracked := rowtracker.Wrap(rows, func(read int64, err error) {
		d.trackStatement(ctx, p, tracking.Statement{Start: start, RowsRead: read, Err: err})
	})
	cursor, err := result.New(tracked)
	if err != nil {
		return nil, d.statementError(p, err)
	}
	return cursor, nil
}

// Execute runs a statement and returns the number of affected rows.
func (d *Driver) Execute(ctx context.Context, sqlText string, params ...any) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.execute(ctx, sqlText, params)
}

func (d *Driver) execute(ctx context.Context, sqlText string, params []any) (int64, error) {
	p, err := d.prepare(sqlText, params)
	if err != nil {
		return 0, err
	}
	target, err := d.target(ctx)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	res, err := target.ExecContext(ctx, p.native, p.args...)
	var affected int64
	if err == nil {
		// Some drivers cannot report affected rows for DDL; zero is fine there.
		affected, _ = res.RowsAffected()
	}
	d.track(ctx, p, start, affected, err)
	if err != nil {
		return 0, d.statementError(p, err)
	}
	return affected, nil
}

// QueryBuilder compiles q and runs it as a query.
func (d *Driver) QueryBuilder(ctx context.Context, q query.Builder) (*result.Cursor, error) {
	sqlText, args, err := d.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	return d.Query(ctx, sqlText, args...)
}

// ExecuteBuilder compiles q and runs it as a statement.
func (d *Driver) ExecuteBuilder(ctx context.Context, q query.Builder) (int64, error) {
	sqlText, args, err := d.compiler.Compile(q)
	if err != nil {
		return 0, err
	}
	return d.Execute(ctx, sqlText, args...)
}

// LastInsertID returns the last generated key on this connection. sequence is required by
// Oracle, optional for PostgreSQL and ignored elsewhere.
func (d *Driver) LastInsertID(ctx context.Context, sequence string) (int64, error) {
	sqlText, args, err := d.dialect.LastInsertID(sequence)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cursor, err := d.query(ctx, sqlText, args)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	row, err := cursor.Fetch()
	if err != nil {
		return 0, fmt.Errorf("failed to read last insert id: %w", err)
	}
	id, ok := result.AsInt(row.Index(0))
	if !ok {
		return 0, fmt.Errorf("unexpected last insert id value %v (%T)", row.Index(0), row.Index(0))
	}
	return id, nil
}

func (d *Driver) track(ctx context.Context, p prepared, start time.Time, affected int64, err error) {
	d.trackStatement(ctx, p, tracking.Statement{Start: start, RowsAffected: affected, Err: err})
}

func (d *Driver) trackStatement(ctx context.Context, p prepared, st tracking.Statement) {
	st.Query = p.native
	st.Args = p.args
	if d.tracking.Settings.Profiling() {
		st.Interpolated = query.Interpolate(p.generic, p.args, d.dialect.Quote)
	}
	tracking.Track(ctx, d.tracking, st)
}

// statementError classifies a statement failure. A lost connection outside a transaction
// drops the handle so the next statement reconnects.
func (d *Driver) statementError(p prepared, err error) error {
	if d.dialect.IsConnectionError(err) {
		if d.level == 0 {
			_ = d.disconnect()
		}
		return d.connectionError("statement", err)
	}
	return &types.QueryError{
		Dialect:      d.dialect.Name(),
		SQL:          p.native,
		Interpolated: query.Interpolate(p.generic, p.args, d.dialect.Quote),
		Params:       p.args,
		Err:          err,
	}
}

func (d *Driver) connectionError(op string, err error) error {
	return &types.ConnectionError{
		Dialect: d.dialect.Name(),
		Name:    d.name,
		Op:      op,
		Err:     err,
	}
}

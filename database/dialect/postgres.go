package dialect

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/types"
)

type postgresDialect struct {
	base
}

func newPostgres() *postgresDialect {
	return &postgresDialect{base: base{
		tag:        types.Postgres,
		driverName: "pgx",
		open:       '"',
		close:      '"',
		boolTrue:   "TRUE",
		boolFalse:  "FALSE",
		quoteText:  pq.QuoteLiteral,
	}}
}

var openPostgresDB = func(cfg *pgx.ConnConfig) *sql.DB {
	return stdlib.OpenDB(*cfg)
}

func (d *postgresDialect) Placeholders() squirrel.PlaceholderFormat { return squirrel.Dollar }

func (d *postgresDialect) LimitOffset(limit, offset uint64, _ bool) string {
	return limitOffset(limit, offset, "")
}

// LastInsertID reads currval of the named sequence, or lastval when none is given.
func (d *postgresDialect) LastInsertID(sequence string) (string, []any, error) {
	if sequence == "" {
		return "SELECT lastval()", nil, nil
	}
	return "SELECT currval(?)", []any{sequence}, nil
}

func (d *postgresDialect) Open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	pgxConfig, err := pgx.ParseConfig(cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}
	if cfg.Username != "" {
		pgxConfig.User = cfg.Username
	}
	if cfg.Password != "" {
		pgxConfig.Password = cfg.Password
	}
	for k, v := range cfg.Options {
		pgxConfig.RuntimeParams[k] = v
	}
	if cfg.Timezone != "" {
		pgxConfig.RuntimeParams["timezone"] = cfg.Timezone
	}
	return openPostgresDB(pgxConfig), nil
}

func (d *postgresDialect) IsConnectionError(err error) bool {
	if d.base.IsConnectionError(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08: connection exception, 57P01..03: admin shutdown / cannot connect now
		return len(pgErr.Code) == 5 && (pgErr.Code[:2] == "08" || pgErr.Code[:3] == "57P")
	}
	return false
}

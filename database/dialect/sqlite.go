package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/types"
)

type sqliteDialect struct {
	base
}

func newSQLite() *sqliteDialect {
	return &sqliteDialect{base: base{
		tag:        types.SQLite,
		driverName: "sqlite",
		open:       '"',
		close:      '"',
		boolTrue:   "1",
		boolFalse:  "0",
		quoteText:  ansiString,
	}}
}

func (d *sqliteDialect) Placeholders() squirrel.PlaceholderFormat { return squirrel.Question }

func (d *sqliteDialect) LimitOffset(limit, offset uint64, _ bool) string {
	return limitOffset(limit, offset, "-1")
}

func (d *sqliteDialect) LastInsertID(string) (string, []any, error) {
	return "SELECT last_insert_rowid()", nil, nil
}

// Open accepts a file path, "file:" URI or ":memory:". Options become URI query
// parameters, e.g. {"_pragma": "foreign_keys(1)"}.
func (d *sqliteDialect) Open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.Connection
	if dsn == "" {
		return nil, fmt.Errorf("sqlite connection path is empty")
	}
	if len(cfg.Options) > 0 {
		query := url.Values{}
		for k, v := range cfg.Options {
			query.Add(k, v)
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + query.Encode()
	}
	return sql.Open(d.driverName, dsn)
}

func (d *sqliteDialect) IsConnectionError(err error) bool {
	if d.base.IsConnectionError(err) {
		return true
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_IOERR:
			return true
		}
	}
	return false
}

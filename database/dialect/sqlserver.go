package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/Masterminds/squirrel"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/types"
)

type sqlServerDialect struct {
	base
}

func newSQLServer() *sqlServerDialect {
	return &sqlServerDialect{base: base{
		tag:        types.SQLServer,
		driverName: "sqlserver",
		open:       '[',
		close:      ']',
		boolTrue:   "1",
		boolFalse:  "0",
		quoteText:  ansiString,
	}}
}

func (d *sqlServerDialect) Placeholders() squirrel.PlaceholderFormat { return squirrel.AtP }

// LimitOffset always renders OFFSET since FETCH NEXT is invalid without it, and injects a
// neutral ORDER BY when the statement has none.
func (d *sqlServerDialect) LimitOffset(limit, offset uint64, ordered bool) string {
	clause := fetchNext(limit, offset, true)
	if clause == "" || ordered {
		return clause
	}
	return "ORDER BY (SELECT NULL) " + clause
}

func (d *sqlServerDialect) Savepoint(name string) string {
	return "SAVE TRANSACTION " + d.QuoteIdentifier(name)
}

// ReleaseSavepoint returns "": SQL Server has no savepoint release.
func (d *sqlServerDialect) ReleaseSavepoint(string) string { return "" }

func (d *sqlServerDialect) RollbackSavepoint(name string) string {
	return "ROLLBACK TRANSACTION " + d.QuoteIdentifier(name)
}

func (d *sqlServerDialect) LastInsertID(string) (string, []any, error) {
	return "SELECT CAST(@@IDENTITY AS BIGINT)", nil, nil
}

func (d *sqlServerDialect) Open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := withURLCredentials(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SQL Server DSN: %w", err)
	}
	return sql.Open(d.driverName, dsn)
}

func (d *sqlServerDialect) IsConnectionError(err error) bool {
	if d.base.IsConnectionError(err) {
		return true
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case 4060, 18456, 233, 10054: // cannot open db, login failed, no process, reset
			return true
		}
	}
	return false
}

// withURLCredentials injects username, password and options into a URL-form DSN.
func withURLCredentials(cfg *config.DatabaseConfig) (string, error) {
	u, err := url.Parse(cfg.Connection)
	if err != nil {
		return "", err
	}
	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}
	if len(cfg.Options) > 0 {
		q := u.Query()
		for k, v := range cfg.Options {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/types"
)

// mysqlMaxRows is the documented way to request "all remaining rows" in MySQL when only
// an offset is given.
const mysqlMaxRows = "18446744073709551615"

type mysqlDialect struct {
	base
}

func newMySQL() *mysqlDialect {
	return &mysqlDialect{base: base{
		tag:        types.MySQL,
		driverName: "mysql",
		open:       '`',
		close:      '`',
		boolTrue:   "TRUE",
		boolFalse:  "FALSE",
		quoteText:  mysqlString,
	}}
}

// mysqlString escapes backslashes as well as quotes, as required with the default
// NO_BACKSLASH_ESCAPES=off SQL mode.
func mysqlString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `''`, "\x00", `\0`, "\n", `\n`, "\r", `\r`, "\x1a", `\Z`)
	return "'" + r.Replace(s) + "'"
}

func (d *mysqlDialect) Placeholders() squirrel.PlaceholderFormat { return squirrel.Question }

func (d *mysqlDialect) LimitOffset(limit, offset uint64, _ bool) string {
	return limitOffset(limit, offset, mysqlMaxRows)
}

func (d *mysqlDialect) LastInsertID(string) (string, []any, error) {
	return "SELECT LAST_INSERT_ID()", nil, nil
}

// Open parses the DSN with the driver's own parser, so credentials and options given
// separately override what the DSN carries.
func (d *mysqlDialect) Open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	mc, err := mysql.ParseDSN(cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MySQL DSN: %w", err)
	}
	if cfg.Username != "" {
		mc.User = cfg.Username
	}
	if cfg.Password != "" {
		mc.Passwd = cfg.Password
	}
	if len(cfg.Options) > 0 && mc.Params == nil {
		mc.Params = make(map[string]string, len(cfg.Options))
	}
	for k, v := range cfg.Options {
		mc.Params[k] = v
	}

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("failed to create MySQL connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func (d *mysqlDialect) IsConnectionError(err error) bool {
	if d.base.IsConnectionError(err) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1040, 1045, 1049, 2006, 2013: // too many connections, access denied, unknown db, gone away, lost
			return true
		}
	}
	return false
}

package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	go_ora "github.com/sijms/go-ora/v2"
	"github.com/sijms/go-ora/v2/network"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/types"
)

type oracleDialect struct {
	base
}

func newOracle() *oracleDialect {
	return &oracleDialect{base: base{
		tag:        types.Oracle,
		driverName: "oracle",
		open:       '"',
		close:      '"',
		boolTrue:   "1",
		boolFalse:  "0",
		quoteText:  ansiString,
	}}
}

func (d *oracleDialect) Placeholders() squirrel.PlaceholderFormat { return squirrel.Colon }

func (d *oracleDialect) LimitOffset(limit, offset uint64, _ bool) string {
	return fetchNext(limit, offset, false)
}

// ReleaseSavepoint returns "": Oracle releases savepoints on commit only.
func (d *oracleDialect) ReleaseSavepoint(string) string { return "" }

func (d *oracleDialect) RollbackSavepoint(name string) string {
	return "ROLLBACK TO SAVEPOINT " + d.QuoteIdentifier(name)
}

// LastInsertID requires the sequence feeding the identity column.
func (d *oracleDialect) LastInsertID(sequence string) (string, []any, error) {
	if sequence == "" {
		return "", nil, types.ErrSequenceRequired
	}
	return "SELECT " + d.QuoteIdentifier(sequence) + ".CURRVAL FROM DUAL", nil, nil
}

// Open accepts an oracle:// URL or a "host:port/service" descriptor.
func (d *oracleDialect) Open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	var dsn string
	if strings.HasPrefix(cfg.Connection, "oracle://") {
		var err error
		if dsn, err = withURLCredentials(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse Oracle DSN: %w", err)
		}
	} else {
		hostPort, service, _ := strings.Cut(cfg.Connection, "/")
		host, portText, err := net.SplitHostPort(hostPort)
		if err != nil {
			return nil, fmt.Errorf("invalid Oracle address %q: %w", hostPort, err)
		}
		port, err := strconv.Atoi(portText)
		if err != nil {
			return nil, fmt.Errorf("invalid Oracle port %q: %w", portText, err)
		}
		dsn = go_ora.BuildUrl(host, port, service, cfg.Username, cfg.Password, cfg.Options)
	}
	return sql.Open(d.driverName, dsn)
}

func (d *oracleDialect) IsConnectionError(err error) bool {
	if d.base.IsConnectionError(err) {
		return true
	}
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		switch oraErr.ErrCode {
		case 1017, 3113, 3114, 12514, 12541: // invalid login, eof on channel, not connected, unknown service, no listener
			return true
		}
	}
	return false
}

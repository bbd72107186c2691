// Package types contains the core dialect tags, error taxonomy and collaborator
// interfaces of the database abstraction layer. The package is kept dependency free
// so that every other database package can import it without cycles.
//
//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import (
	"fmt"
	"slices"
	"strings"
)

// Dialect identifies a database engine's SQL/DDL variant.
type Dialect string

const (
	MySQL     Dialect = "mysql"
	Postgres  Dialect = "postgres"
	SQLite    Dialect = "sqlite"
	SQLServer Dialect = "sqlserver"
	Oracle    Dialect = "oracle"
)

// dialectAliases maps common spellings found in configuration files to dialect tags.
var dialectAliases = map[string]Dialect{
	"mysql":      MySQL,
	"mariadb":    MySQL,
	"postgres":   Postgres,
	"postgresql": Postgres,
	"pgsql":      Postgres,
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
	"sqlserver":  SQLServer,
	"mssql":      SQLServer,
	"oracle":     Oracle,
}

// Dialects returns every supported dialect tag in a stable order.
func Dialects() []Dialect {
	return []Dialect{MySQL, Postgres, SQLite, SQLServer, Oracle}
}

// ParseDialect resolves a configuration value (case-insensitive, aliases allowed)
// into a dialect tag.
func ParseDialect(value string) (Dialect, error) {
	if d, ok := dialectAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedDialect, value, Dialects())
}

// Valid reports whether d is one of the supported dialect tags.
func (d Dialect) Valid() bool {
	return slices.Contains(Dialects(), d)
}

func (d Dialect) String() string {
	return string(d)
}

// Package dialect binds every supported database engine to one strategy value: identifier and
// literal quoting, placeholder format, pagination syntax, savepoint statements, last insert id
// lookup, connection opening and driver error translation. Strategies are selected through a
// registry keyed by types.Dialect.
package dialect

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/squirrel"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/types"
)

// Dialect is the per-engine strategy consumed by the driver, compiler and schema handlers.
type Dialect interface {
	// Name returns the dialect tag.
	Name() types.Dialect
	// DriverName returns the database/sql driver the dialect opens connections with.
	DriverName() string

	// QuoteIdentifier quotes a table or column reference. Dotted names quote every segment,
	// "name AS alias" quotes both sides and "*" is kept as is. Embedded quote characters are
	// escaped by doubling.
	QuoteIdentifier(name string) string
	// Quote renders value as a SQL literal.
	Quote(value any) string

	// Placeholders returns the native bind placeholder format.
	Placeholders() squirrel.PlaceholderFormat
	// LimitOffset returns the pagination clause, or "" when both are zero. ordered tells
	// whether the statement already has an ORDER BY clause.
	LimitOffset(limit, offset uint64, ordered bool) string

	// Savepoint returns the statement creating a savepoint.
	Savepoint(name string) string
	// ReleaseSavepoint returns the statement releasing a savepoint, or "" when the engine
	// releases savepoints implicitly.
	ReleaseSavepoint(name string) string
	// RollbackSavepoint returns the statement rolling back to a savepoint.
	RollbackSavepoint(name string) string

	// LastInsertID returns the query reading the last generated key.
	LastInsertID(sequence string) (string, []any, error)

	// DateTimeLayout is the layout temporal parameters are formatted with.
	DateTimeLayout() string

	// Open creates a database handle for cfg without connecting.
	Open(cfg *config.DatabaseConfig) (*sql.DB, error)
	// IsConnectionError reports whether err means the physical connection is unusable.
	IsConnectionError(err error) bool
}

var (
	registryMu sync.RWMutex
	registry   = map[types.Dialect]Dialect{}
)

func init() {
	Register(newMySQL())
	Register(newPostgres())
	Register(newSQLite())
	Register(newSQLServer())
	Register(newOracle())
}

// Register makes d available through Get, replacing any dialect with the same name.
func Register(d Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name()] = d
}

// Get returns the registered dialect for name.
func Get(name types.Dialect) (Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedDialect, name)
	}
	return d, nil
}

// Lookup parses a driver name such as "pgsql" or "mariadb" and returns its dialect.
func Lookup(driverName string) (Dialect, error) {
	tag, err := types.ParseDialect(driverName)
	if err != nil {
		return nil, err
	}
	return Get(tag)
}

// Registered returns the registered dialect tags in sorted order.
func Registered() []types.Dialect {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]types.Dialect, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// base holds the behavior shared by the ANSI-leaning dialects. Concrete dialects embed it
// and override what differs.
type base struct {
	tag        types.Dialect
	driverName string
	open       byte
	close      byte
	boolTrue   string
	boolFalse  string
	quoteText  func(string) string
}

func (b base) Name() types.Dialect { return b.tag }

func (b base) DriverName() string { return b.driverName }

func (b base) QuoteIdentifier(name string) string {
	return quoteIdentifier(name, b.open, b.close)
}

func (b base) Quote(value any) string {
	return quoteValue(value, b.quoteText, b.boolTrue, b.boolFalse, b.DateTimeLayout())
}

func (b base) DateTimeLayout() string { return "2006-01-02 15:04:05" }

func (b base) Savepoint(name string) string {
	return "SAVEPOINT " + b.QuoteIdentifier(name)
}

func (b base) ReleaseSavepoint(name string) string {
	return "RELEASE SAVEPOINT " + b.QuoteIdentifier(name)
}

func (b base) RollbackSavepoint(name string) string {
	return "ROLLBACK TO SAVEPOINT " + b.QuoteIdentifier(name)
}

func (b base) IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}

// limitOffset renders the common "LIMIT n OFFSET m" form. offsetOnlyLimit is the limit
// value a dialect needs when only an offset is given; "" omits LIMIT entirely.
func limitOffset(limit, offset uint64, offsetOnlyLimit string) string {
	switch {
	case limit == 0 && offset == 0:
		return ""
	case limit == 0:
		if offsetOnlyLimit == "" {
			return fmt.Sprintf("OFFSET %d", offset)
		}
		return fmt.Sprintf("LIMIT %s OFFSET %d", offsetOnlyLimit, offset)
	case offset == 0:
		return fmt.Sprintf("LIMIT %d", limit)
	default:
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	}
}

// fetchNext renders OFFSET .. ROWS FETCH NEXT .. ROWS ONLY pagination.
func fetchNext(limit, offset uint64, alwaysOffset bool) string {
	if limit == 0 && offset == 0 {
		return ""
	}
	clause := ""
	if offset > 0 || alwaysOffset {
		clause = fmt.Sprintf("OFFSET %d ROWS", offset)
	}
	if limit > 0 {
		if clause != "" {
			clause += " "
		}
		clause += fmt.Sprintf("FETCH NEXT %d ROWS ONLY", limit)
	}
	return clause
}

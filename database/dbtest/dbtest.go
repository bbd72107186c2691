// Package dbtest builds drivers for tests: sqlmock-backed ones for asserting the exact
// statements a component issues, and in-memory SQLite ones for exercising real behavior.
//
// Mock drivers match SQL exactly. Statements reach sqlmock in their native placeholder
// form, so PostgreSQL expectations use $1 markers.
package dbtest

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/driver"
)

var connections = map[string]string{
	"mysql":     "tcp(localhost:3306)/app",
	"postgres":  "postgres://localhost:5432/app",
	"sqlite":    ":memory:",
	"sqlserver": "sqlserver://localhost:1433?database=app",
	"oracle":    "oracle://localhost:1521/app",
}

// Config returns a configuration for driverName pointing at a placeholder server.
func Config(driverName string) *config.DatabaseConfig {
	return &config.DatabaseConfig{Driver: driverName, Connection: connections[driverName]}
}

// Mock returns a driver for driverName whose connection is a sqlmock database.
func Mock(t *testing.T, driverName string, opts ...driver.Option) (*driver.Driver, sqlmock.Sqlmock) {
	t.Helper()
	return MockConfig(t, Config(driverName), opts...)
}

// MockConfig is Mock with an explicit configuration.
func MockConfig(t *testing.T, cfg *config.DatabaseConfig, opts ...driver.Option) (*driver.Driver, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	opts = append(opts, driver.WithOpener(func(*config.DatabaseConfig) (*sql.DB, error) { return db, nil }))
	d, err := driver.New(cfg, opts...)
	require.NoError(t, err)

	return d, mock
}

// SQLite returns a driver over a private in-memory database, disconnected when the
// test ends.
func SQLite(t *testing.T, opts ...driver.Option) *driver.Driver {
	t.Helper()

	d, err := driver.New(Config("sqlite"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Disconnect() })
	return d
}

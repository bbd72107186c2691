//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spiral-modules/dbal/config"
)

// MySQLConfig holds configuration for the MySQL test container.
type MySQLConfig struct {
	// ImageTag specifies the MySQL version (default: "8.4")
	ImageTag       string
	Username       string
	Password       string
	Database       string
	StartupTimeout time.Duration
}

// DefaultMySQLConfig returns the settings used when StartMySQL receives nil.
func DefaultMySQLConfig() *MySQLConfig {
	return &MySQLConfig{
		ImageTag:       "8.4",
		Username:       "testuser",
		Password:       "testpass",
		Database:       "testdb",
		StartupTimeout: 90 * time.Second,
	}
}

// StartMySQL starts a MySQL container that is terminated when the test ends and returns
// the DBAL configuration pointing at it. The test is skipped without Docker.
func StartMySQL(ctx context.Context, t *testing.T, cfg *MySQLConfig) *config.DatabaseConfig {
	t.Helper()
	if cfg == nil {
		cfg = DefaultMySQLConfig()
	}
	skipWithoutDocker(ctx, t)

	c, err := mysql.Run(ctx,
		fmt.Sprintf("mysql:%s", cfg.ImageTag),
		mysql.WithDatabase(cfg.Database),
		mysql.WithUsername(cfg.Username),
		mysql.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(cfg.StartupTimeout),
		),
	)
	if err != nil {
		t.Fatalf("failed to start MySQL container: %v", err)
	}
	terminateOnCleanup(t, "MySQL", c)

	dsn, err := c.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		t.Fatalf("failed to get MySQL connection string: %v", err)
	}
	return &config.DatabaseConfig{Driver: "mysql", Connection: dsn}
}

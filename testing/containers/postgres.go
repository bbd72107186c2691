//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spiral-modules/dbal/config"
)

// PostgresConfig holds configuration for the PostgreSQL test container.
type PostgresConfig struct {
	// ImageTag specifies the PostgreSQL version (default: "17-alpine")
	ImageTag       string
	Username       string
	Password       string
	Database       string
	StartupTimeout time.Duration
}

// DefaultPostgresConfig returns the settings used when StartPostgres receives nil.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		ImageTag:       "17-alpine",
		Username:       "testuser",
		Password:       "testpass",
		Database:       "testdb",
		StartupTimeout: 60 * time.Second,
	}
}

// StartPostgres starts a PostgreSQL container that is terminated when the test ends and
// returns the DBAL configuration pointing at it. The test is skipped without Docker.
func StartPostgres(ctx context.Context, t *testing.T, cfg *PostgresConfig) *config.DatabaseConfig {
	t.Helper()
	if cfg == nil {
		cfg = DefaultPostgresConfig()
	}
	skipWithoutDocker(ctx, t)

	c, err := postgres.Run(ctx,
		fmt.Sprintf("postgres:%s", cfg.ImageTag),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2). // Postgres restarts after initial setup
				WithStartupTimeout(cfg.StartupTimeout),
		),
	)
	if err != nil {
		t.Fatalf("failed to start PostgreSQL container: %v", err)
	}
	terminateOnCleanup(t, "PostgreSQL", c)

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get PostgreSQL connection string: %v", err)
	}
	return &config.DatabaseConfig{Driver: "postgres", Connection: dsn}
}

//go:build integration

// Package containers starts disposable MySQL and PostgreSQL servers for integration
// tests and returns connection settings ready for database.New.
package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// isDockerAvailable checks if the Docker daemon is reachable through the testcontainers
// Docker provider.
func isDockerAvailable(ctx context.Context) bool {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.DaemonHost(ctx)
	return err == nil
}

func skipWithoutDocker(ctx context.Context, t *testing.T) {
	t.Helper()
	if !isDockerAvailable(ctx) {
		t.Skip("Docker is not available - skipping integration test")
	}
}

// terminateOnCleanup terminates c when the test finishes.
func terminateOnCleanup(t *testing.T, name string, c testcontainers.Container) {
	t.Helper()
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate %s container: %v", name, err)
		}
	})
}

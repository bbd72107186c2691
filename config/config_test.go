package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
default: primary
log:
  level: debug
databases:
  primary:
    driver: mysql
    connection: "tcp(localhost:3306)/app"
    username: app
    password: secret
    profiling: true
    timezone: Europe/Berlin
    options:
      parseTime: "true"
    query:
      slow:
        threshold: 500ms
  cache:
    driver: sqlite
    connection: ":memory:"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "primary", cfg.Default)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Len(t, cfg.Databases, 2)

	primary, err := cfg.Database("")
	require.NoError(t, err)
	assert.Equal(t, "mysql", primary.Driver)
	assert.Equal(t, "app", primary.Username)
	assert.True(t, primary.Profiling)
	assert.Equal(t, "true", primary.Options["parseTime"])
	assert.Equal(t, 500*time.Millisecond, primary.Query.Slow.Threshold)
	assert.True(t, primary.Query.Slow.Enabled)
	assert.Equal(t, defaultMaxQueryLength, primary.Query.Log.MaxLength)

	cache, err := cfg.Database("cache")
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, cache.Query.Slow.Threshold)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DBAL_DATABASES_PRIMARY_PASSWORD", "from-env")
	t.Setenv("DBAL_DATABASES_PRIMARY_QUERY_LOG_PARAMETERS", "true")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	primary, err := cfg.Database("primary")
	require.NoError(t, err)
	assert.Equal(t, "from-env", primary.Password)
	assert.True(t, primary.Query.Log.Parameters)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestFromMapSingleDatabaseBecomesDefault(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"databases.main.driver":     "postgres",
		"databases.main.connection": "postgres://localhost/app",
	})
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Default)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestValidationErrors(t *testing.T) {
	_, err := FromMap(map[string]any{
		"default":                      "primary",
		"databases.primary.driver":     "db2",
		"databases.primary.timezone":   "Mars/Olympus",
		"databases.replica.connection": "x",
	})
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)

	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "databases.primary.driver")
	assert.Contains(t, fields, "databases.primary.connection")
	assert.Contains(t, fields, "databases.primary.timezone")
	assert.Contains(t, fields, "databases.replica.driver")

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), "unsupported driver \"db2\"")
	assert.Contains(t, err.Error(), "DBAL_DATABASES_PRIMARY_CONNECTION")
}

func TestValidationUnknownDefault(t *testing.T) {
	_, err := FromMap(map[string]any{
		"default":                   "primary",
		"databases.main.driver":     "sqlite",
		"databases.main.connection": ":memory:",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `alias "primary" is not configured`)
	assert.Contains(t, err.Error(), "must be one of: main")
}

func TestValidationRequiresDatabases(t *testing.T) {
	_, err := FromMap(map[string]any{"default": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config_missing: databases")
}

func TestDatabaseUnknownAlias(t *testing.T) {
	cfg := &Config{Default: "a", Databases: map[string]DatabaseConfig{"a": {}}}
	_, err := cfg.Database("b")
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "missing", ce.Category)
}

func TestLocation(t *testing.T) {
	loc, err := (&DatabaseConfig{}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = (&DatabaseConfig{Timezone: "Europe/Berlin"}).Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	_, err = (&DatabaseConfig{Timezone: "Nowhere/City"}).Location()
	assert.Error(t, err)
}

func TestConfigErrorFormatting(t *testing.T) {
	err := NewInvalidFieldError("log.level", "invalid value \"loud\"", []string{"debug", "info"})
	assert.Equal(t, `config_invalid: log.level invalid value "loud" must be one of: debug, info`, err.Error())

	missing := NewMissingFieldError("databases.x.driver", "DBAL_DATABASES_X_DRIVER", "databases.x.driver")
	assert.Equal(t, "config_missing: databases.x.driver required set DBAL_DATABASES_X_DRIVER env var or add databases.x.driver to dbal.yaml", missing.Error())
}

func TestTelemetryDefaultsAndValidation(t *testing.T) {
	base := map[string]any{
		"databases.main.driver":     "sqlite",
		"databases.main.connection": ":memory:",
	}

	cfg, err := FromMap(base)
	require.NoError(t, err)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "dbal", cfg.Telemetry.Service)
	assert.Equal(t, "stdout", cfg.Telemetry.Endpoint)
	assert.Equal(t, "grpc", cfg.Telemetry.Protocol)
	assert.Equal(t, 1.0, cfg.Telemetry.Sample)
	assert.Equal(t, 15*time.Second, cfg.Telemetry.Interval)

	invalid := map[string]any{
		"telemetry.enabled":  true,
		"telemetry.protocol": "udp",
		"telemetry.sample":   1.5,
	}
	for k, v := range base {
		invalid[k] = v
	}
	_, err = FromMap(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telemetry.protocol")
	assert.Contains(t, err.Error(), "telemetry.sample")
}

package config

import (
	"fmt"
	"time"
)

// Config is the DBAL configuration: named connections plus logging.
type Config struct {
	// Default is the alias used when callers do not name a database.
	Default   string                    `koanf:"default" json:"default" yaml:"default" validate:"required"`
	Databases map[string]DatabaseConfig `koanf:"databases" json:"databases" yaml:"databases" validate:"required,min=1,dive"`
	Log       LogConfig                 `koanf:"log" json:"log" yaml:"log"`
	Telemetry TelemetryConfig           `koanf:"telemetry" json:"telemetry" yaml:"telemetry"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// TelemetryConfig selects where statement spans and metrics are exported.
type TelemetryConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Service string `koanf:"service" json:"service" yaml:"service" validate:"required_if=Enabled true"`
	// Endpoint is "stdout" or the host:port of an OTLP collector.
	Endpoint string            `koanf:"endpoint" json:"endpoint" yaml:"endpoint" validate:"required_if=Enabled true"`
	Protocol string            `koanf:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=http grpc"`
	Insecure bool              `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Headers  map[string]string `koanf:"headers" json:"headers" yaml:"headers"`
	// Sample is the fraction of traces recorded.
	Sample float64 `koanf:"sample" json:"sample" yaml:"sample" validate:"gte=0,lte=1"`
	// Interval is the metric export period.
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval" validate:"gte=0"`
}

// DatabaseConfig holds the options of one connection.
type DatabaseConfig struct {
	// Driver names the dialect: mysql, postgres, sqlite, sqlserver or oracle (aliases such
	// as pgsql or mariadb are accepted).
	Driver string `koanf:"driver" json:"driver" yaml:"driver" validate:"required,dialect"`
	// Connection is the driver DSN: a URL, a MySQL DSN, a key/value string or a file path.
	Connection string `koanf:"connection" json:"connection" yaml:"connection" validate:"required"`
	Username   string `koanf:"username" json:"username" yaml:"username"`
	Password   string `koanf:"password" json:"password" yaml:"password"`
	// Profiling logs every statement with its interpolated form and duration.
	Profiling bool `koanf:"profiling" json:"profiling" yaml:"profiling"`
	// Timezone temporal parameters are converted to before binding. Empty means UTC.
	Timezone string `koanf:"timezone" json:"timezone" yaml:"timezone" validate:"omitempty,timezone"`
	// Options are driver-native flags appended to the DSN.
	Options map[string]string `koanf:"options" json:"options" yaml:"options"`

	Query QueryConfig `koanf:"query" json:"query" yaml:"query"`
}

// QueryConfig holds statement tracking settings.
type QueryConfig struct {
	Slow SlowQueryConfig `koanf:"slow" json:"slow" yaml:"slow"`
	Log  QueryLogConfig  `koanf:"log" json:"log" yaml:"log"`
}

// SlowQueryConfig holds settings for slow query detection.
type SlowQueryConfig struct {
	Threshold time.Duration `koanf:"threshold" json:"threshold" yaml:"threshold" validate:"gte=0"`
	Enabled   bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
}

// QueryLogConfig holds settings for query logging.
type QueryLogConfig struct {
	Parameters bool `koanf:"parameters" json:"parameters" yaml:"parameters"`
	MaxLength  int  `koanf:"max" json:"max" yaml:"max" validate:"gte=0"`
}

// Database returns the configuration registered under alias; an empty alias selects
// the default connection.
func (c *Config) Database(alias string) (*DatabaseConfig, error) {
	if alias == "" {
		alias = c.Default
	}
	db, ok := c.Databases[alias]
	if !ok {
		return nil, NewMissingFieldError("databases."+alias, envKey("databases."+alias+".connection"), "databases."+alias)
	}
	return &db, nil
}

// Aliases returns the configured database aliases.
func (c *Config) Aliases() []string {
	out := make([]string, 0, len(c.Databases))
	for alias := range c.Databases {
		out = append(out, alias)
	}
	return out
}

// Location resolves Timezone, defaulting to UTC.
func (d *DatabaseConfig) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}

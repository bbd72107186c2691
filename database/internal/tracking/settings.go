// Package tracking records every statement the driver runs: a structured log record,
// an OpenTelemetry span and client metrics. Tracking never changes control flow.
package tracking

import (
	"time"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database/types"
	"github.com/spiral-modules/dbal/logger"
)

const (
	// DefaultSlowQueryThreshold defines the default threshold for slow query detection
	DefaultSlowQueryThreshold = 200 * time.Millisecond
	// DefaultMaxQueryLength defines the default maximum query length for logging
	DefaultMaxQueryLength = 1000
)

// Settings holds configuration for statement tracking and logging.
type Settings struct {
	profiling          bool
	slowQueryEnabled   bool
	slowQueryThreshold time.Duration
	maxQueryLength     int
	logQueryParameters bool
}

// Context groups what a tracked statement needs besides the statement itself.
type Context struct {
	Logger   logger.Logger
	Dialect  types.Dialect
	Name     string // connection alias
	Settings Settings
}

// NewSettings creates Settings populated from cfg. A nil cfg or non-positive numeric
// fields fall back to DefaultSlowQueryThreshold and DefaultMaxQueryLength.
func NewSettings(cfg *config.DatabaseConfig) Settings {
	settings := Settings{
		slowQueryEnabled:   true,
		slowQueryThreshold: DefaultSlowQueryThreshold,
		maxQueryLength:     DefaultMaxQueryLength,
	}

	if cfg == nil {
		return settings
	}

	settings.profiling = cfg.Profiling
	settings.slowQueryEnabled = cfg.Query.Slow.Enabled
	if cfg.Query.Slow.Threshold > 0 {
		settings.slowQueryThreshold = cfg.Query.Slow.Threshold
	}
	if cfg.Query.Log.MaxLength > 0 {
		settings.maxQueryLength = cfg.Query.Log.MaxLength
	}
	settings.logQueryParameters = cfg.Query.Log.Parameters

	return settings
}

// Profiling reports whether every statement is logged.
func (s Settings) Profiling() bool {
	return s.profiling
}

// SlowQueryThreshold returns the threshold for slow query detection; zero when disabled.
func (s Settings) SlowQueryThreshold() time.Duration {
	if !s.slowQueryEnabled {
		return 0
	}
	return s.slowQueryThreshold
}

// MaxQueryLength returns the maximum query length for logging
func (s Settings) MaxQueryLength() int {
	return s.maxQueryLength
}

// LogQueryParameters returns whether query parameters should be logged
func (s Settings) LogQueryParameters() bool {
	return s.logQueryParameters
}

// Package config loads the DBAL configuration: defaults, then an optional YAML file,
// then DBAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultFile is the configuration file looked up when Load receives no path.
	DefaultFile = "dbal.yaml"
	// EnvPrefix prefixes every environment override, e.g. DBAL_DATABASES_PRIMARY_PASSWORD.
	EnvPrefix = "DBAL_"

	defaultSlowQueryThreshold = "200ms"
	defaultMaxQueryLength     = 1000
)

func defaults() map[string]any {
	return map[string]any{
		"log.level":          "info",
		"log.pretty":         false,
		"telemetry.enabled":  false,
		"telemetry.service":  "dbal",
		"telemetry.endpoint": "stdout",
		"telemetry.protocol": "grpc",
		"telemetry.sample":   1.0,
		"telemetry.interval": "15s",
	}
}

// databaseDefaults are applied to every configured alias before unmarshalling.
func databaseDefaults() map[string]any {
	return map[string]any{
		"query.slow.threshold": defaultSlowQueryThreshold,
		"query.slow.enabled":   true,
		"query.log.parameters": false,
		"query.log.max":        defaultMaxQueryLength,
	}
}

// Load reads the configuration from path (DefaultFile when empty) and the environment.
// A missing file is not an error when path is empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	optional := path == ""
	if optional {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if !optional || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return build(k)
}

// FromMap builds a configuration from an in-memory map using the same defaults and
// validation as Load. Keys use dot notation ("databases.primary.driver") or nesting.
func FromMap(values map[string]any) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load values: %w", err)
	}
	return build(k)
}

func build(k *koanf.Koanf) (*Config, error) {
	for _, alias := range k.MapKeys("databases") {
		for key, value := range databaseDefaults() {
			path := "databases." + alias + "." + key
			if !k.Exists(path) {
				if err := k.Set(path, value); err != nil {
					return nil, fmt.Errorf("failed to apply default %s: %w", path, err)
				}
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Default == "" && len(cfg.Databases) == 1 {
		for alias := range cfg.Databases {
			cfg.Default = alias
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envTransform maps DBAL_DATABASES_PRIMARY_DRIVER to databases.primary.driver.
// Aliases containing underscores cannot be addressed from the environment.
func envTransform(k, v string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	return strings.ReplaceAll(key, "_", "."), v
}

func envKey(path string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

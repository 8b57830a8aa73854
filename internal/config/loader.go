package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/vor/internal/adapters/source"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VOR_"

// EnvConfigFile names the variable holding an optional YAML file path.
const EnvConfigFile = EnvPrefix + "CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VOR_CONFIG is set
//  3. env (prefix VOR_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// VOR_TOP_N -> top_n; underscores are kept to match the flat koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Addr) == "" {
		return invalid("addr must not be empty")
	}
	if c.TopN < 1 {
		return invalid("top_n must be at least 1, got %d", c.TopN)
	}
	if c.RefreshIntervalSec < 0 {
		return invalid("refresh_interval_sec must not be negative")
	}
	switch f := strings.ToLower(c.LogFormat); f {
	case "", "text", "json":
	default:
		return invalid("log_format %q is not text or json", c.LogFormat)
	}

	kind := strings.ToLower(strings.TrimSpace(c.DatasetSource))
	if !slices.Contains(source.Names(), kind) {
		return invalid("dataset_source %q is not one of %s", c.DatasetSource, strings.Join(source.Names(), ", "))
	}
	switch kind {
	case source.KindCSV:
		if strings.TrimSpace(c.DatasetURL) == "" {
			return invalid("dataset_url is required for the csv source")
		}
	case source.KindGCS:
		if c.GCSBucket == "" || c.GCSObject == "" {
			return invalid("gcs_bucket and gcs_object are required for the gcs source")
		}
	case source.KindSQLite:
		if c.SQLitePath == "" {
			return invalid("sqlite_path is required for the sqlite source")
		}
	case source.KindPostgres:
		if c.PostgresDSN == "" {
			return invalid("postgres_dsn is required for the postgres source")
		}
	}

	if c.GeocoderEnabled {
		if strings.TrimSpace(c.GeocoderURL) == "" {
			return invalid("geocoder_url is required when geocoder_enabled is set")
		}
		if c.GeocodeTimeoutMS <= 0 {
			return invalid("geocode_timeout_ms must be positive")
		}
		if c.GeocodeConcurrency < 1 {
			return invalid("geocode_concurrency must be at least 1")
		}
	}
	if c.MetricsSampleIntervalSec < 1 {
		return invalid("metrics_sample_interval_sec must be at least 1")
	}
	return nil
}

// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat snake_case and mirrored by koanf struct tags.
// - New returns the defaults; Load layers a YAML file and VOR_* env vars on top.
package config

import (
	"time"

	"github.com/okian/vor/internal/adapters/source"
	"github.com/okian/vor/pkg/metrics"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CORSAllowedOrigins lists origins allowed by the CORS middleware.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RequestTimeoutMS bounds one recommendation request end to end.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// TopN caps the number of ranked venues returned.
	TopN int `koanf:"top_n"`

	// DatasetSource selects the dataset backend: csv, gcs, sqlite or postgres.
	DatasetSource string `koanf:"dataset_source"`

	// DatasetURL is a local path or http(s) URL for the csv backend.
	DatasetURL string `koanf:"dataset_url"`

	GCSBucket          string `koanf:"gcs_bucket"`
	GCSObject          string `koanf:"gcs_object"`
	GCSCredentialsFile string `koanf:"gcs_credentials_file"`

	SQLitePath  string `koanf:"sqlite_path"`
	SQLiteTable string `koanf:"sqlite_table"`

	PostgresDSN   string `koanf:"postgres_dsn"`
	PostgresTable string `koanf:"postgres_table"`

	// RefreshIntervalSec reloads the dataset periodically; 0 disables it.
	RefreshIntervalSec int `koanf:"refresh_interval_sec"`

	// GeocoderEnabled turns on radius queries against GeocoderURL.
	GeocoderEnabled   bool   `koanf:"geocoder_enabled"`
	GeocoderURL       string `koanf:"geocoder_url"`
	GeocoderUserAgent string `koanf:"geocoder_user_agent"`

	// GeocodeTimeoutMS bounds one geocoding lookup.
	GeocodeTimeoutMS int `koanf:"geocode_timeout_ms"`

	// GeocodeConcurrency bounds parallel lookups within one request.
	GeocodeConcurrency int `koanf:"geocode_concurrency"`

	// GeocodeRPS rate-limits calls to the geocoding service; <= 0 is unlimited.
	GeocodeRPS float64 `koanf:"geocode_rps"`

	// GeocodeVenues resolves venues that carry no coordinates of their own.
	GeocodeVenues bool `koanf:"geocode_venues"`

	// Metric naming: <namespace>_<subsystem>_<name>.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLabels are constant labels attached to every series.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsBucketsMS overrides the latency histogram buckets.
	MetricsBucketsMS []float64 `koanf:"metrics_buckets_ms"`

	// MetricsSampleIntervalSec is how often runtime gauges are sampled.
	MetricsSampleIntervalSec int `koanf:"metrics_sample_interval_sec"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":8080",
		CORSAllowedOrigins: []string{"*"},
		RequestTimeoutMS:   30_000,
		TopN:               4,
		DatasetSource:      source.KindCSV,
		DatasetURL:         source.DefaultCSVURL,
		SQLiteTable:        "events",
		PostgresTable:      "events",
		RefreshIntervalSec: 900,
		GeocoderEnabled:    false,
		GeocoderURL:        "https://nominatim.openstreetmap.org",
		GeocoderUserAgent:  "vor/1.0",
		GeocodeTimeoutMS:   3_000,
		GeocodeConcurrency: 8,
		GeocodeRPS:         1,
		GeocodeVenues:      true,

		MetricsNamespace:         "vor",
		MetricsSubsystem:         "recommender",
		MetricsSampleIntervalSec: 10,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// RefreshInterval returns RefreshIntervalSec as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// GeocodeTimeout returns GeocodeTimeoutMS as a duration.
func (c *Config) GeocodeTimeout() time.Duration {
	return time.Duration(c.GeocodeTimeoutMS) * time.Millisecond
}

// SourceSettings maps the dataset keys onto source.Settings.
func (c *Config) SourceSettings() source.Settings {
	return source.Settings{
		Kind:            c.DatasetSource,
		URL:             c.DatasetURL,
		Bucket:          c.GCSBucket,
		Object:          c.GCSObject,
		CredentialsFile: c.GCSCredentialsFile,
		SQLitePath:      c.SQLitePath,
		SQLiteTable:     c.SQLiteTable,
		PostgresDSN:     c.PostgresDSN,
		PostgresTable:   c.PostgresTable,
	}
}

// MetricsOptions maps the metrics keys onto metrics.Init options.
func (c *Config) MetricsOptions() []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(c.MetricsNamespace),
		metrics.WithSubsystem(c.MetricsSubsystem),
		metrics.WithCustomLabels(c.MetricsLabels),
		metrics.WithLatencyBuckets(c.MetricsBucketsMS),
		metrics.WithRefreshInterval(time.Duration(c.MetricsSampleIntervalSec) * time.Second),
	}
}

package metrics

import (
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace replaces the "vor" metric namespace. Blank keeps the default.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if ns := strings.TrimSpace(namespace); ns != "" {
			m.namespace = ns
		}
	}
}

// WithSubsystem replaces the "recommender" subsystem. Blank keeps the default.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if sub := strings.TrimSpace(subsystem); sub != "" {
			m.subsystem = sub
		}
	}
}

// WithLatencyBuckets sets the upper bounds, in milliseconds, shared by every
// latency histogram. Bounds are sorted and non-positive or repeated values
// are dropped, since Prometheus rejects unordered buckets.
func WithLatencyBuckets(boundsMS []float64) Option {
	return func(m *Manager) {
		bounds := make([]float64, 0, len(boundsMS))
		for _, b := range boundsMS {
			if b > 0 {
				bounds = append(bounds, b)
			}
		}
		slices.Sort(bounds)
		bounds = slices.Compact(bounds)
		if len(bounds) > 0 {
			m.histogramBuckets = bounds
		}
	}
}

// WithRefreshInterval sets how often the runtime gauges are sampled.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithCustomLabels attaches constant labels, such as env or region, to every
// series. Entries with a blank name are ignored.
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) == 0 {
			return
		}
		out := make(map[string]string, len(labels))
		for k, v := range labels {
			if k = strings.TrimSpace(k); k != "" {
				out[k] = v
			}
		}
		m.customLabels = out
	}
}

// WithPrometheusRegistry registers the collectors on registry instead of a
// private one.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

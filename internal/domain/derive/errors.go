package derive

import (
	"errors"
	"fmt"
)

// ErrUndefinedMetric is the sentinel kind for rows that cannot be scored.
var ErrUndefinedMetric = errors.New("undefined metric")

// UndefinedMetricError names the metric that could not be computed.
type UndefinedMetricError struct {
	Metric string
	Reason string
}

func (e *UndefinedMetricError) Error() string {
	return fmt.Sprintf("%s undefined: %s", e.Metric, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrUndefinedMetric).
func (e *UndefinedMetricError) Unwrap() error { return ErrUndefinedMetric }

// Undefined builds an UndefinedMetricError.
func Undefined(metric, reason string) error {
	return &UndefinedMetricError{Metric: metric, Reason: reason}
}

// MetricOf returns the metric name carried by err, or "" when err is not an
// UndefinedMetricError.
func MetricOf(err error) string {
	var ue *UndefinedMetricError
	if errors.As(err, &ue) {
		return ue.Metric
	}
	return ""
}

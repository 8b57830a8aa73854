// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"

	"github.com/okian/vor/internal/domain/topic"
)

// Metric is an optional number. Valid is false when the source cell was
// blank, unparseable, or the derivation was undefined.
type Metric struct {
	Value float64
	Valid bool
}

// Some returns a valid Metric. Non-finite values are reported as missing.
func Some(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Metric{}
	}
	return Metric{Value: v, Valid: true}
}

// Missing returns an invalid Metric.
func Missing() Metric { return Metric{} }

// Ptr returns nil for missing metrics, for JSON output.
func (m Metric) Ptr() *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}

// EventRecord is one historical seminar event in canonical form.
type EventRecord struct {
	Venue string
	City  string
	State string
	Topic topic.Topic

	EventDate time.Time // zero when missing
	EventTime string    // "15:04" when parseable, otherwise the trimmed raw value

	GrossRegistrants     Metric
	AttendedHouseholds   Metric
	RegistrationMax      Metric
	MediaCostPerResponse Metric // "CPR"

	ImageAllowed       bool
	DisclosureRequired bool

	Latitude   Metric
	Longitude  Metric
	PostalCode string

	// Optional media columns used by the market report.
	FBImpressions Metric
	FBReach       Metric
	CPM           Metric
}

// HasCoordinates reports whether the record carries both latitude and longitude.
func (r *EventRecord) HasCoordinates() bool {
	return r.Latitude.Valid && r.Longitude.Valid
}

// DerivedMetrics are computed per event for one scoring pass.
type DerivedMetrics struct {
	AttendanceRate           float64
	FulfillmentRatio         float64
	CostPerVerifiedHousehold float64
	RecencyWeight            float64
	AgeDays                  int
	Score                    float64
}

// ScoredEvent pairs a record with its fully defined metrics. Rows whose
// metrics are undefined never become a ScoredEvent.
type ScoredEvent struct {
	Record  EventRecord
	Metrics DerivedMetrics
}

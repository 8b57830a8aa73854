// Package derive computes per-event metrics from canonical record fields.
// It never returns Inf or NaN: an undefined metric is reported as an
// *UndefinedMetricError and the caller drops the row.
package derive

import (
	"github.com/okian/vor/internal/domain/model"
)

// CapacityDivisor is the assumed maximum practical fill rate: a room with
// registration_max seats is considered full at registration_max / 2.4
// attending households.
const CapacityDivisor = 2.4

// Metric names used in UndefinedMetricError.
const (
	MetricAttendanceRate   = "attendance_rate"
	MetricFulfillmentRatio = "fulfillment_ratio"
	MetricCostPerVerified  = "cost_per_verified_household"
	MetricRecencyWeight    = "recency_weight"
	MetricScore            = "score"
)

// Derived holds the metrics this package is responsible for.
type Derived struct {
	AttendanceRate           float64
	FulfillmentRatio         float64
	CostPerVerifiedHousehold float64
}

// AttendanceRate is attended_households / gross_registrants.
func AttendanceRate(r *model.EventRecord) (float64, error) {
	switch {
	case !r.AttendedHouseholds.Valid:
		return 0, Undefined(MetricAttendanceRate, "attended_households missing")
	case !r.GrossRegistrants.Valid:
		return 0, Undefined(MetricAttendanceRate, "gross_registrants missing")
	case r.GrossRegistrants.Value == 0:
		return 0, Undefined(MetricAttendanceRate, "gross_registrants is zero")
	}
	return finite(MetricAttendanceRate, r.AttendedHouseholds.Value/r.GrossRegistrants.Value)
}

// FulfillmentRatio is attended_households / (registration_max / CapacityDivisor).
func FulfillmentRatio(r *model.EventRecord) (float64, error) {
	switch {
	case !r.AttendedHouseholds.Valid:
		return 0, Undefined(MetricFulfillmentRatio, "attended_households missing")
	case !r.RegistrationMax.Valid:
		return 0, Undefined(MetricFulfillmentRatio, "registration_max missing")
	case r.RegistrationMax.Value == 0:
		return 0, Undefined(MetricFulfillmentRatio, "registration_max is zero")
	}
	return finite(MetricFulfillmentRatio, r.AttendedHouseholds.Value/(r.RegistrationMax.Value/CapacityDivisor))
}

// CostPerVerifiedHousehold is media_cost_per_response / attendance_rate.
func CostPerVerifiedHousehold(r *model.EventRecord, attendanceRate float64) (float64, error) {
	switch {
	case !r.MediaCostPerResponse.Valid:
		return 0, Undefined(MetricCostPerVerified, "media_cost_per_response missing")
	case attendanceRate == 0:
		return 0, Undefined(MetricCostPerVerified, "attendance_rate is zero")
	}
	return finite(MetricCostPerVerified, r.MediaCostPerResponse.Value/attendanceRate)
}

// Derive computes attendance, fulfillment and cost per verified household.
// The first undefined metric short-circuits.
func Derive(r *model.EventRecord) (Derived, error) {
	ar, err := AttendanceRate(r)
	if err != nil {
		return Derived{}, err
	}
	fr, err := FulfillmentRatio(r)
	if err != nil {
		return Derived{}, err
	}
	cpv, err := CostPerVerifiedHousehold(r, ar)
	if err != nil {
		return Derived{}, err
	}
	return Derived{
		AttendanceRate:           ar,
		FulfillmentRatio:         fr,
		CostPerVerifiedHousehold: cpv,
	}, nil
}

func finite(metric string, v float64) (float64, error) {
	if m := model.Some(v); m.Valid {
		return m.Value, nil
	}
	return 0, Undefined(metric, "result is not finite")
}

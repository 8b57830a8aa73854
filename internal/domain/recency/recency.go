// Package recency weights events by age relative to the evaluation instant.
package recency

import (
	"math"
	"time"

	"github.com/okian/vor/internal/domain/derive"
)

// Step weights and their inclusive upper age bounds, in days.
const (
	RecentWeight = 1.25
	NormalWeight = 1.00
	StaleWeight  = 0.80

	RecentMaxDays = 30
	NormalMaxDays = 90
)

const day = 24 * time.Hour

// AgeDays is floor((now - eventDate) / 24h).
func AgeDays(eventDate, now time.Time) int {
	return int(math.Floor(float64(now.Sub(eventDate)) / float64(day)))
}

// ForAge maps an age in days onto the step function. Negative ages (events
// dated after now) count as recent.
func ForAge(ageDays int) float64 {
	switch {
	case ageDays <= RecentMaxDays:
		return RecentWeight
	case ageDays <= NormalMaxDays:
		return NormalWeight
	default:
		return StaleWeight
	}
}

// Weight returns the recency weight and age of an event. A zero eventDate is
// undefined.
func Weight(eventDate, now time.Time) (weight float64, ageDays int, err error) {
	if eventDate.IsZero() {
		return 0, 0, derive.Undefined(derive.MetricRecencyWeight, "event_date missing")
	}
	age := AgeDays(eventDate, now)
	return ForAge(age), age, nil
}

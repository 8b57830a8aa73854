package model

import (
	"strings"
	"time"

	"github.com/okian/vor/internal/domain/topic"
)

// Query selects the market a recommendation is computed for.
type Query struct {
	Topic      topic.Topic
	City       string
	State      string
	PostalCode string
	// Miles enables radius filtering when > 0.
	Miles float64
	// Now is the evaluation instant; the zero value means "use the clock".
	Now time.Time
}

// ByPostalCode reports whether location matching uses the postal code.
func (q Query) ByPostalCode() bool {
	return strings.TrimSpace(q.PostalCode) != ""
}

// Place renders the target location as a free-text geocoding query.
func (q Query) Place() string {
	if q.ByPostalCode() {
		return strings.TrimSpace(q.PostalCode) + ", USA"
	}
	return strings.TrimSpace(q.City) + ", " + strings.TrimSpace(q.State) + ", USA"
}

// MatchesLocation applies the exact city/state or postal-code match.
func (q Query) MatchesLocation(r *EventRecord) bool {
	if q.ByPostalCode() {
		return r.PostalCode != "" && r.PostalCode == strings.TrimSpace(q.PostalCode)
	}
	return strings.EqualFold(strings.TrimSpace(r.City), strings.TrimSpace(q.City)) &&
		strings.EqualFold(strings.TrimSpace(r.State), strings.TrimSpace(q.State))
}

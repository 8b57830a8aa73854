// Package aggregate groups scored events by venue into summaries.
package aggregate

import (
	"strings"

	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/slots"
)

// Group is every scored event sharing one normalized venue name.
type Group struct {
	Key    string
	Events []model.ScoredEvent
}

// VenueKey normalizes a venue name for grouping.
func VenueKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ByVenue groups events by VenueKey in order of first appearance.
func ByVenue(events []model.ScoredEvent) []Group {
	idx := make(map[string]int)
	var groups []Group
	for _, ev := range events {
		k := VenueKey(ev.Record.Venue)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Events = append(groups[i].Events, ev)
	}
	return groups
}

// Summarize computes the summary for one group. Means are unweighted over
// the group's events; names, location and policy booleans come from the most
// recent event.
func Summarize(g Group) model.VenueSummary {
	var (
		s      model.VenueSummary
		latest = -1
		n      = float64(len(g.Events))
	)
	if len(g.Events) == 0 {
		return s
	}
	for i, ev := range g.Events {
		r, m := &ev.Record, ev.Metrics
		s.MeanGrossRegistrants += r.GrossRegistrants.Value
		s.MeanMediaCostPerResponse += r.MediaCostPerResponse.Value
		s.MeanCostPerVerifiedHousehold += m.CostPerVerifiedHousehold
		s.MeanAttendanceRate += m.AttendanceRate
		s.MeanFulfillmentRatio += m.FulfillmentRatio
		s.MeanScore += m.Score
		if latest < 0 || r.EventDate.After(g.Events[latest].Record.EventDate) {
			latest = i
		}
	}
	s.MeanGrossRegistrants /= n
	s.MeanMediaCostPerResponse /= n
	s.MeanCostPerVerifiedHousehold /= n
	s.MeanAttendanceRate /= n
	s.MeanFulfillmentRatio /= n
	s.MeanScore /= n

	recent := g.Events[latest].Record
	s.Venue = strings.TrimSpace(recent.Venue)
	s.City = recent.City
	s.State = recent.State
	s.EventCount = len(g.Events)
	s.MostRecentEventDate = recent.EventDate
	s.ImageAllowed = recent.ImageAllowed
	s.DisclosureRequired = recent.DisclosureRequired

	rec := slots.Recommend(g.Events)
	s.BestTimeSlot1 = rec.Morning
	s.BestTimeSlot2 = rec.Evening
	return s
}

// Aggregate summarizes every venue present in events.
func Aggregate(events []model.ScoredEvent) []model.VenueSummary {
	groups := ByVenue(events)
	out := make([]model.VenueSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, Summarize(g))
	}
	return out
}

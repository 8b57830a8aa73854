// Package slots recommends morning and evening booking slots from a venue's
// historical day/time distribution.
package slots

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/normalize"
)

// Category is a target slot bucket.
type Category struct {
	Name     string
	Hour     int
	Label    string // fixed time rendered in the recommendation
	Fallback time.Weekday
}

var (
	// Morning covers events starting in the 11 o'clock hour.
	Morning = Category{Name: "morning", Hour: 11, Label: "11:00 AM", Fallback: time.Monday}
	// Evening covers events starting in the 18 o'clock hour.
	Evening = Category{Name: "evening", Hour: 18, Label: "6:30 PM", Fallback: time.Tuesday}
)

// Recommendation holds the two slot strings for one venue.
type Recommendation struct {
	Morning string
	Evening string
}

// Recommend picks the best morning and evening slots for the given events.
func Recommend(events []model.ScoredEvent) Recommendation {
	ordered := chronological(events)
	return Recommendation{
		Morning: Format(Morning, BestDay(ordered, Morning)),
		Evening: Format(Evening, BestDay(ordered, Evening)),
	}
}

// Format renders a slot as "<fixed-time> on <Day>".
func Format(c Category, day time.Weekday) string {
	return fmt.Sprintf("%s on %s", c.Label, day)
}

// BestDay returns the most frequent weekday among events in the category's
// hour. Ties go to the day seen first in the given order; no matching events
// yields the category fallback.
func BestDay(events []model.ScoredEvent, c Category) time.Weekday {
	var (
		counts [7]int
		first  [7]int
		seen   int
	)
	for i := range first {
		first[i] = -1
	}
	for i := range events {
		r := &events[i].Record
		if r.EventDate.IsZero() {
			continue
		}
		h, ok := hour(r.EventTime)
		if !ok || h != c.Hour {
			continue
		}
		d := r.EventDate.Weekday()
		if first[d] < 0 {
			first[d] = seen
		}
		counts[d]++
		seen++
	}
	if seen == 0 {
		return c.Fallback
	}

	best := time.Weekday(-1)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if counts[d] == 0 {
			continue
		}
		if best < 0 || counts[d] > counts[best] ||
			(counts[d] == counts[best] && first[d] < first[best]) {
			best = d
		}
	}
	return best
}

func chronological(events []model.ScoredEvent) []model.ScoredEvent {
	out := make([]model.ScoredEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Record.EventDate.Before(out[j].Record.EventDate)
	})
	return out
}

func hour(clock string) (int, bool) {
	h, _, ok := normalize.ParseClock(clock)
	return h, ok
}

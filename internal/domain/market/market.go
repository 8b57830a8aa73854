// Package market builds the market analysis report: the venue most used for a
// topic in one city, how long it has rested, and what the next event there is
// expected to deliver.
package market

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/okian/vor/internal/domain/derive"
	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/recency"
	"github.com/okian/vor/internal/domain/topic"
)

// DecaySlope is the change in cost per verified household per day of venue
// rest.
const DecaySlope = -0.014

// Request selects the market for a report.
type Request struct {
	Topic topic.Topic
	City  string
	State string
	// Date is the planned event date; zero means Now.
	Date time.Time
	Now  time.Time
}

// Query returns the location query equivalent of the request.
func (r Request) Query() model.Query {
	return model.Query{Topic: r.Topic, City: r.City, State: r.State, Now: r.Now}
}

// MediaOverlay summarizes paid-media performance for the chosen venue.
type MediaOverlay struct {
	AvgCPM            float64 `json:"avg_cpm"`
	EstimatedCVR      float64 `json:"estimated_cvr"`
	RegistrantsPer1K  float64 `json:"registrants_per_1k"`
	EstimatedMediaCPR float64 `json:"estimated_media_cpr"`
	AvgFrequency      float64 `json:"avg_frequency"`
}

// Report is the market analysis result.
type Report struct {
	Venue                 string
	Market                string
	Topic                 topic.Topic
	EventDate             time.Time
	DaysSinceLastVenueUse *int
	PredictedRegistrants  *float64
	PredictedCPR          *float64
	// MediaOverlay is nil when no event carries complete media figures.
	MediaOverlay *MediaOverlay
}

// Generate builds the report from the given records. An empty topic or
// market selection returns a *model.NoMatchError.
func Generate(records []model.EventRecord, req Request) (Report, error) {
	q := req.Query()

	var byTopic, matches []model.EventRecord
	for i := range records {
		if records[i].Topic == req.Topic {
			byTopic = append(byTopic, records[i])
		}
	}
	if len(byTopic) == 0 {
		return Report{}, &model.NoMatchError{Stage: model.StageTopic, Query: q}
	}
	for i := range byTopic {
		if q.MatchesLocation(&byTopic[i]) {
			matches = append(matches, byTopic[i])
		}
	}
	if len(matches) == 0 {
		return Report{}, &model.NoMatchError{Stage: model.StageLocation, Query: q}
	}

	date := req.Date
	if date.IsZero() {
		date = req.Now
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	venue := ModeVenue(matches)
	var events []model.EventRecord
	for _, r := range matches {
		if strings.TrimSpace(r.Venue) == venue {
			events = append(events, r)
		}
	}

	rep := Report{
		Venue:     venue,
		Market:    titleCase(strings.TrimSpace(req.City)) + ", " + strings.ToUpper(strings.TrimSpace(req.State)),
		Topic:     req.Topic,
		EventDate: date,
	}

	var last time.Time
	for _, r := range events {
		if r.EventDate.After(last) {
			last = r.EventDate
		}
	}
	if !last.IsZero() {
		d := recency.AgeDays(last, date)
		rep.DaysSinceLastVenueUse = &d
	}

	if regs, ok := mean(events, func(r *model.EventRecord) (float64, bool) {
		return r.GrossRegistrants.Value, r.GrossRegistrants.Valid
	}); ok {
		v := round(regs, 1)
		rep.PredictedRegistrants = &v
	}

	if cpvh, ok := mean(events, costPerVerifiedHousehold); ok {
		cpr := DecayCPR(cpvh, rep.DaysSinceLastVenueUse)
		v := round(cpr, 2)
		rep.PredictedCPR = &v
	}

	rep.MediaOverlay = Overlay(events)
	return rep, nil
}

// DecayCPR adjusts a base cost per verified household for venue rest.
func DecayCPR(base float64, daysSinceLast *int) float64 {
	if daysSinceLast == nil {
		return base
	}
	return base + DecaySlope*float64(*daysSinceLast)
}

// ModeVenue returns the most frequent venue name, ties going to the
// lexicographically smallest.
func ModeVenue(records []model.EventRecord) string {
	counts := make(map[string]int)
	for _, r := range records {
		if name := strings.TrimSpace(r.Venue); name != "" {
			counts[name]++
		}
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	var (
		best   string
		chosen bool
	)
	for _, n := range names {
		if !chosen || counts[n] > counts[best] {
			best, chosen = n, true
		}
	}
	return best
}

// Overlay averages media ratios over events whose impressions, reach, CPM
// and registrants are all present and positive.
func Overlay(events []model.EventRecord) *MediaOverlay {
	var (
		o MediaOverlay
		n float64
	)
	for _, r := range events {
		if !positive(r.FBImpressions) || !positive(r.FBReach) || !positive(r.CPM) || !positive(r.GrossRegistrants) {
			continue
		}
		imp, regs := r.FBImpressions.Value, r.GrossRegistrants.Value
		per1k := regs / (imp / 1000)
		o.AvgCPM += r.CPM.Value
		o.EstimatedCVR += regs / imp
		o.RegistrantsPer1K += per1k
		o.EstimatedMediaCPR += r.CPM.Value / per1k
		o.AvgFrequency += imp / r.FBReach.Value
		n++
	}
	if n == 0 {
		return nil
	}
	return &MediaOverlay{
		AvgCPM:            round(o.AvgCPM/n, 2),
		EstimatedCVR:      round(o.EstimatedCVR/n, 4),
		RegistrantsPer1K:  round(o.RegistrantsPer1K/n, 2),
		EstimatedMediaCPR: round(o.EstimatedMediaCPR/n, 2),
		AvgFrequency:      round(o.AvgFrequency/n, 2),
	}
}

func costPerVerifiedHousehold(r *model.EventRecord) (float64, bool) {
	ar, err := derive.AttendanceRate(r)
	if err != nil {
		return 0, false
	}
	v, err := derive.CostPerVerifiedHousehold(r, ar)
	return v, err == nil
}

func mean(events []model.EventRecord, value func(*model.EventRecord) (float64, bool)) (float64, bool) {
	var sum, n float64
	for i := range events {
		if v, ok := value(&events[i]); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / n, true
}

func positive(m model.Metric) bool { return m.Valid && m.Value > 0 }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func titleCase(s string) string {
	prev := ' '
	return strings.Map(func(r rune) rune {
		out := unicode.ToTitle(r)
		if unicode.IsLetter(prev) {
			out = unicode.ToLower(r)
		}
		prev = r
		return out
	}, s)
}

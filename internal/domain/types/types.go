// Package types contains the read shapes returned by the API and CLI.
package types

import (
	"math"

	"github.com/okian/vor/internal/domain/market"
	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/normalize"
)

// Entry is one ranked venue.
type Entry struct {
	Rank                    int     `json:"rank"`
	Venue                   string  `json:"venue"`
	Location                string  `json:"location"`
	EventCount              int     `json:"event_count"`
	MostRecentEventDate     string  `json:"most_recent_event_date,omitempty"`
	AvgGrossRegistrants     float64 `json:"avg_gross_registrants"`
	AvgCostPerVerifiedHH    float64 `json:"avg_cost_per_verified_household"`
	AvgMediaCostPerResponse float64 `json:"avg_media_cost_per_response"`
	AttendanceRate          float64 `json:"attendance_rate"`
	FulfillmentRatio        float64 `json:"fulfillment_ratio"`
	Score                   float64 `json:"score"`
	ImageAllowed            bool    `json:"image_allowed"`
	DisclosureRequired      bool    `json:"disclosure_required"`
	BestTimeSlot1           string  `json:"best_time_slot_1"`
	BestTimeSlot2           string  `json:"best_time_slot_2"`
}

// NewEntries converts ranked summaries into entries, numbering from 1.
func NewEntries(ranked []model.VenueSummary) []Entry {
	out := make([]Entry, len(ranked))
	for i, s := range ranked {
		out[i] = Entry{
			Rank:                    i + 1,
			Venue:                   s.Venue,
			Location:                s.City + ", " + s.State,
			EventCount:              s.EventCount,
			AvgGrossRegistrants:     Round(s.MeanGrossRegistrants, 2),
			AvgCostPerVerifiedHH:    Round(s.MeanCostPerVerifiedHousehold, 2),
			AvgMediaCostPerResponse: Round(s.MeanMediaCostPerResponse, 2),
			AttendanceRate:          Round(s.MeanAttendanceRate, 4),
			FulfillmentRatio:        Round(s.MeanFulfillmentRatio, 4),
			Score:                   Round(s.MeanScore, 2),
			ImageAllowed:            s.ImageAllowed,
			DisclosureRequired:      s.DisclosureRequired,
			BestTimeSlot1:           s.BestTimeSlot1,
			BestTimeSlot2:           s.BestTimeSlot2,
		}
		if !s.MostRecentEventDate.IsZero() {
			out[i].MostRecentEventDate = s.MostRecentEventDate.Format(normalize.DateLayout)
		}
	}
	return out
}

// MarketReport is the JSON shape of a market analysis report.
type MarketReport struct {
	Venue                 string               `json:"venue"`
	Market                string               `json:"market"`
	Topic                 string               `json:"topic"`
	EventDate             string               `json:"event_date"`
	DaysSinceLastVenueUse *int                 `json:"days_since_last_venue_use"`
	PredictedRegistrants  *float64             `json:"predicted_registrants"`
	PredictedCPR          *float64             `json:"predicted_cpr"`
	MediaOverlay          *market.MediaOverlay `json:"media_overlay"`
}

// NewMarketReport converts a report into its JSON shape.
func NewMarketReport(r market.Report) MarketReport {
	return MarketReport{
		Venue:                 r.Venue,
		Market:                r.Market,
		Topic:                 r.Topic.Code(),
		EventDate:             r.EventDate.Format(normalize.DateLayout),
		DaysSinceLastVenueUse: r.DaysSinceLastVenueUse,
		PredictedRegistrants:  r.PredictedRegistrants,
		PredictedCPR:          r.PredictedCPR,
		MediaOverlay:          r.MediaOverlay,
	}
}

// ManualInput is one hand-entered event.
type ManualInput struct {
	Venue            string
	CPA              float64
	FulfillmentRatio float64
	AttendanceRate   float64
}

// ManualScore is the result of scoring one hand-entered event.
type ManualScore struct {
	Venue            string  `json:"venue"`
	Score            float64 `json:"score"`
	RecommendedTime1 string  `json:"recommended_time_1"`
	RecommendedTime2 string  `json:"recommended_time_2"`
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

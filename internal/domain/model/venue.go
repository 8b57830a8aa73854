package model

import "time"

// VenueSummary aggregates every contributing event for one venue.
type VenueSummary struct {
	Venue string
	City  string
	State string

	EventCount          int
	MostRecentEventDate time.Time

	MeanGrossRegistrants         float64
	MeanCostPerVerifiedHousehold float64
	MeanMediaCostPerResponse     float64
	MeanAttendanceRate           float64
	MeanFulfillmentRatio         float64
	MeanScore                    float64

	// Taken from the most recent contributing event.
	ImageAllowed       bool
	DisclosureRequired bool

	BestTimeSlot1 string
	BestTimeSlot2 string
}

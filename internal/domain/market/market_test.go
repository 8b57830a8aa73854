package market_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/vor/internal/domain/market"
	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/topic"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)

func rec(venue string, date time.Time, gross, attended, cpr float64) model.EventRecord {
	return model.EventRecord{
		Venue:                venue,
		City:                 "Springfield",
		State:                "IL",
		Topic:                topic.EstatePlanning,
		EventDate:            date,
		GrossRegistrants:     model.Some(gross),
		AttendedHouseholds:   model.Some(attended),
		RegistrationMax:      model.Some(80),
		MediaCostPerResponse: model.Some(cpr),
	}
}

func day(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

func TestGenerate(t *testing.T) {
	Convey("Given a market where Oak Hall is the most used venue", t, func() {
		withMedia := rec("Oak Hall", day(6, 20), 40, 20, 10)
		withMedia.FBImpressions = model.Some(10000)
		withMedia.FBReach = model.Some(5000)
		withMedia.CPM = model.Some(15)

		records := []model.EventRecord{
			withMedia,
			rec("Oak Hall", day(5, 1), 60, 30, 12),
			rec("Elm Center", day(6, 1), 30, 10, 9),
			rec("Oak Hall", day(6, 25), 99, 50, 5),
		}
		records[3].City = "Chicago"

		Convey("When generating a report for today", func() {
			rep, err := market.Generate(records, market.Request{
				Topic: topic.EstatePlanning, City: " springfield ", State: "il", Now: now,
			})

			Convey("Then the mode venue and its history drive the prediction", func() {
				So(err, ShouldBeNil)
				So(rep.Venue, ShouldEqual, "Oak Hall")
				So(rep.Market, ShouldEqual, "Springfield, IL")
				So(rep.EventDate, ShouldEqual, day(6, 30))
				So(*rep.DaysSinceLastVenueUse, ShouldEqual, 10)
				So(*rep.PredictedRegistrants, ShouldEqual, 50.0)
				So(*rep.PredictedCPR, ShouldAlmostEqual, 21.86, 1e-9)
			})

			Convey("Then the media overlay covers only complete rows", func() {
				So(rep.MediaOverlay, ShouldNotBeNil)
				So(rep.MediaOverlay.AvgCPM, ShouldEqual, 15)
				So(rep.MediaOverlay.EstimatedCVR, ShouldEqual, 0.004)
				So(rep.MediaOverlay.RegistrantsPer1K, ShouldEqual, 4)
				So(rep.MediaOverlay.EstimatedMediaCPR, ShouldEqual, 3.75)
				So(rep.MediaOverlay.AvgFrequency, ShouldEqual, 2)
			})
		})

		Convey("When the report date is explicit", func() {
			rep, err := market.Generate(records, market.Request{
				Topic: topic.EstatePlanning, City: "Springfield", State: "IL",
				Date: day(7, 30), Now: now,
			})
			So(err, ShouldBeNil)
			So(*rep.DaysSinceLastVenueUse, ShouldEqual, 40)
		})

		Convey("When the topic has no rows", func() {
			_, err := market.Generate(records, market.Request{Topic: topic.SocialSecurity, City: "Springfield", State: "IL", Now: now})
			var nm *model.NoMatchError
			So(errors.As(err, &nm), ShouldBeTrue)
			So(nm.Stage, ShouldEqual, model.StageTopic)
		})

		Convey("When the market has no rows", func() {
			_, err := market.Generate(records, market.Request{Topic: topic.EstatePlanning, City: "Peoria", State: "IL", Now: now})
			var nm *model.NoMatchError
			So(errors.As(err, &nm), ShouldBeTrue)
			So(nm.Stage, ShouldEqual, model.StageLocation)
		})
	})
}

func TestModeVenue(t *testing.T) {
	Convey("Given a tie between venue names", t, func() {
		records := []model.EventRecord{{Venue: "Zeta"}, {Venue: "Alpha "}, {Venue: "Zeta"}, {Venue: "Alpha"}}
		So(market.ModeVenue(records), ShouldEqual, "Alpha")
	})

	Convey("Given rows with blank venue names", t, func() {
		records := []model.EventRecord{{Venue: " "}, {Venue: "Zeta"}, {Venue: ""}, {Venue: "Zeta"}, {Venue: "Beta"}, {Venue: " "}}

		Convey("Then blanks are never counted as a venue", func() {
			So(market.ModeVenue(records), ShouldEqual, "Zeta")
		})

		Convey("Then only blanks yield no venue", func() {
			So(market.ModeVenue([]model.EventRecord{{Venue: ""}, {Venue: "  "}}), ShouldEqual, "")
		})
	})
}

func TestDecayCPR(t *testing.T) {
	Convey("Given a base cost and venue rest", t, func() {
		days := 100
		So(market.DecayCPR(20, &days), ShouldAlmostEqual, 18.6, 1e-9)
		So(market.DecayCPR(20, nil), ShouldEqual, 20)
	})
}

func TestOverlay(t *testing.T) {
	Convey("Given events missing media figures", t, func() {
		r := rec("Oak Hall", day(6, 1), 40, 20, 10)
		r.FBImpressions = model.Some(1000)
		r.CPM = model.Some(0)
		So(market.Overlay([]model.EventRecord{r}), ShouldBeNil)
	})
}

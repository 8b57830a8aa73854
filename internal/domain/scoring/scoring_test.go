package scoring_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/vor/internal/domain/derive"
	"github.com/okian/vor/internal/domain/model"
	scoring "github.com/okian/vor/internal/domain/scoring"
	"github.com/okian/vor/internal/domain/topic"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

// oakHall builds an event with attendance_rate=0.5, fulfillment_ratio=0.6 and
// cost_per_verified_household=20, dated ageDays before now.
func oakHall(ageDays int) model.EventRecord {
	return model.EventRecord{
		Venue:                "Oak Hall",
		City:                 "Springfield",
		State:                "IL",
		Topic:                topic.TaxesInRetirement,
		EventDate:            now.AddDate(0, 0, -ageDays),
		GrossRegistrants:     model.Some(40),
		AttendedHouseholds:   model.Some(20),
		RegistrationMax:      model.Some(80),
		MediaCostPerResponse: model.Some(10),
	}
}

func TestWeightedScorer_Score(t *testing.T) {
	Convey("Given a new weighted scorer", t, func() {
		scorer := scoring.NewWeightedScorer()

		Convey("Then it uses the 40-point scale", func() {
			So(scorer.Scale(), ShouldEqual, 40)
		})

		Convey("When scoring a defined input", func() {
			got, err := scorer.Score(scoring.Input{
				CostPerVerifiedHousehold: 20,
				FulfillmentRatio:         0.6,
				AttendanceRate:           0.5,
				RecencyWeight:            1.0,
			})

			Convey("Then it should apply the weighted formula", func() {
				So(err, ShouldBeNil)
				So(got, ShouldAlmostEqual, 0.305*40, 1e-9)
			})
		})

		Convey("When the cost per verified household is zero or negative", func() {
			for _, cost := range []float64{0, -3} {
				_, err := scorer.Score(scoring.Input{CostPerVerifiedHousehold: cost, FulfillmentRatio: 1, AttendanceRate: 1, RecencyWeight: 1})
				So(errors.Is(err, derive.ErrUndefinedMetric), ShouldBeTrue)
				So(derive.MetricOf(err), ShouldEqual, derive.MetricScore)
			}
		})
	})

	Convey("Given a scorer with a custom scale", t, func() {
		scorer := scoring.NewWeightedScorer(scoring.WithScale(100))
		So(scorer.Scale(), ShouldEqual, 100)

		Convey("And a non-positive scale is ignored", func() {
			So(scoring.NewWeightedScorer(scoring.WithScale(-1)).Scale(), ShouldEqual, 40)
		})
	})
}

func TestWeightedScorer_ScoreRecord(t *testing.T) {
	Convey("Given three Oak Hall events dated 10, 50 and 200 days ago", t, func() {
		scorer := scoring.NewWeightedScorer()
		records := []model.EventRecord{oakHall(10), oakHall(50), oakHall(200)}

		Convey("When scoring them", func() {
			batch := scorer.ScoreAll(records, now)

			Convey("Then each uses its step weight", func() {
				So(batch.Events, ShouldHaveLength, 3)
				So(batch.Events[0].Metrics.RecencyWeight, ShouldEqual, 1.25)
				So(batch.Events[1].Metrics.RecencyWeight, ShouldEqual, 1.00)
				So(batch.Events[2].Metrics.RecencyWeight, ShouldEqual, 0.80)
				So(batch.Events[0].Metrics.AttendanceRate, ShouldEqual, 0.5)
				So(batch.Events[0].Metrics.FulfillmentRatio, ShouldAlmostEqual, 0.6, 1e-9)
				So(batch.Events[0].Metrics.CostPerVerifiedHousehold, ShouldEqual, 20)
			})

			Convey("Then the scores follow raw * weight * 40", func() {
				So(batch.Events[0].Metrics.Score, ShouldAlmostEqual, 15.25, 1e-9)
				So(batch.Events[1].Metrics.Score, ShouldAlmostEqual, 12.2, 1e-9)
				So(batch.Events[2].Metrics.Score, ShouldAlmostEqual, 9.76, 1e-9)
			})

			Convey("Then the 10-day event scores highest", func() {
				So(batch.Events[0].Metrics.Score, ShouldBeGreaterThan, batch.Events[1].Metrics.Score)
				So(batch.Events[1].Metrics.Score, ShouldBeGreaterThan, batch.Events[2].Metrics.Score)
			})
		})
	})

	Convey("Given a batch with undefined rows", t, func() {
		scorer := scoring.NewWeightedScorer()
		zeroRegistrants := oakHall(10)
		zeroRegistrants.GrossRegistrants = model.Some(0)
		noDate := oakHall(10)
		noDate.EventDate = time.Time{}

		batch := scorer.ScoreAll([]model.EventRecord{oakHall(5), zeroRegistrants, noDate, oakHall(40)}, now)

		Convey("Then they are excluded and counted, never scored as zero", func() {
			So(batch.Events, ShouldHaveLength, 2)
			So(batch.Excluded[derive.MetricAttendanceRate], ShouldEqual, 1)
			So(batch.Excluded[derive.MetricRecencyWeight], ShouldEqual, 1)
			for _, ev := range batch.Events {
				So(ev.Metrics.Score, ShouldBeGreaterThan, 0)
			}
		})
	})
}

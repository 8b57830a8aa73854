package normalize_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/vor/internal/domain/normalize"
	"github.com/okian/vor/internal/domain/topic"
	. "github.com/smartystreets/goconvey/convey"
)

func rawTable() normalize.Table {
	return normalize.Table{
		Columns: []string{
			" Venue ", "City", "State", "Topic", "Event Date", "Event_Time",
			"Gross Registrants", "Attended HH", "Registration Max", "FB_CPR",
			"Venue_Image_Allowed-Current", "Venue_Disclosure_Needed", "ZIP", "Notes",
		},
		Rows: [][]string{
			{"Oak  Hall", " springfield ", "il", "TAXES_IN_RETIREMENT_567", "3/5/2024", "11:00 AM", "1,200", "45", "60", "$18.50", "Yes", "no", "2134", "  front   door "},
			{"Elm Center", "Springfield", "IL", "ep", "2024-04-01", "6:30 pm", "n/a", "12", "30", "22%", "", "yes", "62701-1234", ""},
			{"Bad Row", "Springfield", "IL", "medicare", "not a date", "evening", "abc", "", "", "", "maybe", "", "", ""},
			{"Short Row", "Springfield"},
		},
	}
}

func TestColumnNames(t *testing.T) {
	Convey("Given raw header spellings", t, func() {
		So(normalize.ColumnName("  Event   Date "), ShouldEqual, "event_date")
		So(normalize.ColumnName("Venue_Image_Allowed-Current"), ShouldEqual, "venue_image_allowed_current")
		So(normalize.ColumnName("% Fulfillment"), ShouldEqual, "fulfillment")
		So(normalize.Canonical("Attended HH"), ShouldEqual, normalize.ColAttendedHouseholds)
		So(normalize.Canonical("FB CPR"), ShouldEqual, normalize.ColMediaCostPerResponse)
		So(normalize.Canonical("Zip Code"), ShouldEqual, normalize.ColPostalCode)
		So(normalize.Canonical("Something Else"), ShouldEqual, "something_else")
	})
}

func TestValueCoercion(t *testing.T) {
	Convey("Given numeric-looking strings", t, func() {
		for in, want := range map[string]float64{
			"42":      42,
			"42%":     42,
			"$18.50":  18.5,
			"1,200":   1200,
			" 7.25 $": 7.25,
		} {
			got, ok := normalize.ParseNumber(in)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, want)
		}

		Convey("Then unparseable values are missing rather than errors", func() {
			for _, in := range []string{"", "abc", "n/a", "NaN", "inf", "-"} {
				_, ok := normalize.ParseNumber(in)
				So(ok, ShouldBeFalse)
			}
		})
	})

	Convey("Given rates written as ratios or percentages", t, func() {
		v, ok := normalize.ParseRate("60%")
		So(ok, ShouldBeTrue)
		So(v, ShouldAlmostEqual, 0.6, 1e-12)

		v, ok = normalize.ParseRate(" 0.45 ")
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, 0.45)

		_, ok = normalize.ParseRate("n/a")
		So(ok, ShouldBeFalse)
	})

	Convey("Given free-form clock times", t, func() {
		for in, want := range map[string][2]int{
			"11:00 AM": {11, 0},
			"6:30 pm":  {18, 30},
			"11am":     {11, 0},
			"18:00":    {18, 0},
			"6 P.M.":   {18, 0},
		} {
			h, m, ok := normalize.ParseClock(in)
			So(ok, ShouldBeTrue)
			So([2]int{h, m}, ShouldResemble, want)
		}
		_, _, ok := normalize.ParseClock("evening")
		So(ok, ShouldBeFalse)
	})

	Convey("Given exported date formats", t, func() {
		want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
		for _, in := range []string{"2024-03-05", "3/5/2024", "03/05/2024", "Mar 5, 2024", "3/5/2024 0:00", "2024-03-05T09:30:00Z"} {
			got, ok := normalize.ParseDate(in)
			So(ok, ShouldBeTrue)
			So(got.Equal(want), ShouldBeTrue)
		}
	})

	Convey("Given postal codes", t, func() {
		So(normalize.PostalCode("2134"), ShouldEqual, "02134")
		So(normalize.PostalCode("62701-1234"), ShouldEqual, "62701")
		So(normalize.PostalCode("62701.0"), ShouldEqual, "62701")
		So(normalize.PostalCode(" "), ShouldEqual, "")
	})
}

func TestNormalizeTable(t *testing.T) {
	Convey("Given a raw table with messy headers and cells", t, func() {
		out, err := normalize.NormalizeTable(rawTable())
		So(err, ShouldBeNil)

		Convey("Then headers are canonical", func() {
			So(out.Columns, ShouldResemble, []string{
				"venue", "city", "state", "topic", "event_date", "event_time",
				"gross_registrants", "attended_households", "registration_max", "media_cost_per_response",
				"image_allowed", "disclosure_required", "postal_code", "notes",
			})
		})

		Convey("Then cells are in canonical text form", func() {
			So(out.Rows[0], ShouldResemble, []string{
				"Oak Hall", "springfield", "IL", "TIR", "2024-03-05", "11:00",
				"1200", "45", "60", "18.5", "true", "false", "02134", "front door",
			})
			So(out.Rows[2][3], ShouldEqual, "MEDICARE")
			So(out.Rows[2][4], ShouldEqual, "")
			So(out.Rows[2][5], ShouldEqual, "evening")
			So(out.Rows[3][2], ShouldEqual, "")
		})

		Convey("Then normalizing again changes nothing", func() {
			again, err := normalize.NormalizeTable(out)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, out)
		})
	})

	Convey("Given a table missing a required column", t, func() {
		raw := rawTable()
		raw.Columns[9] = "Ad Spend"

		_, err := normalize.NormalizeTable(raw)

		Convey("Then it fails fast with a SchemaError naming the column", func() {
			So(errors.Is(err, normalize.ErrSchema), ShouldBeTrue)
			var se *normalize.SchemaError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Column, ShouldEqual, normalize.ColMediaCostPerResponse)
		})
	})

	Convey("Given duplicated canonical columns", t, func() {
		raw := rawTable()
		raw.Columns = append(raw.Columns, "CPR")
		out, err := normalize.NormalizeTable(raw)
		So(err, ShouldBeNil)
		So(len(out.Columns), ShouldEqual, 14)
	})
}

func TestRecords(t *testing.T) {
	Convey("Given a raw table", t, func() {
		recs, err := normalize.Records(rawTable())
		So(err, ShouldBeNil)
		So(recs, ShouldHaveLength, 4)

		Convey("Then valid cells decode into typed fields", func() {
			r := recs[0]
			So(r.Venue, ShouldEqual, "Oak Hall")
			So(r.State, ShouldEqual, "IL")
			So(r.Topic, ShouldEqual, topic.TaxesInRetirement)
			So(r.EventDate.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(r.EventTime, ShouldEqual, "11:00")
			So(r.GrossRegistrants.Value, ShouldEqual, 1200)
			So(r.MediaCostPerResponse.Value, ShouldEqual, 18.5)
			So(r.ImageAllowed, ShouldBeTrue)
			So(r.DisclosureRequired, ShouldBeFalse)
			So(r.PostalCode, ShouldEqual, "02134")
			So(r.HasCoordinates(), ShouldBeFalse)
		})

		Convey("Then bad cells decode as missing", func() {
			r := recs[2]
			So(r.Topic, ShouldEqual, topic.Unknown)
			So(r.EventDate.IsZero(), ShouldBeTrue)
			So(r.GrossRegistrants.Valid, ShouldBeFalse)
			So(r.AttendedHouseholds.Valid, ShouldBeFalse)
			So(recs[1].GrossRegistrants.Valid, ShouldBeFalse)
			So(recs[1].MediaCostPerResponse.Value, ShouldEqual, 22)
		})
	})
}

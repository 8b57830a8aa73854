package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/vor/internal/domain/types"
)

const eventsCSV = "Venue,City,State,Topic,Event Date,Event Time,Gross Registrants,Attended HH,Registration Max,FB CPR\n" +
	"Oak Hall,Springfield,IL,TIR,2024-06-01,11:00 AM,40,20,80,$10.00\n" +
	"Elm Center,Decatur,IL,TIR,2024-06-03,6:30 PM,30,12,60,$12.00\n"

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func withDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.csv")
	if err := os.WriteFile(path, []byte(eventsCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VOR_CONFIG", "")
	t.Setenv("VOR_DATASET_SOURCE", "csv")
	t.Setenv("VOR_DATASET_URL", path)
	t.Setenv("VOR_REFRESH_INTERVAL_SEC", "0")
	t.Setenv("VOR_GEOCODER_ENABLED", "false")
	return path
}

func TestScoreCommand(t *testing.T) {
	convey.Convey("Given the score command", t, func() {
		convey.Convey("When figures are valid", func() {
			out, err := execute(t, "score", "--venue", "Oak Hall", "--cpa", "$20", "--fulfillment", "60%", "--attendance", "0.5")

			convey.Convey("Then the manual score is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				var got types.ManualScore
				convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)
				convey.So(got.Venue, convey.ShouldEqual, "Oak Hall")
				convey.So(got.Score, convey.ShouldEqual, 12.2)
				convey.So(got.RecommendedTime1, convey.ShouldEqual, "11:00 AM on Monday")
			})
		})

		convey.Convey("When a figure is not numeric", func() {
			_, err := execute(t, "score", "--cpa", "cheap", "--fulfillment", "1", "--attendance", "1")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "--cpa")
		})

		convey.Convey("When a required flag is missing", func() {
			_, err := execute(t, "score", "--cpa", "10")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRecommendCommand(t *testing.T) {
	convey.Convey("Given a CSV dataset", t, func() {
		withDataset(t)

		convey.Convey("When recommending for a city", func() {
			out, err := execute(t, "recommend", "--topic", "TIR", "--city", "Springfield", "--state", "il", "--now", "2024-07-01")

			convey.Convey("Then the matching venue is ranked", func() {
				convey.So(err, convey.ShouldBeNil)
				var got []types.Entry
				convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)
				convey.So(got, convey.ShouldHaveLength, 1)
				convey.So(got[0].Rank, convey.ShouldEqual, 1)
				convey.So(got[0].Venue, convey.ShouldEqual, "Oak Hall")
			})
		})

		convey.Convey("When the location has no events", func() {
			_, err := execute(t, "recommend", "--topic", "TIR", "--city", "Peoria", "--state", "IL", "--now", "2024-07-01")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "Peoria, IL")
		})

		convey.Convey("When no location is given", func() {
			_, err := execute(t, "recommend", "--topic", "TIR")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the topic is unknown", func() {
			_, err := execute(t, "recommend", "--topic", "crypto", "--city", "Springfield", "--state", "IL")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given a config file naming the dataset", t, func() {
		path := withDataset(t)
		t.Setenv("VOR_DATASET_URL", "")
		os.Unsetenv("VOR_DATASET_URL")
		cfg := filepath.Join(t.TempDir(), "vor.yaml")
		convey.So(os.WriteFile(cfg, []byte("dataset_url: "+path+"\ntop_n: 1\n"), 0o600), convey.ShouldBeNil)

		out, err := execute(t, "--config", cfg, "recommend", "--topic", "TIR", "--city", "Decatur", "--state", "IL", "--now", "2024-07-01")
		convey.So(err, convey.ShouldBeNil)
		convey.So(out, convey.ShouldContainSubstring, "Elm Center")
	})
}

func TestMarketCommand(t *testing.T) {
	convey.Convey("Given a CSV dataset", t, func() {
		withDataset(t)

		out, err := execute(t, "mar", "--topic", "TIR", "--city", "Springfield", "--state", "IL", "--date", "2024-07-15")
		convey.So(err, convey.ShouldBeNil)
		var got types.MarketReport
		convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)
		convey.So(got.Venue, convey.ShouldEqual, "Oak Hall")
		convey.So(got.Topic, convey.ShouldEqual, "TIR")
	})
}

package config_test

import (
	"testing"
	"time"

	"github.com/okian/vor/internal/adapters/source"
	"github.com/okian/vor/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.TopN, convey.ShouldEqual, 4)
			convey.So(cfg.DatasetSource, convey.ShouldEqual, source.KindCSV)
			convey.So(cfg.DatasetURL, convey.ShouldEqual, source.DefaultCSVURL)
			convey.So(cfg.GeocoderEnabled, convey.ShouldBeFalse)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then durations are derived from the numeric keys", func() {
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.RefreshInterval(), convey.ShouldEqual, 15*time.Minute)
			convey.So(cfg.GeocodeTimeout(), convey.ShouldEqual, 3*time.Second)
		})

		convey.Convey("Then metrics default to the vor namespace", func() {
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "vor")
			convey.So(cfg.MetricsSampleIntervalSec, convey.ShouldEqual, 10)
			convey.So(cfg.MetricsOptions(), convey.ShouldHaveLength, 5)
		})

		convey.Convey("Then the source settings mirror the dataset keys", func() {
			cfg.DatasetSource = source.KindSQLite
			cfg.SQLitePath = "/tmp/events.db"
			s := cfg.SourceSettings()
			convey.So(s.Kind, convey.ShouldEqual, source.KindSQLite)
			convey.So(s.SQLitePath, convey.ShouldEqual, "/tmp/events.db")
			convey.So(s.SQLiteTable, convey.ShouldEqual, "events")
		})
	})
}

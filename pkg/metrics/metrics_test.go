package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the default refresh interval", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.eventsScored.Add(3)

			Convey("Then names and constant labels should follow the options", func() {
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
				expected := `
# HELP test_namespace_test_subsystem_events_scored_total Total number of events that received a defined score
# TYPE test_namespace_test_subsystem_events_scored_total counter
test_namespace_test_subsystem_events_scored_total{env="test"} 3
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_namespace_test_subsystem_events_scored_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When invalid option values are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithLatencyBuckets(nil),
				WithRefreshInterval(-time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "vor")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When latency buckets and labels arrive unordered from config", func() {
			manager := NewManager(
				WithLatencyBuckets([]float64{500, 5, 0, 50, 5, -1}),
				WithCustomLabels(map[string]string{" ": "dropped", "region": "us"}),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then buckets are sorted and cleaned and blank label names dropped", func() {
				So(manager.histogramBuckets, ShouldResemble, []float64{5, 50, 500})
				So(manager.customLabels, ShouldResemble, map[string]string{"region": "us"})
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording query metrics", func() {
			before := testutil.ToFloat64(globalManager.queries.WithLabelValues("vor", "ok"))
			RecordQuery("vor", "ok", 12.5)
			RecordEventsScored(4)
			RecordEventsExcluded("attendance_rate", 2)
			RecordVenuesReturned(3)

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(globalManager.queries.WithLabelValues("vor", "ok")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.eventsExcluded.WithLabelValues("attendance_rate")), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})

		Convey("When recording geocode and snapshot metrics", func() {
			RecordGeocodeLookup("resolved", 40)
			UpdateGeocodeCircuitState(2)
			loaded := time.Unix(1_700_000_000, 0)
			UpdateSnapshot(128, loaded)
			RecordSnapshotRefresh("success", 250)

			Convey("Then the gauges should hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.geocodeCircuitState), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.snapshotRecords), ShouldEqual, 128)
				So(testutil.ToFloat64(globalManager.snapshotLastLoadUnix), ShouldEqual, 1_700_000_000)
			})
		})

		Convey("When recording HTTP, error and system metrics", func() {
			So(func() {
				RecordHTTPRequest("/vor", "POST", 200)
				RecordHTTPRequestDuration("/vor", "POST", 200, 3.2)
				RecordErrorByComponent("geocode", "unavailable")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)

			Convey("Then the status code should be a label", func() {
				So(testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("/vor", "POST", "200")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("Then the custom registry should be exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given configured metric options", t, func() {
		Init(
			WithNamespace("seminars"),
			WithCustomLabels(map[string]string{"env": "staging"}),
			WithRefreshInterval(30*time.Second),
		)
		defer Init()

		Convey("When recording through the package functions", func() {
			RecordEventsScored(2)

			Convey("Then the rebuilt registry exposes the configured names", func() {
				So(RefreshInterval(), ShouldEqual, 30*time.Second)
				expected := `
# HELP seminars_recommender_events_scored_total Total number of events that received a defined score
# TYPE seminars_recommender_events_scored_total counter
seminars_recommender_events_scored_total{env="staging"} 2
`
				err := testutil.GatherAndCompare(GetRegistry(), strings.NewReader(expected), "seminars_recommender_events_scored_total")
				So(err, ShouldBeNil)
			})
		})
	})
}

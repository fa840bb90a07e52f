package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a dedicated registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors are registered there", func() {
				So(manager, ShouldNotBeNil)
				manager.datasetRecords.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_dataset_records")
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "bikeflow")
				So(manager.subsystem, ShouldEqual, "dashboard")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording dataset metrics", func() {
			UpdateDatasetRecords(42)
			UpdateDatasetNTAs(7)
			RecordDatasetLoad(3, 120)

			Convey("Then gauges hold the values", func() {
				So(testutil.ToFloat64(globalManager.datasetRecords), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.datasetNTAs), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.datasetFiles), ShouldEqual, 3)
			})
		})

		Convey("When publishing a snapshot", func() {
			before := testutil.ToFloat64(globalManager.snapshotCount)
			at := time.Unix(1700000000, 0)
			RecordSnapshotPublished(at)

			Convey("Then the counter and timestamp move", func() {
				So(testutil.ToFloat64(globalManager.snapshotCount), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.snapshotLastUnix), ShouldEqual, 1700000000)
			})
		})

		Convey("When recording reloads", func() {
			before := testutil.ToFloat64(globalManager.datasetReloads.WithLabelValues("error"))
			RecordReload("error")

			Convey("Then the labelled counter increases", func() {
				So(testutil.ToFloat64(globalManager.datasetReloads.WithLabelValues("error")), ShouldEqual, before+1)
			})
		})

		Convey("Then the remaining helpers do not panic", func() {
			So(func() {
				RecordDatasetLoadError()
				RecordRowsRejected(2)
				RecordHTTPRequest("home", "GET", "200")
				RecordHTTPRequestDuration("home", "GET", "200", 1.5)
				RecordPageRender("home", 0.4)
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("api_top", "GET", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

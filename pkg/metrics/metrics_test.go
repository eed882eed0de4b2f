package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithPrefix("test", "unit"),
				WithLatencyBuckets(1, 5, 10),
				WithConstLabel("env", "test"),
				WithRegisterer(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.timelineUndo.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_timeline_undo_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrefix("", ""), WithLatencyBuckets(), WithConstLabel("", "x"), WithRegisterer(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "bjjscore")
				So(manager.subsystem, ShouldEqual, "scoreboard")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.customLabels, ShouldBeEmpty)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When timeline metrics are recorded", func() {
			before := testutil.ToFloat64(globalManager.timelineMutations.WithLabelValues("add"))
			RecordTimelineMutation("add")
			RecordTimelineUndo()
			RecordTimelineRedo()
			UpdateTimelineEvents(7)

			Convey("Then the collectors change", func() {
				So(testutil.ToFloat64(globalManager.timelineMutations.WithLabelValues("add")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.timelineEvents), ShouldEqual, 7)
			})
		})

		Convey("When an export runs to completion", func() {
			RecordExportStarted()
			So(testutil.ToFloat64(globalManager.exportActive), ShouldEqual, 1)
			UpdateExportProgress(0.5)
			So(testutil.ToFloat64(globalManager.exportProgress), ShouldEqual, 0.5)
			RecordExportFinished("completed", 3)

			Convey("Then the active gauge resets", func() {
				So(testutil.ToFloat64(globalManager.exportActive), ShouldEqual, 0)
			})
		})

		Convey("When a start is rejected", func() {
			before := testutil.ToFloat64(globalManager.exportsRejected)
			RecordExportRejected()
			So(testutil.ToFloat64(globalManager.exportsRejected), ShouldEqual, before+1)
		})

		Convey("When the remaining helpers are called", func() {
			So(func() {
				RecordOverlayLayers(24)
				RecordHandleRefresh("ok")
				RecordCompositionError("missing_video_track")
				RecordRepositoryLatency("save", 1.5)
				UpdateProjectsTotal(3)
				RecordHTTPRequest("/projects", "GET", "200")
				RecordHTTPRequestDuration("/projects", "GET", "200", 4)
				RecordErrorByComponent("export", "encoder")
			}, ShouldNotPanic)
		})
	})
}

func TestRegistryExposition(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordHTTPRequest("/healthz", "GET", "200")

		Convey("Then it exposes the service metrics", func() {
			count, err := testutil.GatherAndCount(GetRegistry(), "bjjscore_scoreboard_http_requests_total")
			So(err, ShouldBeNil)
			So(count, ShouldBeGreaterThan, 0)
		})
	})
}

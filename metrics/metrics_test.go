package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func Test_Collector(t *testing.T) {
	Convey("Collector", t, func() {
		reg := prometheus.NewRegistry()
		c, err := NewCollector(reg)
		So(err, ShouldBeNil)

		Convey("counts successful flushes", func() {
			c.Flushed(5, 10*time.Millisecond, nil)
			c.Flushed(3, 10*time.Millisecond, nil)

			So(testutil.ToFloat64(c.RowsFlushed), ShouldEqual, 8)
			So(testutil.ToFloat64(c.BatchesFlushed), ShouldEqual, 2)
			So(testutil.ToFloat64(c.SinkErrors), ShouldEqual, 0)
		})

		Convey("counts failed flushes separately", func() {
			c.Flushed(5, time.Millisecond, errors.New("boom"))

			So(testutil.ToFloat64(c.RowsFlushed), ShouldEqual, 0)
			So(testutil.ToFloat64(c.SinkErrors), ShouldEqual, 1)
		})

		Convey("tracks generated rows and live workers", func() {
			c.Generated()
			c.Generated()
			c.WorkerStarted()
			c.WorkerStarted()
			c.WorkerStopped()

			So(testutil.ToFloat64(c.RowsGenerated), ShouldEqual, 2)
			So(testutil.ToFloat64(c.ActiveWorkers), ShouldEqual, 1)
		})

		Convey("can be registered twice against one registry", func() {
			again, err := NewCollector(reg)
			So(err, ShouldBeNil)
			So(again, ShouldNotBeNil)
		})

		Convey("serves the metrics over HTTP", func() {
			c.Flushed(2, time.Millisecond, nil)

			rr := httptest.NewRecorder()
			c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldContainSubstring, "planes_rows_flushed_total 2")
			So(rr.Body.String(), ShouldContainSubstring, "planes_flush_duration_seconds_count 1")
		})

		Convey("a nil Collector is a no-op", func() {
			var nothing *Collector
			So(func() {
				nothing.Generated()
				nothing.Flushed(1, time.Second, nil)
				nothing.WorkerStarted()
				nothing.WorkerStopped()
			}, ShouldNotPanic)
		})
	})
}

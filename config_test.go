package main

import (
	"errors"
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/javier/questdb-adc-planes-simulator/planeid"
)

func validConfig() *Config {
	return &Config{
		ConnectionString: "http::addr=localhost:9000;",
		TotalRows:        100,
		RatePerPlane:     10,
		PlaneCount:       2,
		TableName:        "planes",
		StartingPlaneID:  "AA00",
		BatchSize:        10,
		ProgressInterval: 5 * time.Second,
	}
}

func Test_LoadConfig(t *testing.T) {
	Convey("LoadConfig()", t, func() {
		Convey("applies defaults", func() {
			config, err := LoadConfig([]string{})
			So(err, ShouldBeNil)
			So(config.ConnectionString, ShouldEqual, "http::addr=localhost:9000;")
			So(config.RatePerPlane, ShouldEqual, 1.0)
			So(config.PlaneCount, ShouldEqual, 1)
			So(config.StartingPlaneID, ShouldEqual, "AA00")
			So(config.BatchSize, ShouldEqual, 1000)
			So(config.ProgressInterval, ShouldEqual, 5*time.Second)
			So(config.SinkAttempts, ShouldEqual, 1)
		})

		Convey("reads the environment", func() {
			t.Setenv("PLANES_TOTAL_ROWS", "500")
			t.Setenv("PLANES_TABLE_NAME", "flights")

			config, err := LoadConfig([]string{})
			So(err, ShouldBeNil)
			So(config.TotalRows, ShouldEqual, 500)
			So(config.TableName, ShouldEqual, "flights")
		})

		Convey("lets flags override the environment", func() {
			t.Setenv("PLANES_TOTAL_ROWS", "500")

			config, err := LoadConfig([]string{
				"--total-rows", "9",
				"--rate-per-plane", "2.5",
				"--plane-count", "3",
				"--starting-plane-id", "BC12",
				"--batch-size", "5",
				"--quiet",
			})
			So(err, ShouldBeNil)
			So(config.TotalRows, ShouldEqual, 9)
			So(config.RatePerPlane, ShouldEqual, 2.5)
			So(config.PlaneCount, ShouldEqual, 3)
			So(config.StartingPlaneID, ShouldEqual, "BC12")
			So(config.BatchSize, ShouldEqual, 5)
			So(config.Quiet, ShouldBeTrue)
		})

		Convey("rejects unknown flags", func() {
			_, err := LoadConfig([]string{"--wings", "2"})
			So(err, ShouldNotBeNil)
		})
	})
}

func Test_RunConfig(t *testing.T) {
	Convey("RunConfig()", t, func() {
		config := validConfig()

		Convey("accepts a valid config", func() {
			runConfig, err := config.RunConfig()
			So(err, ShouldBeNil)
			So(runConfig.StartingPlaneID, ShouldEqual, planeid.ID("AA00"))
			So(runConfig.TotalRows, ShouldEqual, 100)
			So(runConfig.BatchSize, ShouldEqual, 10)
		})

		fieldOf := func(err error) string {
			var confErr *ConfigurationError
			if errors.As(err, &confErr) {
				return confErr.Field
			}
			return ""
		}

		Convey("rejects zero rows", func() {
			config.TotalRows = 0
			_, err := config.RunConfig()
			So(fieldOf(err), ShouldEqual, "total-rows")
		})

		Convey("rejects more rows than a budget can count", func() {
			config.TotalRows = math.MaxInt64 + 1
			_, err := config.RunConfig()
			So(fieldOf(err), ShouldEqual, "total-rows")

			config.TotalRows = math.MaxUint64
			_, err = config.RunConfig()
			So(fieldOf(err), ShouldEqual, "total-rows")
		})

		Convey("accepts the largest countable total", func() {
			config.TotalRows = math.MaxInt64
			_, err := config.RunConfig()
			So(err, ShouldBeNil)
		})

		Convey("rejects unusable rates", func() {
			for _, rate := range []float64{0, -1, math.NaN(), math.Inf(1), 1e-10, 1e-12} {
				config.RatePerPlane = rate
				_, err := config.RunConfig()
				So(fieldOf(err), ShouldEqual, "rate-per-plane")
			}
		})

		Convey("rejects zero planes", func() {
			config.PlaneCount = 0
			_, err := config.RunConfig()
			So(fieldOf(err), ShouldEqual, "plane-count")
		})

		Convey("rejects an empty table", func() {
			config.TableName = ""
			_, err := config.RunConfig()
			So(fieldOf(err), ShouldEqual, "table-name")
		})

		Convey("rejects a zero batch size", func() {
			config.BatchSize = 0
			_, err := config.RunConfig()
			So(fieldOf(err), ShouldEqual, "batch-size")
		})

		Convey("rejects a malformed starting identifier", func() {
			config.StartingPlaneID = "A100"
			_, err := config.RunConfig()
			So(fieldOf(err), ShouldEqual, "starting-plane-id")
			So(errors.Is(err, planeid.ErrMalformed), ShouldBeTrue)
		})

		Convey("rejects planes running past ZZ99", func() {
			config.StartingPlaneID = "ZZ98"
			config.PlaneCount = 3
			_, err := config.RunConfig()
			So(errors.Is(err, planeid.ErrRangeExceeded), ShouldBeTrue)
		})

		Convey("accepts planes ending exactly at ZZ99", func() {
			config.StartingPlaneID = "ZZ98"
			config.PlaneCount = 2
			_, err := config.RunConfig()
			So(err, ShouldBeNil)
		})
	})
}

func Test_Redacted(t *testing.T) {
	Convey("Redacted()", t, func() {
		config := validConfig()
		config.ConnectionString = "https::addr=db:9000;username=admin;password=s3cr;;et;"

		redacted := config.Redacted()

		So(redacted.ConnectionString, ShouldEqual, "https::addr=db:9000;username=admin;password=****;")
		So(config.ConnectionString, ShouldContainSubstring, "s3cr")
	})
}

package sink

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/javier/questdb-adc-planes-simulator/telemetry"
	. "github.com/smartystreets/goconvey/convey"
)

func Test_AppendRow(t *testing.T) {
	Convey("AppendRow()", t, func() {
		row := telemetry.Row{
			PlaneID:        "AB12",
			Timestamp:      time.Unix(1700000000, 42),
			Latitude:       51.5,
			Longitude:      -0.25,
			Altitude:       35000,
			GroundSpeed:    250.5,
			Heading:        90,
			Pitch:          -1.5,
			Roll:           2,
			AngleOfAttack:  3.25,
			OutsideAirTemp: -40,
		}

		Convey("renders one complete line", func() {
			line := string(AppendRow(nil, "planes", row))
			So(line, ShouldEqual,
				"planes,plane_id=AB12 latitude=51.5,longitude=-0.25,altitude=35000,"+
					"ground_speed=250.5,heading=90,pitch=-1.5,roll=2,angle_of_attack=3.25,"+
					"outside_air_temp=-40 1700000000000000042\n")
		})

		Convey("escapes the table name", func() {
			line := string(AppendRow(nil, "my planes,v2", row))
			So(line, ShouldStartWith, `my\ planes\,v2,plane_id=AB12 `)
		})
	})
}

func Test_EncodeBatch(t *testing.T) {
	Convey("EncodeBatch() writes one line per row in order", t, func() {
		batch := fixtureBatch("CC03", 4)
		lines := strings.Split(strings.TrimSuffix(string(EncodeBatch("t", batch)), "\n"), "\n")

		So(len(lines), ShouldEqual, 4)
		for i, line := range lines {
			So(line, ShouldStartWith, "t,plane_id=CC03 ")
			So(line, ShouldEndWith, " "+strconv.FormatInt(batch.Rows[i].Timestamp.UnixNano(), 10))
		}

		So(EncodeBatch("t", telemetry.Batch{}), ShouldBeEmpty)
	})
}

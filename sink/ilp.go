package sink

import (
	"strconv"
	"strings"

	"github.com/javier/questdb-adc-planes-simulator/telemetry"
)

// Column names as they land in the ingestion table
const (
	ColumnPlaneID        = "plane_id"
	ColumnLatitude       = "latitude"
	ColumnLongitude      = "longitude"
	ColumnAltitude       = "altitude"
	ColumnGroundSpeed    = "ground_speed"
	ColumnHeading        = "heading"
	ColumnPitch          = "pitch"
	ColumnRoll           = "roll"
	ColumnAngleOfAttack  = "angle_of_attack"
	ColumnOutsideAirTemp = "outside_air_temp"
	ColumnTimestamp      = "timestamp"
)

var (
	tableEscaper = strings.NewReplacer(`,`, `\,`, ` `, `\ `, "\n", `\n`)
	keyEscaper   = strings.NewReplacer(`,`, `\,`, `=`, `\=`, ` `, `\ `, "\n", `\n`)
)

type field struct {
	name  string
	value float64
}

// rowFields lists the float columns of row in table order
func rowFields(row telemetry.Row) [9]field {
	return [...]field{
		{ColumnLatitude, row.Latitude},
		{ColumnLongitude, row.Longitude},
		{ColumnAltitude, row.Altitude},
		{ColumnGroundSpeed, row.GroundSpeed},
		{ColumnHeading, row.Heading},
		{ColumnPitch, row.Pitch},
		{ColumnRoll, row.Roll},
		{ColumnAngleOfAttack, row.AngleOfAttack},
		{ColumnOutsideAirTemp, row.OutsideAirTemp},
	}
}

// EncodeBatch renders a batch as InfluxDB line protocol, one line per row.
// Only the stdout:: dry run prints it; QuestDB gets rows through the line
// sender.
func EncodeBatch(table string, batch telemetry.Batch) []byte {
	// Rows come out around 200 bytes each
	buf := make([]byte, 0, 256*batch.Len())
	for _, row := range batch.Rows {
		buf = AppendRow(buf, table, row)
	}
	return buf
}

// AppendRow appends a single line for row to buf
func AppendRow(buf []byte, table string, row telemetry.Row) []byte {
	buf = append(buf, tableEscaper.Replace(table)...)
	buf = append(buf, ',')
	buf = append(buf, ColumnPlaneID...)
	buf = append(buf, '=')
	buf = append(buf, keyEscaper.Replace(row.PlaneID.String())...)

	for i, f := range rowFields(row) {
		if i == 0 {
			buf = append(buf, ' ')
		} else {
			buf = append(buf, ',')
		}
		buf = append(buf, f.name...)
		buf = append(buf, '=')
		buf = strconv.AppendFloat(buf, f.value, 'f', -1, 64)
	}

	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, row.Timestamp.UnixNano(), 10)
	buf = append(buf, '\n')

	return buf
}

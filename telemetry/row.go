// Package telemetry synthesizes per-plane flight telemetry. Each plane keeps
// its own PlaneState and random source, so generation never shares state
// across planes.
package telemetry

import (
	"time"

	"github.com/javier/questdb-adc-planes-simulator/planeid"
)

// A Row is one telemetry sample for one plane. Rows are values and are never
// modified once generated.
type Row struct {
	PlaneID   planeid.ID
	Seq       uint64
	Timestamp time.Time

	Latitude       float64 // degrees, [-90, 90]
	Longitude      float64 // degrees, [-180, 180)
	Altitude       float64 // feet
	GroundSpeed    float64 // knots
	Heading        float64 // degrees, [0, 360)
	Pitch          float64 // degrees
	Roll           float64 // degrees
	AngleOfAttack  float64 // degrees
	OutsideAirTemp float64 // celsius
}

// A Batch is an ordered run of Rows belonging to a single plane
type Batch struct {
	PlaneID planeid.ID
	Rows    []Row
}

// Len returns the number of rows in the batch
func (b Batch) Len() int {
	return len(b.Rows)
}

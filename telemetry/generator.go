package telemetry

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/javier/questdb-adc-planes-simulator/planeid"
)

// Envelope limits and per-step deltas for the random walk. These follow a
// cruising airliner rather than any real flight model.
const (
	minGroundSpeed, maxGroundSpeed = 200.0, 300.0
	minAltitude, maxAltitude       = 30000.0, 40000.0
	minAttitude, maxAttitude       = -10.0, 10.0
	minAoA, maxAoA                 = 0.0, 15.0
	minOAT, maxOAT                 = -60.0, 20.0

	stepGroundSpeed = 1.0
	stepAltitude    = 10.0
	stepAttitude    = 1.0
	stepAoA         = 0.5
	stepOAT         = 1.0
	stepHeading     = 2.0
	stepPosition    = 0.005
)

// PlaneState is the generator state for a single plane. It is owned by one
// worker and must not be shared.
type PlaneState struct {
	ID  planeid.ID
	Seq uint64

	last        Row
	initialized bool
	rng         *rand.Rand
}

// NewPlaneState returns a state whose random source is seeded from the plane
// identifier, so a plane produces the same walk on every run.
func NewPlaneState(id planeid.ID) *PlaneState {
	return &PlaneState{
		ID:  id,
		rng: rand.New(rand.NewSource(Seed(id))),
	}
}

// Seed derives the random seed for a plane
func Seed(id planeid.ID) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64())
}

// Next produces the following sample for the plane, stamped at now. The first
// call draws starting values; later calls nudge the previous values. Timestamps
// are forced to strictly increase even if the clock doesn't move.
func (s *PlaneState) Next(now time.Time) Row {
	if !s.initialized {
		s.last = s.initial()
		s.initialized = true
	} else {
		s.last = s.step(s.last)
	}

	if !s.last.Timestamp.IsZero() && !now.After(s.last.Timestamp) {
		now = s.last.Timestamp.Add(time.Nanosecond)
	}

	s.Seq++
	s.last.PlaneID = s.ID
	s.last.Seq = s.Seq
	s.last.Timestamp = now

	return s.last
}

func (s *PlaneState) initial() Row {
	return Row{
		Latitude:       s.between(-60, 60),
		Longitude:      s.between(-180, 180),
		Altitude:       s.between(minAltitude, maxAltitude),
		GroundSpeed:    s.between(minGroundSpeed, maxGroundSpeed),
		Heading:        s.between(0, 360),
		Pitch:          s.between(minAttitude, maxAttitude),
		Roll:           s.between(minAttitude, maxAttitude),
		AngleOfAttack:  s.between(minAoA, maxAoA),
		OutsideAirTemp: s.between(minOAT, maxOAT),
	}
}

func (s *PlaneState) step(prev Row) Row {
	next := prev

	next.Latitude = ReflectLatitude(prev.Latitude + s.delta(stepPosition))
	next.Longitude = WrapLongitude(prev.Longitude + s.delta(stepPosition))
	next.Altitude = clamp(prev.Altitude+s.delta(stepAltitude), minAltitude, maxAltitude)
	next.GroundSpeed = clamp(prev.GroundSpeed+s.delta(stepGroundSpeed), minGroundSpeed, maxGroundSpeed)
	next.Heading = WrapHeading(prev.Heading + s.delta(stepHeading))
	next.Pitch = clamp(prev.Pitch+s.delta(stepAttitude), minAttitude, maxAttitude)
	next.Roll = clamp(prev.Roll+s.delta(stepAttitude), minAttitude, maxAttitude)
	next.AngleOfAttack = clamp(prev.AngleOfAttack+s.delta(stepAoA), minAoA, maxAoA)
	next.OutsideAirTemp = clamp(prev.OutsideAirTemp+s.delta(stepOAT), minOAT, maxOAT)

	return next
}

// between draws from [lo, hi)
func (s *PlaneState) between(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// delta draws from [-limit, limit)
func (s *PlaneState) delta(limit float64) float64 {
	return s.between(-limit, limit)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// WrapHeading folds any angle into [0, 360)
func WrapHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	// Tiny negatives round up to exactly 360
	if h >= 360 {
		h = 0
	}
	return h
}

// WrapLongitude folds any longitude into [-180, 180)
func WrapLongitude(lon float64) float64 {
	return WrapHeading(lon+180) - 180
}

// ReflectLatitude bounces a latitude that crossed a pole back into [-90, 90]
func ReflectLatitude(lat float64) float64 {
	switch {
	case lat > 90:
		return 180 - lat
	case lat < -90:
		return -180 - lat
	}
	return lat
}

// Package pacer spaces out emissions for a single plane at a fixed rate.
package pacer

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// MinRate is the slowest rate a Pacer accepts, one permit every ~31.7
// years. Slower intervals no longer fit in a time.Duration.
const MinRate = 1e-9

// A Pacer hands out one permit per interval from a token bucket that holds a
// single token. Tokens accrue on absolute time, so scheduling jitter never
// accumulates, and a late caller finds at most one token waiting: it goes at
// once but missed permits are not made up.
//
// A Pacer is not safe for concurrent use; each plane owns its own.
type Pacer struct {
	limiter *rate.Limiter

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// Validate reports whether ratePerSecond is usable by New
func Validate(ratePerSecond float64) error {
	if math.IsNaN(ratePerSecond) || math.IsInf(ratePerSecond, 0) || ratePerSecond <= 0 {
		return fmt.Errorf("invalid rate %v: must be a positive number", ratePerSecond)
	}
	if ratePerSecond < MinRate {
		return fmt.Errorf("invalid rate %v: slower than the minimum of %v per second", ratePerSecond, MinRate)
	}
	return nil
}

// New returns a Pacer for ratePerSecond permits per second
func New(ratePerSecond float64) (*Pacer, error) {
	if err := Validate(ratePerSecond); err != nil {
		return nil, err
	}

	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		now:     time.Now,
		after:   time.After,
	}, nil
}

// Interval returns the spacing between permits
func (p *Pacer) Interval() time.Duration {
	return time.Duration(float64(time.Second) / float64(p.limiter.Limit()))
}

// Wait blocks until the next permit is due or ctx is done. The first call
// returns immediately.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := p.now()
	reservation := p.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		// Hand the token back so a reused Pacer is not pushed a slot behind
		reservation.CancelAt(p.now())
		return ctx.Err()
	case <-p.after(delay):
	}

	return nil
}

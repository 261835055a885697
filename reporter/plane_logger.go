package reporter

import (
	"context"
	"time"

	limiter "github.com/sethvargo/go-limiter"
	"github.com/sethvargo/go-limiter/memorystore"
	log "github.com/sirupsen/logrus"

	"github.com/javier/questdb-adc-planes-simulator/planeid"
)

// A PlaneLogger logs per-plane flush progress, but at most once per plane per
// interval. At high rates a line per batch would drown everything else.
type PlaneLogger struct {
	limitStore limiter.Store
	quiet      bool
}

// NewPlaneLogger returns a logger allowing one line per plane per interval.
// A quiet logger never logs progress.
func NewPlaneLogger(interval time.Duration, quiet bool) *PlaneLogger {
	store, err := memorystore.New(&memorystore.Config{
		// One line...
		Tokens: 1,

		// ...per plane per interval
		Interval: interval,
	})
	if err != nil {
		log.Errorf("Unable to create memory store: %s", err)
	}

	return &PlaneLogger{
		limitStore: store,
		quiet:      quiet,
	}
}

// isRateLimited reports whether this plane already used its line for the
// current interval
func (l *PlaneLogger) isRateLimited(id planeid.ID) bool {
	if l.limitStore == nil {
		return true
	}

	_, _, _, ok, err := l.limitStore.Take(context.Background(), id.String())
	if err != nil {
		log.Debugf("Unable to fetch rate limit for %s: %s", id, err)
		return true
	}

	return !ok
}

// Flushed notes that a plane just flushed a batch
func (l *PlaneLogger) Flushed(id planeid.ID, rows int, sent, budget uint64) {
	if l.quiet || l.isRateLimited(id) {
		return
	}

	log.Infof("Plane %s flushed batch of %d rows, %d of %d so far", id, rows, sent, budget)
}

// Done logs a plane reaching the end of its budget. This is never throttled.
func (l *PlaneLogger) Done(id planeid.ID, sent uint64) {
	if l.quiet {
		return
	}

	log.Infof("Plane %s generated %d rows", id, sent)
}

// Stop cleans up the limiter on shutdown
func (l *PlaneLogger) Stop() {
	if l.limitStore != nil {
		_ = l.limitStore.Close(context.Background())
	}
}

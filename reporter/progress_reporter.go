package reporter

import (
	"sync"
	"sync/atomic"
	"time"

	director "github.com/relistan/go-director"
	log "github.com/sirupsen/logrus"
)

// A ProgressReporter tracks how many rows the whole fleet has flushed and,
// when running, logs the running total on a fixed interval.
type ProgressReporter struct {
	Total        uint64
	ReportLooper director.Looper

	flushedRows uint64
	started     time.Time

	lock    sync.Mutex
	running bool
}

// NewProgressReporter returns a reporter expecting total rows, logging every
// interval once Run is called
func NewProgressReporter(total uint64, interval time.Duration) *ProgressReporter {
	return &ProgressReporter{
		Total:        total,
		ReportLooper: director.NewTimedLooper(director.FOREVER, interval, make(chan error, 1)),
		started:      time.Now(),
	}
}

// Add atomically adds to the flushed row count
func (r *ProgressReporter) Add(rows uint64) {
	atomic.AddUint64(&r.flushedRows, rows)
}

// Flushed returns the rows flushed so far
func (r *ProgressReporter) Flushed() uint64 {
	return atomic.LoadUint64(&r.flushedRows)
}

// Run starts a background goroutine that logs progress until Stop
func (r *ProgressReporter) Run() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.started = time.Now()

	go r.ReportLooper.Loop(func() error {
		r.report()
		return nil
	})
}

// Stop ends the reporting loop. It is a no-op if Run was never called.
func (r *ProgressReporter) Stop() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if !r.running {
		return
	}
	r.running = false

	r.ReportLooper.Quit()
}

func (r *ProgressReporter) report() {
	flushed := r.Flushed()
	elapsed := time.Since(r.started)

	var pct, rate float64
	if r.Total > 0 {
		pct = 100 * float64(flushed) / float64(r.Total)
	}
	if elapsed > 0 {
		rate = float64(flushed) / elapsed.Seconds()
	}

	log.Infof("Flushed %d of %d rows (%.1f%%) at %.0f rows/s", flushed, r.Total, pct, rate)
}

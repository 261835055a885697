package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	director "github.com/relistan/go-director"
	log "github.com/sirupsen/logrus"

	"github.com/javier/questdb-adc-planes-simulator/batch"
	"github.com/javier/questdb-adc-planes-simulator/metrics"
	"github.com/javier/questdb-adc-planes-simulator/pacer"
	"github.com/javier/questdb-adc-planes-simulator/planeid"
	"github.com/javier/questdb-adc-planes-simulator/reporter"
	"github.com/javier/questdb-adc-planes-simulator/sink"
	"github.com/javier/questdb-adc-planes-simulator/telemetry"
)

// WorkerState is where a PlaneWorker is in its lifecycle
type WorkerState int

const (
	Initializing WorkerState = iota
	Generating
	Flushing
	Completed
	Failed
	Cancelled
)

func (s WorkerState) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Generating:
		return "generating"
	case Flushing:
		return "flushing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal is true once the worker will not generate or send anything else
func (s WorkerState) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// A PlaneWorker generates the rows for one plane at a fixed rate and sends
// them to the sink in batches. Its state is owned by the goroutine running
// Run() and may be read by others only after Run() has returned.
type PlaneWorker struct {
	PlaneID planeid.ID
	Budget  uint64

	table    string
	sink     sink.Sink
	pacer    *pacer.Pacer
	plane    *telemetry.PlaneState
	buffer   *batch.Buffer[telemetry.Row]
	looper   director.Looper
	metrics  *metrics.Collector
	progress *reporter.ProgressReporter
	planeLog *reporter.PlaneLogger
	now      func() time.Time

	state     WorkerState
	generated uint64
	flushed   uint64
	batches   uint64
	err       *PlaneError
}

func NewPlaneWorker(assignment Assignment, config *RunConfig, out sink.Sink) (*PlaneWorker, error) {
	if assignment.Budget > math.MaxInt64 {
		return nil, &ConfigurationError{
			Field: "total-rows", Reason: fmt.Sprintf("plane %s budget of %d rows is too large", assignment.PlaneID, assignment.Budget),
		}
	}

	p, err := pacer.New(config.RatePerPlane)
	if err != nil {
		return nil, &ConfigurationError{Field: "rate-per-plane", Reason: "unusable rate", Err: err}
	}

	return &PlaneWorker{
		PlaneID: assignment.PlaneID,
		Budget:  assignment.Budget,
		table:   config.TableName,
		sink:    out,
		pacer:   p,
		plane:   telemetry.NewPlaneState(assignment.PlaneID),
		buffer:  batch.NewBuffer[telemetry.Row](int(config.BatchSize)),
		// Buffered so Done() never blocks the loop when nobody is waiting yet.
		// Budgets are capped at MaxInt64 by RunConfig.
		looper: director.NewFreeLooper(int(assignment.Budget), make(chan error, 1)),
		now:    time.Now,
		state:  Initializing,
	}, nil
}

// Run generates the whole budget, then sends whatever is left in the
// buffer. It returns a *PlaneError when the sink fails. Cancellation is not
// an error: the worker stops, abandons the unsent rows and returns nil.
func (w *PlaneWorker) Run(ctx context.Context) error {
	w.metrics.WorkerStarted()
	defer w.metrics.WorkerStopped()

	w.state = Generating
	log.Debugf("Plane %s starting with a budget of %d rows", w.PlaneID, w.Budget)

	if w.Budget > 0 {
		go w.looper.Loop(func() error {
			return w.step(ctx)
		})

		err := w.looper.Wait()
		if err != nil {
			return w.stop(ctx, err)
		}
	}

	if rows, ok := w.buffer.Finalize(); ok {
		err := w.flush(ctx, rows)
		if err != nil {
			return w.stop(ctx, err)
		}
	}

	w.state = Completed
	w.planeLog.Done(w.PlaneID, w.flushed)

	return nil
}

func (w *PlaneWorker) step(ctx context.Context) error {
	err := w.pacer.Wait(ctx)
	if err != nil {
		return err
	}

	row := w.plane.Next(w.now())
	w.generated++
	w.metrics.Generated()

	if rows, full := w.buffer.Append(row); full {
		return w.flush(ctx, rows)
	}

	return nil
}

func (w *PlaneWorker) flush(ctx context.Context, rows []telemetry.Row) error {
	w.state = Flushing

	started := time.Now()
	err := w.sink.Send(ctx, w.table, telemetry.Batch{PlaneID: w.PlaneID, Rows: rows})
	w.metrics.Flushed(len(rows), time.Since(started), err)
	if err != nil {
		return err
	}

	w.flushed += uint64(len(rows))
	w.batches++
	w.progress.Add(uint64(len(rows)))
	w.planeLog.Flushed(w.PlaneID, len(rows), w.flushed, w.Budget)

	w.state = Generating
	return nil
}

func (w *PlaneWorker) stop(ctx context.Context, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		log.Debugf("Plane %s cancelled after flushing %d rows, dropped %d buffered rows",
			w.PlaneID, w.flushed, w.buffer.Len())
		w.state = Cancelled
		return nil
	}

	w.state = Failed
	w.err = &PlaneError{PlaneID: w.PlaneID, RowsFlushed: w.flushed, Err: err}
	log.Errorf("Plane %s failed: %s", w.PlaneID, err)

	return w.err
}

// State is only meaningful once Run has returned
func (w *PlaneWorker) State() WorkerState {
	return w.state
}

// Err is the failure that stopped the worker, if any
func (w *PlaneWorker) Err() *PlaneError {
	return w.err
}

// Result reports what the worker did. Call it after Run has returned.
func (w *PlaneWorker) Result() PlaneResult {
	return PlaneResult{
		PlaneID:     w.PlaneID,
		Budget:      w.Budget,
		Generated:   w.generated,
		RowsFlushed: w.flushed,
		Batches:     w.batches,
		State:       w.state,
	}
}

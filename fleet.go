package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/javier/questdb-adc-planes-simulator/metrics"
	"github.com/javier/questdb-adc-planes-simulator/planeid"
	"github.com/javier/questdb-adc-planes-simulator/reporter"
	"github.com/javier/questdb-adc-planes-simulator/sink"
)

// An Assignment is one plane and the number of rows it must generate
type Assignment struct {
	PlaneID planeid.ID
	Budget  uint64
}

// PlaneResult is the outcome of one plane's worker
type PlaneResult struct {
	PlaneID     planeid.ID
	Budget      uint64
	Generated   uint64
	RowsFlushed uint64
	Batches     uint64
	State       WorkerState
}

// A Result describes a finished run. RowsEmitted only counts rows the sink
// accepted.
type Result struct {
	RunID       string
	RowsEmitted uint64
	Elapsed     time.Duration
	Cancelled   bool
	Planes      []PlaneResult
	Failures    []*PlaneError
}

// Failed is true when at least one plane stopped on a sink error
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Budgets splits total across planes. The first total%planes planes get one
// extra row each, so budgets never differ by more than one.
func Budgets(total uint64, planes uint) []uint64 {
	if planes == 0 {
		return nil
	}

	base := total / uint64(planes)
	remainder := total % uint64(planes)

	budgets := make([]uint64, planes)
	for i := range budgets {
		budgets[i] = base
		if uint64(i) < remainder {
			budgets[i]++
		}
	}

	return budgets
}

// Assign gives each plane its identifier and row budget
func Assign(config *RunConfig) ([]Assignment, error) {
	budgets := Budgets(config.TotalRows, config.PlaneCount)

	assignments := make([]Assignment, 0, len(budgets))
	for i, budget := range budgets {
		id, err := planeid.At(config.StartingPlaneID, uint(i))
		if err != nil {
			return nil, fmt.Errorf("assigning plane %d: %w", i, err)
		}
		assignments = append(assignments, Assignment{PlaneID: id, Budget: budget})
	}

	return assignments, nil
}

// A Fleet runs one PlaneWorker per plane and waits for all of them. The first
// plane to fail cancels the rest.
type Fleet struct {
	RunID  string
	Config *RunConfig

	sink     sink.Sink
	metrics  *metrics.Collector
	progress *reporter.ProgressReporter
	planeLog *reporter.PlaneLogger
}

func NewFleet(runID string, config *RunConfig, out sink.Sink, collector *metrics.Collector) *Fleet {
	return &Fleet{
		RunID:    runID,
		Config:   config,
		sink:     out,
		metrics:  collector,
		progress: reporter.NewProgressReporter(config.TotalRows, config.ProgressInterval),
		planeLog: reporter.NewPlaneLogger(config.ProgressInterval, config.Quiet),
	}
}

// Run blocks until every plane is done, one has failed, or ctx is cancelled.
// The returned error aggregates the *PlaneError of every failed plane. A
// cancelled run is reported in the Result and is not an error.
func (f *Fleet) Run(ctx context.Context) (*Result, error) {
	assignments, err := Assign(f.Config)
	if err != nil {
		return nil, err
	}

	workers := make([]*PlaneWorker, 0, len(assignments))
	for _, assignment := range assignments {
		worker, err := NewPlaneWorker(assignment, f.Config, f.sink)
		if err != nil {
			return nil, err
		}
		worker.metrics = f.metrics
		worker.progress = f.progress
		worker.planeLog = f.planeLog
		workers = append(workers, worker)
	}

	if !f.Config.Quiet {
		f.progress.Run()
	}
	defer f.progress.Stop()
	defer f.planeLog.Stop()

	log.Infof("Starting %d planes at %.2f rows/s each, %d rows in total",
		len(workers), f.Config.RatePerPlane, f.Config.TotalRows)

	started := time.Now()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, worker := range workers {
		worker := worker
		group.Go(func() error {
			return worker.Run(groupCtx)
		})
	}

	// Every failure is also kept on its worker, collected below
	_ = group.Wait()

	result := &Result{
		RunID:   f.RunID,
		Elapsed: time.Since(started),
		Planes:  make([]PlaneResult, 0, len(workers)),
	}

	var (
		failures  *multierror.Error
		cancelled bool
	)
	for _, worker := range workers {
		result.Planes = append(result.Planes, worker.Result())
		result.RowsEmitted += worker.flushed
		cancelled = cancelled || worker.State() == Cancelled

		if planeErr := worker.Err(); planeErr != nil {
			result.Failures = append(result.Failures, planeErr)
			failures = multierror.Append(failures, planeErr)
		}
	}

	result.Cancelled = cancelled && !result.Failed()

	return result, failures.ErrorOrNil()
}

// Summary converts the result for WriteSummary
func (r *Result) Summary(config *RunConfig) *reporter.Summary {
	summary := &reporter.Summary{
		RunID:          r.RunID,
		Table:          config.TableName,
		TotalRows:      config.TotalRows,
		RowsEmitted:    r.RowsEmitted,
		ElapsedSeconds: r.Elapsed.Seconds(),
		Cancelled:      r.Cancelled,
		Failed:         r.Failed(),
		Planes:         make([]reporter.PlaneSummary, 0, len(r.Planes)),
	}

	for _, failure := range r.Failures {
		summary.Errors = append(summary.Errors, failure.Error())
	}

	for _, plane := range r.Planes {
		summary.Planes = append(summary.Planes, reporter.PlaneSummary{
			PlaneID:     plane.PlaneID.String(),
			Budget:      plane.Budget,
			RowsFlushed: plane.RowsFlushed,
			Batches:     plane.Batches,
			State:       plane.State.String(),
		})
	}

	return summary
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/javier/questdb-adc-planes-simulator/planeid"
	"github.com/javier/questdb-adc-planes-simulator/telemetry"
)

// LogCapture logs for async testing where we can't get a nice handle on things
func LogCapture(fn func()) string {
	capture := &bytes.Buffer{}
	log.SetOutput(capture)
	fn()
	log.SetOutput(os.Stdout)

	return capture.String()
}

// mockSink implements sink.Sink, for testing. Every batch for FailFor is
// rejected.
type mockSink struct {
	sync.Mutex

	FailFor     planeid.ID
	Table       string
	Sent        []telemetry.Batch
	CloseCalled bool
}

func (s *mockSink) Send(ctx context.Context, table string, batch telemetry.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if batch.PlaneID == s.FailFor {
		return errors.New("intentional test error")
	}

	s.Table = table
	s.Sent = append(s.Sent, batch)
	return nil
}

func (s *mockSink) Close() error {
	s.CloseCalled = true
	return nil
}

// Accepted counts the rows in every batch the sink took
func (s *mockSink) Accepted() uint64 {
	s.Lock()
	defer s.Unlock()

	var rows uint64
	for _, b := range s.Sent {
		rows += uint64(b.Len())
	}
	return rows
}

func (s *mockSink) BatchesFor(id planeid.ID) []telemetry.Batch {
	s.Lock()
	defer s.Unlock()

	var batches []telemetry.Batch
	for _, b := range s.Sent {
		if b.PlaneID == id {
			batches = append(batches, b)
		}
	}
	return batches
}

func testRunConfig() *RunConfig {
	return &RunConfig{
		ConnectionString: "stdout::",
		TotalRows:        9,
		RatePerPlane:     1000,
		PlaneCount:       3,
		TableName:        "planes",
		StartingPlaneID:  "AA00",
		BatchSize:        5,
		Quiet:            true,
		ProgressInterval: time.Second,
	}
}

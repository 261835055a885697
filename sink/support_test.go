package sink

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

// mockSink implements Sink and fails the first FailCount sends
type mockSink struct {
	sync.Mutex

	FailCount   int
	Calls       int
	Sent        []telemetry.Batch
	CloseCalled bool
}

func (s *mockSink) Send(ctx context.Context, table string, batch telemetry.Batch) error {
	s.Lock()
	defer s.Unlock()

	s.Calls++
	if s.Calls <= s.FailCount {
		return sendError(table, batch, errors.New("intentional test error"))
	}

	s.Sent = append(s.Sent, batch)
	return nil
}

func (s *mockSink) Close() error {
	s.CloseCalled = true
	return nil
}

func fixtureBatch(id planeid.ID, n int) telemetry.Batch {
	state := telemetry.NewPlaneState(id)
	start := time.Unix(1700000000, 0)

	b := telemetry.Batch{PlaneID: id}
	for i := 0; i < n; i++ {
		b.Rows = append(b.Rows, state.Next(start.Add(time.Duration(i)*time.Second)))
	}
	return b
}

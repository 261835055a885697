package sink

import (
	"context"
	"io"
	"sync"

	"github.com/javier/questdb-adc-planes-simulator/telemetry"
)

// A WriterSink writes line protocol to an io.Writer. It is mostly useful for
// dry runs against stdout.
type WriterSink struct {
	lock sync.Mutex
	out  io.Writer
}

func NewWriterSink(out io.Writer) *WriterSink {
	return &WriterSink{out: out}
}

func (s *WriterSink) Send(ctx context.Context, table string, batch telemetry.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := EncodeBatch(table, batch)

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.out.Write(data); err != nil {
		return sendError(table, batch, err)
	}

	return nil
}

func (s *WriterSink) Close() error { return nil }

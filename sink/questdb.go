package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	qdb "github.com/questdb/go-questdb-client/v3"

	"github.com/javier/questdb-adc-planes-simulator/telemetry"
)

var errClosed = errors.New("sink is closed")

// A QuestDBSink writes batches through the QuestDB line sender. Line senders
// are not safe for concurrent use, so each Send borrows an idle sender (or
// opens a new one), writes the whole batch and flushes it once before handing
// the sender back. Over HTTP that flush is a single request, which QuestDB
// commits or rejects as a unit.
type QuestDBSink struct {
	conf    string
	timeout time.Duration

	lock   sync.Mutex
	idle   []qdb.LineSender
	closed bool
}

// NewQuestDBSink opens a sink for a QuestDB client configuration string. One
// sender is opened right away so a bad option or unreachable TCP address is
// reported before any row is generated.
func NewQuestDBSink(ctx context.Context, conf string, timeout time.Duration) (*QuestDBSink, error) {
	conf, err := disableAutoFlush(conf)
	if err != nil {
		return nil, err
	}

	s := &QuestDBSink{conf: conf, timeout: timeout}

	sender, err := s.open(ctx)
	if err != nil {
		// HTTP senders connect lazily, so anything failing here is the config
		if strings.HasPrefix(conf, "http") {
			return nil, fmt.Errorf("%w: %s", ErrInvalidConf, err)
		}
		return nil, err
	}
	s.idle = append(s.idle, sender)

	return s, nil
}

// disableAutoFlush turns off the HTTP sender's row and interval based
// flushing, which would split a batch across requests. A trailing run of
// semicolons is only terminated if its length is odd: ";;" is an escaped
// semicolon inside the last value.
func disableAutoFlush(conf string) (string, error) {
	if !strings.HasPrefix(conf, "http") {
		return conf, nil
	}

	if strings.Contains(conf, "auto_flush") {
		return "", fmt.Errorf("%w: auto_flush options are not supported, every batch is flushed on its own", ErrInvalidConf)
	}

	trailing := len(conf) - len(strings.TrimRight(conf, ";"))
	if !strings.HasSuffix(conf, "::") && trailing%2 == 0 {
		conf += ";"
	}

	return conf + "auto_flush=off;", nil
}

func (s *QuestDBSink) open(ctx context.Context) (qdb.LineSender, error) {
	sender, err := qdb.LineSenderFromConf(ctx, s.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open QuestDB line sender: %w", err)
	}
	return sender, nil
}

func (s *QuestDBSink) acquire(ctx context.Context) (qdb.LineSender, error) {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return nil, errClosed
	}

	if n := len(s.idle); n > 0 {
		sender := s.idle[n-1]
		s.idle = s.idle[:n-1]
		s.lock.Unlock()
		return sender, nil
	}
	s.lock.Unlock()

	return s.open(ctx)
}

func (s *QuestDBSink) release(sender qdb.LineSender) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		_ = sender.Close(context.Background())
		return
	}
	s.idle = append(s.idle, sender)
}

// discard drops a sender whose buffer may hold part of a failed batch. With
// auto flush off, Close does not send what is buffered.
func (s *QuestDBSink) discard(sender qdb.LineSender) {
	_ = sender.Close(context.Background())
}

func (s *QuestDBSink) Send(ctx context.Context, table string, batch telemetry.Batch) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sender, err := s.acquire(ctx)
	if err != nil {
		return sendError(table, batch, err)
	}

	for _, row := range batch.Rows {
		line := sender.Table(table).Symbol(ColumnPlaneID, row.PlaneID.String())
		for _, f := range rowFields(row) {
			line = line.Float64Column(f.name, f.value)
		}

		if err := line.At(ctx, row.Timestamp); err != nil {
			s.discard(sender)
			return sendError(table, batch, err)
		}
	}

	if err := sender.Flush(ctx); err != nil {
		s.discard(sender)
		return sendError(table, batch, err)
	}

	s.release(sender)
	return nil
}

// Close closes every idle sender. Senders still in use are closed when their
// Send returns.
func (s *QuestDBSink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var result *multierror.Error
	for _, sender := range s.idle {
		if err := sender.Close(context.Background()); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.idle = nil

	return result.ErrorOrNil()
}

// Package sink delivers finished telemetry batches to a time-series
// ingestion endpoint. Every Sink is safe for concurrent use by many plane
// workers, and each Send is a single attempt to write one whole batch.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/javier/questdb-adc-planes-simulator/planeid"
	"github.com/javier/questdb-adc-planes-simulator/telemetry"
)

// ErrInvalidConf is wrapped by every connection-string problem Open finds
var ErrInvalidConf = errors.New("invalid connection string")

// A Sink accepts finished batches
type Sink interface {
	Send(ctx context.Context, table string, batch telemetry.Batch) error
	Close() error
}

// A SendError describes a batch the ingestion endpoint did not accept
type SendError struct {
	Table   string
	PlaneID planeid.ID
	Rows    int
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send %d rows for plane %s to table %s: %s", e.Rows, e.PlaneID, e.Table, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

func sendError(table string, batch telemetry.Batch, err error) error {
	return &SendError{Table: table, PlaneID: batch.PlaneID, Rows: batch.Len(), Err: err}
}

// Options tune the Sink built by Open
type Options struct {
	// Timeout bounds a single flush to QuestDB
	Timeout time.Duration

	// Attempts > 1 wraps the sink in a RetryingSink
	Attempts   uint
	RetryDelay time.Duration

	// Output receives rows for the stdout:: schema. Defaults to os.Stdout.
	Output io.Writer
}

// Open builds a Sink from a connection string. QuestDB client strings
// (http::, https::, tcp::, tcps::) go through the QuestDB line sender,
// stdout:: prints line protocol, and postgres:// URLs connect over the
// PostgreSQL wire protocol.
func Open(ctx context.Context, connString string, opts Options) (Sink, error) {
	s, err := open(ctx, connString, opts)
	if err != nil {
		return nil, err
	}

	if opts.Attempts > 1 {
		return NewRetryingSink(s, opts.Attempts, opts.RetryDelay), nil
	}

	return s, nil
}

func open(ctx context.Context, connString string, opts Options) (Sink, error) {
	if strings.HasPrefix(connString, "postgres://") || strings.HasPrefix(connString, "postgresql://") {
		return NewPostgresSink(ctx, connString)
	}

	schema, params, found := strings.Cut(connString, "::")
	if !found || schema == "" {
		return nil, fmt.Errorf("%w: expected <schema>::<key>=<value>;...", ErrInvalidConf)
	}

	switch schema {
	case "http", "https", "tcp", "tcps":
		return NewQuestDBSink(ctx, connString, opts.Timeout)
	case "stdout":
		if params != "" {
			return nil, fmt.Errorf("%w: stdout takes no parameters", ErrInvalidConf)
		}
		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		return NewWriterSink(out), nil
	}

	return nil, fmt.Errorf("%w: unsupported schema %q", ErrInvalidConf, schema)
}

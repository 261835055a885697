package sink

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"
	log "github.com/sirupsen/logrus"

	"github.com/javier/questdb-adc-planes-simulator/telemetry"
)

// A RetryingSink retries failed sends with exponential backoff. Retrying is
// purely a sink concern: plane workers see only the final outcome.
type RetryingSink struct {
	next     Sink
	attempts uint
	delay    time.Duration
}

func NewRetryingSink(next Sink, attempts uint, delay time.Duration) *RetryingSink {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	return &RetryingSink{next: next, attempts: attempts, delay: delay}
}

func (s *RetryingSink) Send(ctx context.Context, table string, batch telemetry.Batch) error {
	return retry.Do(
		func() error {
			return s.next.Send(ctx, table, batch)
		},
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			// Also called after the last attempt, which the caller reports
			if n+1 >= s.attempts {
				return
			}
			log.Warnf("Send for plane %s failed (attempt %d of %d), retrying: %s",
				batch.PlaneID, n+1, s.attempts, err)
		}),
	)
}

func (s *RetryingSink) Close() error {
	return s.next.Close()
}

package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	loghttp "github.com/motemen/go-loghttp"
	log "github.com/sirupsen/logrus"
)

// A SummaryPublisher POSTs the run summary as JSON to an HTTP endpoint, e.g.
// a CI job or dashboard waiting on the run
type SummaryPublisher struct {
	URL string

	client *http.Client
}

// NewSummaryPublisher returns a publisher for url. With debug set, every
// request and response is logged.
func NewSummaryPublisher(url string, timeout time.Duration, debug bool) *SummaryPublisher {
	client := cleanhttp.DefaultClient()
	client.Timeout = timeout

	if debug {
		client.Transport = &loghttp.Transport{
			LogRequest: func(req *http.Request) {
				log.Debugf("%s %s (%d bytes)", req.Method, req.URL, req.ContentLength)
			},
			LogResponse: func(resp *http.Response) {
				log.Debugf("%d %s", resp.StatusCode, resp.Request.URL)
			},
			Transport: client.Transport,
		}
	}

	return &SummaryPublisher{URL: url, client: client}
}

// Publish sends the summary once. Failures are returned, not retried.
func (p *SummaryPublisher) Publish(ctx context.Context, summary *Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("unable to encode summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("unable to create summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed posting summary to %s: %w", p.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("bad response from %s: %d %s", p.URL, resp.StatusCode, bytes.TrimSpace(body))
	}

	return nil
}

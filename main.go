package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/relistan/rubberneck"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/javier/questdb-adc-planes-simulator/metrics"
	"github.com/javier/questdb-adc-planes-simulator/reporter"
	"github.com/javier/questdb-adc-planes-simulator/sink"
)

func serveMetrics(address string, collector *metrics.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	go func() {
		log.Infof("Serving metrics on %s", address)
		err := http.ListenAndServe(address, mux)
		if err != nil {
			log.Errorf("Metrics server stopped: %s", err)
		}
	}()
}

func openSink(ctx context.Context, config *Config, runConfig *RunConfig) (sink.Sink, error) {
	out, err := sink.Open(ctx, runConfig.ConnectionString, sink.Options{
		Timeout:  config.SinkTimeout,
		Attempts: config.SinkAttempts,
	})
	if errors.Is(err, sink.ErrInvalidConf) {
		return nil, &ConfigurationError{Field: "connection-string", Reason: "unusable", Err: err}
	}

	return out, err
}

func logResult(result *Result) {
	switch {
	case result.Failed():
		for _, failure := range result.Failures {
			log.Errorf("Plane %s failed after flushing %d rows: %s",
				failure.PlaneID, failure.RowsFlushed, failure.Err)
		}
		log.Errorf("Run failed: %d rows sent in %s", result.RowsEmitted, result.Elapsed)
	case result.Cancelled:
		log.Warnf("Run cancelled: %d rows sent in %s", result.RowsEmitted, result.Elapsed)
	default:
		log.Infof("Data generation completed. Total rows generated: %d in %s",
			result.RowsEmitted, result.Elapsed)
	}
}

func run(config *Config) int {
	runID := uuid.NewString()

	err := configureLogging(config, runID)
	if err != nil {
		log.Errorf("Configuration error: %s", err)
		return 1
	}

	if !config.Quiet {
		rubberneck.NewPrinter(log.Infof, rubberneck.NoAddLineFeed).Print(config.Redacted())
	}

	runConfig, err := config.RunConfig()
	if err != nil {
		log.Errorf("Configuration error: %s", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		log.Errorf("Unable to register metrics: %s", err)
		return 1
	}

	if config.MetricsAddress != "" {
		serveMetrics(config.MetricsAddress, collector)
	}

	out, err := openSink(ctx, config, runConfig)
	if err != nil {
		log.Errorf("Unable to open sink: %s", err)
		return 1
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warnf("Error closing sink: %s", err)
		}
	}()

	fleet := NewFleet(runID, runConfig, out, collector)
	result, err := fleet.Run(ctx)
	if result == nil {
		log.Errorf("Unable to start planes: %s", err)
		return 1
	}

	logResult(result)

	summary := result.Summary(runConfig)
	if config.SummaryPath != "" {
		if err := reporter.WriteSummary(config.SummaryPath, summary); err != nil {
			log.Warn(err.Error())
		}
	}

	if config.SummaryURL != "" {
		// The run context may already be cancelled
		publisher := reporter.NewSummaryPublisher(
			config.SummaryURL, config.SinkTimeout, log.IsLevelEnabled(log.DebugLevel),
		)
		if err := publisher.Publish(context.Background(), summary); err != nil {
			log.Warn(err.Error())
		}
	}

	if err != nil {
		return 1
	}

	return 0
}

func main() {
	config, err := LoadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatal(err.Error())
	}

	os.Exit(run(config))
}

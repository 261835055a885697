package main

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"

	"github.com/javier/questdb-adc-planes-simulator/pacer"
	"github.com/javier/questdb-adc-planes-simulator/planeid"
)

const envPrefix = "planes"

// Config is everything that can be set from the environment (PLANES_*) or
// the command line. Flags win over the environment.
type Config struct {
	ConnectionString string  `envconfig:"CONNECTION_STRING" default:"http::addr=localhost:9000;"`
	TotalRows        uint64  `envconfig:"TOTAL_ROWS"`
	RatePerPlane     float64 `envconfig:"RATE_PER_PLANE" default:"1"`
	PlaneCount       uint    `envconfig:"PLANE_COUNT" default:"1"`
	TableName        string  `envconfig:"TABLE_NAME" default:"planes"`
	StartingPlaneID  string  `envconfig:"STARTING_PLANE_ID" default:"AA00"`
	BatchSize        uint    `envconfig:"BATCH_SIZE" default:"1000"`
	Quiet            bool    `envconfig:"QUIET" default:"false"`

	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	SyslogAddress    string        `envconfig:"SYSLOG_ADDRESS"`
	MetricsAddress   string        `envconfig:"METRICS_ADDRESS"`
	ProgressInterval time.Duration `envconfig:"PROGRESS_INTERVAL" default:"5s"`
	SinkAttempts     uint          `envconfig:"SINK_ATTEMPTS" default:"1"`
	SinkTimeout      time.Duration `envconfig:"SINK_TIMEOUT" default:"10s"`
	SummaryPath      string        `envconfig:"SUMMARY_PATH"`
	SummaryURL       string        `envconfig:"SUMMARY_URL"`
}

// RunConfig is the validated, immutable view of a Config that every plane
// worker reads. It is never modified after RunConfig() returns it.
type RunConfig struct {
	ConnectionString string
	TotalRows        uint64
	RatePerPlane     float64
	PlaneCount       uint
	TableName        string
	StartingPlaneID  planeid.ID
	BatchSize        uint
	Quiet            bool
	ProgressInterval time.Duration
}

// LoadConfig reads the environment and then applies command line flags
func LoadConfig(args []string) (*Config, error) {
	var config Config
	err := envconfig.Process(envPrefix, &config)
	if err != nil {
		return nil, err
	}

	flags := pflag.NewFlagSet("planes", pflag.ContinueOnError)
	config.bindFlags(flags)

	err = flags.Parse(args)
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) bindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.ConnectionString, "connection-string", c.ConnectionString, "ingestion sink, e.g. http::addr=localhost:9000;")
	flags.Uint64Var(&c.TotalRows, "total-rows", c.TotalRows, "rows to generate across all planes")
	flags.Float64Var(&c.RatePerPlane, "rate-per-plane", c.RatePerPlane, "rows per second for each plane")
	flags.UintVar(&c.PlaneCount, "plane-count", c.PlaneCount, "number of simulated planes")
	flags.StringVar(&c.TableName, "table-name", c.TableName, "destination table")
	flags.StringVar(&c.StartingPlaneID, "starting-plane-id", c.StartingPlaneID, "identifier of the first plane, AA00 to ZZ99")
	flags.UintVar(&c.BatchSize, "batch-size", c.BatchSize, "rows per batch sent to the sink")
	flags.BoolVar(&c.Quiet, "quiet", c.Quiet, "suppress progress output")
}

// RunConfig validates the settings the generation pipeline depends on
func (c *Config) RunConfig() (*RunConfig, error) {
	if c.TotalRows == 0 {
		return nil, &ConfigurationError{Field: "total-rows", Reason: "must be greater than zero"}
	}

	// Row budgets drive an int loop counter
	if c.TotalRows > math.MaxInt64 {
		return nil, &ConfigurationError{
			Field: "total-rows", Reason: fmt.Sprintf("must be at most %d", int64(math.MaxInt64)),
		}
	}

	if err := pacer.Validate(c.RatePerPlane); err != nil {
		return nil, &ConfigurationError{Field: "rate-per-plane", Reason: "unusable rate", Err: err}
	}

	if c.PlaneCount == 0 {
		return nil, &ConfigurationError{Field: "plane-count", Reason: "must be greater than zero"}
	}

	if c.TableName == "" {
		return nil, &ConfigurationError{Field: "table-name", Reason: "must not be empty"}
	}

	if c.BatchSize == 0 {
		return nil, &ConfigurationError{Field: "batch-size", Reason: "must be greater than zero"}
	}

	if c.ProgressInterval <= 0 {
		return nil, &ConfigurationError{Field: "progress-interval", Reason: "must be positive"}
	}

	start, err := planeid.Parse(c.StartingPlaneID)
	if err != nil {
		return nil, &ConfigurationError{
			Field: "starting-plane-id", Reason: "expected two letters and two digits", Err: err,
		}
	}

	// The last plane must still fit below ZZ99
	_, err = planeid.At(start, c.PlaneCount-1)
	if err != nil {
		return nil, fmt.Errorf("%d planes starting at %s: %w", c.PlaneCount, start, err)
	}

	return &RunConfig{
		ConnectionString: c.ConnectionString,
		TotalRows:        c.TotalRows,
		RatePerPlane:     c.RatePerPlane,
		PlaneCount:       c.PlaneCount,
		TableName:        c.TableName,
		StartingPlaneID:  start,
		BatchSize:        c.BatchSize,
		Quiet:            c.Quiet,
		ProgressInterval: c.ProgressInterval,
	}, nil
}

var secretParams = regexp.MustCompile(`((?:password|token)=)(?:[^;]|;;)*`)

// Redacted returns a copy safe to print, with credentials masked
func (c Config) Redacted() Config {
	c.ConnectionString = secretParams.ReplaceAllString(c.ConnectionString, "${1}****")
	return c
}

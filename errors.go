package main

import (
	"fmt"

	"github.com/javier/questdb-adc-planes-simulator/planeid"
)

// A ConfigurationError is a setting that makes the run impossible. It is
// always detected before any row is generated.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %s", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// A PlaneError is a plane worker that stopped because the sink failed
type PlaneError struct {
	PlaneID     planeid.ID
	RowsFlushed uint64
	Err         error
}

func (e *PlaneError) Error() string {
	return fmt.Sprintf("plane %s failed after flushing %d rows: %s", e.PlaneID, e.RowsFlushed, e.Err)
}

func (e *PlaneError) Unwrap() error {
	return e.Err
}

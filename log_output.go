package main

import (
	"fmt"
	"io"

	"github.com/Nitro/sidecar-executor/loghooks"
	log "github.com/sirupsen/logrus"
)

// UDPSyslogger is a logrus hook that relays every entry written to the
// standard logger to a UDP syslog listener, formatted as JSON.
type UDPSyslogger struct {
	syslogger *log.Entry
}

func NewUDPSyslogger(labels map[string]string, address string) (*UDPSyslogger, error) {
	syslogger := log.New()

	// UDP so a missing listener never slows down generation
	hook, err := loghooks.NewUDPHook(address)
	if err != nil {
		return nil, fmt.Errorf("unable to add syslog hook for %s: %w", address, err)
	}

	syslogger.Hooks.Add(hook)
	syslogger.SetFormatter(&log.JSONFormatter{
		FieldMap: log.FieldMap{
			log.FieldKeyTime:  "Timestamp",
			log.FieldKeyLevel: "Level",
			log.FieldKeyMsg:   "Payload",
			log.FieldKeyFunc:  "Func",
		},
	})
	syslogger.SetOutput(io.Discard)
	syslogger.SetLevel(log.TraceLevel)

	fields := make(log.Fields, len(labels))
	for field, val := range labels {
		fields[field] = val
	}

	return &UDPSyslogger{
		syslogger: syslogger.WithFields(fields),
	}, nil
}

// Levels excludes panic, which the relayed logger would re-raise
func (sysl *UDPSyslogger) Levels() []log.Level {
	return []log.Level{
		log.FatalLevel, log.ErrorLevel, log.WarnLevel,
		log.InfoLevel, log.DebugLevel, log.TraceLevel,
	}
}

func (sysl *UDPSyslogger) Fire(entry *log.Entry) error {
	sysl.syslogger.WithFields(entry.Data).Log(entry.Level, entry.Message)
	return nil
}

// configureLogging applies the log level and installs the syslog relay when
// an address is configured.
func configureLogging(config *Config, runID string) error {
	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		return &ConfigurationError{Field: "log-level", Reason: "unknown level", Err: err}
	}
	log.SetLevel(level)

	if config.SyslogAddress == "" {
		return nil
	}

	relay, err := NewUDPSyslogger(map[string]string{
		"RunID": runID,
		"Table": config.TableName,
	}, config.SyslogAddress)
	if err != nil {
		return err
	}

	log.AddHook(relay)
	return nil
}

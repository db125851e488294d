// Package common contains shared service plumbing: logger setup and
// build identity.
package common

import (
	"log/slog"
	"os"
)

type LoggingOpts struct {
	// Service name, added as a "service" tag to all log lines.
	Service string

	// JSON enables machine-readable JSON log output.
	JSON bool

	// Debug lowers the log level to debug.
	Debug bool

	// Version of the service, added to all log lines when set.
	Version string
}

// SetupLogger creates the process logger. All components receive a child
// of this logger through their constructors.
func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	} else {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}
	return log
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds structured loggers backed by bolt.
package logging

import (
	"io"
	"os"

	"github.com/felixgeelhaar/bolt/v3"
)

// Config configures a logger.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is the output format (json or console).
	Format string

	// Output is the output destination. Nil means os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a console logger at info level writing to stderr.
// Stdout is left for command output.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stderr,
	}
}

// ParseLevel converts a string level to bolt.Level. Unknown values map to info.
func ParseLevel(s string) bolt.Level {
	switch s {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "info":
		return bolt.INFO
	case "warn":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// New creates a logger from cfg.
func New(cfg Config) *bolt.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler bolt.Handler
	if cfg.Format == "json" {
		handler = bolt.NewJSONHandler(out)
	} else {
		handler = bolt.NewConsoleHandler(out)
	}
	return bolt.New(handler).SetLevel(ParseLevel(cfg.Level))
}

// Discard returns a logger that drops everything.
func Discard() *bolt.Logger {
	return bolt.New(bolt.NewJSONHandler(io.Discard)).SetLevel(bolt.ERROR)
}

// OrDiscard returns l, or a discard logger when l is nil.
func OrDiscard(l *bolt.Logger) *bolt.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration, filled from the logging section of
// the application config.
type Config struct {
	Level     string    // trace, debug, info, warn, error, fatal, panic, disabled
	Format    string    // json or console
	Caller    bool      // add file:line to every entry
	Timestamp bool      // add an RFC 3339 time field
	Output    io.Writer // defaults to os.Stderr
}

// DefaultConfig returns JSON at info level on stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Timestamp: true, Output: os.Stderr}
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

//nolint:gochecknoinits // logging works before an explicit Init call
func init() {
	log = build(DefaultConfig())
}

// Init reconfigures the global logger and level. Safe to call more than once.
func Init(cfg Config) {
	l := build(cfg)
	mu.Lock()
	log = l
	mu.Unlock()
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	lc := zerolog.New(out).With()
	if cfg.Timestamp {
		lc = lc.Timestamp()
	}
	if cfg.Caller {
		lc = lc.Caller()
	}
	return lc.Logger()
}

// lookupLevel resolves a level name. "warning" is accepted as an alias
// for warn.
func lookupLevel(name string) (zerolog.Level, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, false
	}
	return lvl, true
}

// parseLevel resolves name, falling back to info.
func parseLevel(name string) zerolog.Level {
	lvl, _ := lookupLevel(name)
	return lvl
}

// ValidLevel reports whether level names a known zerolog level.
func ValidLevel(level string) bool {
	_, ok := lookupLevel(level)
	return ok
}

// SetLogger replaces the global logger instance.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// current returns a copy of the global logger.
func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With creates a child logger context from the global logger.
func With() zerolog.Context {
	l := current()
	return l.With()
}

// Debug starts a debug message. Parse failures of single monitor lines are
// logged at this level.
func Debug() *zerolog.Event {
	l := current()
	return l.Debug()
}

// Info starts an info message.
//
//	logging.Info().Str("device", id).Msg("Call monitor connected")
func Info() *zerolog.Event {
	l := current()
	return l.Info()
}

// Warn starts a warning message.
func Warn() *zerolog.Event {
	l := current()
	return l.Warn()
}

// Error starts an error message.
func Error() *zerolog.Event {
	l := current()
	return l.Error()
}

// Fatal starts a fatal message. os.Exit(1) follows the write.
func Fatal() *zerolog.Event {
	l := current()
	return l.Fatal()
}

// GetLevel returns the current global log level.
func GetLevel() zerolog.Level {
	return zerolog.GlobalLevel()
}

// SetLevelString sets the global level from its name and reports whether
// it changed. Unknown names select info.
func SetLevelString(level string) bool {
	next := parseLevel(level)
	if next == zerolog.GlobalLevel() {
		return false
	}
	zerolog.SetGlobalLevel(next)
	return true
}

// WithComponent creates a child logger tagged with a component name.
//
//	log := logging.WithComponent("history-poller")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}

// WithDevice creates a component logger scoped to one configured device.
// Every reader, poller and store log line carries the device id this way.
func WithDevice(component, deviceID string) zerolog.Logger {
	return With().Str("component", component).Str("device", deviceID).Logger()
}

// NewTestLogger creates a JSON logger writing to w, for capturing output in tests.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/fritzcall/internal/logging"
)

// ContextRunner is anything with a blocking, context-aware run loop.
// *sync.StreamReader and *sync.HistoryPoller satisfy it.
type ContextRunner interface {
	Serve(ctx context.Context) error
}

// RunFunc adapts a function to ContextRunner.
type RunFunc func(ctx context.Context) error

// Serve calls f.
func (f RunFunc) Serve(ctx context.Context) error { return f(ctx) }

// DeviceService supervises one per-device loop.
//
// Return values are translated for suture:
//   - ctx canceled: ctx.Err(), a normal stop
//   - nil while ctx is live: the loop finished on its own (Stop was called
//     or its source closed), suture.ErrDoNotRestart
//   - an error matching one of the terminal errors: logged,
//     suture.ErrDoNotRestart
//   - any other error: returned, so suture restarts with backoff
type DeviceService struct {
	runner   ContextRunner
	name     string
	terminal []error
}

// NewDeviceService creates a DeviceService named name.
func NewDeviceService(name string, runner ContextRunner, terminal ...error) *DeviceService {
	return &DeviceService{runner: runner, name: name, terminal: terminal}
}

// Serve implements suture.Service.
func (s *DeviceService) Serve(ctx context.Context) error {
	err := s.runner.Serve(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		logging.Debug().Str("service", s.name).Msg("Device service finished")
		return suture.ErrDoNotRestart
	}
	for _, t := range s.terminal {
		if errors.Is(err, t) {
			logging.Error().Err(err).Str("service", s.name).Msg("Device service stopped permanently")
			return suture.ErrDoNotRestart
		}
	}
	return err
}

// String implements fmt.Stringer for suture's log messages.
func (s *DeviceService) String() string {
	return s.name
}

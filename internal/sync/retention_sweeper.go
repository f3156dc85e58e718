// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/metrics"
)

// RetentionSink is the part of the store the sweeper needs.
type RetentionSink interface {
	Sweep(now time.Time) int
	Len() (calls, voicemails int)
}

// RetentionSweeper evicts expired calls on a fixed interval. Devices with a
// history poller sweep after every successful cycle; monitor-only devices
// run a RetentionSweeper instead.
type RetentionSweeper struct {
	deviceID string
	interval time.Duration
	sink     RetentionSink
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRetentionSweeper creates a sweeper. interval defaults to
// DefaultPollInterval.
func NewRetentionSweeper(deviceID string, interval time.Duration, sink RetentionSink) *RetentionSweeper {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &RetentionSweeper{
		deviceID: deviceID,
		interval: interval,
		sink:     sink,
		logger:   logging.WithDevice("retention", deviceID),
		now:      time.Now,
	}
}

// SweepOnce runs one sweep and returns how many calls were evicted.
func (s *RetentionSweeper) SweepOnce() int {
	n := s.sink.Sweep(s.now())
	if n > 0 {
		metrics.StoreEvictions.WithLabelValues(s.deviceID).Add(float64(n))
		s.logger.Debug().Int("evicted", n).Msg("Retention sweep evicted calls")
	}
	calls, vms := s.sink.Len()
	metrics.RecordStoreSize(s.deviceID, calls, vms)
	return n
}

// Serve sweeps once immediately, then on every interval until ctx is
// canceled.
func (s *RetentionSweeper) Serve(ctx context.Context) error {
	s.SweepOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

func (s *RetentionSweeper) String() string {
	return "retention-sweeper/" + s.deviceID
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/metrics"
	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/store"
)

// ReaderState is the connection state of a StreamReader.
type ReaderState int32

const (
	StateDisconnected ReaderState = iota
	StateConnecting
	StateStreaming
	StateReconnecting
	StateFailed
	StateStopped
)

func (s ReaderState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	// ErrReconnectExhausted is returned once the reconnect policy gives up.
	ErrReconnectExhausted = errors.New("callmonitor: reconnect attempts exhausted")

	// ErrReaderRunning is returned when a reader is started twice.
	ErrReaderRunning = errors.New("callmonitor: reader already running")

	errConnectionDead = errors.New("callmonitor: connection no longer alive")
)

// ReconnectPolicy bounds reconnection. Delays double from InitialDelay up
// to MaxDelay.
type ReconnectPolicy struct {
	// MaxAttempts is the number of consecutive failed attempts tolerated.
	// Zero or negative retries forever.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultReconnectPolicy allows 50 attempts with delays capped at 120s.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{MaxAttempts: 50, InitialDelay: time.Second, MaxDelay: 120 * time.Second}
}

// Delay returns the wait before attempt n (1-based).
func (p ReconnectPolicy) Delay(n int) time.Duration {
	d := p.InitialDelay
	if d <= 0 {
		d = time.Second
	}
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// CallSink receives live call records.
type CallSink interface {
	AddCall(models.CallRecord) store.InsertResult
}

// ReaderConfig configures a StreamReader.
type ReaderConfig struct {
	DeviceID string

	// Address is host:port of the call monitor.
	Address string

	// ReadTimeout bounds each read and is the liveness check interval. Default 10s.
	ReadTimeout time.Duration

	Reconnect ReconnectPolicy
}

// ReaderCallbacks are optional hooks. They run on the reader goroutine and
// must not block.
type ReaderCallbacks struct {
	// OnEvent receives every recognized event, CONNECT included.
	OnEvent func(Event)

	// OnRecord receives records that were added to or replaced in the sink.
	OnRecord func(models.CallRecord, store.InsertResult)

	// OnStateChange receives every state transition.
	OnStateChange func(ReaderState)

	// OnFailure receives the terminal error when reconnects are exhausted.
	OnFailure func(error)
}

// StreamReader owns one call monitor connection. It reads lines with a
// bounded wait, feeds parsed records into a CallSink and reconnects with
// exponential backoff when the connection is lost.
//
// State machine:
//
//	Disconnected -> Connecting -> Streaming -> Reconnecting -> Connecting ...
//	Reconnecting -> Failed   (policy exhausted)
//	any          -> Stopped  (Stop or context cancellation)
//
// The stop signal is checked at every bounded-wait boundary, so Stop returns
// within one ReadTimeout.
type StreamReader struct {
	cfg    ReaderConfig
	dialer Dialer
	parser *Parser
	sink   CallSink
	logger zerolog.Logger

	callbackMu sync.RWMutex
	callbacks  ReaderCallbacks

	state atomic.Int32

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	lastErr  error
	lastLine time.Time
}

// NewStreamReader creates a reader in the Disconnected state.
func NewStreamReader(cfg ReaderConfig, dialer Dialer, parser *Parser, sink CallSink) *StreamReader {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.Reconnect.InitialDelay <= 0 && cfg.Reconnect.MaxDelay <= 0 && cfg.Reconnect.MaxAttempts == 0 {
		cfg.Reconnect = DefaultReconnectPolicy()
	}
	if parser == nil {
		parser = NewParser(ParserConfig{})
	}
	return &StreamReader{
		cfg:    cfg,
		dialer: dialer,
		parser: parser,
		sink:   sink,
		logger: logging.WithDevice("callmonitor", cfg.DeviceID),
	}
}

// SetCallbacks replaces the reader's callbacks.
func (r *StreamReader) SetCallbacks(cb ReaderCallbacks) {
	r.callbackMu.Lock()
	defer r.callbackMu.Unlock()
	r.callbacks = cb
}

func (r *StreamReader) hooks() ReaderCallbacks {
	r.callbackMu.RLock()
	defer r.callbackMu.RUnlock()
	return r.callbacks
}

// State returns the current state.
func (r *StreamReader) State() ReaderState {
	return ReaderState(r.state.Load())
}

func (r *StreamReader) setState(s ReaderState) {
	if ReaderState(r.state.Swap(int32(s))) == s {
		return
	}
	metrics.ReaderState.WithLabelValues(r.cfg.DeviceID).Set(float64(s))
	r.logger.Debug().Str("state", s.String()).Msg("Call monitor state changed")
	if cb := r.hooks().OnStateChange; cb != nil {
		cb(s)
	}
}

// LastError returns the error that ended the last run, if any.
func (r *StreamReader) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// LastLineAt returns when the last line was received.
func (r *StreamReader) LastLineAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLine
}

func (r *StreamReader) begin() (<-chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil, ErrReaderRunning
	}
	r.running = true
	r.lastErr = nil
	r.stopChan = make(chan struct{})
	r.wg.Add(1)
	return r.stopChan, nil
}

func (r *StreamReader) end(err error) {
	r.mu.Lock()
	r.running = false
	r.lastErr = err
	r.mu.Unlock()
	r.wg.Done()
}

// Start runs the reader in a background goroutine.
func (r *StreamReader) Start(ctx context.Context) error {
	stop, err := r.begin()
	if err != nil {
		return err
	}
	go func() {
		var runErr error
		defer func() { r.end(runErr) }()
		runErr = r.run(ctx, stop)
	}()
	return nil
}

// Serve runs the reader on the calling goroutine until ctx is canceled, Stop
// is called, or the reconnect policy is exhausted. Only the last case
// returns an error, wrapping ErrReconnectExhausted.
func (r *StreamReader) Serve(ctx context.Context) error {
	stop, err := r.begin()
	if err != nil {
		return err
	}
	runErr := r.run(ctx, stop)
	r.end(runErr)
	return runErr
}

// Stop signals the reader to exit and waits for it. The connection is
// closed before Stop returns.
func (r *StreamReader) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	r.mu.Unlock()

	r.wg.Wait()
}

// IsRunning reports whether the reader loop is active.
func (r *StreamReader) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *StreamReader) run(ctx context.Context, stop <-chan struct{}) error {
	failures := 0

	for {
		if stopped(ctx, stop) {
			r.setState(StateStopped)
			return nil
		}

		r.setState(StateConnecting)
		conn, err := r.dialer.Dial(ctx, r.cfg.Address)
		if err == nil {
			failures = 0
			r.setState(StateStreaming)
			r.logger.Info().Str("address", r.cfg.Address).Msg("Call monitor connected")

			err = r.stream(ctx, stop, conn)
			if cerr := conn.Close(); cerr != nil {
				r.logger.Debug().Err(cerr).Msg("Call monitor close failed")
			}
			if err == nil {
				r.setState(StateStopped)
				return nil
			}
			r.logger.Warn().Err(err).Msg("Call monitor connection lost")
		} else {
			r.logger.Warn().Err(err).Int("attempt", failures+1).Msg("Call monitor connect failed")
		}

		if stopped(ctx, stop) {
			r.setState(StateStopped)
			return nil
		}

		failures++
		if limit := r.cfg.Reconnect.MaxAttempts; limit > 0 && failures > limit {
			r.setState(StateFailed)
			metrics.ReaderFailures.WithLabelValues(r.cfg.DeviceID).Inc()
			failure := fmt.Errorf("%w after %d attempts: %w", ErrReconnectExhausted, limit, err)
			r.logger.Error().Err(failure).Msg("Call monitor giving up")
			if cb := r.hooks().OnFailure; cb != nil {
				cb(failure)
			}
			return failure
		}

		r.setState(StateReconnecting)
		metrics.ReaderReconnects.WithLabelValues(r.cfg.DeviceID).Inc()
		delay := r.cfg.Reconnect.Delay(failures)
		r.logger.Info().Dur("delay", delay).Int("attempt", failures).Msg("Call monitor reconnecting")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			r.setState(StateStopped)
			return nil
		case <-stop:
			timer.Stop()
			r.setState(StateStopped)
			return nil
		}
	}
}

// stream reads until the stop signal (nil) or a connection error.
func (r *StreamReader) stream(ctx context.Context, stop <-chan struct{}, conn LineConn) error {
	for {
		if stopped(ctx, stop) {
			return nil
		}

		line, err := conn.ReadLine(r.cfg.ReadTimeout)
		if errors.Is(err, ErrReadTimeout) {
			if !conn.Alive() {
				return errConnectionDead
			}
			continue
		}
		if err != nil {
			return err
		}
		r.handleLine(line)
	}
}

func (r *StreamReader) handleLine(line string) {
	r.mu.Lock()
	r.lastLine = time.Now()
	r.mu.Unlock()
	metrics.MonitorLinesRead.WithLabelValues(r.cfg.DeviceID).Inc()

	ev, ok := r.parser.ParseEvent(line)
	if !ok {
		metrics.MonitorParseFailures.WithLabelValues(r.cfg.DeviceID).Inc()
		r.logger.Debug().Str("line", line).Msg("Call monitor line not recognized")
		return
	}
	metrics.MonitorEvents.WithLabelValues(r.cfg.DeviceID, string(ev.Kind)).Inc()

	hooks := r.hooks()
	if hooks.OnEvent != nil {
		hooks.OnEvent(ev)
	}

	rec, ok := ev.Record()
	if !ok || r.sink == nil {
		return
	}
	res := r.sink.AddCall(rec)
	metrics.RecordInsert(r.cfg.DeviceID, string(models.SourceLive), res.String(), 1)
	if res != store.Duplicate && hooks.OnRecord != nil {
		hooks.OnRecord(rec, res)
	}
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

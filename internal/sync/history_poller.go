// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/metrics"
	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/store"
	"github.com/tomtom215/fritzcall/internal/tr064"
)

// DefaultServices is the service fallback order for the list actions. Newer
// firmware exposes version 2 of the telephony service.
var DefaultServices = []string{"X_AVM-DE_OnTel:2", "X_AVM-DE_OnTel:1"}

// DefaultPollInterval is the history poll interval.
const DefaultPollInterval = time.Hour

// ActionCaller invokes a TR-064 action and decodes its list document into out.
type ActionCaller interface {
	CallAction(ctx context.Context, service, action string, out any) error
}

// HistorySink receives history batches. *store.Store implements it.
type HistorySink interface {
	AddCalls([]models.CallRecord) store.BatchResult
	Sweep(now time.Time) int
	SyncVoicemails([]models.VoicemailRecord) (added, removed int)
	Len() (calls, voicemails int)
}

// FetchError reports a failed sub-fetch after every service variant was
// tried. Err joins the per-variant errors.
type FetchError struct {
	Action   string
	Services []string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s failed for all services [%s]: %v", e.Action, strings.Join(e.Services, ", "), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PollerConfig configures a HistoryPoller.
type PollerConfig struct {
	DeviceID string

	// Interval between cycles. Default one hour.
	Interval time.Duration

	// Services is the fallback order. Default DefaultServices.
	Services []string

	// VoicemailEnabled adds the GetMessageList sub-fetch to each cycle.
	VoicemailEnabled bool
}

// PollResult summarizes one cycle.
type PollResult struct {
	Started  time.Time
	Duration time.Duration

	CallService  string
	CallsFetched int
	CallsSkipped int
	Added        []models.CallRecord
	Replaced     []models.CallRecord
	Evicted      int

	VoicemailService  string
	VoicemailsFetched int
	VoicemailsAdded   int
	VoicemailsRemoved int

	Err error
}

// HistoryPoller fetches the device's call list (and optionally its message
// list) on a fixed interval and merges it into a HistorySink.
//
// Each cycle:
//  1. GetCallList, trying each service variant until one succeeds
//  2. AddCalls with the parsed batch, then the retention Sweep
//  3. GetMessageList the same way, then SyncVoicemails (if enabled)
//
// The two sub-fetches fail independently. A failed call-list fetch skips
// the sweep, so a device outage never empties the store. Failures are
// returned as *FetchError values joined with errors.Join.
type HistoryPoller struct {
	cfg    PollerConfig
	caller ActionCaller
	sink   HistorySink
	parser *HistoryParser
	now    func() time.Time

	onResult func(PollResult)

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	trigger  chan struct{}
	wg       sync.WaitGroup
	last     *PollResult

	// pollMu serializes cycles between the loop and PollOnce callers.
	pollMu sync.Mutex
}

// NewHistoryPoller creates a stopped poller.
func NewHistoryPoller(cfg PollerConfig, caller ActionCaller, sink HistorySink, parser *HistoryParser) *HistoryPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if len(cfg.Services) == 0 {
		cfg.Services = DefaultServices
	}
	if parser == nil {
		parser = NewHistoryParser(nil)
	}
	return &HistoryPoller{
		cfg:     cfg,
		caller:  caller,
		sink:    sink,
		parser:  parser,
		now:     time.Now,
		trigger: make(chan struct{}, 1),
	}
}

// OnResult registers a hook called after every cycle. Call before Start.
func (p *HistoryPoller) OnResult(fn func(PollResult)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResult = fn
}

// Start launches the poll loop. The first cycle runs immediately.
func (p *HistoryPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	stop := p.stopChan
	p.mu.Unlock()

	logging.Info().Str("device", p.cfg.DeviceID).Dur("interval", p.cfg.Interval).Msg("Starting history poller")

	p.wg.Add(1)
	go p.pollLoop(ctx, stop)
	return nil
}

// Serve implements suture.Service.
func (p *HistoryPoller) Serve(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	p.Stop()
	return ctx.Err()
}

// Stop ends the poll loop and waits for an in-flight cycle to finish.
func (p *HistoryPoller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Info().Str("device", p.cfg.DeviceID).Msg("History poller stopped")
}

// IsRunning reports whether the poll loop is active.
func (p *HistoryPoller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// TriggerPoll requests an immediate cycle from the running loop. It returns
// false when the loop is not running or a trigger is already pending.
func (p *HistoryPoller) TriggerPoll() bool {
	if !p.IsRunning() {
		return false
	}
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// LastResult returns the result of the most recent cycle, or nil.
func (p *HistoryPoller) LastResult() *PollResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	r := *p.last
	return &r
}

func (p *HistoryPoller) pollLoop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()

	p.runCycle(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			p.runCycle(ctx)
		case <-p.trigger:
			p.runCycle(ctx)
		}
	}
}

func (p *HistoryPoller) runCycle(ctx context.Context) {
	// Errors are logged and recorded by PollOnce.
	_, _ = p.PollOnce(ctx)
}

// PollOnce runs one cycle synchronously.
func (p *HistoryPoller) PollOnce(ctx context.Context) (PollResult, error) {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	ctx = logging.ContextWithNewCorrelationID(logging.ContextWithDevice(ctx, p.cfg.DeviceID))
	log := logging.Ctx(ctx)

	res := PollResult{Started: p.now()}
	var errs []error

	calls, service, err := p.fetchCalls(ctx)
	if err != nil {
		errs = append(errs, err)
	} else {
		records, skipped := p.parser.ParseCalls(calls)
		batch := p.sink.AddCalls(records)
		res.CallService = service
		res.CallsFetched = len(calls)
		res.CallsSkipped = skipped
		res.Added = batch.Added
		res.Replaced = batch.Replaced
		res.Evicted = p.sink.Sweep(p.now())

		metrics.RecordInsert(p.cfg.DeviceID, string(models.SourceHistory), store.Added.String(), len(batch.Added))
		metrics.RecordInsert(p.cfg.DeviceID, string(models.SourceHistory), store.Replaced.String(), len(batch.Replaced))
		metrics.RecordInsert(p.cfg.DeviceID, string(models.SourceHistory), store.Duplicate.String(), batch.Duplicates)
		if skipped > 0 {
			metrics.PollRecordsSkipped.WithLabelValues(p.cfg.DeviceID, tr064.ActionGetCallList).Add(float64(skipped))
			log.Warn().Int("skipped", skipped).Msg("Skipped call list entries with unparseable time")
		}
		if res.Evicted > 0 {
			metrics.StoreEvictions.WithLabelValues(p.cfg.DeviceID).Add(float64(res.Evicted))
		}
	}

	if p.cfg.VoicemailEnabled {
		msgs, service, err := p.fetchMessages(ctx)
		if err != nil {
			errs = append(errs, err)
		} else {
			records, skipped := p.parser.ParseVoicemails(msgs)
			res.VoicemailService = service
			res.VoicemailsFetched = len(msgs)
			res.VoicemailsAdded, res.VoicemailsRemoved = p.sink.SyncVoicemails(records)
			if skipped > 0 {
				metrics.PollRecordsSkipped.WithLabelValues(p.cfg.DeviceID, tr064.ActionGetMessageList).Add(float64(skipped))
			}
		}
	}

	res.Duration = time.Since(res.Started)
	res.Err = errors.Join(errs...)

	callsHeld, vmsHeld := p.sink.Len()
	metrics.RecordStoreSize(p.cfg.DeviceID, callsHeld, vmsHeld)
	metrics.RecordPollCycle(p.cfg.DeviceID, res.Duration, res.Err)

	if res.Err != nil {
		log.Error().Err(res.Err).Msg("History poll cycle failed")
	} else {
		log.Info().
			Int("fetched", res.CallsFetched).
			Int("added", len(res.Added)).
			Int("replaced", len(res.Replaced)).
			Int("evicted", res.Evicted).
			Int("voicemails", res.VoicemailsFetched).
			Dur("duration", res.Duration).
			Msg("History poll cycle complete")
	}

	p.mu.Lock()
	p.last = &res
	hook := p.onResult
	p.mu.Unlock()
	if hook != nil {
		hook(res)
	}

	return res, res.Err
}

func (p *HistoryPoller) fetchCalls(ctx context.Context) ([]tr064.Call, string, error) {
	var list tr064.CallList
	service, err := p.withFallback(ctx, tr064.ActionGetCallList, func(svc string) error {
		list = tr064.CallList{}
		return p.caller.CallAction(ctx, svc, tr064.ActionGetCallList, &list)
	})
	if err != nil {
		return nil, "", err
	}
	return list.Calls, service, nil
}

func (p *HistoryPoller) fetchMessages(ctx context.Context) ([]tr064.Message, string, error) {
	var list tr064.MessageList
	service, err := p.withFallback(ctx, tr064.ActionGetMessageList, func(svc string) error {
		list = tr064.MessageList{}
		return p.caller.CallAction(ctx, svc, tr064.ActionGetMessageList, &list)
	})
	if err != nil {
		return nil, "", err
	}
	return list.Messages, service, nil
}

// withFallback tries call with each service in order and returns the first
// that succeeds. Rejected variants are logged, not returned, unless all fail.
func (p *HistoryPoller) withFallback(ctx context.Context, action string, call func(service string) error) (string, error) {
	var errs []error
	tried := make([]string, 0, len(p.cfg.Services))

	for _, svc := range p.cfg.Services {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		tried = append(tried, svc)

		err := call(svc)
		if err == nil {
			logging.CtxDebug(ctx).Str("action", action).Str("service", svc).Msg("TR-064 action succeeded")
			return svc, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", svc, err))
		metrics.PollServiceFallbacks.WithLabelValues(p.cfg.DeviceID, action, svc).Inc()
		logging.CtxWarn(ctx).Err(err).Str("action", action).Str("service", svc).Msg("TR-064 service variant rejected")
	}

	metrics.PollFetchErrors.WithLabelValues(p.cfg.DeviceID, action).Inc()
	return "", &FetchError{Action: action, Services: tried, Err: errors.Join(errs...)}
}

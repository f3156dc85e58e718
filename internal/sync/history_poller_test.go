// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/store"
	"github.com/tomtom215/fritzcall/internal/tr064"
)

var pollNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestPoller(caller ActionCaller, s *store.Store, voicemail bool) *HistoryPoller {
	p := NewHistoryPoller(PollerConfig{
		DeviceID:         "test",
		Interval:         time.Hour,
		VoicemailEnabled: voicemail,
	}, caller, s, NewHistoryParser(time.UTC))
	p.now = func() time.Time { return pollNow }
	return p
}

func newPollStore() *store.Store {
	return store.New(store.Config{Now: func() time.Time { return pollNow }})
}

func TestHistoryPoller_Defaults(t *testing.T) {
	t.Parallel()

	p := NewHistoryPoller(PollerConfig{}, newFakeCaller(), newPollStore(), nil)
	if p.cfg.Interval != time.Hour {
		t.Errorf("Interval = %v, want 1h", p.cfg.Interval)
	}
	if len(p.cfg.Services) != 2 || p.cfg.Services[0] != "X_AVM-DE_OnTel:2" || p.cfg.Services[1] != "X_AVM-DE_OnTel:1" {
		t.Errorf("Services = %v", p.cfg.Services)
	}
}

func TestHistoryPoller_FallsBackToSecondService(t *testing.T) {
	t.Parallel()

	caller := newFakeCaller()
	caller.calls["X_AVM-DE_OnTel:1"] = tr064.CallList{Calls: []tr064.Call{
		{Time: "2024-01-09T08:00:00", Type: "2", Caller: "0170", Duration: "42"},
		{Time: "2024-01-09T09:00:00", Type: "3", Called: "0891", Duration: "0:02"},
	}}

	s := newPollStore()
	p := newTestPoller(caller, s, false)

	res, err := p.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if res.CallService != "X_AVM-DE_OnTel:1" {
		t.Errorf("CallService = %q, want X_AVM-DE_OnTel:1", res.CallService)
	}
	if res.CallsFetched != 2 || len(res.Added) != 2 {
		t.Errorf("fetched=%d added=%d, want 2 and 2", res.CallsFetched, len(res.Added))
	}

	got := caller.calledWith()
	want := []string{"X_AVM-DE_OnTel:2/GetCallList", "X_AVM-DE_OnTel:1/GetCallList"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", got, want)
	}

	snap := s.Snapshot()
	if len(snap.Calls) != 2 {
		t.Fatalf("store holds %d calls, want 2", len(snap.Calls))
	}
	if snap.Calls[1].Duration != 120 {
		t.Errorf("Duration = %d, want 120", snap.Calls[1].Duration)
	}
}

func TestHistoryPoller_AllServicesFail(t *testing.T) {
	t.Parallel()

	caller := newFakeCaller()
	boom := errors.New("connection reset")
	caller.fail("X_AVM-DE_OnTel:1", tr064.ActionGetCallList, boom)

	s := newPollStore()
	old := models.CallRecord{Direction: models.DirectionIncoming, Number: "0170", OccurredAt: pollNow.AddDate(0, 0, -90)}
	s.AddCall(old)

	p := newTestPoller(caller, s, false)
	res, err := p.PollOnce(context.Background())
	if err == nil {
		t.Fatal("PollOnce() succeeded, want error")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is not a *FetchError", err)
	}
	if fe.Action != tr064.ActionGetCallList || len(fe.Services) != 2 {
		t.Errorf("FetchError = %+v", fe)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error %v does not wrap the transport error", err)
	}
	if !tr064.IsFault(err) {
		t.Errorf("error %v does not carry the first variant's fault", err)
	}
	if res.Evicted != 0 {
		t.Errorf("Evicted = %d, want no sweep after a failed fetch", res.Evicted)
	}
	if calls, _ := s.Len(); calls != 1 {
		t.Errorf("store holds %d calls, want 1 (untouched)", calls)
	}
	if last := p.LastResult(); last == nil || last.Err == nil {
		t.Errorf("LastResult() = %+v, want the failed cycle", last)
	}
}

func TestHistoryPoller_SweepsAfterSuccessfulFetch(t *testing.T) {
	t.Parallel()

	caller := newFakeCaller()
	caller.calls["X_AVM-DE_OnTel:2"] = tr064.CallList{Calls: []tr064.Call{
		{Time: "2024-01-09T08:00:00", Type: "2", Caller: "0170"},
	}}

	s := newPollStore()
	s.AddCall(models.CallRecord{Direction: models.DirectionMissed, Number: "old", OccurredAt: pollNow.AddDate(0, 0, -61)})
	s.AddCall(models.CallRecord{Direction: models.DirectionMissed, Number: "recent", OccurredAt: pollNow.AddDate(0, 0, -59)})

	p := newTestPoller(caller, s, false)
	res, err := p.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if res.Evicted != 1 {
		t.Errorf("Evicted = %d, want 1", res.Evicted)
	}
	for _, c := range s.Snapshot().Calls {
		if c.Number == "old" {
			t.Error("record older than retention survived the sweep")
		}
	}
}

func TestHistoryPoller_VoicemailFailureIsIndependent(t *testing.T) {
	t.Parallel()

	caller := newFakeCaller()
	caller.calls["X_AVM-DE_OnTel:2"] = tr064.CallList{Calls: []tr064.Call{
		{Time: "2024-01-09T08:00:00", Type: "1", Caller: "0170"},
	}}
	// No message list on either service.

	s := newPollStore()
	p := newTestPoller(caller, s, true)
	res, err := p.PollOnce(context.Background())

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Action != tr064.ActionGetMessageList {
		t.Fatalf("error = %v, want a GetMessageList FetchError", err)
	}
	if len(res.Added) != 1 {
		t.Errorf("Added = %d, want the call list merged despite the voicemail failure", len(res.Added))
	}
	if calls, _ := s.Len(); calls != 1 {
		t.Errorf("store holds %d calls, want 1", calls)
	}
}

func TestHistoryPoller_BothFetchesFailJoined(t *testing.T) {
	t.Parallel()

	p := newTestPoller(newFakeCaller(), newPollStore(), true)
	_, err := p.PollOnce(context.Background())
	if err == nil {
		t.Fatal("PollOnce() succeeded, want error")
	}
	for _, action := range []string{tr064.ActionGetCallList, tr064.ActionGetMessageList} {
		if !strings.Contains(err.Error(), action) {
			t.Errorf("error %q does not mention %s", err, action)
		}
	}
}

func TestHistoryPoller_VoicemailsAreAuthoritative(t *testing.T) {
	t.Parallel()

	caller := newFakeCaller()
	caller.calls["X_AVM-DE_OnTel:2"] = tr064.CallList{}
	caller.messages["X_AVM-DE_OnTel:2"] = tr064.MessageList{Messages: []tr064.Message{
		{Timestamp: "2024-01-09T07:00:00", MessageURL: "/rec.0"},
		{Timestamp: "2024-01-09T07:30:00", MessageURL: "/rec.1"},
	}}

	s := newPollStore()
	p := newTestPoller(caller, s, true)
	res, err := p.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if res.VoicemailsAdded != 2 {
		t.Errorf("VoicemailsAdded = %d, want 2", res.VoicemailsAdded)
	}

	caller.mu.Lock()
	caller.messages["X_AVM-DE_OnTel:2"] = tr064.MessageList{Messages: []tr064.Message{
		{Timestamp: "2024-01-09T07:30:00", MessageURL: "/rec.1"},
	}}
	caller.mu.Unlock()

	res, err = p.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if res.VoicemailsAdded != 0 || res.VoicemailsRemoved != 1 {
		t.Errorf("added=%d removed=%d, want 0 and 1", res.VoicemailsAdded, res.VoicemailsRemoved)
	}
	if _, vms := s.Len(); vms != 1 {
		t.Errorf("store holds %d voicemails, want 1", vms)
	}
}

func TestHistoryPoller_HistoryReplacesLive(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 9, 8, 0, 0, 0, time.UTC)
	s := newPollStore()
	s.AddCall(models.CallRecord{Direction: models.DirectionIncoming, Number: "0170", OccurredAt: at, Source: models.SourceLive})

	caller := newFakeCaller()
	caller.calls["X_AVM-DE_OnTel:2"] = tr064.CallList{Calls: []tr064.Call{
		{Time: "2024-01-09T08:00:00", Type: "2", Caller: "0170", Duration: "42"},
	}}

	var hooked atomic.Int32
	p := newTestPoller(caller, s, false)
	p.OnResult(func(res PollResult) {
		hooked.Add(int32(len(res.Replaced)))
	})

	res, err := p.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if len(res.Replaced) != 1 || len(res.Added) != 0 {
		t.Errorf("added=%d replaced=%d, want 0 and 1", len(res.Added), len(res.Replaced))
	}
	if hooked.Load() != 1 {
		t.Errorf("OnResult saw %d replacements, want 1", hooked.Load())
	}

	snap := s.Snapshot()
	if len(snap.Calls) != 1 || snap.Calls[0].Duration != 42 || snap.Calls[0].Source != models.SourceHistory {
		t.Errorf("calls = %+v, want the history record", snap.Calls)
	}

	// A second identical poll changes nothing.
	res, err = p.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if len(res.Added)+len(res.Replaced) != 0 {
		t.Errorf("repeat poll changed %d records", len(res.Added)+len(res.Replaced))
	}
}

func TestHistoryPoller_StartTriggerStop(t *testing.T) {
	t.Parallel()

	caller := newFakeCaller()
	caller.calls["X_AVM-DE_OnTel:2"] = tr064.CallList{}

	var cycles atomic.Int32
	p := newTestPoller(caller, newPollStore(), false)
	p.OnResult(func(PollResult) { cycles.Add(1) })

	if p.TriggerPoll() {
		t.Error("TriggerPoll() on a stopped poller returned true")
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	waitFor(t, 2*time.Second, func() bool { return cycles.Load() == 1 })
	if !p.TriggerPoll() {
		t.Error("TriggerPoll() = false on a running poller")
	}
	waitFor(t, 2*time.Second, func() bool { return cycles.Load() == 2 })

	p.Stop()
	if p.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	p.Stop()
}

func TestHistoryPoller_ServeReturnsOnCancel(t *testing.T) {
	t.Parallel()

	caller := newFakeCaller()
	caller.calls["X_AVM-DE_OnTel:2"] = tr064.CallList{}
	p := newTestPoller(caller, newPollStore(), false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx) }()

	waitFor(t, 2*time.Second, func() bool { return p.LastResult() != nil })
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if p.IsRunning() {
		t.Error("poller still running after Serve returned")
	}
}

func TestFetchError_Message(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	err := &FetchError{Action: "GetCallList", Services: []string{"a", "b"}, Err: inner}
	if got := err.Error(); got != "GetCallList failed for all services [a, b]: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, inner) {
		t.Error("FetchError does not unwrap")
	}
}

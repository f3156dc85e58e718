// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/fritzcall/internal/models"
)

// LiveTracker projects call monitor events onto the current call state of
// each connection. It is not part of the merge store: CONNECT only ever
// changes this projection.
type LiveTracker struct {
	mu       sync.Mutex
	calls    map[string]models.LiveCall
	state    models.LiveState
	onChange func(models.LiveState)
}

// NewLiveTracker creates an idle tracker. onChange may be nil; it is called
// outside the tracker's lock after every change.
func NewLiveTracker(onChange func(models.LiveState)) *LiveTracker {
	return &LiveTracker{
		calls:    make(map[string]models.LiveCall),
		state:    models.LiveState{State: models.CallStateIdle, Active: []models.LiveCall{}},
		onChange: onChange,
	}
}

// Apply folds one event into the projection.
func (t *LiveTracker) Apply(ev Event) {
	t.mu.Lock()
	id := ev.ConnectionID
	call, known := t.calls[id]

	switch ev.Kind {
	case EventRing:
		t.calls[id] = models.LiveCall{ConnectionID: id, State: models.CallStateRinging, Number: ev.Number, Extension: ev.Extension, Device: ev.Device, Since: ev.At}
	case EventCall:
		t.calls[id] = models.LiveCall{ConnectionID: id, State: models.CallStateDialing, Number: ev.Number, Extension: ev.Extension, Device: ev.Device, Since: ev.At}
	case EventConnect:
		if !known {
			call = models.LiveCall{ConnectionID: id}
		}
		call.State = models.CallStateTalking
		call.Since = ev.At
		if ev.Number != "" {
			call.Number = ev.Number
		}
		if ev.Extension != "" {
			call.Device = ev.Extension
		}
		t.calls[id] = call
	case EventDisconnect:
		if !known {
			t.mu.Unlock()
			return
		}
		delete(t.calls, id)
	default:
		t.mu.Unlock()
		return
	}

	t.state = t.buildLocked(ev.At)
	state := t.copyLocked()
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(state)
	}
}

// Reset drops all active connections, for example after the monitor
// connection was lost and DISCONNECT lines may have been missed.
func (t *LiveTracker) Reset(now time.Time) {
	t.mu.Lock()
	if len(t.calls) == 0 {
		t.mu.Unlock()
		return
	}
	t.calls = make(map[string]models.LiveCall)
	t.state = t.buildLocked(now)
	state := t.copyLocked()
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(state)
	}
}

// State returns a copy of the current projection.
func (t *LiveTracker) State() models.LiveState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

func (t *LiveTracker) buildLocked(now time.Time) models.LiveState {
	active := make([]models.LiveCall, 0, len(t.calls))
	agg := models.CallStateIdle
	for _, c := range t.calls {
		active = append(active, c)
		if c.State.MoreActive(agg) {
			agg = c.State
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].Since.Equal(active[j].Since) {
			return active[i].Since.Before(active[j].Since)
		}
		return active[i].ConnectionID < active[j].ConnectionID
	})
	return models.LiveState{State: agg, Active: active, UpdatedAt: now}
}

func (t *LiveTracker) copyLocked() models.LiveState {
	s := t.state
	s.Active = append([]models.LiveCall(nil), t.state.Active...)
	if s.Active == nil {
		s.Active = []models.LiveCall{}
	}
	return s
}

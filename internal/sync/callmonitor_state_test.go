// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"testing"
	"time"

	"github.com/tomtom215/fritzcall/internal/models"
)

func TestLiveTracker_CallLifecycle(t *testing.T) {
	t.Parallel()

	var changes []models.LiveState
	tr := NewLiveTracker(func(s models.LiveState) { changes = append(changes, s) })

	if s := tr.State(); s.State != models.CallStateIdle || len(s.Active) != 0 {
		t.Fatalf("initial state = %+v, want idle with no active calls", s)
	}

	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tr.Apply(Event{Kind: EventRing, At: t0, ConnectionID: "0", Number: "0170", Extension: "555", Device: "SIP0"})
	if s := tr.State(); s.State != models.CallStateRinging {
		t.Errorf("after RING state = %s, want ringing", s.State)
	}

	tr.Apply(Event{Kind: EventConnect, At: t0.Add(5 * time.Second), ConnectionID: "0", Extension: "10", Number: "0170"})
	s := tr.State()
	if s.State != models.CallStateTalking {
		t.Errorf("after CONNECT state = %s, want talking", s.State)
	}
	if len(s.Active) != 1 || s.Active[0].Device != "10" || s.Active[0].Number != "0170" {
		t.Errorf("after CONNECT active = %+v", s.Active)
	}

	tr.Apply(Event{Kind: EventDisconnect, At: t0.Add(time.Minute), ConnectionID: "0", Duration: 55})
	if s := tr.State(); s.State != models.CallStateIdle || len(s.Active) != 0 {
		t.Errorf("after DISCONNECT state = %+v, want idle", s)
	}

	if len(changes) != 3 {
		t.Errorf("onChange called %d times, want 3", len(changes))
	}
}

func TestLiveTracker_AggregateIsMostActive(t *testing.T) {
	t.Parallel()

	tr := NewLiveTracker(nil)
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	tr.Apply(Event{Kind: EventCall, At: t0, ConnectionID: "1", Number: "0891"})
	tr.Apply(Event{Kind: EventRing, At: t0.Add(time.Second), ConnectionID: "2", Number: "0170"})

	s := tr.State()
	if s.State != models.CallStateRinging {
		t.Errorf("state = %s, want ringing to outrank dialing", s.State)
	}
	if len(s.Active) != 2 || s.Active[0].ConnectionID != "1" || s.Active[1].ConnectionID != "2" {
		t.Errorf("active = %+v, want ordered by Since", s.Active)
	}

	tr.Apply(Event{Kind: EventConnect, At: t0.Add(2 * time.Second), ConnectionID: "1"})
	if s := tr.State(); s.State != models.CallStateTalking {
		t.Errorf("state = %s, want talking", s.State)
	}
}

func TestLiveTracker_UnknownDisconnectIsIgnored(t *testing.T) {
	t.Parallel()

	calls := 0
	tr := NewLiveTracker(func(models.LiveState) { calls++ })
	tr.Apply(Event{Kind: EventDisconnect, At: time.Now(), ConnectionID: "9"})

	if calls != 0 {
		t.Errorf("onChange called %d times for an unknown connection", calls)
	}
}

func TestLiveTracker_Reset(t *testing.T) {
	t.Parallel()

	calls := 0
	tr := NewLiveTracker(func(models.LiveState) { calls++ })
	tr.Reset(time.Now())
	if calls != 0 {
		t.Errorf("Reset on an idle tracker notified %d times", calls)
	}

	tr.Apply(Event{Kind: EventRing, At: time.Now(), ConnectionID: "0"})
	tr.Reset(time.Now())
	if s := tr.State(); s.State != models.CallStateIdle || len(s.Active) != 0 {
		t.Errorf("after Reset state = %+v, want idle", s)
	}
	if calls != 2 {
		t.Errorf("onChange called %d times, want 2", calls)
	}
}

func TestLiveTracker_StateIsACopy(t *testing.T) {
	t.Parallel()

	tr := NewLiveTracker(nil)
	tr.Apply(Event{Kind: EventRing, At: time.Now(), ConnectionID: "0", Number: "0170"})

	s := tr.State()
	s.Active[0].Number = "mutated"

	if got := tr.State().Active[0].Number; got != "0170" {
		t.Errorf("tracker state was mutated through a copy: %q", got)
	}
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestCallRecordKeyIgnoresDuration(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	live := CallRecord{Direction: DirectionIncoming, Number: "01701234567", OccurredAt: at, Source: SourceLive}
	hist := CallRecord{Direction: DirectionIncoming, Number: "01701234567", Duration: 42, OccurredAt: at, Source: SourceHistory}

	if live.Key() != hist.Key() {
		t.Errorf("expected equal keys, got %+v and %+v", live.Key(), hist.Key())
	}

	other := hist
	other.Direction = DirectionMissed
	if other.Key() == hist.Key() {
		t.Error("expected direction to be part of the key")
	}
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		want  Direction
		valid bool
	}{
		{"incoming", DirectionIncoming, true},
		{" Missed ", DirectionMissed, true},
		{"OUTGOING", DirectionOutgoing, true},
		{"unknown", DirectionUnknown, true},
		{"voicemail", Direction("voicemail"), false},
		{"", Direction(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseDirection(tt.in)
			if got != tt.want || ok != tt.valid {
				t.Errorf("ParseDirection(%q) = (%q, %v), expected (%q, %v)", tt.in, got, ok, tt.want, tt.valid)
			}
		})
	}
}

func TestNormalized(t *testing.T) {
	t.Parallel()

	c := CallRecord{Direction: "sideways", Duration: -5}.Normalized()
	if c.Direction != DirectionUnknown {
		t.Errorf("expected unknown direction, got %q", c.Direction)
	}
	if c.Duration != 0 {
		t.Errorf("expected duration clamped to 0, got %d", c.Duration)
	}
}

func TestCallRecordDisplayProjections(t *testing.T) {
	t.Parallel()

	c := CallRecord{
		Direction:  DirectionOutgoing,
		Number:     "0301234",
		Duration:   75,
		OccurredAt: time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC),
	}
	if c.Weekday() != "Monday" {
		t.Errorf("expected Monday, got %s", c.Weekday())
	}
	if c.Date() != "01.01.2024" {
		t.Errorf("expected 01.01.2024, got %s", c.Date())
	}
	if c.Clock() != "10:05" {
		t.Errorf("expected 10:05, got %s", c.Clock())
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"direction":"outgoing"`, `"duration_seconds":75`, `"weekday":"Monday"`, `"date":"01.01.2024"`, `"time":"10:05"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestSnapshotCountsAndFilter(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Snapshot{
		Calls: []CallRecord{
			{Direction: DirectionIncoming, OccurredAt: base},
			{Direction: DirectionMissed, OccurredAt: base.Add(time.Hour)},
			{Direction: DirectionIncoming, OccurredAt: base.Add(2 * time.Hour)},
			{Direction: DirectionUnknown, OccurredAt: base.Add(3 * time.Hour)},
		},
		Voicemails: []VoicemailRecord{{ReceivedAt: base}},
	}

	counts := s.Counts()
	want := CallCounts{Incoming: 2, Missed: 1, Unknown: 1, Voicemails: 1}
	if counts != want {
		t.Errorf("expected %+v, got %+v", want, counts)
	}

	incoming := s.CallsByDirection(DirectionIncoming)
	if len(incoming) != 2 || !incoming[0].OccurredAt.Before(incoming[1].OccurredAt) {
		t.Errorf("expected two incoming calls oldest first, got %+v", incoming)
	}
	if got := s.CallsByDirection(DirectionOutgoing); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := []CallRecord{
		{Number: "a", OccurredAt: base},
		{Number: "b", OccurredAt: base.Add(time.Minute)},
		{Number: "c", OccurredAt: base.Add(2 * time.Minute)},
	}

	got := Latest(calls, 2)
	if len(got) != 2 || got[0].Number != "c" || got[1].Number != "b" {
		t.Errorf("expected [c b], got %+v", got)
	}
	if len(Latest(calls, 0)) != 3 {
		t.Error("expected all calls for n=0")
	}
}

func TestCallStateMoreActive(t *testing.T) {
	t.Parallel()

	if !CallStateTalking.MoreActive(CallStateRinging) {
		t.Error("expected talking to outrank ringing")
	}
	if CallStateIdle.MoreActive(CallStateDialing) {
		t.Error("expected idle not to outrank dialing")
	}
}

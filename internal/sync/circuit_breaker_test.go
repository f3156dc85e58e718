// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fritzcall/internal/metrics"
	"github.com/tomtom215/fritzcall/internal/tr064"
)

func TestBreakerCaller_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	caller := newFakeCaller()
	boom := errors.New("no route to host")
	caller.fail("svc", tr064.ActionGetCallList, boom)

	b := NewBreakerCaller("test-open", caller, BreakerSettings{})
	if b.State() != "closed" {
		t.Fatalf("initial State() = %s, want closed", b.State())
	}

	for i := 0; i < 10; i++ {
		var list tr064.CallList
		if err := b.CallAction(context.Background(), "svc", tr064.ActionGetCallList, &list); !errors.Is(err, boom) {
			t.Fatalf("call %d error = %v, want the transport error", i, err)
		}
	}

	if b.State() != "open" {
		t.Fatalf("State() = %s, want open after 10 failures", b.State())
	}

	var list tr064.CallList
	err := b.CallAction(context.Background(), "svc", tr064.ActionGetCallList, &list)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want ErrOpenState", err)
	}
	if got := len(caller.calledWith()); got != 10 {
		t.Errorf("underlying caller invoked %d times, want 10", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("test-open", "rejected")); got != 1 {
		t.Errorf("rejected requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-open")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}
}

func TestBreakerCaller_FaultsDoNotTrip(t *testing.T) {
	t.Parallel()

	// No list configured: every call is a SOAP fault.
	caller := newFakeCaller()
	b := NewBreakerCaller("test-faults", caller, BreakerSettings{MinRequests: 2})

	for i := 0; i < 20; i++ {
		var list tr064.CallList
		err := b.CallAction(context.Background(), "X_AVM-DE_OnTel:2", tr064.ActionGetCallList, &list)
		if !tr064.IsFault(err) {
			t.Fatalf("call %d error = %v, want a fault", i, err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("State() = %s, want closed: faults are answers, not outages", b.State())
	}
}

func TestBreakerCaller_PassesResultThrough(t *testing.T) {
	t.Parallel()

	caller := newFakeCaller()
	caller.calls["svc"] = tr064.CallList{Calls: []tr064.Call{{ID: "1"}}}
	b := NewBreakerCaller("test-pass", caller, BreakerSettings{})

	var list tr064.CallList
	if err := b.CallAction(context.Background(), "svc", tr064.ActionGetCallList, &list); err != nil {
		t.Fatalf("CallAction() error = %v", err)
	}
	if len(list.Calls) != 1 || list.Calls[0].ID != "1" {
		t.Errorf("list = %+v", list)
	}
}

func TestStateConversions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state gobreaker.State
		str   string
		num   float64
	}{
		{gobreaker.StateClosed, "closed", 0},
		{gobreaker.StateHalfOpen, "half-open", 1},
		{gobreaker.StateOpen, "open", 2},
		{gobreaker.State(42), "unknown", -1},
	}
	for _, tt := range tests {
		if got := stateToString(tt.state); got != tt.str {
			t.Errorf("stateToString(%v) = %q, want %q", tt.state, got, tt.str)
		}
		if got := stateToFloat(tt.state); got != tt.num {
			t.Errorf("stateToFloat(%v) = %v, want %v", tt.state, got, tt.num)
		}
	}
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPollCycle(t *testing.T) {
	t.Parallel()

	device := "metrics-test-poll"
	RecordPollCycle(device, 250*time.Millisecond, nil)
	RecordPollCycle(device, time.Second, errors.New("GetCallList failed"))
	RecordPollCycle(device, time.Second, errors.New("GetMessageList failed"))

	if got := testutil.ToFloat64(PollCycles.WithLabelValues(device, "success")); got != 1 {
		t.Errorf("expected 1 successful cycle, got %v", got)
	}
	if got := testutil.ToFloat64(PollCycles.WithLabelValues(device, "failure")); got != 2 {
		t.Errorf("expected 2 failed cycles, got %v", got)
	}
	if got := testutil.ToFloat64(PollLastSuccess.WithLabelValues(device)); got <= 0 {
		t.Errorf("expected last success timestamp to be set, got %v", got)
	}
}

func TestRecordStoreSize(t *testing.T) {
	t.Parallel()

	device := "metrics-test-store"
	RecordStoreSize(device, 12, 3)

	if got := testutil.ToFloat64(StoreCalls.WithLabelValues(device)); got != 12 {
		t.Errorf("expected 12 calls, got %v", got)
	}
	if got := testutil.ToFloat64(StoreVoicemails.WithLabelValues(device)); got != 3 {
		t.Errorf("expected 3 voicemails, got %v", got)
	}
}

func TestRecordInsert(t *testing.T) {
	t.Parallel()

	device := "metrics-test-insert"
	RecordInsert(device, "live", "added", 2)
	RecordInsert(device, "live", "added", 0)
	RecordInsert(device, "history", "replaced", 1)

	if got := testutil.ToFloat64(StoreInserts.WithLabelValues(device, "live", "added")); got != 2 {
		t.Errorf("expected 2 live adds, got %v", got)
	}
	if got := testutil.ToFloat64(StoreInserts.WithLabelValues(device, "history", "replaced")); got != 1 {
		t.Errorf("expected 1 history replacement, got %v", got)
	}
}

func TestRecordTR064Request(t *testing.T) {
	t.Parallel()

	RecordTR064Request("metrics-test-action", 10*time.Millisecond, nil)
	RecordTR064Request("metrics-test-action", 10*time.Millisecond, errors.New("fault"))

	if n := testutil.CollectAndCount(TR064RequestDuration, "tr064_request_duration_seconds"); n < 2 {
		t.Errorf("expected at least 2 series, got %d", n)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	t.Parallel()

	RecordAPIRequest("GET", "/metrics-test", "200", 5*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/metrics-test", "200")); got != 1 {
		t.Errorf("expected 1 request, got %v", got)
	}
}

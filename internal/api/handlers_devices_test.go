// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/tr064"
)

type callView struct {
	Direction string `json:"direction"`
	Number    string `json:"number"`
}

func TestListDevices(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	seedCalls(t, env.home)

	rec := env.do(t, http.MethodGet, "/api/v1/devices")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var data DevicesResponse
	decodeData(t, decodeEnvelope(t, rec), &data)

	if len(data.Devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(data.Devices))
	}
	if data.Devices[0].ID != "home" || data.Devices[1].ID != "office" {
		t.Errorf("order = %s, %s; want registration order", data.Devices[0].ID, data.Devices[1].ID)
	}
	if data.Devices[0].Name != "Home Box" {
		t.Errorf("name = %q", data.Devices[0].Name)
	}
	if data.Devices[1].Name != "office" {
		t.Errorf("name should default to id, got %q", data.Devices[1].Name)
	}
	want := models.CallCounts{Incoming: 2, Outgoing: 1, Missed: 1}
	if data.Devices[0].Counts != want {
		t.Errorf("counts = %+v, want %+v", data.Devices[0].Counts, want)
	}
}

func TestDeviceSnapshot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	seedCalls(t, env.home)

	rec := env.do(t, http.MethodGet, "/api/v1/devices/home/snapshot")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	e := decodeEnvelope(t, rec)
	if e.Metadata.Device != "home" {
		t.Errorf("metadata.device = %q", e.Metadata.Device)
	}
	if e.Metadata.Version == 0 {
		t.Error("metadata.version should be set after inserts")
	}

	var snap struct {
		Calls []callView `json:"calls"`
	}
	decodeData(t, e, &snap)
	if len(snap.Calls) != 4 {
		t.Fatalf("got %d calls, want 4", len(snap.Calls))
	}
	if snap.Calls[0].Number != "0301111" {
		t.Errorf("snapshot should be oldest first, got %s", snap.Calls[0].Number)
	}
}

func TestDeviceCalls(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	seedCalls(t, env.home)

	tests := []struct {
		name        string
		query       string
		wantNumbers []string
		wantTotal   int
	}{
		{name: "all newest first", query: "", wantNumbers: []string{"0304444", "0303333", "0302222", "0301111"}, wantTotal: 4},
		{name: "limit", query: "?limit=2", wantNumbers: []string{"0304444", "0303333"}, wantTotal: 4},
		{name: "incoming", query: "?type=incoming", wantNumbers: []string{"0304444", "0301111"}, wantTotal: 2},
		{name: "type is case insensitive", query: "?type=Missed", wantNumbers: []string{"0303333"}, wantTotal: 1},
		{name: "incoming limited", query: "?type=incoming&limit=1", wantNumbers: []string{"0304444"}, wantTotal: 2},
		{name: "no unknown calls", query: "?type=unknown", wantNumbers: []string{}, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := env.do(t, http.MethodGet, "/api/v1/devices/home/calls"+tt.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}

			var data struct {
				Calls []callView `json:"calls"`
				Total int        `json:"total"`
			}
			decodeData(t, decodeEnvelope(t, rec), &data)

			if data.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", data.Total, tt.wantTotal)
			}
			if len(data.Calls) != len(tt.wantNumbers) {
				t.Fatalf("got %d calls, want %d", len(data.Calls), len(tt.wantNumbers))
			}
			for i, n := range tt.wantNumbers {
				if data.Calls[i].Number != n {
					t.Errorf("calls[%d] = %s, want %s", i, data.Calls[i].Number, n)
				}
			}
		})
	}
}

func TestDeviceCalls_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	tests := []struct {
		name  string
		query string
	}{
		{name: "bad direction", query: "?type=sideways"},
		{name: "negative limit", query: "?limit=-1"},
		{name: "limit too large", query: "?limit=5001"},
		{name: "limit not a number", query: "?limit=ten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := env.do(t, http.MethodGet, "/api/v1/devices/home/calls"+tt.query)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			e := decodeEnvelope(t, rec)
			if e.Error == nil || e.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("error = %+v, want VALIDATION_ERROR", e.Error)
			}
		})
	}
}

func TestDeviceEndpoints_UnknownDevice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	for _, path := range []string{"snapshot", "calls", "voicemails", "live"} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			rec := env.do(t, http.MethodGet, "/api/v1/devices/attic/"+path)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
			if e := decodeEnvelope(t, rec); e.Error == nil || e.Error.Code != "NOT_FOUND" {
				t.Errorf("error = %+v", e.Error)
			}
		})
	}
}

func TestDeviceVoicemails_NewestFirst(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	now := time.Now().Truncate(time.Second)
	env.home.Store.SyncVoicemails([]models.VoicemailRecord{
		{ReceivedAt: now.Add(-2 * time.Hour), MediaURL: "/download.lua?path=/data/tam/rec/rec.0.000"},
		{ReceivedAt: now.Add(-time.Hour), MediaURL: "/download.lua?path=/data/tam/rec/rec.0.001"},
	})

	rec := env.do(t, http.MethodGet, "/api/v1/devices/home/voicemails")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var data VoicemailsResponse
	decodeData(t, decodeEnvelope(t, rec), &data)
	if data.Total != 2 || len(data.Voicemails) != 2 {
		t.Fatalf("got %+v", data)
	}
	if !data.Voicemails[0].ReceivedAt.After(data.Voicemails[1].ReceivedAt) {
		t.Error("voicemails should be newest first")
	}
}

func TestDeviceLive_Idle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/devices/office/live")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var state models.LiveState
	decodeData(t, decodeEnvelope(t, rec), &state)
	if state.State != models.CallStateIdle {
		t.Errorf("state = %q, want idle", state.State)
	}
	if len(state.Active) != 0 {
		t.Errorf("active = %v, want none", state.Active)
	}
}

func TestRefreshDevice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	at := time.Now().Add(-30 * time.Minute)
	env.caller.calls = tr064.CallList{Calls: []tr064.Call{
		{Type: "2", Caller: "0305555", Time: unixString(at), Duration: "0:02"},
		{Type: "3", Called: "0306666", Time: unixString(at.Add(time.Minute)), Duration: "15"},
		{Type: "1", Caller: "0307777", Time: "garbage"},
	}}
	env.caller.messages = tr064.MessageList{Messages: []tr064.Message{
		{Timestamp: unixString(at), MessageURL: "/download.lua?path=/data/tam/rec/rec.0.002"},
	}}

	rec := env.do(t, http.MethodPost, "/api/v1/devices/home/refresh")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var data RefreshResponse
	decodeData(t, decodeEnvelope(t, rec), &data)

	if data.CallsFetched != 3 || data.CallsSkipped != 1 || data.Added != 2 {
		t.Errorf("refresh = %+v", data)
	}
	if data.VoicemailsAdded != 1 {
		t.Errorf("voicemails added = %d, want 1", data.VoicemailsAdded)
	}
	if data.CallService == "" {
		t.Error("call service should be reported")
	}

	calls, vms := env.home.Store.Len()
	if calls != 2 || vms != 1 {
		t.Errorf("store = %d calls, %d voicemails", calls, vms)
	}
}

func TestRefreshDevice_Failure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.caller.err = errors.New("connection refused")

	rec := env.do(t, http.MethodPost, "/api/v1/devices/home/refresh")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	e := decodeEnvelope(t, rec)
	if e.Error == nil || e.Error.Code != "SERVICE_ERROR" {
		t.Errorf("error = %+v", e.Error)
	}

	var data RefreshResponse
	decodeData(t, e, &data)
	if data.Error == "" {
		t.Error("refresh body should carry the cycle error")
	}
}

func TestRefreshDevice_MonitorOnly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/devices/office/refresh")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if e := decodeEnvelope(t, rec); e.Error == nil || e.Error.Code != "NOT_CONFIGURED" {
		t.Errorf("error = %+v", e.Error)
	}
}

func TestRefreshDevice_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/devices/home/refresh")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestDeviceSnapshot_ConditionalGet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	seedCalls(t, env.home)

	first := env.do(t, http.MethodGet, "/api/v1/devices/home/snapshot")
	etag := first.Header().Get("ETag")
	if first.Code != http.StatusOK || etag == "" {
		t.Fatalf("status = %d, etag %q", first.Code, etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/home/snapshot", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("unchanged snapshot: status = %d, want 304", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("304 body = %q, want empty", rec.Body.String())
	}

	env.home.Store.AddCall(models.CallRecord{
		Direction:  models.DirectionOutgoing,
		Number:     "0309999",
		OccurredAt: time.Now().Add(-time.Minute).Truncate(time.Second),
		Source:     models.SourceLive,
	})

	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("changed snapshot: status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("ETag") == etag {
		t.Error("ETag should change with the store version")
	}
}

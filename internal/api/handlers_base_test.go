// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	stdsync "sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/sync"
	"github.com/tomtom215/fritzcall/internal/tr064"
)

// stubCaller answers GetCallList and GetMessageList with fixed lists.
type stubCaller struct {
	mu       stdsync.Mutex
	calls    tr064.CallList
	messages tr064.MessageList
	err      error
	count    int
}

func (s *stubCaller) CallAction(_ context.Context, service, action string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if s.err != nil {
		return s.err
	}
	switch v := out.(type) {
	case *tr064.CallList:
		*v = s.calls
	case *tr064.MessageList:
		*v = s.messages
	default:
		return errors.New("unexpected out type")
	}
	return nil
}

// testEnv is a manager with two devices: "home" has a TR-064 caller,
// "office" runs monitor-only.
type testEnv struct {
	manager *sync.Manager
	home    *sync.Device
	office  *sync.Device
	caller  *stubCaller
	handler *Handler
	server  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	m := sync.NewManager(nil)
	caller := &stubCaller{}

	home, err := m.AddDevice(sync.DeviceConfig{
		ID:               "home",
		Name:             "Home Box",
		Host:             "192.0.2.1",
		VoicemailEnabled: true,
	}, nil, caller)
	if err != nil {
		t.Fatalf("AddDevice(home): %v", err)
	}
	office, err := m.AddDevice(sync.DeviceConfig{ID: "office", Host: "192.0.2.2"}, nil, nil)
	if err != nil {
		t.Fatalf("AddDevice(office): %v", err)
	}
	t.Cleanup(m.Close)

	h := NewHandler(m, nil, Config{AllowedOrigins: []string{"https://dash.example"}})
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})

	return &testEnv{
		manager: m,
		home:    home,
		office:  office,
		caller:  caller,
		handler: h,
		server:  NewRouter(h, mw).SetupChi(),
	}
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// seedCalls adds one call per direction to d, an hour apart, the most
// recent one ending an hour ago.
func seedCalls(t *testing.T, d *sync.Device) []models.CallRecord {
	t.Helper()

	base := time.Now().Add(-5 * time.Hour).Truncate(time.Second)
	calls := []models.CallRecord{
		{Direction: models.DirectionIncoming, Number: "0301111", OccurredAt: base, Duration: 60, Source: models.SourceHistory},
		{Direction: models.DirectionOutgoing, Number: "0302222", OccurredAt: base.Add(time.Hour), Duration: 120, Source: models.SourceHistory},
		{Direction: models.DirectionMissed, Number: "0303333", OccurredAt: base.Add(2 * time.Hour), Source: models.SourceLive},
		{Direction: models.DirectionIncoming, Number: "0304444", OccurredAt: base.Add(3 * time.Hour), Duration: 30, Source: models.SourceLive},
	}
	if res := d.Store.AddCalls(calls); res.Added != len(calls) {
		t.Fatalf("seeded %d calls, want %d", res.Added, len(calls))
	}
	return calls
}

// envelope mirrors models.APIResponse with a raw data field.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %q: %v", string(env.Data), err)
	}
}

func unixString(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

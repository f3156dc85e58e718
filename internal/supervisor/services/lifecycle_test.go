// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*WebSocketHubService)(nil)
	_ suture.Service = (*NATSComponentsService)(nil)
	_ suture.Service = (*DeviceService)(nil)
)

// fakeHTTPServer blocks in ListenAndServe until Shutdown, unless listenErr
// is set.
type fakeHTTPServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stop        chan struct{}
	shutdowns   atomic.Int32
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	close(f.stop)
	return f.shutdownErr
}

func serveAndCancel(t *testing.T, svc suture.Service, started <-chan struct{}) error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("service did not start")
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	return nil
}

func TestHTTPServerService(t *testing.T) {
	t.Parallel()

	t.Run("graceful shutdown", func(t *testing.T) {
		t.Parallel()
		server := newFakeHTTPServer()
		err := serveAndCancel(t, NewHTTPServerService(server, time.Second), server.started)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if server.shutdowns.Load() != 1 {
			t.Errorf("shutdowns = %d, want 1", server.shutdowns.Load())
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		t.Parallel()
		server := newFakeHTTPServer()
		server.listenErr = errors.New("bind: address already in use")
		err := NewHTTPServerService(server, time.Second).Serve(context.Background())
		if !errors.Is(err, server.listenErr) {
			t.Errorf("err = %v, want wrapped listen error", err)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		t.Parallel()
		server := newFakeHTTPServer()
		server.shutdownErr = errors.New("shutdown timeout")
		err := serveAndCancel(t, NewHTTPServerService(server, time.Second), server.started)
		if !errors.Is(err, server.shutdownErr) {
			t.Errorf("err = %v, want shutdown error", err)
		}
	})

	t.Run("default timeout", func(t *testing.T) {
		t.Parallel()
		if got := NewHTTPServerService(newFakeHTTPServer(), -time.Second).shutdownTimeout; got != 10*time.Second {
			t.Errorf("shutdownTimeout = %v", got)
		}
	})
}

type fakeHub struct {
	runErr error
	runs   atomic.Int32
}

func (f *fakeHub) RunWithContext(ctx context.Context) error {
	f.runs.Add(1)
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubService(t *testing.T) {
	t.Parallel()

	hub := &fakeHub{}
	svc := NewWebSocketHubService(hub)
	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}

	failing := &fakeHub{runErr: errors.New("hub broke")}
	if err := NewWebSocketHubService(failing).Serve(context.Background()); !errors.Is(err, failing.runErr) {
		t.Errorf("err = %v, want hub error", err)
	}
}

type fakeNATSComponents struct {
	startErr error
	started  chan struct{}
	running  atomic.Bool
}

func (f *fakeNATSComponents) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.running.Store(true)
	f.started <- struct{}{}
	return nil
}

func (f *fakeNATSComponents) Shutdown(context.Context) { f.running.Store(false) }

func (f *fakeNATSComponents) IsRunning() bool { return f.running.Load() }

func TestNATSComponentsService(t *testing.T) {
	t.Parallel()

	t.Run("start then shutdown", func(t *testing.T) {
		t.Parallel()
		comps := &fakeNATSComponents{started: make(chan struct{}, 1)}
		err := serveAndCancel(t, NewNATSComponentsService(comps), comps.started)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
		if comps.IsRunning() {
			t.Error("components still running after shutdown")
		}
	})

	t.Run("start failure is returned", func(t *testing.T) {
		t.Parallel()
		comps := &fakeNATSComponents{startErr: errors.New("nats: no servers available")}
		err := NewNATSComponentsServiceWithTimeout(comps, 0).Serve(context.Background())
		if !errors.Is(err, comps.startErr) {
			t.Errorf("err = %v, want start error", err)
		}
	})
}

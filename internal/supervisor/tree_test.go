// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingService fails failFirst times, then blocks until canceled.
type countingService struct {
	name      string
	failFirst int32
	runs      atomic.Int32
}

func (s *countingService) Serve(ctx context.Context) error {
	if s.runs.Add(1) <= s.failFirst {
		return errors.New("transient failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return s.name }

func TestNewSupervisorTree_Defaults(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor is nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want %+v", tree.config, DefaultTreeConfig())
	}

	custom, _ := NewSupervisorTree(quietLogger(), TreeConfig{FailureThreshold: 2, FailureBackoff: time.Second})
	if custom.config.FailureThreshold != 2 || custom.config.FailureBackoff != time.Second {
		t.Errorf("explicit values overwritten: %+v", custom.config)
	}
	if custom.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want default", custom.config.ShutdownTimeout)
	}
}

func TestSupervisorTree_RunsEveryLayer(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureBackoff:  10 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	ingest := &countingService{name: "ingest"}
	messaging := &countingService{name: "messaging"}
	api := &countingService{name: "api"}
	tree.AddIngestService(ingest)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}

	for _, s := range []*countingService{ingest, messaging, api} {
		if s.runs.Load() != 1 {
			t.Errorf("%s ran %d times, want 1", s.name, s.runs.Load())
		}
	}
	if report, err := tree.UnstoppedServiceReport(); err != nil || len(report) != 0 {
		t.Errorf("unstopped = %v, err = %v", report, err)
	}
}

func TestSupervisorTree_RestartsFailingService(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	flaky := &countingService{name: "flaky", failFirst: 2}
	steady := &countingService{name: "steady"}
	tree.AddIngestService(flaky)
	tree.AddAPIService(steady)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	<-tree.ServeBackground(ctx)

	if got := flaky.runs.Load(); got < 3 {
		t.Errorf("flaky ran %d times, want >= 3", got)
	}
	if got := steady.runs.Load(); got != 1 {
		t.Errorf("a failure in the ingest layer restarted the api layer: %d runs", got)
	}
}

func TestSupervisorTree_RemoveIngestService(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	svc := &countingService{name: "removable"}
	token := tree.AddIngestService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(time.Second)
	for svc.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := tree.RemoveIngestService(token); err != nil {
		t.Fatalf("RemoveIngestService: %v", err)
	}

	cancel()
	<-errCh
	if svc.runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", svc.runs.Load())
	}
}

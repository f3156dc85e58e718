// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/fritzcall/internal/logging"
)

const defaultShutdownTimeout = 10 * time.Second

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService serves the REST API, websocket endpoint and /metrics.
//
//	srv := &http.Server{Addr: ":8780", Handler: router}
//	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
type HTTPServerService struct {
	server  HTTPServer
	timeout time.Duration
}

// NewHTTPServerService creates the service. A non-positive timeout means 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	return &HTTPServerService{server: server, timeout: orDefault(shutdownTimeout)}
}

// Serve implements suture.Service. A listener failure is returned so the
// supervisor retries; cancellation drains open requests first.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		err := h.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	if err := stopWithin(h.timeout, h.server.Shutdown); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	<-done
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (h *HTTPServerService) String() string { return "http-server" }

// stopWithin runs stop under a fresh deadline. The serve context is already
// canceled by the time it is called.
func stopWithin(timeout time.Duration, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := stop(ctx)
	logging.Debug().Dur("took", time.Since(start)).Err(err).Msg("Service stopped")
	return err
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultShutdownTimeout
	}
	return d
}

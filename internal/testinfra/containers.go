// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

//go:build integration

package testinfra

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// dockerHealthy asks the testcontainers provider once per test binary.
var dockerHealthy = sync.OnceValue(func() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close() //nolint:errcheck
	return provider.Health(ctx) == nil
})

// IsDockerAvailable reports whether a Docker daemon answers.
func IsDockerAvailable() bool {
	return dockerHealthy()
}

// SkipIfNoDocker skips the test when no Docker daemon answers, so the
// integration suite degrades to a no-op on machines without one.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	if !IsDockerAvailable() {
		t.Skip("Docker not available")
	}
}

// CleanupContainer terminates container, logging rather than failing on
// errors. A nil container is ignored.
func CleanupContainer(t *testing.T, container testcontainers.Container) {
	t.Helper()
	if err := testcontainers.TerminateContainer(container, testcontainers.StopTimeout(10*time.Second)); err != nil {
		t.Logf("terminate container: %v", err)
	}
}

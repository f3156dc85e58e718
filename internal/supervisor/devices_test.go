// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/fritzcall/internal/sync"
	"github.com/tomtom215/fritzcall/internal/tr064"
)

type refusingDialer struct {
	dials atomic.Int32
}

func (d *refusingDialer) Dial(context.Context, string) (sync.LineConn, error) {
	d.dials.Add(1)
	return nil, errors.New("connection refused")
}

type idleCaller struct{}

func (idleCaller) CallAction(_ context.Context, _, _ string, out any) error {
	switch v := out.(type) {
	case *tr064.CallList:
		*v = tr064.CallList{}
	case *tr064.MessageList:
		*v = tr064.MessageList{}
	}
	return nil
}

func TestAddDevice_Tokens(t *testing.T) {
	t.Parallel()

	m := sync.NewManager(nil)
	t.Cleanup(m.Close)

	withPoller, err := m.AddDevice(sync.DeviceConfig{ID: "home", Host: "192.0.2.1"}, &refusingDialer{}, idleCaller{})
	if err != nil {
		t.Fatal(err)
	}
	monitorOnly, err := m.AddDevice(sync.DeviceConfig{ID: "office", Host: "192.0.2.2"}, &refusingDialer{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	home := tree.AddDevice(withPoller)
	if len(home.Names) != 3 || home.Names[2] != "history-poller/home" {
		t.Errorf("device with poller: services %v", home.Names)
	}
	office := tree.AddDevice(monitorOnly)
	if len(office.Names) != 3 || office.Names[0] != "monitor-reader/office" || office.Names[2] != "retention-sweeper/office" {
		t.Errorf("monitor-only device: services %v", office.Names)
	}

	if err := tree.RemoveDevice("attic"); err == nil {
		t.Error("RemoveDevice of an unknown device should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	defer func() {
		cancel()
		<-errCh
	}()

	if err := tree.RemoveDevice("office"); err != nil {
		t.Errorf("RemoveDevice(office): %v", err)
	}
	if err := tree.RemoveDevice("office"); err == nil {
		t.Error("second RemoveDevice should fail")
	}
}

func TestAddDevices_ExhaustedReaderStaysDown(t *testing.T) {
	t.Parallel()

	m := sync.NewManager(nil)
	t.Cleanup(m.Close)

	dialer := &refusingDialer{}
	d, err := m.AddDevice(sync.DeviceConfig{
		ID:   "home",
		Host: "192.0.2.1",
		Reconnect: sync.ReconnectPolicy{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
		},
	}, dialer, nil)
	if err != nil {
		t.Fatal(err)
	}

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureBackoff:  5 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	tree.AddDevices(m)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	<-tree.ServeBackground(ctx)

	if st := d.Reader.State(); st != sync.StateFailed {
		t.Errorf("reader state = %s, want failed", st)
	}
	// A restarted reader would start a fresh attempt budget.
	if got := dialer.dials.Load(); got > 3 {
		t.Errorf("dials = %d, reader was restarted after giving up", got)
	}
}

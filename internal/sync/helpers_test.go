// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/fritzcall/internal/tr064"
)

// fakeConn replays lines from a channel. Closing the channel ends the
// stream with io.EOF.
type fakeConn struct {
	lines  chan string
	alive  atomic.Bool
	closed atomic.Bool
}

func newFakeConn(lines ...string) *fakeConn {
	c := &fakeConn{lines: make(chan string, len(lines)+16)}
	c.alive.Store(true)
	for _, l := range lines {
		c.lines <- l
	}
	return c
}

func (c *fakeConn) ReadLine(timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-timer.C:
		return "", ErrReadTimeout
	}
}

func (c *fakeConn) Alive() bool { return c.alive.Load() && !c.closed.Load() }

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

// fakeDialer hands out scripted connections. Once the script is exhausted
// every dial fails with errDialRefused.
type fakeDialer struct {
	mu     sync.Mutex
	script []dialResult
	dials  atomic.Int32
}

type dialResult struct {
	conn LineConn
	err  error
}

var errDialRefused = errors.New("connection refused")

func (d *fakeDialer) push(conn LineConn, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, dialResult{conn: conn, err: err})
}

func (d *fakeDialer) Dial(ctx context.Context, address string) (LineConn, error) {
	d.dials.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.script) == 0 {
		return nil, errDialRefused
	}
	next := d.script[0]
	d.script = d.script[1:]
	return next.conn, next.err
}

// fakeCaller answers CallAction from per-service results.
type fakeCaller struct {
	mu sync.Mutex

	calls    map[string]tr064.CallList    // service -> result
	messages map[string]tr064.MessageList // service -> result
	errs     map[string]error             // service/action -> error
	log      []string                     // service/action in call order
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		calls:    make(map[string]tr064.CallList),
		messages: make(map[string]tr064.MessageList),
		errs:     make(map[string]error),
	}
}

func (f *fakeCaller) fail(service, action string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[service+"/"+action] = err
}

func (f *fakeCaller) CallAction(_ context.Context, service, action string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, service+"/"+action)

	if err := f.errs[service+"/"+action]; err != nil {
		return err
	}
	switch v := out.(type) {
	case *tr064.CallList:
		list, ok := f.calls[service]
		if !ok {
			return &tr064.SOAPFault{Service: service, Action: action, Code: 401, Description: "Invalid Action"}
		}
		*v = list
	case *tr064.MessageList:
		list, ok := f.messages[service]
		if !ok {
			return &tr064.SOAPFault{Service: service, Action: action, Code: 401, Description: "Invalid Action"}
		}
		*v = list
	default:
		return errors.New("unexpected out type")
	}
	return nil
}

func (f *fakeCaller) calledWith() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("time zone %s unavailable: %v", name, err)
	}
	return loc
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package testinfra

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"
)

// CallMonitorTimeLayout is the timestamp layout of call monitor lines.
const CallMonitorTimeLayout = "02.01.06 15:04:05"

// FakeCallMonitor is a TCP server speaking the Fritz!Box call monitor
// protocol: every line sent is written to every connected client.
type FakeCallMonitor struct {
	listener net.Listener

	mu      sync.Mutex
	conns   []net.Conn
	accepts int
	joined  chan struct{}

	wg sync.WaitGroup
}

// NewFakeCallMonitor listens on a random loopback port. The server is
// closed when the test ends.
func NewFakeCallMonitor(t *testing.T) *FakeCallMonitor {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	m := &FakeCallMonitor{listener: ln, joined: make(chan struct{}, 16)}

	m.wg.Add(1)
	go m.acceptLoop()
	t.Cleanup(m.Close)
	return m
}

func (m *FakeCallMonitor) acceptLoop() {
	defer m.wg.Done()
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conns = append(m.conns, conn)
		m.accepts++
		m.mu.Unlock()

		select {
		case m.joined <- struct{}{}:
		default:
		}
	}
}

// Host returns the listener's host.
func (m *FakeCallMonitor) Host() string {
	return m.listener.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listener's port.
func (m *FakeCallMonitor) Port() int {
	return m.listener.Addr().(*net.TCPAddr).Port
}

// Accepts returns how many connections were accepted so far.
func (m *FakeCallMonitor) Accepts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepts
}

// WaitForClient blocks until a new client connects or timeout passes.
func (m *FakeCallMonitor) WaitForClient(timeout time.Duration) error {
	select {
	case <-m.joined:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("no client connected within %v", timeout)
	}
}

// Send writes each line, terminated by CRLF as the device does, to every
// connected client.
func (m *FakeCallMonitor) Send(lines ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, conn := range m.conns {
		w := bufio.NewWriter(conn)
		for _, line := range lines {
			if _, err := w.WriteString(line + "\r\n"); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// DropClients closes every client connection, as a device reboot would.
func (m *FakeCallMonitor) DropClients() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conn := range m.conns {
		conn.Close() //nolint:errcheck
	}
	m.conns = nil
}

// Close stops the listener and drops all clients.
func (m *FakeCallMonitor) Close() {
	m.listener.Close() //nolint:errcheck
	m.DropClients()
	m.wg.Wait()
}

// RingLine formats an incoming call line.
func RingLine(at time.Time, conn int, caller, callee string) string {
	return fmt.Sprintf("%s;RING;%d;%s;%s;SIP0;", at.Format(CallMonitorTimeLayout), conn, caller, callee)
}

// CallLine formats an outgoing call line.
func CallLine(at time.Time, conn int, ext, local, remote string) string {
	return fmt.Sprintf("%s;CALL;%d;%s;%s;%s;SIP0;", at.Format(CallMonitorTimeLayout), conn, ext, local, remote)
}

// ConnectLine formats a pickup line.
func ConnectLine(at time.Time, conn int, ext, remote string) string {
	return fmt.Sprintf("%s;CONNECT;%d;%s;%s;", at.Format(CallMonitorTimeLayout), conn, ext, remote)
}

// DisconnectLine formats a hangup line.
func DisconnectLine(at time.Time, conn int, seconds int) string {
	return fmt.Sprintf("%s;DISCONNECT;%d;%d;", at.Format(CallMonitorTimeLayout), conn, seconds)
}

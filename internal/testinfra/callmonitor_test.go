// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package testinfra

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestFakeCallMonitor_SendsLines(t *testing.T) {
	t.Parallel()

	m := NewFakeCallMonitor(t)

	conn, err := net.Dial("tcp", net.JoinHostPort(m.Host(), strconv.Itoa(m.Port())))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := m.WaitForClient(2 * time.Second); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if err := m.Send(RingLine(at, 0, "0170", "555"), DisconnectLine(at.Add(time.Minute), 0, 0)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)
	first, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := strings.TrimRight(first, "\r\n"); got != "01.01.24 10:00:00;RING;0;0170;555;SIP0;" {
		t.Errorf("line = %q", got)
	}
	second, _ := r.ReadString('\n')
	if !strings.Contains(second, ";DISCONNECT;0;0;") {
		t.Errorf("line = %q", second)
	}
	if m.Accepts() != 1 {
		t.Errorf("accepts = %d, want 1", m.Accepts())
	}
}

func TestFakeCallMonitor_DropClients(t *testing.T) {
	t.Parallel()

	m := NewFakeCallMonitor(t)
	conn, err := net.Dial("tcp", net.JoinHostPort(m.Host(), strconv.Itoa(m.Port())))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := m.WaitForClient(2 * time.Second); err != nil {
		t.Fatal(err)
	}

	m.DropClients()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := bufio.NewReader(conn).ReadString('\n'); err == nil {
		t.Error("expected EOF after the server dropped the client")
	}
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMonitorPort is the call monitor port on AVM devices. It is enabled
// by dialing #96*5* on a connected handset.
const DefaultMonitorPort = 1012

// maxLineLength bounds the partial line buffer; the longest real line is well
// under 200 bytes.
const maxLineLength = 4096

// ErrReadTimeout is returned by LineConn.ReadLine when no complete line
// arrived within the timeout. It is a liveness checkpoint, not a failure.
var ErrReadTimeout = errors.New("callmonitor: read timeout")

// LineConn is an open call monitor connection.
type LineConn interface {
	// ReadLine returns the next line without its terminator. It waits at
	// most timeout and returns ErrReadTimeout when nothing complete arrived.
	ReadLine(timeout time.Duration) (string, error)

	// Alive reports whether the underlying connection is still usable.
	Alive() bool

	Close() error
}

// Dialer opens call monitor connections.
type Dialer interface {
	Dial(ctx context.Context, address string) (LineConn, error)
}

// TCPDialer dials the call monitor over TCP.
type TCPDialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration
}

// Dial implements Dialer.
func (d TCPDialer) Dial(ctx context.Context, address string) (LineConn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	keepAlive := d.KeepAlive
	if keepAlive == 0 {
		keepAlive = 30 * time.Second
	}

	nd := net.Dialer{Timeout: timeout, KeepAlive: keepAlive}
	conn, err := nd.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial call monitor %s: %w", address, err)
	}
	return NewLineConn(conn), nil
}

type netLineConn struct {
	conn    net.Conn
	reader  *bufio.Reader
	partial []byte
	alive   atomic.Bool
	once    sync.Once
}

// NewLineConn wraps an established net.Conn. ReadLine must not be called
// concurrently.
func NewLineConn(conn net.Conn) LineConn {
	c := &netLineConn{conn: conn, reader: bufio.NewReader(conn)}
	c.alive.Store(true)
	return c
}

func (c *netLineConn) ReadLine(timeout time.Duration) (string, error) {
	if !c.alive.Load() {
		return "", net.ErrClosed
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		c.alive.Store(false)
		return "", err
	}

	chunk, err := c.reader.ReadBytes('\n')
	c.partial = append(c.partial, chunk...)
	if len(c.partial) > maxLineLength {
		c.partial = c.partial[:0]
	}

	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			// Keep the partial line; the rest arrives with a later read.
			return "", ErrReadTimeout
		}
		c.alive.Store(false)
		return "", err
	}

	line := string(bytes.TrimRight(c.partial, "\r\n"))
	c.partial = c.partial[:0]
	return line, nil
}

func (c *netLineConn) Alive() bool {
	return c.alive.Load()
}

func (c *netLineConn) Close() error {
	var err error
	c.once.Do(func() {
		c.alive.Store(false)
		err = c.conn.Close()
	})
	return err
}

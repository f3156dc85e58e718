// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package tr064

import (
	"crypto/md5" //nolint:gosec // RFC 2617 digest authentication mandates MD5
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// challenge is a parsed WWW-Authenticate: Digest header.
type challenge struct {
	Realm     string
	Nonce     string
	Opaque    string
	Algorithm string
	QOP       string
}

func parseChallenge(header string) (*challenge, error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Digest") {
		return nil, fmt.Errorf("tr064: unsupported auth challenge %q", header)
	}

	c := &challenge{}
	for _, part := range splitParams(rest) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "realm":
			c.Realm = value
		case "nonce":
			c.Nonce = value
		case "opaque":
			c.Opaque = value
		case "algorithm":
			c.Algorithm = value
		case "qop":
			// Offered values are comma separated; only "auth" is supported.
			for _, q := range strings.Split(value, ",") {
				if strings.TrimSpace(q) == "auth" {
					c.QOP = "auth"
				}
			}
		}
	}
	if c.Nonce == "" {
		return nil, fmt.Errorf("tr064: digest challenge without nonce")
	}
	if c.Algorithm != "" && !strings.EqualFold(c.Algorithm, "MD5") {
		return nil, fmt.Errorf("tr064: unsupported digest algorithm %q", c.Algorithm)
	}
	return c, nil
}

// splitParams splits on commas outside quoted strings.
func splitParams(s string) []string {
	var parts []string
	var cur strings.Builder
	quoted := false
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == ',' && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// digestAuth holds the current challenge and nonce counter.
type digestAuth struct {
	username string
	password string

	mu sync.Mutex
	ch *challenge
	nc uint32
}

func (d *digestAuth) setChallenge(c *challenge) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ch = c
	d.nc = 0
}

// authorization returns the Authorization header for method and uri, or ""
// when no challenge has been seen yet.
func (d *digestAuth) authorization(method, uri string) string {
	d.mu.Lock()
	c := d.ch
	if c == nil {
		d.mu.Unlock()
		return ""
	}
	d.nc++
	nc := fmt.Sprintf("%08x", d.nc)
	d.mu.Unlock()

	ha1 := md5hex(d.username + ":" + c.Realm + ":" + d.password)
	ha2 := md5hex(method + ":" + uri)

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username="%s", realm="%s", nonce="%s", uri="%s"`, d.username, c.Realm, c.Nonce, uri)
	if c.QOP == "auth" {
		cnonce := newCnonce()
		resp := md5hex(strings.Join([]string{ha1, c.Nonce, nc, cnonce, c.QOP, ha2}, ":"))
		fmt.Fprintf(&b, `, qop=auth, nc=%s, cnonce="%s", response="%s"`, nc, cnonce, resp)
	} else {
		fmt.Fprintf(&b, `, response="%s"`, md5hex(ha1+":"+c.Nonce+":"+ha2))
	}
	if c.Opaque != "" {
		fmt.Fprintf(&b, `, opaque="%s"`, c.Opaque)
	}
	if c.Algorithm != "" {
		fmt.Fprintf(&b, `, algorithm=%s`, c.Algorithm)
	}
	return b.String()
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec // RFC 2617
	return hex.EncodeToString(sum[:])
}

func newCnonce() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

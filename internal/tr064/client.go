// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package tr064

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/metrics"
)

// maxErrorBodySize limits how much of an error response is read for diagnostics.
const maxErrorBodySize = 64 * 1024

// DefaultPort is the TR-064 port on AVM devices.
const DefaultPort = 49000

// Config configures a Client.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// UseTLS selects https. The TLS port on AVM devices is 49443.
	UseTLS bool

	// Timeout bounds each HTTP request. Default 30s.
	Timeout time.Duration

	// RequestsPerSecond and Burst pace requests to the device. Default 2 rps, burst 4.
	RequestsPerSecond float64
	Burst             int

	// MaxDays limits GetCallList to the last N days when positive.
	MaxDays int
}

// Client calls TR-064 actions on one device.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	auth    *digestAuth
	limiter *rate.Limiter
	maxDays int
}

// NewClient creates a client for cfg.Host.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("tr064: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}

	scheme := "http"
	if cfg.UseTLS {
		scheme = "https"
	}
	base := &url.URL{Scheme: scheme, Host: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		auth:    &digestAuth{username: cfg.Username, password: cfg.Password},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		maxDays: cfg.MaxDays,
	}, nil
}

// newClientForURL is used by tests to point a client at an httptest server.
func newClientForURL(raw, username, password string) (*Client, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 5 * time.Second},
		auth:    &digestAuth{username: username, password: password},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}, nil
}

// Call invokes action on service and returns the response arguments.
func (c *Client) Call(ctx context.Context, service, action string, args map[string]string) (map[string]string, error) {
	start := time.Now()
	out, err := c.call(ctx, service, action, args)
	metrics.RecordTR064Request(action, time.Since(start), err)
	return out, err
}

func (c *Client) call(ctx context.Context, service, action string, args map[string]string) (map[string]string, error) {
	body := buildEnvelope(service, action, args)
	target := c.baseURL.ResolveReference(&url.URL{Path: ControlURL(service)})

	newReq := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
		req.Header.Set("SOAPACTION", fmt.Sprintf(`"%s#%s"`, ServiceType(service), action))
		return req, nil
	}

	resp, err := c.do(ctx, newReq)
	if err != nil {
		return nil, fmt.Errorf("tr064: %s#%s: %w", service, action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("tr064: read %s response: %w", action, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return decodeEnvelope(service, action, data)
	case resp.StatusCode == http.StatusInternalServerError && bytes.Contains(data, []byte("Fault")):
		return decodeEnvelope(service, action, data)
	default:
		if len(data) > maxErrorBodySize {
			data = data[:maxErrorBodySize]
		}
		return nil, fmt.Errorf("tr064: %s#%s: HTTP %d: %s", service, action, resp.StatusCode, strings.TrimSpace(string(data)))
	}
}

// do sends a request built by newReq, answering one digest challenge.
func (c *Client) do(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	resp, err := c.send(ctx, newReq)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	ch, err := parseChallenge(resp.Header.Get("WWW-Authenticate"))
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	c.auth.setChallenge(ch)
	logging.Debug().Str("realm", ch.Realm).Msg("TR-064 digest challenge received")

	return c.send(ctx, newReq)
}

func (c *Client) send(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := newReq()
	if err != nil {
		return nil, err
	}
	if h := c.auth.authorization(req.Method, req.URL.RequestURI()); h != "" {
		req.Header.Set("Authorization", h)
	}
	return c.http.Do(req)
}

// CallAction invokes a list action and decodes the document behind the
// returned *URL argument into out. Passing a nil out only checks that the
// action succeeds.
func (c *Client) CallAction(ctx context.Context, service, action string, out any) error {
	args, err := c.Call(ctx, service, action, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	var listURL string
	for name, value := range args {
		if strings.HasSuffix(name, "URL") && value != "" {
			listURL = value
			break
		}
	}
	if listURL == "" {
		return fmt.Errorf("tr064: %s#%s returned no list URL", service, action)
	}
	if action == ActionGetCallList && c.maxDays > 0 {
		listURL = appendQuery(listURL, "days", strconv.Itoa(c.maxDays))
	}
	return c.fetchDocument(ctx, listURL, out)
}

func (c *Client) fetchDocument(ctx context.Context, raw string, out any) error {
	ref, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("tr064: parse list URL: %w", err)
	}
	target := c.baseURL.ResolveReference(ref)

	resp, err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	})
	if err != nil {
		return fmt.Errorf("tr064: fetch list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tr064: fetch list: HTTP %d", resp.StatusCode)
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tr064: decode list: %w", err)
	}
	return nil
}

func appendQuery(raw, key, value string) string {
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

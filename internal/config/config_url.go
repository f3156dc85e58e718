// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package config

import (
	"fmt"
	"net/url"
	"strings"
)

var natsSchemes = map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}

// validateNATSURL checks a NATS server URL or a comma-separated list of
// them, as accepted by nats.Connect.
func validateNATSURL(raw string) error {
	servers := strings.Split(raw, ",")
	for i, s := range servers {
		if err := validateNATSServer(strings.TrimSpace(s)); err != nil {
			if len(servers) > 1 {
				return fmt.Errorf("server %d: %w", i+1, err)
			}
			return err
		}
	}
	return nil
}

func validateNATSServer(s string) error {
	if s == "" {
		return fmt.Errorf("empty server URL")
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if !natsSchemes[u.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}

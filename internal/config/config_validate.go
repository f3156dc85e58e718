// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/validation"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateDevices(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateDevices() error {
	devices := c.GetDevices()
	if len(devices) == 0 {
		return fmt.Errorf("no device configured: set FRITZ_HOST or a devices list")
	}

	seen := make(map[string]bool, len(devices))
	for i := range devices {
		d := &devices[i]
		if seen[d.ID] {
			return fmt.Errorf("duplicate device id %q", d.ID)
		}
		seen[d.ID] = true

		if err := validateDevice(d); err != nil {
			return err
		}
	}
	return nil
}

func validateDevice(d *DeviceConfig) error {
	if verr := validation.ValidateStruct(d); verr != nil {
		return fmt.Errorf("device %s: %w", d.ID, verr)
	}
	if strings.ContainsAny(d.ID, "/ .*>") {
		return fmt.Errorf("device %s: id must not contain '/', ' ', '.', '*' or '>'", d.ID)
	}
	if d.HistoryEnabled && d.Password == "" {
		return fmt.Errorf("device %s: FRITZ_PASSWORD is required when history polling is enabled", d.ID)
	}
	if d.VoicemailEnabled && !d.HistoryEnabled {
		return fmt.Errorf("device %s: VOICEMAIL_ENABLED requires history polling", d.ID)
	}
	if d.HistoryEnabled && d.PollInterval > 0 && d.PollInterval < time.Minute {
		return fmt.Errorf("device %s: POLL_INTERVAL must be at least 1m, got %v", d.ID, d.PollInterval)
	}
	if d.ReconnectMaxDelay > 0 && d.ReconnectInitialDelay > d.ReconnectMaxDelay {
		return fmt.Errorf("device %s: RECONNECT_INITIAL_DELAY (%v) exceeds RECONNECT_MAX_DELAY (%v)",
			d.ID, d.ReconnectInitialDelay, d.ReconnectMaxDelay)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("HTTP_RATE_LIMIT_REQS must be at least 1, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow < time.Second {
			return fmt.Errorf("HTTP_RATE_LIMIT_WINDOW must be at least 1s, got %v", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("invalid NATS_URL: %w", err)
	}
	if c.NATS.StreamName == "" || strings.ContainsAny(c.NATS.StreamName, " .*>") {
		return fmt.Errorf("NATS_STREAM must be a non-empty name without spaces, '.', '*' or '>'")
	}
	if c.NATS.SubjectPrefix == "" || strings.ContainsAny(c.NATS.SubjectPrefix, " *>") {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must be a literal subject")
	}
	if c.NATS.StreamRetentionDays < 1 {
		return fmt.Errorf("NATS_RETENTION_DAYS must be at least 1, got %d", c.NATS.StreamRetentionDays)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid LOG_LEVEL %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

// ShouldWarnAboutCORS reports a wildcard origin, which lets any site read
// call history from a browser on the local network.
func (c *Config) ShouldWarnAboutCORS() bool {
	for _, o := range c.Server.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

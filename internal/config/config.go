// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
//
// Loading order (later sources override earlier ones):
//  1. Built-in defaults
//  2. Optional YAML file (CONFIG_PATH or one of DefaultConfigPaths)
//  3. Environment variables
//
// A single Fritz!Box is configured through the fritz section (FRITZ_* env
// vars). Several boxes are configured through the devices list in the YAML
// file; fields left empty in a list entry fall back to the fritz section.
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Fritz   DeviceConfig   `koanf:"fritz"`
	Devices []DeviceConfig `koanf:"devices"`
	Server  ServerConfig   `koanf:"server"`
	NATS    NATSConfig     `koanf:"nats"`
	Logging LoggingConfig  `koanf:"logging"`
}

// DeviceConfig describes one Fritz!Box.
//
// Environment Variables (fritz section only):
//   - FRITZ_HOST, FRITZ_USERNAME, FRITZ_PASSWORD
//   - FRITZ_MONITOR_PORT: call monitor port (default 1012)
//   - FRITZ_TR064_PORT: TR-064 port (default 49000)
//   - POLL_INTERVAL: history poll interval (default 1h)
//   - RETENTION_DAYS: call retention (default 60)
//   - RECONNECT_MAX_ATTEMPTS, RECONNECT_MAX_DELAY, READ_TIMEOUT
//   - VOICEMAIL_ENABLED, CALL_NUMBER_FIELDS, TIMEZONE
type DeviceConfig struct {
	ID       string `koanf:"id"`
	Name     string `koanf:"name"`
	Host     string `koanf:"host" validate:"required,devicehost"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	MonitorPort int `koanf:"monitor_port" validate:"min=0,max=65535"`

	// Call monitor reader
	ReadTimeout           time.Duration `koanf:"read_timeout"`
	ReconnectMaxAttempts  int           `koanf:"reconnect_max_attempts" validate:"min=0"`
	ReconnectInitialDelay time.Duration `koanf:"reconnect_initial_delay"`
	ReconnectMaxDelay     time.Duration `koanf:"reconnect_max_delay"`
	CallNumberFields      []int         `koanf:"call_number_fields" validate:"dive,min=3,max=8"`

	// TR-064 history. HistoryEnabled=false runs the device monitor-only.
	HistoryEnabled    bool          `koanf:"history_enabled"`
	TR064Port         int           `koanf:"tr064_port" validate:"min=0,max=65535"`
	TR064TLS          bool          `koanf:"tr064_tls"`
	PollInterval      time.Duration `koanf:"poll_interval"`
	Services          []string      `koanf:"services" validate:"dive,tr064service"`
	VoicemailEnabled  bool          `koanf:"voicemail_enabled"`
	MaxDays           int           `koanf:"max_days" validate:"min=0,max=999"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"min=0"`

	RetentionDays int    `koanf:"retention_days" validate:"min=1"`
	Timezone      string `koanf:"timezone" validate:"omitempty,timezone"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	RefreshTimeout    time.Duration `koanf:"refresh_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// NATSConfig configures call event publishing to NATS JetStream. Publishing
// needs a binary built with the nats tag.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`

	// StreamName is the JetStream stream holding call events.
	StreamName string `koanf:"stream_name"`

	// SubjectPrefix is followed by the device ID, e.g. fritzcall.calls.home.
	SubjectPrefix string `koanf:"subject_prefix"`

	// StreamRetentionDays is the stream's MaxAge.
	StreamRetentionDays int `koanf:"stream_retention_days"`

	// DuplicateWindow is JetStream's Nats-Msg-Id dedup window.
	DuplicateWindow time.Duration `koanf:"duplicate_window"`

	// RelayToWebSocket subscribes to the stream and forwards events to
	// websocket clients as call_event messages.
	RelayToWebSocket bool   `koanf:"relay_to_websocket"`
	DurableName      string `koanf:"durable_name"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json, console
	Caller bool   `koanf:"caller"`
}

// Location resolves Timezone. An empty Timezone is the process's local zone.
func (d DeviceConfig) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("device %s: timezone %q: %w", d.ID, d.Timezone, err)
	}
	return loc, nil
}

// GetDevices returns the effective device list. A non-empty devices list
// takes precedence over the fritz section; each entry inherits unset fields
// from it. IDs are generated from the host when not set.
func (c *Config) GetDevices() []DeviceConfig {
	if len(c.Devices) > 0 {
		out := make([]DeviceConfig, 0, len(c.Devices))
		for i := range c.Devices {
			d := inherit(c.Devices[i], c.Fritz)
			if d.ID == "" {
				d.ID = generateDeviceID(d.Host)
			}
			out = append(out, d)
		}
		return out
	}

	if c.Fritz.Host == "" {
		return nil
	}
	d := c.Fritz
	if d.ID == "" {
		d.ID = generateDeviceID(d.Host)
	}
	return []DeviceConfig{d}
}

// inherit fills zero fields of d from base. Booleans cannot be told apart
// from an explicit false, so HistoryEnabled and VoicemailEnabled are taken
// from base only when the entry sets neither credential.
func inherit(d, base DeviceConfig) DeviceConfig {
	if d.Username == "" && d.Password == "" {
		d.Username, d.Password = base.Username, base.Password
		d.HistoryEnabled = d.HistoryEnabled || base.HistoryEnabled
		d.VoicemailEnabled = d.VoicemailEnabled || base.VoicemailEnabled
	}
	if d.MonitorPort == 0 {
		d.MonitorPort = base.MonitorPort
	}
	if d.ReadTimeout == 0 {
		d.ReadTimeout = base.ReadTimeout
	}
	if d.ReconnectMaxAttempts == 0 {
		d.ReconnectMaxAttempts = base.ReconnectMaxAttempts
	}
	if d.ReconnectInitialDelay == 0 {
		d.ReconnectInitialDelay = base.ReconnectInitialDelay
	}
	if d.ReconnectMaxDelay == 0 {
		d.ReconnectMaxDelay = base.ReconnectMaxDelay
	}
	if len(d.CallNumberFields) == 0 {
		d.CallNumberFields = base.CallNumberFields
	}
	if d.TR064Port == 0 {
		d.TR064Port = base.TR064Port
	}
	if d.PollInterval == 0 {
		d.PollInterval = base.PollInterval
	}
	if len(d.Services) == 0 {
		d.Services = base.Services
	}
	if d.MaxDays == 0 {
		d.MaxDays = base.MaxDays
	}
	if d.RequestsPerSecond == 0 {
		d.RequestsPerSecond = base.RequestsPerSecond
	}
	if d.RetentionDays == 0 {
		d.RetentionDays = base.RetentionDays
	}
	if d.Timezone == "" {
		d.Timezone = base.Timezone
	}
	return d
}

// generateDeviceID derives a stable ID from the device host.
// Format: fritz-{hash} where hash is a 32-bit hash of the host.
func generateDeviceID(host string) string {
	if host == "" {
		return "fritz-default"
	}

	hash := uint32(0)
	for _, c := range host {
		hash = hash*31 + uint32(c)
	}
	return fmt.Sprintf("fritz-%08x", hash)
}

// Retention converts RetentionDays to a duration.
func (d DeviceConfig) Retention() time.Duration {
	return time.Duration(d.RetentionDays) * 24 * time.Hour
}

// Load reads the configuration. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

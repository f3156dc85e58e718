// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fritzcall/config.yaml",
	"/etc/fritzcall/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Fritz: DeviceConfig{
			MonitorPort:           1012,
			ReadTimeout:           10 * time.Second,
			ReconnectMaxAttempts:  50,
			ReconnectInitialDelay: time.Second,
			ReconnectMaxDelay:     120 * time.Second,
			CallNumberFields:      []int{3, 4},
			HistoryEnabled:        true,
			TR064Port:             49000,
			PollInterval:          time.Hour,
			RequestsPerSecond:     2,
			RetentionDays:         60,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8780,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RefreshTimeout:  30 * time.Second,
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		NATS: NATSConfig{
			Enabled:             false,
			URL:                 "nats://127.0.0.1:4222",
			StreamName:          "FRITZCALL",
			SubjectPrefix:       "fritzcall.calls",
			StreamRetentionDays: 7,
			DuplicateWindow:     2 * time.Minute,
			RelayToWebSocket:    false,
			DurableName:         "fritzcall-relay",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration from defaults, an optional YAML file and
// the environment, in that order of precedence, then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// FRITZ_HOST -> fritz.host, HTTP_PORT -> server.port
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing
// default path, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are read from the environment as comma-separated lists.
var sliceConfigPaths = []string{
	"fritz.services",
	"server.cors_origins",
}

// intSliceConfigPaths are comma-separated integer lists.
var intSliceConfigPaths = []string{
	"fritz.call_number_fields",
}

// processSliceFields splits comma-separated env values for the list fields.
// Values that are already lists (from YAML) are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		parts, ok := splitString(k.Get(path))
		if !ok {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}

	for _, path := range intSliceConfigPaths {
		parts, ok := splitString(k.Get(path))
		if !ok {
			continue
		}
		ints := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return fmt.Errorf("%s: %q is not an integer", path, p)
			}
			ints = append(ints, n)
		}
		if err := k.Set(path, ints); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func splitString(val interface{}) ([]string, bool) {
	strVal, ok := val.(string)
	if !ok || strings.TrimSpace(strVal) == "" {
		return nil, false
	}
	parts := strings.Split(strVal, ",")
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return trimmed, len(trimmed) > 0
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak
// into the configuration.
var envMappings = map[string]string{
	// Device (single-device mode)
	"fritz_id":                "fritz.id",
	"fritz_name":              "fritz.name",
	"fritz_host":              "fritz.host",
	"fritz_username":          "fritz.username",
	"fritz_password":          "fritz.password",
	"fritz_monitor_port":      "fritz.monitor_port",
	"fritz_tr064_port":        "fritz.tr064_port",
	"fritz_tr064_tls":         "fritz.tr064_tls",
	"fritz_services":          "fritz.services",
	"fritz_max_days":          "fritz.max_days",
	"fritz_requests_per_sec":  "fritz.requests_per_second",
	"history_enabled":         "fritz.history_enabled",
	"poll_interval":           "fritz.poll_interval",
	"retention_days":          "fritz.retention_days",
	"reconnect_max_attempts":  "fritz.reconnect_max_attempts",
	"reconnect_initial_delay": "fritz.reconnect_initial_delay",
	"reconnect_max_delay":     "fritz.reconnect_max_delay",
	"read_timeout":            "fritz.read_timeout",
	"voicemail_enabled":       "fritz.voicemail_enabled",
	"call_number_fields":      "fritz.call_number_fields",
	"timezone":                "fritz.timezone",

	// HTTP server
	"http_host":               "server.host",
	"http_port":               "server.port",
	"http_timeout":            "server.timeout",
	"http_shutdown_timeout":   "server.shutdown_timeout",
	"http_refresh_timeout":    "server.refresh_timeout",
	"http_cors_origins":       "server.cors_origins",
	"http_rate_limit_reqs":    "server.rate_limit_reqs",
	"http_rate_limit_window":  "server.rate_limit_window",
	"http_disable_rate_limit": "server.rate_limit_disabled",

	// NATS
	"nats_enabled":          "nats.enabled",
	"nats_url":              "nats.url",
	"nats_stream":           "nats.stream_name",
	"nats_subject_prefix":   "nats.subject_prefix",
	"nats_retention_days":   "nats.stream_retention_days",
	"nats_duplicate_window": "nats.duplicate_window",
	"nats_relay_websocket":  "nats.relay_to_websocket",
	"nats_durable_name":     "nats.durable_name",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever the file at path changes. The
// caller reloads with Load and swaps the result under its own lock.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}

// ConfigFile returns the path of the config file Load would read, or "".
func ConfigFile() string {
	return findConfigFile()
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package main

import (
	"fmt"

	"github.com/tomtom215/fritzcall/internal/config"
	"github.com/tomtom215/fritzcall/internal/logging"
	intsync "github.com/tomtom215/fritzcall/internal/sync"
	"github.com/tomtom215/fritzcall/internal/tr064"
)

// registerDevices adds every configured device to manager.
func registerDevices(cfg *config.Config, manager *intsync.Manager) error {
	for _, dc := range cfg.GetDevices() {
		sc, err := syncDeviceConfig(dc)
		if err != nil {
			return err
		}
		caller, err := newActionCaller(dc)
		if err != nil {
			return err
		}
		if _, err := manager.AddDevice(sc, nil, caller); err != nil {
			return err
		}
		logging.Info().
			Str("device", dc.ID).
			Str("host", dc.Host).
			Int("monitor_port", dc.MonitorPort).
			Bool("history", caller != nil).
			Bool("voicemail", sc.VoicemailEnabled).
			Msg("Device registered")
	}
	return nil
}

// syncDeviceConfig maps a configured device to the manager's settings.
func syncDeviceConfig(dc config.DeviceConfig) (intsync.DeviceConfig, error) {
	loc, err := dc.Location()
	if err != nil {
		return intsync.DeviceConfig{}, fmt.Errorf("device %s: %w", dc.ID, err)
	}
	return intsync.DeviceConfig{
		ID:          dc.ID,
		Name:        dc.Name,
		Host:        dc.Host,
		MonitorPort: dc.MonitorPort,
		ReadTimeout: dc.ReadTimeout,
		Reconnect: intsync.ReconnectPolicy{
			MaxAttempts:  dc.ReconnectMaxAttempts,
			InitialDelay: dc.ReconnectInitialDelay,
			MaxDelay:     dc.ReconnectMaxDelay,
		},
		PollInterval:     dc.PollInterval,
		Services:         dc.Services,
		VoicemailEnabled: dc.HistoryEnabled && dc.VoicemailEnabled,
		Retention:        dc.Retention(),
		Location:         loc,
		CallNumberFields: dc.CallNumberFields,
	}, nil
}

// newActionCaller returns the TR-064 client for dc behind a circuit
// breaker, or nil when history polling is disabled.
func newActionCaller(dc config.DeviceConfig) (intsync.ActionCaller, error) {
	if !dc.HistoryEnabled {
		return nil, nil
	}
	client, err := tr064.NewClient(tr064.Config{
		Host:              dc.Host,
		Port:              dc.TR064Port,
		Username:          dc.Username,
		Password:          dc.Password,
		UseTLS:            dc.TR064TLS,
		RequestsPerSecond: dc.RequestsPerSecond,
		MaxDays:           dc.MaxDays,
	})
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", dc.ID, err)
	}
	return intsync.NewBreakerCaller("tr064-"+dc.ID, client, intsync.BreakerSettings{}), nil
}

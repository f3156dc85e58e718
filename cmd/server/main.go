// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tomtom215/fritzcall/internal/config"
	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/metrics"
	"github.com/tomtom215/fritzcall/internal/supervisor"
	"github.com/tomtom215/fritzcall/internal/supervisor/services"
	intsync "github.com/tomtom215/fritzcall/internal/sync"
	ws "github.com/tomtom215/fritzcall/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().Str("version", version).Msg("Starting fritzcall")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS_ORIGINS=* allows any website to read call data from this API")
	}
	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is disabled (HTTP_DISABLE_RATE_LIMIT=true)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	wsHub := ws.NewHub()
	manager := intsync.NewManager(wsHub)
	defer manager.Close()

	if err := registerDevices(cfg, manager); err != nil {
		logging.Fatal().Err(err).Msg("Failed to register devices")
	}

	natsComponents, err := InitNATS(cfg, manager, wsHub)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS")
	}

	server := newHTTPServer(cfg, manager, wsHub)

	tree.AddDevices(manager)
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	AddNATSToSupervisor(tree, natsComponents)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Int("devices", len(manager.Devices())).Msg("Services added to supervisor tree")

	watchConfig()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// watchConfig applies log level changes from the config file without a
// restart. Everything else needs a restart.
func watchConfig() {
	path := config.ConfigFile()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.Load()
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		if logging.SetLevelString(cfg.Logging.Level) {
			logging.Info().Str("level", cfg.Logging.Level).Msg("Log level changed")
		}
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch disabled")
	}
}

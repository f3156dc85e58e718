// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package main

import (
	"net/http"
	"time"

	"github.com/tomtom215/fritzcall/internal/api"
	"github.com/tomtom215/fritzcall/internal/config"
	intsync "github.com/tomtom215/fritzcall/internal/sync"
	ws "github.com/tomtom215/fritzcall/internal/websocket"
)

func newHTTPServer(cfg *config.Config, manager *intsync.Manager, hub *ws.Hub) *http.Server {
	handler := api.NewHandler(manager, hub, api.Config{
		AllowedOrigins: cfg.Server.CORSOrigins,
		RefreshTimeout: cfg.Server.RefreshTimeout,
	})

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Server.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Server.RateLimitDisabled

	router := api.NewRouter(handler, api.NewChiMiddleware(mwConfig))

	// WriteTimeout stays above RefreshTimeout so a slow refresh can still
	// answer with its partial result.
	writeTimeout := cfg.Server.Timeout
	if floor := cfg.Server.RefreshTimeout + 5*time.Second; writeTimeout < floor {
		writeTimeout = floor
	}

	return &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/sync"
	ws "github.com/tomtom215/fritzcall/internal/websocket"
)

// DeviceRegistry is the view of the device manager the handlers need.
// *sync.Manager implements it.
type DeviceRegistry interface {
	Devices() []*sync.Device
	Device(id string) (*sync.Device, error)
}

// Config holds the handler settings that come from the server configuration.
type Config struct {
	// AllowedOrigins lists websocket origins besides the server's own host.
	// "*" allows any origin.
	AllowedOrigins []string

	// RefreshTimeout bounds an on-demand poll cycle.
	RefreshTimeout time.Duration
}

// DefaultRefreshTimeout is used when Config.RefreshTimeout is zero.
const DefaultRefreshTimeout = 30 * time.Second

// Handler serves the HTTP API.
type Handler struct {
	devices   DeviceRegistry
	hub       *ws.Hub
	config    Config
	startTime time.Time
}

// NewHandler creates a Handler. hub may be nil, in which case the websocket
// endpoint answers 503.
func NewHandler(devices DeviceRegistry, hub *ws.Hub, config Config) *Handler {
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = DefaultRefreshTimeout
	}
	return &Handler{
		devices:   devices,
		hub:       hub,
		config:    config,
		startTime: time.Now(),
	}
}

// device resolves the {device} URL parameter, writing a 404 when it is
// unknown.
func (h *Handler) device(w http.ResponseWriter, r *http.Request) (*sync.Device, bool) {
	id := chi.URLParam(r, "device")
	d, err := h.devices.Device(id)
	if err != nil {
		if errors.Is(err, sync.ErrUnknownDevice) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown device: "+sanitizeLogValue(id), nil)
			return nil, false
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Device lookup failed", err)
		return nil, false
	}
	return d, true
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts the server's own origin and any configured
// one. Browsers always send Origin, so a missing header is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the request and registers a hub client. The optional
// device query parameter limits the stream to one device.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Live updates are not available", nil)
		return
	}

	device := r.URL.Query().Get("device")
	if device != "" {
		if _, err := h.devices.Device(device); err != nil {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown device: "+sanitizeLogValue(device), nil)
			return
		}
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.CtxWarn(r.Context()).Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, device)
	h.hub.Register <- client
	client.Start()

	logging.CtxDebug(r.Context()).
		Uint64("client_id", client.ID()).
		Str("device", device).
		Msg("WebSocket client connected")
}

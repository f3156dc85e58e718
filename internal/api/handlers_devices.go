// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/models"
)

// ListDevices returns a summary of every configured device.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices := h.devices.Devices()
	infos := make([]models.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		infos = append(infos, d.Info())
	}
	respondSuccess(w, DevicesResponse{Devices: infos}, models.Metadata{})
}

// DeviceSnapshot returns the device's full merged call and voicemail state.
func (h *Handler) DeviceSnapshot(w http.ResponseWriter, r *http.Request) {
	d, ok := h.device(w, r)
	if !ok {
		return
	}

	snap := d.Store.Snapshot()
	if notModified(w, r, d.ID, snap.Version) {
		return
	}
	respondSuccess(w, snap, models.Metadata{Device: d.ID, Version: snap.Version})
}

// DeviceCalls returns the device's calls newest first, optionally filtered by
// direction (?type=incoming) and truncated (?limit=50, 0 means all).
func (h *Handler) DeviceCalls(w http.ResponseWriter, r *http.Request) {
	d, ok := h.device(w, r)
	if !ok {
		return
	}

	limit, ok := getIntParam(r, "limit", 0)
	if !ok {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be an integer", nil)
		return
	}
	req := CallsRequest{
		Type:  strings.TrimSpace(r.URL.Query().Get("type")),
		Limit: limit,
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	snap := d.Store.Snapshot()
	calls := snap.Calls
	if req.Type != "" {
		dir, _ := models.ParseDirection(req.Type)
		calls = snap.CallsByDirection(dir)
	}

	respondSuccess(w, CallsResponse{
		Calls:  models.Latest(calls, req.Limit),
		Total:  len(calls),
		Counts: snap.Counts(),
	}, models.Metadata{Device: d.ID, Version: snap.Version})
}

// DeviceVoicemails returns the device's voicemails newest first.
func (h *Handler) DeviceVoicemails(w http.ResponseWriter, r *http.Request) {
	d, ok := h.device(w, r)
	if !ok {
		return
	}

	snap := d.Store.Snapshot()
	if notModified(w, r, d.ID, snap.Version) {
		return
	}
	vms := make([]models.VoicemailRecord, 0, len(snap.Voicemails))
	for i := len(snap.Voicemails) - 1; i >= 0; i-- {
		vms = append(vms, snap.Voicemails[i])
	}
	respondSuccess(w, VoicemailsResponse{Voicemails: vms, Total: len(vms)},
		models.Metadata{Device: d.ID, Version: snap.Version})
}

// DeviceLive returns the projection of the device's active connections.
func (h *Handler) DeviceLive(w http.ResponseWriter, r *http.Request) {
	d, ok := h.device(w, r)
	if !ok {
		return
	}
	respondSuccess(w, d.Tracker.State(), models.Metadata{Device: d.ID})
}

// RefreshDevice runs one history poll cycle immediately and reports its
// outcome. A cycle that failed for every service variant answers 502.
func (h *Handler) RefreshDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := h.device(w, r)
	if !ok {
		return
	}
	if d.Poller == nil {
		respondError(w, http.StatusConflict, "NOT_CONFIGURED", "History polling is not configured for this device", nil)
		return
	}

	ctx, cancel := context.WithTimeout(logging.ContextWithDevice(r.Context(), d.ID), h.config.RefreshTimeout)
	defer cancel()

	res, err := d.Refresh(ctx)
	body := newRefreshResponse(res)
	if err != nil {
		logging.CtxErr(ctx, err).Msg("On-demand refresh failed")
		respondJSON(w, http.StatusBadGateway, &models.APIResponse{
			Status:   "error",
			Data:     body,
			Metadata: models.Metadata{Timestamp: time.Now(), Device: d.ID},
			Error:    &models.APIError{Code: "SERVICE_ERROR", Message: err.Error()},
		})
		return
	}

	respondSuccess(w, body, models.Metadata{Device: d.ID, Version: d.Store.Snapshot().Version})
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/sync"
)

// HealthLive reports that the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	respondSuccess(w, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, models.Metadata{})
}

// deviceReadiness is one device's contribution to the readiness probe.
type deviceReadiness struct {
	ID          string `json:"id"`
	ReaderState string `json:"reader_state"`
	Streaming   bool   `json:"streaming"`
	Polled      bool   `json:"polled"`
}

// HealthReady returns 200 once at least one device is streaming its call
// monitor or has completed a successful history poll, and 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	devices := h.devices.Devices()
	states := make([]deviceReadiness, 0, len(devices))
	ready := false
	for _, d := range devices {
		st := deviceReadiness{ID: d.ID, ReaderState: d.Reader.State().String()}
		st.Streaming = d.Reader.State() == sync.StateStreaming
		if d.Poller != nil {
			if res := d.Poller.LastResult(); res != nil && res.Err == nil {
				st.Polled = true
			}
		}
		ready = ready || st.Streaming || st.Polled
		states = append(states, st)
	}

	status := http.StatusOK
	statusText := "success"
	if !ready {
		status = http.StatusServiceUnavailable
		statusText = "error"
	}

	respondJSON(w, status, &models.APIResponse{
		Status: statusText,
		Data: map[string]interface{}{
			"ready":   ready,
			"devices": states,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

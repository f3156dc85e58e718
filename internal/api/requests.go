// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package api

import (
	"time"

	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/sync"
)

// MaxCallsLimit caps the limit query parameter of the calls endpoint.
const MaxCallsLimit = 5000

// CallsRequest holds the query parameters of GET .../calls.
type CallsRequest struct {
	Type  string `query:"type" validate:"direction"`
	Limit int    `query:"limit" validate:"min=0,max=5000"`
}

// CallsResponse lists calls newest first.
type CallsResponse struct {
	Calls  []models.CallRecord `json:"calls"`
	Total  int                 `json:"total"`
	Counts models.CallCounts   `json:"counts"`
}

// VoicemailsResponse lists voicemails newest first.
type VoicemailsResponse struct {
	Voicemails []models.VoicemailRecord `json:"voicemails"`
	Total      int                      `json:"total"`
}

// DevicesResponse lists every configured device.
type DevicesResponse struct {
	Devices []models.DeviceInfo `json:"devices"`
}

// RefreshResponse summarizes an on-demand poll cycle.
type RefreshResponse struct {
	Started           time.Time `json:"started"`
	DurationMS        int64     `json:"duration_ms"`
	CallService       string    `json:"call_service,omitempty"`
	CallsFetched      int       `json:"calls_fetched"`
	CallsSkipped      int       `json:"calls_skipped"`
	Added             int       `json:"added"`
	Replaced          int       `json:"replaced"`
	Evicted           int       `json:"evicted"`
	VoicemailService  string    `json:"voicemail_service,omitempty"`
	VoicemailsFetched int       `json:"voicemails_fetched"`
	VoicemailsAdded   int       `json:"voicemails_added"`
	VoicemailsRemoved int       `json:"voicemails_removed"`
	Error             string    `json:"error,omitempty"`
}

func newRefreshResponse(res sync.PollResult) RefreshResponse {
	out := RefreshResponse{
		Started:           res.Started,
		DurationMS:        res.Duration.Milliseconds(),
		CallService:       res.CallService,
		CallsFetched:      res.CallsFetched,
		CallsSkipped:      res.CallsSkipped,
		Added:             len(res.Added),
		Replaced:          len(res.Replaced),
		Evicted:           res.Evicted,
		VoicemailService:  res.VoicemailService,
		VoicemailsFetched: res.VoicemailsFetched,
		VoicemailsAdded:   res.VoicemailsAdded,
		VoicemailsRemoved: res.VoicemailsRemoved,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package models

import "time"

// APIResponse is the envelope used by every HTTP endpoint.
//
//	{
//	  "status": "success",
//	  "data": {"calls": [...]},
//	  "metadata": {"timestamp": "2026-01-01T12:00:00Z", "device": "fritzbox-1a2b3c4d", "version": 12}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes where a response came from.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device,omitempty"`
	Version   uint64    `json:"version,omitempty"`
}

// APIError carries a machine-readable code and a human message.
//
// Codes: VALIDATION_ERROR, NOT_FOUND, NOT_CONFIGURED, RATE_LIMITED,
// METHOD_NOT_ALLOWED, SERVICE_ERROR, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// DeviceInfo summarizes one configured device for the device listing.
type DeviceInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Host        string     `json:"host"`
	ReaderState string     `json:"reader_state"`
	LastPoll    *time.Time `json:"last_poll,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Counts      CallCounts `json:"counts"`
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package models

import "time"

// CallState is the live state of one connection on the device.
type CallState string

const (
	CallStateIdle    CallState = "idle"
	CallStateRinging CallState = "ringing"
	CallStateDialing CallState = "dialing"
	CallStateTalking CallState = "talking"
)

// rank orders states by how much they matter to a viewer.
func (s CallState) rank() int {
	switch s {
	case CallStateTalking:
		return 3
	case CallStateRinging:
		return 2
	case CallStateDialing:
		return 1
	default:
		return 0
	}
}

// MoreActive reports whether s outranks other.
func (s CallState) MoreActive(other CallState) bool {
	return s.rank() > other.rank()
}

// LiveCall is one in-progress connection as seen on the call monitor.
type LiveCall struct {
	ConnectionID string    `json:"connection_id"`
	State        CallState `json:"state"`
	Number       string    `json:"number,omitempty"`
	Extension    string    `json:"extension,omitempty"`
	Device       string    `json:"device,omitempty"`
	Since        time.Time `json:"since"`
}

// LiveState is the projection of all active connections. State is the most
// active state among them, or idle.
type LiveState struct {
	State     CallState  `json:"state"`
	Active    []LiveCall `json:"active"`
	UpdatedAt time.Time  `json:"updated_at"`
}

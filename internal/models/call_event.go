// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package models

import (
	"fmt"
	"time"
)

// Change kinds carried by a CallEvent.
const (
	ChangeAdded    = "added"
	ChangeReplaced = "replaced"
)

// CallEvent announces a call record that entered a device's store.
type CallEvent struct {
	ID          string     `json:"id"`
	Device      string     `json:"device"`
	Change      string     `json:"change"`
	Call        CallRecord `json:"call"`
	PublishedAt time.Time  `json:"published_at"`
}

// IdentityKey renders the record's identity as a stable string, used to
// derive deterministic message IDs.
func (e *CallEvent) IdentityKey() string {
	k := e.Call.Key()
	return fmt.Sprintf("%s|%s|%s|%d", e.Device, k.Direction, k.Number, k.At)
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package models

import "time"

// Snapshot is an immutable copy of a store's visible state. Calls and
// voicemails are ordered oldest to newest.
type Snapshot struct {
	Version    uint64            `json:"version"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Calls      []CallRecord      `json:"calls"`
	Voicemails []VoicemailRecord `json:"voicemails"`
}

// CallCounts holds the number of calls per direction plus voicemails.
type CallCounts struct {
	Incoming   int `json:"incoming"`
	Outgoing   int `json:"outgoing"`
	Missed     int `json:"missed"`
	Unknown    int `json:"unknown"`
	Voicemails int `json:"voicemails"`
}

// CallsByDirection returns the calls matching d, oldest first.
func (s Snapshot) CallsByDirection(d Direction) []CallRecord {
	out := make([]CallRecord, 0)
	for _, c := range s.Calls {
		if c.Direction == d {
			out = append(out, c)
		}
	}
	return out
}

// Counts tallies the snapshot.
func (s Snapshot) Counts() CallCounts {
	counts := CallCounts{Voicemails: len(s.Voicemails)}
	for _, c := range s.Calls {
		switch c.Direction {
		case DirectionIncoming:
			counts.Incoming++
		case DirectionOutgoing:
			counts.Outgoing++
		case DirectionMissed:
			counts.Missed++
		default:
			counts.Unknown++
		}
	}
	return counts
}

// Latest returns up to n calls, newest first. n <= 0 returns all of them.
func Latest(calls []CallRecord, n int) []CallRecord {
	if n <= 0 || n > len(calls) {
		n = len(calls)
	}
	out := make([]CallRecord, 0, n)
	for i := len(calls) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, calls[i])
	}
	return out
}

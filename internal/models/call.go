// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package models

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Direction classifies a call observation.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionMissed   Direction = "missed"
	DirectionUnknown  Direction = "unknown"
)

// Directions lists every valid Direction in display order.
var Directions = []Direction{DirectionIncoming, DirectionOutgoing, DirectionMissed, DirectionUnknown}

// Valid reports whether d is one of the four known directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionIncoming, DirectionOutgoing, DirectionMissed, DirectionUnknown:
		return true
	}
	return false
}

// ParseDirection parses a direction name case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Valid()
}

// Source records which feed produced a CallRecord. It is metadata only and
// does not take part in identity.
type Source string

const (
	SourceLive    Source = "live"
	SourceHistory Source = "history"
)

// Display layouts for the derived CallRecord fields.
const (
	DisplayDateLayout  = "02.01.2006"
	DisplayClockLayout = "15:04"
)

// CallRecord is one observation of a phone call. Records are immutable once
// committed to a store; a store only adds, replaces or evicts whole records.
type CallRecord struct {
	Direction  Direction `json:"direction"`
	Number     string    `json:"number"`
	Duration   int       `json:"duration_seconds"`
	OccurredAt time.Time `json:"occurred_at"`
	Source     Source    `json:"source,omitempty"`
}

// CallKey is the identity of a call observation. Duration is deliberately
// absent: the live feed reports 0 where history reports the real value.
type CallKey struct {
	Direction Direction
	Number    string
	At        int64
}

// Key returns the identity of c.
func (c CallRecord) Key() CallKey {
	return CallKey{Direction: c.Direction, Number: c.Number, At: c.OccurredAt.UnixNano()}
}

// Normalized returns c with direction and duration clamped into their domains.
func (c CallRecord) Normalized() CallRecord {
	if !c.Direction.Valid() {
		c.Direction = DirectionUnknown
	}
	if c.Duration < 0 {
		c.Duration = 0
	}
	return c
}

// Weekday is the English weekday name of OccurredAt.
func (c CallRecord) Weekday() string {
	return c.OccurredAt.Weekday().String()
}

// Date is OccurredAt formatted as DD.MM.YYYY.
func (c CallRecord) Date() string {
	return c.OccurredAt.Format(DisplayDateLayout)
}

// Clock is OccurredAt formatted as HH:MM.
func (c CallRecord) Clock() string {
	return c.OccurredAt.Format(DisplayClockLayout)
}

// MarshalJSON adds the display projections to the stored fields.
func (c CallRecord) MarshalJSON() ([]byte, error) {
	type stored CallRecord
	return json.Marshal(struct {
		stored
		Weekday string `json:"weekday"`
		Date    string `json:"date"`
		Time    string `json:"time"`
	}{
		stored:  stored(c),
		Weekday: c.Weekday(),
		Date:    c.Date(),
		Time:    c.Clock(),
	})
}

// VoicemailRecord is one voicemail message reported by the device.
type VoicemailRecord struct {
	ReceivedAt time.Time `json:"received_at"`
	MediaURL   string    `json:"media_url,omitempty"`
}

// VoicemailKey is the identity of a voicemail observation.
type VoicemailKey struct {
	At       int64
	MediaURL string
}

// Key returns the identity of v.
func (v VoicemailRecord) Key() VoicemailKey {
	return VoicemailKey{At: v.ReceivedAt.UnixNano(), MediaURL: v.MediaURL}
}

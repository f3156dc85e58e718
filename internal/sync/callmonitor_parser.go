// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/fritzcall/internal/models"
)

// MonitorTimeLayout is the timestamp layout of the call monitor (field 0).
const MonitorTimeLayout = "02.01.06 15:04:05"

// EventKind is the verb of a call monitor line (field 1).
type EventKind string

const (
	EventRing       EventKind = "RING"
	EventCall       EventKind = "CALL"
	EventConnect    EventKind = "CONNECT"
	EventDisconnect EventKind = "DISCONNECT"
)

// DefaultCallNumberFields lists the CALL fields that may carry the
// counterparty, in order of preference. Field 3 is its documented position
// and field 4 the alternate one. Firmware that places it elsewhere, such as
// field 5, is served by setting CallNumberFields.
var DefaultCallNumberFields = []int{3, 4}

// Event is one recognized call monitor line.
//
// Line layouts:
//
//	DD.MM.YY HH:MM:SS;RING;ConnID;Caller;OwnNumber;Device;
//	DD.MM.YY HH:MM:SS;CALL;ConnID;Called;...;Device;
//	DD.MM.YY HH:MM:SS;CONNECT;ConnID;Extension;Number;
//	DD.MM.YY HH:MM:SS;DISCONNECT;ConnID;DurationSeconds;
type Event struct {
	Kind         EventKind
	At           time.Time
	ConnectionID string
	Number       string // counterparty
	Extension    string // own number or extension
	Device       string
	Duration     int
}

// ParserConfig configures a Parser.
type ParserConfig struct {
	// Location interprets monitor timestamps, which carry no zone. Default time.Local.
	Location *time.Location

	// CallNumberFields is the ordered list of CALL fields checked for the
	// counterparty. The first in-bounds, non-empty field wins. A CALL line
	// that has none of these fields is rejected. Default
	// DefaultCallNumberFields.
	CallNumberFields []int
}

// Parser turns call monitor lines into events and call records. It holds no
// mutable state and is safe for concurrent use.
type Parser struct {
	loc        *time.Location
	callFields []int
}

// NewParser creates a parser.
func NewParser(cfg ParserConfig) *Parser {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	fields := cfg.CallNumberFields
	if len(fields) == 0 {
		fields = DefaultCallNumberFields
	}
	return &Parser{loc: cfg.Location, callFields: append([]int(nil), fields...)}
}

// field returns parts[i] trimmed, or "" when i is out of range.
func field(parts []string, i int) string {
	if i < 0 || i >= len(parts) {
		return ""
	}
	return strings.TrimSpace(parts[i])
}

// callNumber returns the first non-empty configured CALL field. present is
// false when the line is too short to hold any of them.
func (p *Parser) callNumber(parts []string) (number string, present bool) {
	for _, i := range p.callFields {
		if i < 0 || i >= len(parts) {
			continue
		}
		present = true
		if n := field(parts, i); n != "" {
			return n, true
		}
	}
	return "", present
}

// ParseEvent parses one line. It returns false for empty, truncated,
// unparseable or unrecognized input and never panics.
func (p *Parser) ParseEvent(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}
	parts := strings.Split(line, ";")
	if len(parts) < 3 {
		return Event{}, false
	}

	at, err := time.ParseInLocation(MonitorTimeLayout, field(parts, 0), p.loc)
	if err != nil {
		return Event{}, false
	}

	ev := Event{
		Kind:         EventKind(field(parts, 1)),
		At:           at,
		ConnectionID: field(parts, 2),
	}

	switch ev.Kind {
	case EventRing:
		if len(parts) <= 3 {
			return Event{}, false
		}
		ev.Number = field(parts, 3)
		ev.Extension = field(parts, 4)
		ev.Device = field(parts, 5)
	case EventCall:
		number, present := p.callNumber(parts)
		if !present {
			return Event{}, false
		}
		ev.Number = number
		ev.Extension = field(parts, 3)
		ev.Device = field(parts, 6)
	case EventConnect:
		ev.Extension = field(parts, 3)
		ev.Number = field(parts, 4)
	case EventDisconnect:
		if d, err := strconv.Atoi(field(parts, 3)); err == nil && d > 0 {
			ev.Duration = d
		}
	default:
		return Event{}, false
	}
	return ev, true
}

// Record converts an event into a live call record. CONNECT is a state
// transition only and yields no record.
func (e Event) Record() (models.CallRecord, bool) {
	rec := models.CallRecord{OccurredAt: e.At, Source: models.SourceLive}
	switch e.Kind {
	case EventRing:
		rec.Direction = models.DirectionIncoming
		rec.Number = e.Number
	case EventCall:
		rec.Direction = models.DirectionOutgoing
		rec.Number = e.Number
	case EventDisconnect:
		rec.Direction = models.DirectionMissed
		rec.Duration = e.Duration
	default:
		return models.CallRecord{}, false
	}
	return rec, true
}

// ParseRecord parses a line straight into a call record.
func (p *Parser) ParseRecord(line string) (models.CallRecord, bool) {
	ev, ok := p.ParseEvent(line)
	if !ok {
		return models.CallRecord{}, false
	}
	return ev.Record()
}

var defaultParser = NewParser(ParserConfig{})

// ParseLine parses a line with the default configuration (local time,
// default CALL number fields).
func ParseLine(line string) (models.CallRecord, bool) {
	return defaultParser.ParseRecord(line)
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/tr064"
)

// historyTimeLayouts are tried in order after Unix seconds. The first is the
// ISO form, the others are what the device writes into its list documents.
var historyTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"02.01.06 15:04",
	"02.01.06 15:04:05",
	"02.01.2006 15:04",
}

// historyTypes maps the call list Type field to a direction.
var historyTypes = map[string]models.Direction{
	"1": models.DirectionMissed,
	"2": models.DirectionIncoming,
	"3": models.DirectionOutgoing,
}

// errHistoryTime marks a record whose timestamp could not be parsed.
var errHistoryTime = errors.New("history: unparseable time")

// HistoryParser converts TR-064 list entries into records.
type HistoryParser struct {
	loc *time.Location
}

// NewHistoryParser creates a parser interpreting timestamps in loc (default time.Local).
func NewHistoryParser(loc *time.Location) *HistoryParser {
	if loc == nil {
		loc = time.Local
	}
	return &HistoryParser{loc: loc}
}

func (p *HistoryParser) parseTime(values ...string) (time.Time, error) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0).In(p.loc), nil
		}
		for _, layout := range historyTimeLayouts {
			if t, err := time.ParseInLocation(layout, v, p.loc); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", errHistoryTime, v)
	}
	return time.Time{}, fmt.Errorf("%w: missing", errHistoryTime)
}

// parseDuration accepts whole seconds ("42") or the device's H:MM form
// ("0:01" is one minute). Anything else is 0.
func parseDuration(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if h, m, ok := strings.Cut(s, ":"); ok {
		hours, err1 := strconv.Atoi(h)
		minutes, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || hours < 0 || minutes < 0 {
			return 0
		}
		return hours*3600 + minutes*60
	}
	secs, err := strconv.Atoi(s)
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}

// ParseCall converts one call list entry. Only an unparseable time is an
// error; an unknown Type becomes DirectionUnknown.
func (p *HistoryParser) ParseCall(c tr064.Call) (models.CallRecord, error) {
	at, err := p.parseTime(c.Time, c.Date)
	if err != nil {
		return models.CallRecord{}, err
	}

	dir, ok := historyTypes[strings.TrimSpace(c.Type)]
	if !ok {
		dir = models.DirectionUnknown
	}

	number := strings.TrimSpace(c.Caller)
	if number == "" {
		number = strings.TrimSpace(c.Called)
	}

	return models.CallRecord{
		Direction:  dir,
		Number:     number,
		Duration:   parseDuration(c.Duration),
		OccurredAt: at,
		Source:     models.SourceHistory,
	}, nil
}

// ParseCalls converts a batch, preserving order. Entries with an
// unparseable time are skipped and counted.
func (p *HistoryParser) ParseCalls(calls []tr064.Call) (records []models.CallRecord, skipped int) {
	records = make([]models.CallRecord, 0, len(calls))
	for _, c := range calls {
		rec, err := p.ParseCall(c)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped
}

// ParseVoicemail converts one message list entry.
func (p *HistoryParser) ParseVoicemail(m tr064.Message) (models.VoicemailRecord, error) {
	at, err := p.parseTime(m.Timestamp, m.Date)
	if err != nil {
		return models.VoicemailRecord{}, err
	}
	url := strings.TrimSpace(m.MessageURL)
	if url == "" {
		url = strings.TrimSpace(m.Path)
	}
	return models.VoicemailRecord{ReceivedAt: at, MediaURL: url}, nil
}

// ParseVoicemails converts a batch, skipping entries with an unparseable time.
func (p *HistoryParser) ParseVoicemails(msgs []tr064.Message) (records []models.VoicemailRecord, skipped int) {
	records = make([]models.VoicemailRecord, 0, len(msgs))
	for _, m := range msgs {
		rec, err := p.ParseVoicemail(m)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped
}

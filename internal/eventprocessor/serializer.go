// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fritzcall/internal/models"
)

// Marshal validates and encodes a call event.
func Marshal(event *models.CallEvent) ([]byte, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a call event.
func Unmarshal(data []byte) (*models.CallEvent, error) {
	var event models.CallEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if err := validateEvent(&event); err != nil {
		return nil, err
	}
	return &event, nil
}

func validateEvent(event *models.CallEvent) error {
	switch {
	case event == nil:
		return fmt.Errorf("%w: nil", ErrInvalidEvent)
	case event.Device == "":
		return fmt.Errorf("%w: device is required", ErrInvalidEvent)
	case event.Change != models.ChangeAdded && event.Change != models.ChangeReplaced:
		return fmt.Errorf("%w: unknown change %q", ErrInvalidEvent, event.Change)
	case event.Call.OccurredAt.IsZero():
		return fmt.Errorf("%w: call has no timestamp", ErrInvalidEvent)
	}
	return nil
}

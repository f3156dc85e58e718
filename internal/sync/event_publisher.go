// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/metrics"
	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/store"
)

const (
	// publishTimeout bounds a single PublishCallEvent call.
	publishTimeout = 5 * time.Second

	// eventQueueSize is the number of pending batches a device holds while
	// its publisher is slow. Further batches are dropped.
	eventQueueSize = 64
)

// EventPublisher publishes call events to an external bus. This abstraction
// keeps the NATS integration out of the sync package.
type EventPublisher interface {
	// PublishCallEvent returns nil if publishing is disabled or succeeds.
	// Errors are logged and never block ingestion.
	PublishCallEvent(ctx context.Context, event *models.CallEvent) error
}

// newCallEvent builds the event for a record that entered a store.
func newCallEvent(device string, rec models.CallRecord, res store.InsertResult) *models.CallEvent {
	change := models.ChangeAdded
	if res == store.Replaced {
		change = models.ChangeReplaced
	}
	return &models.CallEvent{
		ID:          uuid.NewString(),
		Device:      device,
		Change:      change,
		Call:        rec.Normalized(),
		PublishedAt: time.Now().UTC(),
	}
}

// publishCallEvents sends one event per record and counts the outcome.
func publishCallEvents(ctx context.Context, pub EventPublisher, device string, recs []models.CallRecord, res store.InsertResult) {
	if pub == nil || len(recs) == 0 {
		return
	}
	for _, rec := range recs {
		ev := newCallEvent(device, rec, res)

		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := pub.PublishCallEvent(pctx, ev)
		cancel()

		if err != nil {
			metrics.EventsPublished.WithLabelValues(device, "error").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("device", device).Str("event_id", ev.ID).Msg("Failed to publish call event")
			continue
		}
		metrics.EventsPublished.WithLabelValues(device, "success").Inc()
	}
}

// pendingEvents is one batch of records waiting to be published.
type pendingEvents struct {
	recs []models.CallRecord
	res  store.InsertResult
}

// enqueueEvents hands recs to the publish loop without blocking. With no
// publisher configured nothing is queued.
func (d *Device) enqueueEvents(recs []models.CallRecord, res store.InsertResult) {
	if len(recs) == 0 || d.publisher() == nil {
		return
	}
	select {
	case d.events <- pendingEvents{recs: recs, res: res}:
	default:
		metrics.EventsPublished.WithLabelValues(d.ID, "dropped").Add(float64(len(recs)))
		d.logger.Warn().Int("events", len(recs)).Msg("Publish queue full, dropping call events")
	}
}

// publishLoop drains the queue until the device is closed.
func (d *Device) publishLoop() {
	for {
		select {
		case <-d.stop:
			return
		case batch := <-d.events:
			publishCallEvents(context.Background(), d.publisher(), d.ID, batch.recs, batch.res)
		}
	}
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

//go:build integration && nats

package eventprocessor

import (
	"context"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/testinfra"
)

func TestJetStream_DeduplicatesRepublishedEvents(t *testing.T) {
	container := testinfra.StartNATS(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	nc, err := natsgo.Connect(container.URL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}

	streamCfg := DefaultStreamConfig("FRITZCALL_TEST", "fritzcall.test")
	si, err := NewStreamInitializer(js, &streamCfg)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := si.EnsureStream(ctx)
	if err != nil {
		t.Fatalf("EnsureStream: %v", err)
	}
	if _, err := si.EnsureStream(ctx); err != nil {
		t.Fatalf("second EnsureStream: %v", err)
	}

	pub, err := NewPublisher(DefaultPublisherConfig(container.URL, "fritzcall.test"), nil)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	at := time.Now().Truncate(time.Second)
	first := testEvent("home", models.ChangeAdded, at)
	again := testEvent("home", models.ChangeAdded, at)
	again.ID = "evt-again"
	other := testEvent("office", models.ChangeAdded, at)

	for _, ev := range []*models.CallEvent{first, again, other} {
		if err := pub.PublishCallEvent(ctx, ev); err != nil {
			t.Fatalf("PublishCallEvent(%s): %v", ev.ID, err)
		}
	}

	info, err := stream.Info(ctx)
	if err != nil {
		t.Fatalf("stream info: %v", err)
	}
	if info.State.Msgs != 2 {
		t.Errorf("stream holds %d messages, want 2", info.State.Msgs)
	}
}

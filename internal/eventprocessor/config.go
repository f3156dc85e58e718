// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package eventprocessor

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fritzcall/internal/models"
)

// messageIDNamespace scopes the name-based UUIDs used as Nats-Msg-Id.
var messageIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tomtom215/fritzcall/call-events"))

// PublisherConfig holds publisher connection settings.
type PublisherConfig struct {
	URL             string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
}

// DefaultPublisherConfig returns production defaults for the publisher.
func DefaultPublisherConfig(url, subjectPrefix string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		SubjectPrefix:   subjectPrefix,
		MaxReconnects:   -1, // Unlimited
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
	}
}

// SubscriberConfig holds settings for the durable consumer that relays
// call events to websocket clients.
type SubscriberConfig struct {
	URL            string
	StreamName     string
	DurableName    string
	AckWaitTimeout time.Duration
	MaxDeliver     int
	CloseTimeout   time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// DefaultSubscriberConfig returns production defaults for the subscriber.
func DefaultSubscriberConfig(url, streamName, durableName string) SubscriberConfig {
	return SubscriberConfig{
		URL:            url,
		StreamName:     streamName,
		DurableName:    durableName,
		AckWaitTimeout: 30 * time.Second,
		MaxDeliver:     5,
		CloseTimeout:   30 * time.Second,
		MaxReconnects:  -1,
		ReconnectWait:  2 * time.Second,
	}
}

// StreamConfig defines the call event stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns a stream capturing every subject under prefix.
func DefaultStreamConfig(name, subjectPrefix string) StreamConfig {
	return StreamConfig{
		Name:            name,
		Subjects:        []string{WildcardSubject(subjectPrefix)},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        1024 * 1024 * 1024, // 1GB
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// Subject returns the subject for a device's call events, e.g.
// fritzcall.calls.home.
func Subject(prefix, device string) string {
	return strings.TrimSuffix(prefix, ".") + "." + device
}

// WildcardSubject matches every device under prefix.
func WildcardSubject(prefix string) string {
	return strings.TrimSuffix(prefix, ".") + ".>"
}

// MessageID derives the Nats-Msg-Id for an event from the call's identity
// and the kind of change. Republishing the same change yields the same ID,
// so JetStream drops it inside the duplicate window.
func MessageID(event *models.CallEvent) string {
	return uuid.NewSHA1(messageIDNamespace, []byte(event.Change+"|"+event.IdentityKey())).String()
}

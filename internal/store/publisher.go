// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package store

import (
	"sync"

	"github.com/tomtom215/fritzcall/internal/models"
)

// Publisher fans snapshots out to subscribers. Each subscriber owns a
// single-slot channel holding the newest undelivered snapshot; Publish never
// blocks and never delivers a version older than one already delivered.
type Publisher struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

type subscriber struct {
	ch   chan models.Snapshot
	last uint64
	seen bool
}

// NewPublisher creates a publisher with no subscribers.
func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[uint64]*subscriber)}
}

// Subscribe registers a subscriber primed with initial. The returned
// function removes the subscriber and closes its channel; it is safe to call
// more than once.
func (p *Publisher) Subscribe(initial models.Snapshot) (<-chan models.Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &subscriber{ch: make(chan models.Snapshot, 1)}
	if p.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	p.nextID++
	id := p.nextID
	p.subs[id] = sub
	sub.offer(initial)

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { p.unsubscribe(id) })
	}
}

func (p *Publisher) unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sub, ok := p.subs[id]; ok {
		delete(p.subs, id)
		close(sub.ch)
	}
}

// Publish offers snap to every subscriber.
func (p *Publisher) Publish(snap models.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, sub := range p.subs {
		sub.offer(snap)
	}
}

// offer replaces any pending snapshot with snap unless snap is stale.
// Callers hold p.mu, so offer is the only writer to sub.ch.
func (sub *subscriber) offer(snap models.Snapshot) {
	if sub.seen && snap.Version <= sub.last {
		return
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- snap:
	default:
	}
	sub.last = snap.Version
	sub.seen = true
}

// SubscriberCount returns the number of active subscribers.
func (p *Publisher) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Close closes every subscriber channel. Later subscriptions receive a
// closed channel.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, sub := range p.subs {
		delete(p.subs, id)
		close(sub.ch)
	}
}

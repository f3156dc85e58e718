// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package store

import (
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/fritzcall/internal/models"
)

// DefaultRetention is the call retention window.
const DefaultRetention = 60 * 24 * time.Hour

// InsertResult describes what an insert did to the store.
type InsertResult int

const (
	// Duplicate means the key was already present and nothing changed.
	Duplicate InsertResult = iota
	// Added means a new record was inserted.
	Added
	// Replaced means a live record was replaced by its history counterpart.
	Replaced
)

func (r InsertResult) String() string {
	switch r {
	case Added:
		return "added"
	case Replaced:
		return "replaced"
	default:
		return "duplicate"
	}
}

// Config configures a Store.
type Config struct {
	// Retention is the age beyond which Sweep evicts calls. Zero means DefaultRetention.
	Retention time.Duration

	// Now supplies the current time. Defaults to time.Now.
	Now func() time.Time
}

// Stats holds cumulative counters for a store.
type Stats struct {
	Added      int64
	Replaced   int64
	Duplicates int64
	Evicted    int64
	Sweeps     int64
	LastSweep  time.Time
}

// Store is the merge store for one device.
type Store struct {
	mu         sync.Mutex
	calls      []models.CallRecord
	keys       map[models.CallKey]models.Source
	voicemails []models.VoicemailRecord
	vmKeys     map[models.VoicemailKey]struct{}
	version    uint64
	updatedAt  time.Time
	stats      Stats

	retention time.Duration
	now       func() time.Time
	pub       *Publisher
}

// New creates an empty store.
//
// Example:
//
//	s := store.New(store.Config{})
//	snaps, cancel := s.Subscribe()
//	defer cancel()
func New(cfg Config) *Store {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		keys:      make(map[models.CallKey]models.Source),
		vmKeys:    make(map[models.VoicemailKey]struct{}),
		retention: cfg.Retention,
		now:       cfg.Now,
		pub:       NewPublisher(),
	}
}

// Retention returns the configured retention window.
func (s *Store) Retention() time.Duration {
	return s.retention
}

// AddCall inserts one record following the merge policy. The record is
// normalized first: an unknown direction becomes DirectionUnknown and a
// negative duration becomes 0. A record with a zero OccurredAt is ignored.
func (s *Store) AddCall(c models.CallRecord) InsertResult {
	s.mu.Lock()
	res := s.insertLocked(c)
	snap, changed := s.commitLocked(res != Duplicate)
	s.mu.Unlock()

	if changed {
		s.pub.Publish(snap)
	}
	return res
}

// BatchResult reports what AddCalls did with a batch.
type BatchResult struct {
	Added      []models.CallRecord
	Replaced   []models.CallRecord
	Duplicates int
}

// Changed returns the number of records that changed visible state.
func (b BatchResult) Changed() int {
	return len(b.Added) + len(b.Replaced)
}

// AddCalls inserts a batch in order under one lock and publishes at most once.
func (s *Store) AddCalls(calls []models.CallRecord) BatchResult {
	var res BatchResult
	if len(calls) == 0 {
		return res
	}

	s.mu.Lock()
	for _, c := range calls {
		switch s.insertLocked(c) {
		case Added:
			res.Added = append(res.Added, c.Normalized())
		case Replaced:
			res.Replaced = append(res.Replaced, c.Normalized())
		default:
			res.Duplicates++
		}
	}
	snap, changed := s.commitLocked(res.Changed() > 0)
	s.mu.Unlock()

	if changed {
		s.pub.Publish(snap)
	}
	return res
}

func (s *Store) insertLocked(c models.CallRecord) InsertResult {
	if c.OccurredAt.IsZero() {
		s.stats.Duplicates++
		return Duplicate
	}
	c = c.Normalized()
	key := c.Key()

	existing, ok := s.keys[key]
	if ok {
		if existing == models.SourceLive && c.Source == models.SourceHistory {
			if i, found := s.findLocked(key); found {
				s.calls[i] = c
				s.keys[key] = c.Source
				s.stats.Replaced++
				return Replaced
			}
		}
		s.stats.Duplicates++
		return Duplicate
	}

	// Insert after every record at or before c.OccurredAt so that records
	// sharing a timestamp keep arrival order.
	i := sort.Search(len(s.calls), func(i int) bool {
		return s.calls[i].OccurredAt.After(c.OccurredAt)
	})
	s.calls = append(s.calls, models.CallRecord{})
	copy(s.calls[i+1:], s.calls[i:])
	s.calls[i] = c
	s.keys[key] = c.Source
	s.stats.Added++
	return Added
}

func (s *Store) findLocked(key models.CallKey) (int, bool) {
	i := sort.Search(len(s.calls), func(i int) bool {
		return s.calls[i].OccurredAt.UnixNano() >= key.At
	})
	for ; i < len(s.calls) && s.calls[i].OccurredAt.UnixNano() == key.At; i++ {
		if s.calls[i].Key() == key {
			return i, true
		}
	}
	return 0, false
}

// Sweep evicts calls older than the retention window measured from now and
// returns how many were removed. Voicemails are not affected.
func (s *Store) Sweep(now time.Time) int {
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	n := sort.Search(len(s.calls), func(i int) bool {
		return !s.calls[i].OccurredAt.Before(cutoff)
	})
	for _, c := range s.calls[:n] {
		delete(s.keys, c.Key())
	}
	if n > 0 {
		s.calls = append(s.calls[:0:0], s.calls[n:]...)
	}
	s.stats.Evicted += int64(n)
	s.stats.Sweeps++
	s.stats.LastSweep = now
	snap, changed := s.commitLocked(n > 0)
	s.mu.Unlock()

	if changed {
		s.pub.Publish(snap)
	}
	return n
}

// AddVoicemails inserts voicemails that are not yet known and returns how
// many were added.
func (s *Store) AddVoicemails(vms []models.VoicemailRecord) int {
	s.mu.Lock()
	added := 0
	for _, vm := range vms {
		if s.insertVoicemailLocked(vm) {
			added++
		}
	}
	snap, changed := s.commitLocked(added > 0)
	s.mu.Unlock()

	if changed {
		s.pub.Publish(snap)
	}
	return added
}

// SyncVoicemails makes vms the complete voicemail set: unknown messages are
// added and messages the device no longer reports are dropped.
func (s *Store) SyncVoicemails(vms []models.VoicemailRecord) (added, removed int) {
	want := make(map[models.VoicemailKey]struct{}, len(vms))
	for _, vm := range vms {
		if !vm.ReceivedAt.IsZero() {
			want[vm.Key()] = struct{}{}
		}
	}

	s.mu.Lock()
	kept := s.voicemails[:0:0]
	for _, vm := range s.voicemails {
		if _, ok := want[vm.Key()]; ok {
			kept = append(kept, vm)
			continue
		}
		delete(s.vmKeys, vm.Key())
		removed++
	}
	s.voicemails = kept
	for _, vm := range vms {
		if s.insertVoicemailLocked(vm) {
			added++
		}
	}
	snap, changed := s.commitLocked(added+removed > 0)
	s.mu.Unlock()

	if changed {
		s.pub.Publish(snap)
	}
	return added, removed
}

func (s *Store) insertVoicemailLocked(vm models.VoicemailRecord) bool {
	if vm.ReceivedAt.IsZero() {
		return false
	}
	key := vm.Key()
	if _, ok := s.vmKeys[key]; ok {
		return false
	}
	i := sort.Search(len(s.voicemails), func(i int) bool {
		return s.voicemails[i].ReceivedAt.After(vm.ReceivedAt)
	})
	s.voicemails = append(s.voicemails, models.VoicemailRecord{})
	copy(s.voicemails[i+1:], s.voicemails[i:])
	s.voicemails[i] = vm
	s.vmKeys[key] = struct{}{}
	return true
}

// commitLocked bumps the version when changed and returns the snapshot to
// publish once the caller has released the lock.
func (s *Store) commitLocked(changed bool) (models.Snapshot, bool) {
	if !changed {
		return models.Snapshot{}, false
	}
	s.version++
	s.updatedAt = s.now()
	return s.snapshotLocked(), true
}

// Snapshot returns an immutable copy of the current state.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() models.Snapshot {
	calls := make([]models.CallRecord, len(s.calls))
	copy(calls, s.calls)
	vms := make([]models.VoicemailRecord, len(s.voicemails))
	copy(vms, s.voicemails)
	return models.Snapshot{
		Version:    s.version,
		UpdatedAt:  s.updatedAt,
		Calls:      calls,
		Voicemails: vms,
	}
}

// Len returns the number of calls and voicemails currently held.
func (s *Store) Len() (calls, voicemails int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls), len(s.voicemails)
}

// Stats returns a copy of the cumulative counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Subscribe registers an observer. The current snapshot is delivered
// immediately, followed by every later version the observer keeps up with.
// The returned function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan models.Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Holding the store lock orders the initial snapshot before any
	// version published by a concurrent writer.
	return s.pub.Subscribe(s.snapshotLocked())
}

// Close unsubscribes every observer.
func (s *Store) Close() {
	s.pub.Close()
}

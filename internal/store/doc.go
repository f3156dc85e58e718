// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package store holds the reconciled, in-memory view of calls and voicemails
for one device.

Two writers feed a Store concurrently: the call monitor stream reader, which
reports calls the moment they ring or are dialed, and the TR-064 history
poller, which reports the device's durable call list once per interval. Both
produce models.CallRecord values and the Store deduplicates them by identity:

	(Direction, Number, OccurredAt)

Duration is not part of identity. A live RING reports 0 seconds and the
later call-list entry for the same call reports the real duration; both map
to the same key, so the second insert never creates a duplicate.

# Merge Policy

  - Inserting a record whose key is absent adds it in time order.
  - Inserting a history record whose key belongs to a live record replaces
    the live record in place. The count does not change.
  - Any other insert with a known key is a no-op.

# Retention

Sweep drops calls whose OccurredAt is older than the retention window
(60 days by default). The history poller runs it once per cycle. Voicemails
are never swept; SyncVoicemails makes the device's message list authoritative.

# Snapshots and Publishing

Snapshot returns deep copies, so readers never observe a collection while it
is being mutated. Every mutation that changes visible state bumps a version
counter and, after the store's mutex has been released, hands the new
snapshot to the Publisher. Subscribers receive the latest version through a
single-slot channel; a slow subscriber skips intermediate versions and never
blocks a writer.

# Thread Safety

All methods are safe for concurrent use. A single mutex guards reads,
mutations and the version counter.
*/
package store

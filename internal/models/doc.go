// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package models defines the data structures shared by Fritzcall's packages.

Key types:

  - CallRecord: one call observation from either the live call monitor or
    the TR-064 call list. Its identity is (Direction, Number, OccurredAt).
  - VoicemailRecord: one message from the TR-064 message list.
  - Snapshot: an immutable copy of a store's calls and voicemails.
  - LiveState: the current call state projection (idle, ringing, dialing, talking).
  - APIResponse: the HTTP response envelope.

Weekday, Date and Clock on CallRecord are view projections of OccurredAt and
are only materialized when a record is encoded to JSON.
*/
package models

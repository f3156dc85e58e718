// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

// Package logging provides centralized zerolog-based structured logging for Fritzcall.
//
// JSON output is the production default; console output is available for
// development. A correlation ID can be attached to a context so that every
// line emitted during one history poll cycle can be grouped together.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("device", "fritzbox-1a2b3c4d").Msg("Call monitor connected")
//
//	ctx = logging.ContextWithDevice(ctx, "home")
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.CtxWarn(ctx).Err(err).Msg("GetCallList rejected")
//
// # Configuration
//
// Environment variables (mapped by the config package):
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// # Suture Integration
//
// NewSlogLogger returns a *slog.Logger backed by the global zerolog logger so
// that sutureslog can report supervisor events through the same pipeline.
//
// Always terminate event chains with Msg or Send; an unterminated chain is
// never written.
package logging

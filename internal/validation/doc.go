// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

// Package validation wraps go-playground/validator v10 with a shared
// instance, a few call-domain tags and translation into the API error
// envelope.
//
// It validates two kinds of input: HTTP query parameters bound into request
// structs by the api package, and device sections of the configuration.
//
//	type callsQuery struct {
//	    Type  string `validate:"direction"`
//	    Limit int    `validate:"min=0,max=5000"`
//	}
//
//	if verr := validation.ValidateStruct(&q); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// Failed fields are reported with code VALIDATION_ERROR. A single failure
// carries field, tag and value in Details; several failures are listed
// under Details["fields"].
package validation

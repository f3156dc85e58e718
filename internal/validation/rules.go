// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package validation

import (
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/fritzcall/internal/models"
)

// rule is a custom tag with the message reported when it fails.
type rule struct {
	fn      validator.Func
	message string
}

var rules = map[string]rule{
	"direction": {
		fn:      validateDirection,
		message: "%s must be one of: incoming, outgoing, missed, unknown",
	},
	"devicehost": {
		fn:      validateDeviceHost,
		message: "%s must be a host name or IP address",
	},
	"tr064service": {
		fn:      validateTR064Service,
		message: "%s must be a versioned service name like X_AVM-DE_OnTel:2",
	},
}

// validateDirection accepts an empty string or a call direction name.
func validateDirection(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, ok := models.ParseDirection(s)
	return ok
}

// validateDeviceHost accepts an IP address or an RFC 1123 host name, without
// a port.
func validateDeviceHost(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > 253 {
		return false
	}
	if net.ParseIP(s) != nil {
		return true
	}
	for _, label := range strings.Split(strings.TrimSuffix(s, "."), ".") {
		if !hostLabel(label) {
			return false
		}
	}
	return true
}

func hostLabel(label string) bool {
	if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		switch {
		case r == '-', r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

// validateTR064Service accepts <name>:<version>, e.g. X_AVM-DE_OnTel:2.
func validateTR064Service(fl validator.FieldLevel) bool {
	name, version, ok := strings.Cut(fl.Field().String(), ":")
	if !ok || name == "" || strings.ContainsAny(name, " :/") {
		return false
	}
	v, err := strconv.Atoi(version)
	return err == nil && v > 0
}

// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package tr064

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const serviceURNPrefix = "urn:dslforum-org:service:"

// controlURLs maps a service name (without version) to its control path.
var controlURLs = map[string]string{
	"X_AVM-DE_OnTel": "/upnp/control/x_contact",
	"X_AVM-DE_TAM":   "/upnp/control/x_tam",
	"DeviceInfo":     "/upnp/control/deviceinfo",
}

// ServiceType returns the URN for a service such as "X_AVM-DE_OnTel:1".
// A service without a version is assumed to be version 1.
func ServiceType(service string) string {
	if !strings.Contains(service, ":") {
		service += ":1"
	}
	return serviceURNPrefix + service
}

// ControlURL returns the control path for service.
func ControlURL(service string) string {
	name, _, _ := strings.Cut(service, ":")
	if u, ok := controlURLs[name]; ok {
		return u
	}
	return "/upnp/control/" + strings.ToLower(name)
}

// SOAPFault is a UPnP error returned by the device.
type SOAPFault struct {
	Service     string
	Action      string
	Code        int
	Description string
}

func (f *SOAPFault) Error() string {
	return fmt.Sprintf("tr064: %s#%s: upnp error %d: %s", f.Service, f.Action, f.Code, f.Description)
}

// IsFault reports whether err wraps a *SOAPFault.
func IsFault(err error) bool {
	var f *SOAPFault
	return errors.As(err, &f)
}

func buildEnvelope(service, action string, args map[string]string) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>`)
	fmt.Fprintf(&buf, `<u:%s xmlns:u="%s">`, action, ServiceType(service))

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&buf, "<%s>", name)
		_ = xml.EscapeText(&buf, []byte(args[name]))
		fmt.Fprintf(&buf, "</%s>", name)
	}

	fmt.Fprintf(&buf, "</u:%s></s:Body></s:Envelope>", action)
	return buf.Bytes()
}

type envelope struct {
	Body struct {
		Fault    *fault    `xml:"Fault"`
		Response *response `xml:",any"`
	} `xml:"Body"`
}

type fault struct {
	FaultString string `xml:"faultstring"`
	Detail      struct {
		UPnPError struct {
			Code        int    `xml:"errorCode"`
			Description string `xml:"errorDescription"`
		} `xml:"UPnPError"`
	} `xml:"detail"`
}

type response struct {
	XMLName xml.Name
	Args    []argument `xml:",any"`
}

type argument struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// decodeEnvelope returns the out arguments of a response, or a *SOAPFault.
func decodeEnvelope(service, action string, data []byte) (map[string]string, error) {
	var env envelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("tr064: decode %s response: %w", action, err)
	}
	if f := env.Body.Fault; f != nil {
		desc := f.Detail.UPnPError.Description
		if desc == "" {
			desc = f.FaultString
		}
		return nil, &SOAPFault{Service: service, Action: action, Code: f.Detail.UPnPError.Code, Description: desc}
	}
	if env.Body.Response == nil {
		return nil, fmt.Errorf("tr064: %s response has an empty body", action)
	}
	out := make(map[string]string, len(env.Body.Response.Args))
	for _, a := range env.Body.Response.Args {
		out[a.XMLName.Local] = strings.TrimSpace(a.Value)
	}
	return out, nil
}

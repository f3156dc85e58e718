// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package tr064 is a small TR-064 SOAP client for the call-list and
message-list actions of the X_AVM-DE_OnTel service.

A TR-064 action is a SOAP 1.1 POST to the service's control URL:

	POST /upnp/control/x_contact HTTP/1.1
	SOAPACTION: "urn:dslforum-org:service:X_AVM-DE_OnTel:1#GetCallList"

GetCallList and GetMessageList do not return the list itself. They return a
URL argument (NewCallListURL, NewMessageListURL) pointing at an XML document
on the device; CallAction follows that URL and decodes the document into the
caller's value.

Devices require HTTP digest authentication for most actions. The client
answers the first 401 challenge and reuses the nonce for later requests
until the device issues a new one. Requests are paced by a token bucket
limiter (golang.org/x/time/rate) so that a slow device is not flooded when
several service variants are tried back to back.

SOAP faults are returned as *SOAPFault. A fault means the device was reached
and rejected the action, which callers use to distinguish "try the next
service variant" from transport failures.
*/
package tr064

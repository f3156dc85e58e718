// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package tr064

// Action names used by Fritzcall.
const (
	ActionGetCallList    = "GetCallList"
	ActionGetMessageList = "GetMessageList"
)

// CallList is the document behind NewCallListURL.
type CallList struct {
	Timestamp string `xml:"timestamp"`
	Calls     []Call `xml:"Call"`
}

// Call is one entry of a call list. Devices report the start time either in
// Time (ISO form) or in Date (DD.MM.YY HH:MM), and Duration either as
// seconds or as H:MM.
type Call struct {
	ID           string `xml:"Id"`
	Type         string `xml:"Type"`
	Caller       string `xml:"Caller"`
	Called       string `xml:"Called"`
	CallerNumber string `xml:"CallerNumber"`
	CalledNumber string `xml:"CalledNumber"`
	Name         string `xml:"Name"`
	Device       string `xml:"Device"`
	Port         string `xml:"Port"`
	Time         string `xml:"Time"`
	Date         string `xml:"Date"`
	Duration     string `xml:"Duration"`
}

// MessageList is the document behind NewMessageListURL.
type MessageList struct {
	Messages []Message `xml:"Message"`
}

// Message is one answering machine entry.
type Message struct {
	Index      string `xml:"Index"`
	Tam        string `xml:"Tam"`
	Called     string `xml:"Called"`
	Number     string `xml:"Number"`
	Name       string `xml:"Name"`
	New        string `xml:"New"`
	Timestamp  string `xml:"Timestamp"`
	Date       string `xml:"Date"`
	Duration   string `xml:"Duration"`
	MessageURL string `xml:"MessageURL"`
	Path       string `xml:"Path"`
}

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package model

import "time"

// EventTypeScan is the type recorded for every redirect served.
const EventTypeScan = "scan"

// UnknownOwner marks a visit whose owner could not be determined.
// Counters are never incremented for it.
const UnknownOwner = "unknown"

// Owner counter fields.
const (
	ScanCountField  = "scan_count"
	LastActiveField = "last_active"
)

// Link maps a short identifier to its destination and owner.
type Link struct {
	// ID is the short identifier presented in the request path.
	ID string `json:"id" dynamodbav:"id"`

	// DestinationURL is where visitors are sent. It may be empty, in which case
	// the identifier is treated as a profile reference.
	DestinationURL string `json:"destination_url,omitempty" dynamodbav:"destination_url,omitempty"`

	// OwnerID is the account credited for visits.
	OwnerID string `json:"owner_id" dynamodbav:"owner_id"`
}

// VisitorData describes the client behind a visit.
type VisitorData struct {
	IP        string `json:"ip" dynamodbav:"ip"`
	UserAgent string `json:"user_agent" dynamodbav:"user_agent"`
	Referer   string `json:"referer" dynamodbav:"referer"`
}

// VisitEvent is the append-only analytics record written once per redirect.
type VisitEvent struct {
	ID          string      `json:"id" dynamodbav:"id"`
	Type        string      `json:"type" dynamodbav:"type"`
	ResourceID  string      `json:"resource_id" dynamodbav:"resource_id"`
	OwnerID     string      `json:"owner_id" dynamodbav:"owner_id"`
	Timestamp   time.Time   `json:"timestamp" dynamodbav:"timestamp"`
	VisitorData VisitorData `json:"visitor_data" dynamodbav:"visitor_data"`
}

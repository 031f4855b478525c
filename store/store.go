// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"time"

	"github.com/simpli-fi/airlock/model"
)

const (
	// TypeLabel is for labeling metrics; if there is a single metric for
	// successful queries, the typeLabel and corresponding type can be used
	// when incrementing the metric.
	TypeLabel     = "type"
	LookupType    = "lookup"
	AppendType    = "append"
	IncrementType = "increment"
	PingType      = "ping"
)

// S is the durable store consulted on the redirect path. Implementations must be
// safe for concurrent use.
type S interface {
	// Lookup returns the link registered under id. ErrItemNotFound is returned
	// (possibly wrapped) when no such link exists.
	Lookup(ctx context.Context, id string) (model.Link, error)

	// AppendEvent adds a visit event to the event log.
	AppendEvent(ctx context.Context, event model.VisitEvent) error

	// IncrementCounter atomically adds amount to the owner's field and sets its
	// last active time to at. Owners that do not exist are not created; ErrItemNotFound
	// is returned instead.
	IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) error
}

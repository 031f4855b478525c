// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"emperror.dev/errors"
	"github.com/simpli-fi/airlock/model"
)

// DefaultSubject is the NATS subject visit events are published on.
const DefaultSubject = "airlock.events"

// EventSink receives visit events.
type EventSink interface {
	AppendEvent(ctx context.Context, event model.VisitEvent) error
}

// CounterStore updates owner counters.
type CounterStore interface {
	IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) error
}

// publisher is the part of a NATS connection the sink uses.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes JSON encoded visit events to a subject.
type NATSSink struct {
	conn    publisher
	subject string
}

func NewNATSSink(conn publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) AppendEvent(_ context.Context, event model.VisitEvent) error {
	data, err := json.Marshal(&event)
	if err != nil {
		return errors.WrapWithDetails(err, "failed to encode visit event", "id", event.ID)
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return errors.WrapWithDetails(err, "failed to publish visit event", "id", event.ID, "subject", s.subject)
	}
	return nil
}

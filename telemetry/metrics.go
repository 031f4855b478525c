// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventsCounter   = "telemetry_events_total"
	OutcomeLabelKey = "outcome"

	RecordedOutcome = "recorded"
	FailedOutcome   = "failed"
	DroppedOutcome  = "dropped"
)

// Measures are the telemetry metrics.
type Measures struct {
	Events metrics.Counter
}

// NewMeasures builds the telemetry metrics and registers them with r.
func NewMeasures(r prometheus.Registerer) (*Measures, error) {
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: EventsCounter,
			Help: "The total number of visit events by outcome.",
		},
		[]string{OutcomeLabelKey},
	)
	if err := r.Register(events); err != nil {
		return nil, err
	}
	return &Measures{Events: kitprometheus.NewCounter(events)}, nil
}

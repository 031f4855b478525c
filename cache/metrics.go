// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	LookupsCounter     = "cache_lookups_total"
	ExpirationsCounter = "cache_expirations_total"
	EntriesGauge       = "cache_entries"
)

// Labels.
const (
	ResultLabelKey = "result"

	HitResult  = "hit"
	MissResult = "miss"
)

// Measures reports what the cache is doing.
type Measures struct {
	Lookups     metrics.Counter
	Expirations metrics.Counter
	Entries     metrics.Gauge
}

// NewMeasures builds the cache metrics and registers them with r.
func NewMeasures(r prometheus.Registerer) (*Measures, error) {
	lookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: LookupsCounter,
			Help: "The total number of cache lookups by result.",
		},
		[]string{ResultLabelKey},
	)
	expirations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: ExpirationsCounter,
			Help: "The total number of entries removed after their TTL passed.",
		},
		[]string{},
	)
	entries := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: EntriesGauge,
			Help: "The number of entries currently held.",
		},
		[]string{},
	)

	for _, c := range []prometheus.Collector{lookups, expirations, entries} {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}

	return &Measures{
		Lookups:     kitprometheus.NewCounter(lookups),
		Expirations: kitprometheus.NewCounter(expirations),
		Entries:     kitprometheus.NewGauge(entries),
	}, nil
}

func discardMeasures() *Measures {
	return &Measures{
		Lookups:     discard.NewCounter(),
		Expirations: discard.NewCounter(),
		Entries:     discard.NewGauge(),
	}
}

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metric names.
const (
	QueryCounter                  = "store_queries_total"
	QueryDurationHistogram        = "store_query_duration_seconds"
	DynamodbConsumedCapacityCount = "dynamodb_consumed_capacity_total"
)

// Label keys.
const (
	QueryOutcomeLabelKey     = "outcome"
	QueryTypeLabelKey        = "type"
	DynamoCapacityOpLabelKey = "op"
)

// Label values.
const (
	SuccessQueryOutcome = "success"
	FailQueryOutcome    = "fail"

	LookupQueryType    = "lookup"
	AppendQueryType    = "append"
	IncrementQueryType = "increment"
	PingQueryType      = "ping"

	DynamoCapacityReadOp  = "read"
	DynamoCapacityWriteOp = "write"
)

// Measures are the store metrics shared by all backends.
type Measures struct {
	Queries                  metrics.Counter
	QueryDurationSeconds     metrics.Histogram
	DynamodbConsumedCapacity metrics.Counter
}

// NewMeasures builds the store metrics and registers them with r.
func NewMeasures(r prometheus.Registerer) (*Measures, error) {
	queries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: QueryCounter,
			Help: "The total number of store queries by type and outcome.",
		},
		[]string{QueryOutcomeLabelKey, QueryTypeLabelKey},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    QueryDurationHistogram,
			Help:    "A histogram of latencies for store queries.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 1, 5},
		},
		[]string{QueryTypeLabelKey},
	)
	capacity := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: DynamodbConsumedCapacityCount,
			Help: "The number of DynamoDB capacity units consumed.",
		},
		[]string{DynamoCapacityOpLabelKey},
	)

	for _, c := range []prometheus.Collector{queries, duration, capacity} {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}

	return &Measures{
		Queries:                  kitprometheus.NewCounter(queries),
		QueryDurationSeconds:     kitprometheus.NewHistogram(duration),
		DynamodbConsumedCapacity: kitprometheus.NewCounter(capacity),
	}, nil
}

// ProvideMetrics makes the store Measures available to the container.
func ProvideMetrics() fx.Option {
	return fx.Provide(NewMeasures)
}

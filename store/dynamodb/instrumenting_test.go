// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
	"github.com/simpli-fi/airlock/store/db/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentingService(t *testing.T) {
	assert := assert.New(t)
	m := new(mockService)
	u := new(mockMeasuresUpdater)
	now := time.Now()
	fixedNow := func() time.Time {
		return now
	}
	link := model.Link{ID: "abc123"}
	event := model.VisitEvent{ID: "e1"}
	consumedCapacity := &types.ConsumedCapacity{}
	err := errors.New("err")

	svc := newInstrumentingService(u, m, fixedNow)

	m.On("Lookup", "abc123").Return(link, consumedCapacity, err).Once()
	m.On("AppendEvent", event).Return(consumedCapacity, nil).Once()
	m.On("IncrementCounter", "u1", model.ScanCountField, int64(1), now).Return(consumedCapacity, nil).Once()

	u.On("Update", &measureUpdateRequest{err: err, consumedCapacity: consumedCapacity, queryType: metric.LookupQueryType, start: now}).Once()
	u.On("Update", &measureUpdateRequest{consumedCapacity: consumedCapacity, queryType: metric.AppendQueryType, start: now}).Once()
	u.On("Update", &measureUpdateRequest{consumedCapacity: consumedCapacity, queryType: metric.IncrementQueryType, start: now}).Once()

	l, cc, e := svc.Lookup(context.Background(), "abc123")
	assert.Equal(link, l)
	assert.Equal(consumedCapacity, cc)
	assert.Equal(err, e)

	cc, e = svc.AppendEvent(context.Background(), event)
	assert.Equal(consumedCapacity, cc)
	assert.Nil(e)

	cc, e = svc.IncrementCounter(context.Background(), "u1", model.ScanCountField, 1, now)
	assert.Equal(consumedCapacity, cc)
	assert.Nil(e)

	m.AssertExpectations(t)
	u.AssertExpectations(t)
}

func TestMeasuresUpdate(t *testing.T) {
	var (
		readCapacityUnits  float64 = 3
		writeCapacityUnits float64 = 5
		totalCapacityUnits float64 = 0.5
	)
	testCases := []struct {
		Name                  string
		QueryType             string
		ConsumedCapacity      *types.ConsumedCapacity
		Err                   error
		ExpectedSuccessCount  float64
		ExpectedFailCount     float64
		ExpectedReadCapacity  float64
		ExpectedWriteCapacity float64
	}{
		{
			Name:      "Successful Query",
			QueryType: metric.AppendQueryType,
			ConsumedCapacity: &types.ConsumedCapacity{
				ReadCapacityUnits:  aws.Float64(readCapacityUnits),
				WriteCapacityUnits: aws.Float64(writeCapacityUnits),
			},
			ExpectedSuccessCount:  1,
			ExpectedReadCapacity:  readCapacityUnits,
			ExpectedWriteCapacity: writeCapacityUnits,
		},
		{
			Name:      "Failed Query",
			QueryType: metric.AppendQueryType,
			ConsumedCapacity: &types.ConsumedCapacity{
				WriteCapacityUnits: aws.Float64(writeCapacityUnits),
			},
			Err:                   errors.New("bummer"),
			ExpectedFailCount:     1,
			ExpectedWriteCapacity: writeCapacityUnits,
		},
		{
			Name:                 "Not found is a success",
			QueryType:            metric.LookupQueryType,
			Err:                  store.NotFound(store.LookupType, "ghost"),
			ExpectedSuccessCount: 1,
		},
		{
			Name:                 "Total capacity on lookup counts as read",
			QueryType:            metric.LookupQueryType,
			ConsumedCapacity:     &types.ConsumedCapacity{CapacityUnits: aws.Float64(totalCapacityUnits)},
			ExpectedSuccessCount: 1,
			ExpectedReadCapacity: totalCapacityUnits,
		},
		{
			Name:                  "Total capacity on increment counts as write",
			QueryType:             metric.IncrementQueryType,
			ConsumedCapacity:      &types.ConsumedCapacity{CapacityUnits: aws.Float64(totalCapacityUnits)},
			ExpectedSuccessCount:  1,
			ExpectedWriteCapacity: totalCapacityUnits,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			registry := prometheus.NewPedanticRegistry()
			measures, err := metric.NewMeasures(registry)
			require.NoError(err)

			updater := &dynamoMeasuresUpdater{measures: measures}
			updater.Update(&measureUpdateRequest{
				err:              testCase.Err,
				consumedCapacity: testCase.ConsumedCapacity,
				queryType:        testCase.QueryType,
				start:            time.Now(),
			})

			queries := collectorValue(t, registry, metric.QueryCounter, map[string]string{
				metric.QueryOutcomeLabelKey: metric.SuccessQueryOutcome, metric.QueryTypeLabelKey: testCase.QueryType})
			assert.Equal(testCase.ExpectedSuccessCount, queries)
			queries = collectorValue(t, registry, metric.QueryCounter, map[string]string{
				metric.QueryOutcomeLabelKey: metric.FailQueryOutcome, metric.QueryTypeLabelKey: testCase.QueryType})
			assert.Equal(testCase.ExpectedFailCount, queries)

			read := collectorValue(t, registry, metric.DynamodbConsumedCapacityCount, map[string]string{
				metric.DynamoCapacityOpLabelKey: metric.DynamoCapacityReadOp})
			assert.Equal(testCase.ExpectedReadCapacity, read)
			write := collectorValue(t, registry, metric.DynamodbConsumedCapacityCount, map[string]string{
				metric.DynamoCapacityOpLabelKey: metric.DynamoCapacityWriteOp})
			assert.Equal(testCase.ExpectedWriteCapacity, write)

			count, err := testutil.GatherAndCount(registry, metric.QueryDurationHistogram)
			require.NoError(err)
			assert.Equal(1, count)
		})
	}
}

// collectorValue returns the value of the counter series matching labels, or zero
// when the series was never written.
func collectorValue(t *testing.T, g prometheus.Gatherer, name string, labels map[string]string) float64 {
	families, err := g.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if v, ok := labels[pair.GetName()]; ok && v != pair.GetValue() {
					continue series
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

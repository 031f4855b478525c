// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
	"github.com/simpli-fi/airlock/store/db/metric"
)

type measureUpdateRequest struct {
	err              error
	consumedCapacity *types.ConsumedCapacity
	queryType        string
	start            time.Time
}

type measuresUpdater interface {
	Update(*measureUpdateRequest)
}

type dynamoMeasuresUpdater struct {
	measures *metric.Measures
	now      func() time.Time
}

func (m *dynamoMeasuresUpdater) Update(request *measureUpdateRequest) {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	m.measures.QueryDurationSeconds.With(metric.QueryTypeLabelKey, request.queryType).Observe(now().Sub(request.start).Seconds())

	// a missing record is a successful query.
	outcome := metric.SuccessQueryOutcome
	if request.err != nil && !store.IsNotFound(request.err) {
		outcome = metric.FailQueryOutcome
	}
	m.measures.Queries.With(metric.QueryOutcomeLabelKey, outcome, metric.QueryTypeLabelKey, request.queryType).Add(1)

	cc := request.consumedCapacity
	if cc == nil {
		return
	}
	read, write := cc.ReadCapacityUnits, cc.WriteCapacityUnits
	if read == nil && write == nil && cc.CapacityUnits != nil {
		if request.queryType == metric.LookupQueryType {
			read = cc.CapacityUnits
		} else {
			write = cc.CapacityUnits
		}
	}
	if read != nil {
		m.measures.DynamodbConsumedCapacity.With(metric.DynamoCapacityOpLabelKey, metric.DynamoCapacityReadOp).Add(*read)
	}
	if write != nil {
		m.measures.DynamodbConsumedCapacity.With(metric.DynamoCapacityOpLabelKey, metric.DynamoCapacityWriteOp).Add(*write)
	}
}

type instrumentingService struct {
	service
	measures measuresUpdater
	now      func() time.Time
}

func newInstrumentingService(measures measuresUpdater, s service, now func() time.Time) service {
	return &instrumentingService{
		service:  s,
		measures: measures,
		now:      now,
	}
}

func (s *instrumentingService) Lookup(ctx context.Context, id string) (link model.Link, cc *types.ConsumedCapacity, err error) {
	defer func(start time.Time) {
		s.measures.Update(&measureUpdateRequest{err: err, consumedCapacity: cc, queryType: metric.LookupQueryType, start: start})
	}(s.now())
	return s.service.Lookup(ctx, id)
}

func (s *instrumentingService) AppendEvent(ctx context.Context, event model.VisitEvent) (cc *types.ConsumedCapacity, err error) {
	defer func(start time.Time) {
		s.measures.Update(&measureUpdateRequest{err: err, consumedCapacity: cc, queryType: metric.AppendQueryType, start: start})
	}(s.now())
	return s.service.AppendEvent(ctx, event)
}

func (s *instrumentingService) IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) (cc *types.ConsumedCapacity, err error) {
	defer func(start time.Time) {
		s.measures.Update(&measureUpdateRequest{err: err, consumedCapacity: cc, queryType: metric.IncrementQueryType, start: start})
	}(s.now())
	return s.service.IncrementCounter(ctx, ownerID, field, amount, at)
}

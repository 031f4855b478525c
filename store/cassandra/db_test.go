// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cassandra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
	"github.com/simpli-fi/airlock/store/db/metric"
	"github.com/simpli-fi/airlock/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, db dbStore) (*CassandraClient, *prometheus.Registry) {
	registry := prometheus.NewPedanticRegistry()
	measures, err := metric.NewMeasures(registry)
	require.NoError(t, err)
	return &CassandraClient{
		client:   db,
		config:   Config{},
		logger:   zaptest.NewLogger(t),
		measures: measures,
		now:      time.Now,
	}, registry
}

func queryCount(t *testing.T, registry *prometheus.Registry, outcome, queryType string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != metric.QueryCounter {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range m.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels[metric.QueryOutcomeLabelKey] == outcome && labels[metric.QueryTypeLabelKey] == queryType {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestCassandra(t *testing.T) {
	mockDB := &mockDB{}
	mockDB.On("Lookup", storetest.GenericTestLink.ID).Return(storetest.GenericTestLink, nil).Once()
	mockDB.On("Lookup", storetest.GenericProfileLink.ID).Return(storetest.GenericProfileLink, nil).Once()
	mockDB.On("Lookup", "ghost").Return(model.Link{}, errNoData).Once()
	mockDB.On("AppendEvent", mock.Anything).Return(nil).Once()
	mockDB.On("IncrementCounter", storetest.GenericTestLink.OwnerID, model.ScanCountField, int64(1), mock.Anything).Return(nil).Once()
	mockDB.On("IncrementCounter", "ghost", model.ScanCountField, int64(1), mock.Anything).Return(errNoData).Once()

	s, registry := newTestClient(t, mockDB)
	assert.Zero(t, queryCount(t, registry, metric.SuccessQueryOutcome, metric.LookupQueryType))

	storetest.StoreTest(s, t)

	assert.Equal(t, 3.0, queryCount(t, registry, metric.SuccessQueryOutcome, metric.LookupQueryType))
	assert.Equal(t, 1.0, queryCount(t, registry, metric.SuccessQueryOutcome, metric.AppendQueryType))
	assert.Equal(t, 2.0, queryCount(t, registry, metric.SuccessQueryOutcome, metric.IncrementQueryType))
	assert.Zero(t, queryCount(t, registry, metric.FailQueryOutcome, metric.LookupQueryType))
	mockDB.AssertExpectations(t)
}

func TestCassandraFailures(t *testing.T) {
	assert := assert.New(t)
	dbErr := errors.New("no hosts available in the pool")
	mockDB := &mockDB{}
	mockDB.On("Lookup", "abc123").Return(model.Link{}, dbErr).Once()
	mockDB.On("AppendEvent", mock.Anything).Return(dbErr).Once()
	mockDB.On("IncrementCounter", "u1", model.ScanCountField, int64(1), mock.Anything).Return(errCounterContended).Once()
	mockDB.On("Ping").Return(errServerClosed).Once()

	s, registry := newTestClient(t, mockDB)
	ctx := context.Background()

	_, err := s.Lookup(ctx, "abc123")
	assert.Equal(store.ItemOperationError{
		Err:        store.InternalError{Reason: dbErr.Error()},
		Identifier: "abc123",
		Operation:  store.LookupType,
	}, err)
	assert.False(store.IsNotFound(err))

	err = s.AppendEvent(ctx, model.VisitEvent{ID: "e1"})
	assert.Error(err)

	err = s.IncrementCounter(ctx, "u1", model.ScanCountField, 1, time.Now())
	var opErr store.ItemOperationError
	require.True(t, errors.As(err, &opErr))
	assert.True(opErr.Err.(store.InternalError).Retryable)

	assert.ErrorIs(s.Ping(), errServerClosed)

	assert.Equal(1.0, queryCount(t, registry, metric.FailQueryOutcome, metric.LookupQueryType))
	assert.Equal(1.0, queryCount(t, registry, metric.FailQueryOutcome, metric.AppendQueryType))
	assert.Equal(1.0, queryCount(t, registry, metric.FailQueryOutcome, metric.IncrementQueryType))
	assert.Equal(1.0, queryCount(t, registry, metric.FailQueryOutcome, metric.PingQueryType))

	count, err := testutil.GatherAndCount(registry, metric.QueryDurationHistogram)
	require.NoError(t, err)
	assert.Equal(4, count)
	mockDB.AssertExpectations(t)
}

func TestCreateCassandraClientValidation(t *testing.T) {
	registry := prometheus.NewPedanticRegistry()
	measures, err := metric.NewMeasures(registry)
	require.NoError(t, err)

	_, err = CreateCassandraClient(Config{}, measures, zaptest.NewLogger(t))
	assert.Equal(t, errNoHosts, err)

	_, err = CreateCassandraClient(Config{Hosts: []string{"localhost"}}, nil, zaptest.NewLogger(t))
	assert.Equal(t, errNilMeasures, err)
}

func TestValidateConfig(t *testing.T) {
	config := Config{NumRetries: -1}
	validateConfig(&config)
	assert.Equal(t, Config{
		Database:        defaultDatabase,
		OpTimeout:       defaultOpTimeout,
		NumRetries:      defaultNumRetries,
		WaitTimeMult:    defaultWaitTimeMult,
		MaxConnsPerHost: defaultMaxNumberConnsPerHost,
		PingInterval:    defaultPingInterval,
	}, config)
}

func TestClose(t *testing.T) {
	mockDB := &mockDB{}
	mockDB.On("Close").Once()
	s, _ := newTestClient(t, mockDB)
	s.Close()
	mockDB.AssertExpectations(t)
}

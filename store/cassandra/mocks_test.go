// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cassandra

import (
	"context"
	"time"

	"github.com/simpli-fi/airlock/model"
	"github.com/stretchr/testify/mock"
)

type mockDB struct {
	mock.Mock
}

func (s *mockDB) Lookup(_ context.Context, id string) (model.Link, error) {
	args := s.Called(id)
	return args.Get(0).(model.Link), args.Error(1)
}

func (s *mockDB) AppendEvent(_ context.Context, event model.VisitEvent) error {
	args := s.Called(event)
	return args.Error(0)
}

func (s *mockDB) IncrementCounter(_ context.Context, ownerID, field string, amount int64, at time.Time) error {
	args := s.Called(ownerID, field, amount, at)
	return args.Error(0)
}

func (s *mockDB) Close() {
	s.Called()
}

func (s *mockDB) Ping() error {
	args := s.Called()
	return args.Error(0)
}

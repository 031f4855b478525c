// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"time"

	"github.com/simpli-fi/airlock/model"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (s *mockStore) Lookup(ctx context.Context, id string) (model.Link, error) {
	args := s.Called(ctx, id)
	return args.Get(0).(model.Link), args.Error(1)
}

func (s *mockStore) AppendEvent(ctx context.Context, event model.VisitEvent) error {
	args := s.Called(ctx, event)
	return args.Error(0)
}

func (s *mockStore) IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) error {
	args := s.Called(ctx, ownerID, field, amount, at)
	return args.Error(0)
}

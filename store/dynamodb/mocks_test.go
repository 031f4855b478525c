// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/simpli-fi/airlock/model"
	"github.com/stretchr/testify/mock"
)

type mockService struct {
	mock.Mock
}

func (s *mockService) Lookup(_ context.Context, id string) (model.Link, *types.ConsumedCapacity, error) {
	args := s.Called(id)
	return args.Get(0).(model.Link), args.Get(1).(*types.ConsumedCapacity), args.Error(2)
}

func (s *mockService) AppendEvent(_ context.Context, event model.VisitEvent) (*types.ConsumedCapacity, error) {
	args := s.Called(event)
	return args.Get(0).(*types.ConsumedCapacity), args.Error(1)
}

func (s *mockService) IncrementCounter(_ context.Context, ownerID, field string, amount int64, at time.Time) (*types.ConsumedCapacity, error) {
	args := s.Called(ownerID, field, amount, at)
	return args.Get(0).(*types.ConsumedCapacity), args.Error(1)
}

type mockClient struct {
	mock.Mock
}

func (c *mockClient) GetItem(_ context.Context, input *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := c.Called(input)
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func (c *mockClient) PutItem(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := c.Called(input)
	return args.Get(0).(*dynamodb.PutItemOutput), args.Error(1)
}

func (c *mockClient) UpdateItem(_ context.Context, input *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := c.Called(input)
	return args.Get(0).(*dynamodb.UpdateItemOutput), args.Error(1)
}

type mockMeasuresUpdater struct {
	mock.Mock
}

func (m *mockMeasuresUpdater) Update(request *measureUpdateRequest) {
	m.Called(request)
}

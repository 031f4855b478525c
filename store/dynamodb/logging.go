// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/simpli-fi/airlock/model"
	"go.uber.org/zap"
)

type loggingService struct {
	service
	logger *zap.Logger
}

func newLoggingService(logger *zap.Logger, s service) service {
	return &loggingService{service: s, logger: logger}
}

func (s *loggingService) Lookup(ctx context.Context, id string) (link model.Link, cc *types.ConsumedCapacity, err error) {
	defer func() {
		s.logger.Debug("dynamodb lookup", zap.String("id", id), zap.Bool("hasDestination", link.DestinationURL != ""), zap.Error(err))
	}()
	return s.service.Lookup(ctx, id)
}

func (s *loggingService) IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) (cc *types.ConsumedCapacity, err error) {
	defer func() {
		s.logger.Debug("dynamodb counter update", zap.String("ownerID", ownerID), zap.String("field", field), zap.Int64("amount", amount), zap.Error(err))
	}()
	return s.service.IncrementCounter(ctx, ownerID, field, amount, at)
}

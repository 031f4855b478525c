// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"github.com/simpli-fi/airlock/store"
	"github.com/simpli-fi/airlock/store/cassandra"
	"github.com/simpli-fi/airlock/store/db/metric"
	"github.com/simpli-fi/airlock/store/dynamodb"
	"github.com/simpli-fi/airlock/store/inmem"
	"github.com/simpli-fi/airlock/store/redis"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Configs holds one entry per backend. The first non-nil backend in the order
// dynamo, yugabyte, redis is used; otherwise the in-memory store is.
type Configs struct {
	Dynamo   *dynamodb.Config
	Yugabyte *cassandra.Config
	Redis    *redis.Config
	InMem    inmem.Config
}

type SetupIn struct {
	fx.In
	Configs  Configs
	Measures *metric.Measures
	LC       fx.Lifecycle
	Logger   *zap.Logger
}

func Provide() fx.Option {
	return fx.Options(
		metric.ProvideMetrics(),
		fx.Provide(
			SetupStore,
		),
	)
}

func SetupStore(in SetupIn) (store.S, error) {
	if in.Configs.Dynamo != nil {
		in.Logger.Info("using dynamodb store implementation")
		return dynamodb.NewDynamoDB(*in.Configs.Dynamo, in.Measures, in.Logger)
	}
	if in.Configs.Yugabyte != nil {
		in.Logger.Info("using yugabyte store implementation")
		return cassandra.NewCassandra(*in.Configs.Yugabyte, in.Measures, in.LC,
			in.Logger)
	}
	if in.Configs.Redis != nil {
		in.Logger.Info("using redis store implementation", zap.String("address", in.Configs.Redis.Address))
		return redis.NewRedis(*in.Configs.Redis, in.Measures, in.LC, in.Logger)
	}
	in.Logger.Info("using in memory store implementation", zap.Int("links", len(in.Configs.InMem.Links)))
	return inmem.NewInMem(in.Configs.InMem), nil
}

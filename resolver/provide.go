// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"github.com/simpli-fi/airlock/cache"
	"github.com/simpli-fi/airlock/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ProvideIn struct {
	fx.In
	Config   Config
	Cache    *cache.Cache
	Store    store.S
	Logger   *zap.Logger
	Measures *Measures
}

func Provide() fx.Option {
	return fx.Provide(
		NewMeasures,
		func(in ProvideIn) *Resolver {
			return New(in.Config, in.Cache, in.Store, in.Logger, in.Measures)
		},
	)
}

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ProvideIn struct {
	fx.In
	Config   Config
	Measures *Measures
	Logger   *zap.Logger
	LC       fx.Lifecycle
}

// Provide makes a *Cache available whose sweep follows the application lifecycle.
func Provide() fx.Option {
	return fx.Provide(
		NewMeasures,
		func(in ProvideIn) *Cache {
			c := New(in.Config, WithMeasures(in.Measures), WithLogger(in.Logger))
			in.LC.Append(fx.Hook{
				OnStart: c.Start,
				OnStop:  c.Stop,
			})
			return c
		},
	)
}

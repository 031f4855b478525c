// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package redirect

import (
	"github.com/simpli-fi/airlock/resolver"
	"github.com/simpli-fi/airlock/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type handlerIn struct {
	fx.In

	Resolver *resolver.Resolver
	Emitter  *telemetry.Emitter
	Logger   *zap.Logger
}

// ProvideHandler builds the redirect handler from the container's resolver and emitter.
func ProvideHandler() fx.Option {
	return fx.Provide(
		func(in handlerIn) Handler {
			return NewHandler(in.Resolver, in.Emitter, in.Logger)
		},
	)
}

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"emperror.dev/errors"
	"github.com/nats-io/nats.go"
	"github.com/simpli-fi/airlock/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ProvideIn struct {
	fx.In
	Config   Config
	Store    store.S
	Measures *Measures
	Logger   *zap.Logger
	LC       fx.Lifecycle
}

// Provide makes an *Emitter available whose workers follow the application lifecycle.
// Events go to NATS when a URL is configured and to the store otherwise.
func Provide() fx.Option {
	return fx.Provide(
		NewMeasures,
		func(in ProvideIn) (*Emitter, error) {
			var events EventSink = in.Store
			if in.Config.NATS.URL != "" {
				conn, err := nats.Connect(in.Config.NATS.URL,
					nats.Name("airlock"),
					nats.RetryOnFailedConnect(true),
					nats.MaxReconnects(-1),
					nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
						in.Logger.Warn("nats disconnected", zap.Error(err))
					}),
				)
				if err != nil {
					return nil, errors.WrapWithDetails(err, "failed to connect to nats", "url", in.Config.NATS.URL)
				}
				in.LC.Append(fx.Hook{
					OnStop: func(context.Context) error {
						return conn.Drain()
					},
				})
				sink := NewNATSSink(conn, in.Config.NATS.Subject)
				in.Logger.Info("publishing visit events to nats", zap.String("subject", sink.subject))
				events = sink
			}

			e := NewEmitter(in.Config, events, in.Store, in.Logger, in.Measures)
			in.LC.Append(fx.Hook{
				OnStart: e.Start,
				OnStop:  e.Stop,
			})
			return e, nil
		},
	)
}

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/simpli-fi/airlock/cache"
	"github.com/simpli-fi/airlock/redirect"
	"github.com/simpli-fi/airlock/resolver"
	"github.com/simpli-fi/airlock/store/db"
	"github.com/simpli-fi/airlock/telemetry"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/touchstone"
	"github.com/xmidt-org/touchstone/touchhttp"
	"go.uber.org/fx"
)

const applicationName = "airlock"

var (
	GitCommit = "undefined"
	Version   = "undefined"
	BuildTime = "undefined"
)

// ConfigOut makes every component configuration available to the container.
type ConfigOut struct {
	fx.Out
	Servers           ServersConfig
	Store             db.Configs
	Cache             cache.Config
	Resolver          resolver.Config
	Telemetry         telemetry.Config
	Prometheus        touchstone.Config
	PrometheusHandler touchhttp.Config
	Tracing           candlelight.Config
}

type fileConfig struct {
	Servers           ServersConfig
	Store             db.Configs
	Cache             cache.Config
	Telemetry         telemetry.Config
	Prometheus        touchstone.Config
	PrometheusHandler touchhttp.Config
	Tracing           candlelight.Config
}

func provideConfig(u arrange.Unmarshaler, v *viper.Viper) (ConfigOut, error) {
	// Unmarshal merges every source per key, unlike UnmarshalKey on a parent key.
	var c fileConfig
	if err := u.Unmarshal(&c); err != nil {
		return ConfigOut{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.Tracing.ApplicationName = applicationName

	out := ConfigOut{
		Servers:           c.Servers,
		Store:             c.Store,
		Cache:             c.Cache,
		Telemetry:         c.Telemetry,
		Prometheus:        c.Prometheus,
		PrometheusHandler: c.PrometheusHandler,
		Tracing:           c.Tracing,
		Resolver: resolver.Config{
			BaseURL:       v.GetString("redirect.baseURL"),
			LookupTimeout: v.GetDuration("store.lookupTimeout"),
		},
	}

	if err := validateConfig(out.Cache, out.Resolver, out.Telemetry); err != nil {
		return ConfigOut{}, err
	}
	return out, nil
}

func main() {
	v, logger, err := setup(os.Args[1:])
	switch {
	case errors.Is(err, pflag.ErrHelp):
		return
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := fx.New(
		arrange.LoggerFunc(logger.Sugar().Infof),
		arrange.ForViper(v, arrange.ComposeDecodeHooks(arrange.TextUnmarshalerHookFunc)),
		fx.Supply(logger, v),
		fx.Provide(
			provideConfig,
			candlelight.New,
		),
		provideMetrics(),
		db.Provide(),
		cache.Provide(),
		resolver.Provide(),
		telemetry.Provide(),
		redirect.ProvideHandler(),
		fx.Invoke(
			BuildPrimaryRoutes,
			BuildMetricsRoutes,
		),
	)

	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	app.Run()
}

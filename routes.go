// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/simpli-fi/airlock/redirect"
	"github.com/simpli-fi/airlock/resolver"
	"github.com/xmidt-org/arrange/arrangehttp"
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/httpaux"
	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/touchstone/touchhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	healthPath  = "/health"
	metricsPath = "/metrics"
)

// ServersConfig holds every listener the service runs. A server without an
// address is not started.
type ServersConfig struct {
	Primary arrangehttp.ServerConfig
	Metrics arrangehttp.ServerConfig
}

type PrimaryRoutesIn struct {
	fx.In
	Servers    ServersConfig
	Resolver   resolver.Config
	Handler    redirect.Handler
	Metrics    touchhttp.ServerInstrumenter `name:"servers.primary.metrics"`
	Tracing    candlelight.Tracing
	Logger     *zap.Logger
	LC         fx.Lifecycle
	Shutdowner fx.Shutdowner
}

type MetricsRoutesIn struct {
	fx.In
	Servers    ServersConfig
	Handler    touchhttp.Handler
	Logger     *zap.Logger
	LC         fx.Lifecycle
	Shutdowner fx.Shutdowner
}

// NewPrimaryHandler routes visitors to the redirect handler and health checks
// to the health handler. Requests no route accepts are sent to baseURL.
func NewPrimaryHandler(h redirect.Handler, baseURL string, metrics touchhttp.ServerInstrumenter, tracing candlelight.Tracing, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()

	options := []otelmux.Option{
		otelmux.WithTracerProvider(tracing.TracerProvider()),
		otelmux.WithPropagators(tracing.Propagator()),
	}
	router.Use(
		otelmux.Middleware("server_primary", options...),
		mux.MiddlewareFunc(candlelight.EchoFirstTraceNodeInfo(tracing, false)),
	)

	router.Handle(healthPath, redirect.HealthHandler).Methods(http.MethodGet)
	identifierPath := "/{" + redirect.IdentifierVarKey + "}"
	router.Handle(identifierPath, h).Methods(http.MethodGet, http.MethodHead)
	router.Handle(identifierPath+"/", h).Methods(http.MethodGet, http.MethodHead)
	router.Handle("/", h).Methods(http.MethodGet, http.MethodHead)

	toBase := httpaux.ConstantHandler{
		StatusCode: http.StatusFound,
		Header:     httpaux.NewHeaders("Location", baseURL),
	}
	router.NotFoundHandler = toBase
	router.MethodNotAllowedHandler = toBase

	return alice.New(
		metrics.Then,
		requestLogger("primary", logger),
		redirect.Recover(baseURL, logger),
	).Then(router)
}

// NewMetricsHandler serves h, the prometheus exposition handler.
func NewMetricsHandler(h touchhttp.Handler) http.Handler {
	router := mux.NewRouter()
	router.Handle(metricsPath, h).Methods(http.MethodGet)
	return router
}

// requestLogger places a request scoped logger in the request context.
func requestLogger(server string, base *zap.Logger) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base.With(
				zap.String("server", server),
				zap.String("method", r.Method),
				zap.String("requestURL", r.URL.EscapedPath()),
			)
			next.ServeHTTP(w, r.WithContext(sallust.With(r.Context(), l)))
		})
	}
}

func BuildPrimaryRoutes(in PrimaryRoutesIn) error {
	h := NewPrimaryHandler(in.Handler, in.Resolver.BaseURL, in.Metrics, in.Tracing, in.Logger)
	return startServer("primary", in.Servers.Primary, h, in.LC, in.Shutdowner, in.Logger)
}

func BuildMetricsRoutes(in MetricsRoutesIn) error {
	return startServer("metrics", in.Servers.Metrics, NewMetricsHandler(in.Handler), in.LC, in.Shutdowner, in.Logger)
}

func startServer(name string, config arrangehttp.ServerConfig, h http.Handler, lc fx.Lifecycle, shutdowner fx.Shutdowner, logger *zap.Logger) error {
	if config.Address == "" {
		logger.Info("server disabled", zap.String("server", name))
		return nil
	}

	logger = logger.With(zap.String("server", name), zap.String("address", config.Address))
	s, err := config.NewServer(h)
	if err != nil {
		return err
	}
	s.ErrorLog = zap.NewStdLog(logger)

	onStart := arrangehttp.ServerOnStart(s, config, arrangehttp.ShutdownOnExit(shutdowner))
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("server starting")
			return onStart(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("server stopping")
			return s.Shutdown(ctx)
		},
	})
	return nil
}

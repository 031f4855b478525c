// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"net/url"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/simpli-fi/airlock/cache"
	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultLookupTimeout bounds a durable store lookup when none is configured.
const DefaultLookupTimeout = 75 * time.Millisecond

// Source tells where a Result came from.
type Source string

const (
	SourceCache    Source = "CACHE"
	SourceStore    Source = "STORE"
	SourceFallback Source = "FALLBACK"
)

const (
	ResolutionsCounter = "resolutions_total"
	SourceLabelKey     = "source"
)

// Result is the destination and owner for a single visit.
type Result struct {
	DestinationURL string
	OwnerID        string
	Source         Source
}

// Config configures a Resolver.
type Config struct {
	// BaseURL is the application URL fallback destinations are built from.
	BaseURL string `validate:"required,url"`

	// LookupTimeout bounds each durable store lookup. (Optional) Defaults to 75ms.
	LookupTimeout time.Duration `validate:"gte=0"`
}

// Cache is the part of the cache the Resolver reads and fills.
type Cache interface {
	Get(identifier string) (cache.Entry, bool)
	Put(identifier, destinationURL, ownerID string)
}

// Resolver turns identifiers into destinations. Resolve never fails.
type Resolver struct {
	cache       Cache
	store       store.S
	baseURL     string
	timeout     time.Duration
	group       singleflight.Group
	logger      *zap.Logger
	resolutions metrics.Counter
}

// Measures are the resolver metrics.
type Measures struct {
	Resolutions metrics.Counter
}

// NewMeasures builds the resolver metrics and registers them with r.
func NewMeasures(r prometheus.Registerer) (*Measures, error) {
	cv := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: ResolutionsCounter,
			Help: "The total number of identifier resolutions by source.",
		},
		[]string{SourceLabelKey},
	)
	if err := r.Register(cv); err != nil {
		return nil, err
	}
	return &Measures{Resolutions: kitprometheus.NewCounter(cv)}, nil
}

// New creates a Resolver. Nil measures disable resolution metrics.
func New(config Config, c Cache, s store.S, logger *zap.Logger, measures *Measures) *Resolver {
	if config.LookupTimeout <= 0 {
		config.LookupTimeout = DefaultLookupTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	resolutions := discard.NewCounter()
	if measures != nil {
		resolutions = measures.Resolutions
	}
	return &Resolver{
		cache:       c,
		store:       s,
		baseURL:     strings.TrimSuffix(config.BaseURL, "/"),
		timeout:     config.LookupTimeout,
		logger:      logger,
		resolutions: resolutions,
	}
}

// BaseURL is where visitors go when nothing better is known.
func (r *Resolver) BaseURL() string {
	return r.baseURL
}

// Fallback treats identifier as a profile reference owned by itself.
func (r *Resolver) Fallback(identifier string) Result {
	return Result{
		DestinationURL: r.baseURL + "/" + url.PathEscape(identifier),
		OwnerID:        identifier,
		Source:         SourceFallback,
	}
}

// Resolve consults the cache, then the durable store, then falls back. Store
// failures and timeouts resolve to the fallback.
func (r *Resolver) Resolve(ctx context.Context, identifier string) Result {
	result := r.resolve(ctx, identifier)
	r.resolutions.With(SourceLabelKey, string(result.Source)).Add(1)
	return result
}

func (r *Resolver) resolve(ctx context.Context, identifier string) Result {
	if e, ok := r.cache.Get(identifier); ok {
		return Result{DestinationURL: e.DestinationURL, OwnerID: e.OwnerID, Source: SourceCache}
	}
	if !store.ValidIdentifier(identifier) {
		return r.Fallback(identifier)
	}

	link, err := r.lookup(ctx, identifier)
	switch {
	case store.IsNotFound(err):
		return r.Fallback(identifier)
	case err != nil:
		r.logger.Warn("store lookup failed, using fallback", zap.String("identifier", identifier), zap.Error(err))
		return r.Fallback(identifier)
	case link.DestinationURL == "":
		return r.Fallback(identifier)
	}

	r.cache.Put(identifier, link.DestinationURL, link.OwnerID)
	return Result{DestinationURL: link.DestinationURL, OwnerID: link.OwnerID, Source: SourceStore}
}

// lookup coalesces concurrent lookups of the same identifier. The caller stops
// waiting once the timeout passes even if the store does not honor its context.
func (r *Resolver) lookup(ctx context.Context, identifier string) (model.Link, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := r.group.DoChan(identifier, func() (link interface{}, err error) {
		// DoChan re-panics on its own goroutine, where nothing can recover.
		defer func() {
			if p := recover(); p != nil {
				link, err = nil, errors.Errorf("store lookup panicked: %v", p)
			}
		}()

		// the shared lookup must not die with whichever caller started it.
		lookupCtx, lookupCancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer lookupCancel()
		return r.store.Lookup(lookupCtx, identifier)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return model.Link{}, res.Err
		}
		return res.Val.(model.Link), nil
	case <-ctx.Done():
		return model.Link{}, errors.WrapWithDetails(ctx.Err(), "store lookup abandoned", "timeout", r.timeout)
	}
}

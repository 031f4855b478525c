// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package redirect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/simpli-fi/airlock/resolver"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// request URL path keys
const (
	IdentifierVarKey = "identifier"
)

// Request and Response Headers
const (
	ResponseTimeHeaderKey = "X-Response-Time"
	ForwardedForHeaderKey = "X-Forwarded-For"
)

// Defaults for visitor data missing from the request.
const (
	DefaultUserAgent = "unknown"
	DefaultReferer   = "direct"
)

// ErrCasting indicates there was a middleware wiring mistake with the go-kit style
// encoders.
var ErrCasting = errors.New("casting error due to middleware wiring mistake")

type startKey struct{}

type redirectRequest struct {
	identifier string
	userAgent  string
	ip         string
	referer    string
}

type redirectResponse struct {
	request *redirectRequest
	result  resolver.Result
	record  bool
}

// markStart remembers when processing began so the response can report it.
func markStart(now func() time.Time) kithttp.RequestFunc {
	return func(ctx context.Context, _ *http.Request) context.Context {
		return context.WithValue(ctx, startKey{}, now())
	}
}

func setResponseTime(ctx context.Context, w http.ResponseWriter, now func() time.Time) {
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := now().Sub(start)
	w.Header().Set(ResponseTimeHeaderKey, fmt.Sprintf("%.1fms", float64(elapsed.Microseconds())/1000))
}

// clientIP prefers the first X-Forwarded-For hop, which is the visitor when the
// service runs behind a load balancer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get(ForwardedForHeaderKey); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func useOrDefault(value, defaultValue string) string {
	if len(value) > 0 {
		return value
	}
	return defaultValue
}

func decodeRedirectRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return &redirectRequest{
		identifier: mux.Vars(r)[IdentifierVarKey],
		userAgent:  useOrDefault(r.UserAgent(), DefaultUserAgent),
		ip:         clientIP(r),
		referer:    useOrDefault(r.Referer(), DefaultReferer),
	}, nil
}

// Recorder receives a visit once its redirect has been written.
type Recorder interface {
	Record(identifier, ownerID, userAgent, ip, referer string)
}

func encodeRedirectResponse(recorder Recorder, now func() time.Time) kithttp.EncodeResponseFunc {
	return func(ctx context.Context, w http.ResponseWriter, response interface{}) error {
		resp, ok := response.(*redirectResponse)
		if !ok {
			return ErrCasting
		}

		setResponseTime(ctx, w, now)
		w.Header().Set("Location", resp.result.DestinationURL)
		w.WriteHeader(http.StatusFound)

		sallust.Get(ctx).Debug("redirect",
			zap.String("identifier", resp.request.identifier),
			zap.String("source", string(resp.result.Source)),
			zap.String("destination", resp.result.DestinationURL),
		)

		if resp.record {
			record(ctx, recorder, resp)
		}
		return nil
	}
}

// record hands the visit off. The redirect is already written, so a panic here
// is logged and goes no further.
func record(ctx context.Context, recorder Recorder, resp *redirectResponse) {
	defer func() {
		if p := recover(); p != nil {
			sallust.Get(ctx).Error("visit recording panicked",
				zap.String("identifier", resp.request.identifier),
				zap.String("panic", fmt.Sprint(p)),
			)
		}
	}()

	req := resp.request
	recorder.Record(req.identifier, resp.result.OwnerID, req.userAgent, req.ip, req.referer)
}

// encodeError sends the visitor to baseURL whatever went wrong.
func encodeError(baseURL string, now func() time.Time) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		sallust.Get(ctx).Error("redirect failed, sending visitor to base url", zap.Error(err))
		setResponseTime(ctx, w, now)
		w.Header().Set("Location", baseURL)
		w.WriteHeader(http.StatusFound)
	}
}

func logRequest(ctx context.Context, code int, r *http.Request) {
	location := ""
	if headers, ok := ctx.Value(kithttp.ContextKeyResponseHeaders).(http.Header); ok {
		location = headers.Get("Location")
	}
	sallust.Get(ctx).Debug("request finished",
		zap.Int("code", code),
		zap.String("requestURL", r.URL.EscapedPath()),
		zap.String("location", location),
	)
}

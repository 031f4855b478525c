// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package redirect

import (
	"fmt"
	"io"
	"net/http"
	"time"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/xmidt-org/httpaux"
	"github.com/xmidt-org/httpaux/recovery"
	"go.uber.org/zap"
)

// HealthMessage is the body served by the health handler.
const HealthMessage = "Airlock Systems Operational"

// HealthHandler reports that the process is serving. It touches none of the
// redirect machinery.
var HealthHandler = httpaux.ConstantHandler{
	StatusCode:  http.StatusOK,
	ContentType: "text/plain; charset=utf-8",
	Body:        []byte(HealthMessage),
}

// Handler serves redirects.
type Handler http.Handler

// NewHandler builds the redirect handler. Every request it serves ends in a
// redirect, including those that fail or panic.
func NewHandler(r Resolver, recorder Recorder, logger *zap.Logger) Handler {
	return newHandler(r, recorder, logger, time.Now)
}

func newHandler(r Resolver, recorder Recorder, logger *zap.Logger, now func() time.Time) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := kithttp.NewServer(
		newRedirectEndpoint(r),
		decodeRedirectRequest,
		encodeRedirectResponse(recorder, now),
		kithttp.ServerBefore(markStart(now)),
		kithttp.ServerErrorEncoder(encodeError(r.BaseURL(), now)),
		kithttp.ServerFinalizer(logRequest),
	)
	return Recover(r.BaseURL(), logger)(server)
}

// Recover turns a panic in next into a redirect to baseURL.
func Recover(baseURL string, logger *zap.Logger) func(http.Handler) http.Handler {
	return recovery.Middleware(
		recovery.WithStatusCode(http.StatusFound),
		recovery.WithHeader(httpaux.NewHeaders("Location", baseURL)),
		recovery.WithRecoverBody(func(io.Writer, interface{}, []byte) {}),
		recovery.WithOnRecover(func(p interface{}, stack []byte) {
			logger.Error("redirect handler panicked, sending visitor to base url",
				zap.String("panic", fmt.Sprint(p)),
				zap.ByteString("stack", stack),
			)
		}),
	)
}

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package redirect

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/resolver"
)

// Resolver produces the destination for an identifier.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) resolver.Result
	BaseURL() string
}

func newRedirectEndpoint(r Resolver) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		redirectRequest, ok := request.(*redirectRequest)
		if !ok {
			return nil, ErrCasting
		}

		// nothing to resolve or record for the bare root.
		if redirectRequest.identifier == "" {
			return &redirectResponse{
				request: redirectRequest,
				result: resolver.Result{
					DestinationURL: r.BaseURL(),
					OwnerID:        model.UnknownOwner,
					Source:         resolver.SourceFallback,
				},
			}, nil
		}

		return &redirectResponse{
			request: redirectRequest,
			result:  r.Resolve(ctx, redirectRequest.identifier),
			record:  true,
		}, nil
	}
}

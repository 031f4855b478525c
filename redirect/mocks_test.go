// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package redirect

import (
	"context"

	"github.com/simpli-fi/airlock/resolver"
	"github.com/stretchr/testify/mock"
)

type mockResolver struct {
	mock.Mock
}

func (r *mockResolver) Resolve(_ context.Context, identifier string) resolver.Result {
	args := r.Called(identifier)
	return args.Get(0).(resolver.Result)
}

func (r *mockResolver) BaseURL() string {
	args := r.Called()
	return args.String(0)
}

type mockRecorder struct {
	mock.Mock
}

func (r *mockRecorder) Record(identifier, ownerID, userAgent, ip, referer string) {
	r.Called(identifier, ownerID, userAgent, ip, referer)
}

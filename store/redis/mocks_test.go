// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

type mockClient struct {
	mock.Mock
}

func (c *mockClient) HGetAll(_ context.Context, key string) *goredis.MapStringStringCmd {
	args := c.Called(key)
	return args.Get(0).(*goredis.MapStringStringCmd)
}

func (c *mockClient) XAdd(_ context.Context, a *goredis.XAddArgs) *goredis.StringCmd {
	args := c.Called(a)
	return args.Get(0).(*goredis.StringCmd)
}

func (c *mockClient) Eval(_ context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd {
	called := c.Called(script, keys, args)
	return called.Get(0).(*goredis.Cmd)
}

func (c *mockClient) Ping(_ context.Context) *goredis.StatusCmd {
	args := c.Called()
	return args.Get(0).(*goredis.StatusCmd)
}

func (c *mockClient) Close() error {
	args := c.Called()
	return args.Error(0)
}

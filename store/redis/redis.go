// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"emperror.dev/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
	"github.com/simpli-fi/airlock/store/db/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix    = "airlock:"
	defaultStreamMaxLen = 1000000

	destinationField = "destination_url"
	ownerField       = "owner_id"
)

// incrementScript bumps a counter on an existing owner hash. It returns -1
// without writing anything when the owner does not exist.
const incrementScript = `
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[1], ARGV[3], ARGV[4])
return 1
`

var errNilMeasures = errors.New("measures cannot be nil")

// Config describes the redis connection and key layout.
type Config struct {
	// Address is host:port of the redis server.
	Address  string
	Username string
	Password string
	DB       int

	// KeyPrefix namespaces every key. (Optional) Defaults to "airlock:".
	KeyPrefix string

	// StreamMaxLen approximately caps the events stream. (Optional) Defaults to 1000000.
	StreamMaxLen int64
}

// client is the subset of the redis API the store uses.
type client interface {
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
	XAdd(ctx context.Context, a *goredis.XAddArgs) *goredis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
	Ping(ctx context.Context) *goredis.StatusCmd
	Close() error
}

// Store keeps links and owners in hashes and appends events to a stream.
type Store struct {
	c        client
	config   Config
	measures *metric.Measures
	logger   *zap.Logger
	now      func() time.Time
}

// NewRedis connects to redis and ties the connection to the application lifecycle.
func NewRedis(config Config, measures *metric.Measures, lc fx.Lifecycle, logger *zap.Logger) (*Store, error) {
	if measures == nil {
		return nil, errNilMeasures
	}
	validateConfig(&config)
	c := goredis.NewClient(&goredis.Options{
		Addr:     config.Address,
		Username: config.Username,
		Password: config.Password,
		DB:       config.DB,
	})
	s := newStore(c, config, measures, logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// an unreachable server degrades to fallback redirects, so startup continues.
			if err := s.Ping(ctx); err != nil {
				logger.Warn("redis ping failed", zap.String("address", config.Address), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return s, nil
}

func newStore(c client, config Config, measures *metric.Measures, logger *zap.Logger) *Store {
	return &Store{
		c:        c,
		config:   config,
		measures: measures,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Store) linkKey(id string) string {
	return s.config.KeyPrefix + "link:" + id
}

func (s *Store) userKey(id string) string {
	return s.config.KeyPrefix + "user:" + id
}

func (s *Store) eventsKey() string {
	return s.config.KeyPrefix + "events"
}

func (s *Store) observe(queryType string, start time.Time, err error) {
	s.measures.QueryDurationSeconds.With(metric.QueryTypeLabelKey, queryType).Observe(s.now().Sub(start).Seconds())
	outcome := metric.SuccessQueryOutcome
	if err != nil && !store.IsNotFound(err) {
		outcome = metric.FailQueryOutcome
	}
	s.measures.Queries.With(metric.QueryOutcomeLabelKey, outcome, metric.QueryTypeLabelKey, queryType).Add(1.0)
}

func internalError(err error, operation, id string) error {
	return store.ItemOperationError{
		Err: store.InternalError{
			Reason:    err.Error(),
			Retryable: errors.Is(err, context.DeadlineExceeded) || goredis.HasErrorPrefix(err, "BUSY") || goredis.HasErrorPrefix(err, "LOADING"),
		},
		Identifier: id,
		Operation:  operation,
	}
}

func (s *Store) Lookup(ctx context.Context, id string) (link model.Link, err error) {
	defer func(start time.Time) { s.observe(metric.LookupQueryType, start, err) }(s.now())

	fields, err := s.c.HGetAll(ctx, s.linkKey(id)).Result()
	if err != nil {
		return model.Link{}, internalError(err, store.LookupType, id)
	}
	if len(fields) == 0 {
		return model.Link{}, store.NotFound(store.LookupType, id)
	}
	return model.Link{
		ID:             id,
		DestinationURL: fields[destinationField],
		OwnerID:        fields[ownerField],
	}, nil
}

func (s *Store) AppendEvent(ctx context.Context, event model.VisitEvent) (err error) {
	defer func(start time.Time) { s.observe(metric.AppendQueryType, start, err) }(s.now())

	visitor, err := json.Marshal(&event.VisitorData)
	if err != nil {
		return errors.WrapWithDetails(err, "failed to marshal visitor data", "id", event.ID)
	}
	err = s.c.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.eventsKey(),
		MaxLen: s.config.StreamMaxLen,
		Approx: true,
		Values: []interface{}{
			"id", event.ID,
			"type", event.Type,
			"resource_id", event.ResourceID,
			"owner_id", event.OwnerID,
			"timestamp", event.Timestamp.UTC().Format(time.RFC3339Nano),
			"visitor_data", string(visitor),
		},
	}).Err()
	if err != nil {
		return internalError(err, store.AppendType, event.ID)
	}
	return nil
}

func (s *Store) IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) (err error) {
	defer func(start time.Time) { s.observe(metric.IncrementQueryType, start, err) }(s.now())

	result, err := s.c.Eval(ctx, incrementScript, []string{s.userKey(ownerID)},
		field, strconv.FormatInt(amount, 10), model.LastActiveField, at.UTC().Format(time.RFC3339Nano)).Int64()
	if err != nil {
		return internalError(err, store.IncrementType, ownerID)
	}
	if result < 0 {
		return store.NotFound(store.IncrementType, ownerID)
	}
	return nil
}

// Ping checks that the server answers.
func (s *Store) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe(metric.PingQueryType, start, err) }(s.now())
	return s.c.Ping(ctx).Err()
}

func validateConfig(config *Config) {
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}
	if config.StreamMaxLen <= 0 {
		config.StreamMaxLen = defaultStreamMaxLen
	}
}

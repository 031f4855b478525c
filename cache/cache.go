// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const (
	// shardCount must be a power of two.
	shardCount = 32

	DefaultTTL           = 300 * time.Second
	DefaultSweepInterval = time.Minute
)

// Config configures the cache.
type Config struct {
	// TTL is how long an entry stays live after it is put.
	TTL time.Duration `validate:"gt=0"`

	// SweepInterval is how often expired entries are reclaimed in the background.
	// (Optional) Defaults to one minute.
	SweepInterval time.Duration `validate:"gte=0"`
}

// Entry is a cached resolution.
type Entry struct {
	Identifier     string
	DestinationURL string
	OwnerID        string
	ExpiresAt      time.Time
}

func (e Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

type shard struct {
	lock    sync.RWMutex
	entries map[string]Entry
}

// Cache is a process-local identifier -> destination mapping with per-entry
// expiration. It is safe for concurrent use.
type Cache struct {
	shards        [shardCount]*shard
	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	measures      *Measures
	logger        *zap.Logger
	size          atomic.Int64

	lock sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// Option configures optional parts of a Cache.
type Option func(*Cache)

// WithClock replaces the clock used to compute expiration.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMeasures sets where the cache reports its metrics.
func WithMeasures(m *Measures) Option {
	return func(c *Cache) {
		if m != nil {
			c.measures = m
		}
	}
}

// WithLogger sets the logger used by the background sweep.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an empty cache.
func New(config Config, options ...Option) *Cache {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	c := &Cache{
		ttl:           config.TTL,
		sweepInterval: config.SweepInterval,
		now:           time.Now,
		measures:      discardMeasures(),
		logger:        zap.NewNop(),
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]Entry)}
	}
	for _, o := range options {
		o(c)
	}
	return c
}

func (c *Cache) shardFor(identifier string) *shard {
	return c.shards[xxhash.Sum64String(identifier)&(shardCount-1)]
}

// Get returns the live entry for identifier. An expired entry is removed and
// reported as absent.
func (c *Cache) Get(identifier string) (Entry, bool) {
	s := c.shardFor(identifier)
	now := c.now()

	s.lock.RLock()
	e, ok := s.entries[identifier]
	s.lock.RUnlock()

	if !ok {
		c.measures.Lookups.With(ResultLabelKey, MissResult).Add(1)
		return Entry{}, false
	}
	if e.expired(now) {
		s.lock.Lock()
		// a concurrent Put may have refreshed the entry.
		if current, ok := s.entries[identifier]; ok && current.expired(now) {
			delete(s.entries, identifier)
			c.removed(1)
		}
		s.lock.Unlock()
		c.measures.Lookups.With(ResultLabelKey, MissResult).Add(1)
		return Entry{}, false
	}
	c.measures.Lookups.With(ResultLabelKey, HitResult).Add(1)
	return e, true
}

// Put inserts or overwrites the entry for identifier, live for the configured TTL.
func (c *Cache) Put(identifier, destinationURL, ownerID string) {
	s := c.shardFor(identifier)
	e := Entry{
		Identifier:     identifier,
		DestinationURL: destinationURL,
		OwnerID:        ownerID,
		ExpiresAt:      c.now().Add(c.ttl),
	}

	s.lock.Lock()
	_, existed := s.entries[identifier]
	s.entries[identifier] = e
	s.lock.Unlock()

	if !existed {
		c.measures.Entries.Set(float64(c.size.Add(1)))
	}
}

// Evict removes the entry for identifier if there is one.
func (c *Cache) Evict(identifier string) {
	s := c.shardFor(identifier)
	s.lock.Lock()
	_, ok := s.entries[identifier]
	delete(s.entries, identifier)
	s.lock.Unlock()

	if ok {
		c.measures.Entries.Set(float64(c.size.Add(-1)))
	}
}

// Len returns the number of entries held, including expired entries not yet reclaimed.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

func (c *Cache) removed(n int) {
	c.measures.Expirations.Add(float64(n))
	c.measures.Entries.Set(float64(c.size.Add(-int64(n))))
}

// sweep removes every expired entry and returns how many were removed.
func (c *Cache) sweep() int {
	now := c.now()
	total := 0
	for _, s := range c.shards {
		n := 0
		s.lock.Lock()
		for id, e := range s.entries {
			if e.expired(now) {
				delete(s.entries, id)
				n++
			}
		}
		s.lock.Unlock()
		if n > 0 {
			c.removed(n)
			total += n
		}
	}
	return total
}

// Start launches the background sweep. Calling Start on a running cache does nothing.
func (c *Cache) Start(context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.stop != nil {
		return nil
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
	return nil
}

// Stop halts the background sweep and waits for it to exit.
func (c *Cache) Stop(ctx context.Context) error {
	c.lock.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.lock.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := c.sweep(); n > 0 {
				c.logger.Debug("swept expired cache entries", zap.Int("count", n), zap.Int("remaining", c.Len()))
			}
		}
	}
}

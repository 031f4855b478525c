// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/google/uuid"
	"github.com/simpli-fi/airlock/model"
	"go.uber.org/zap"
)

const (
	DefaultWorkers      = 4
	DefaultQueueSize    = 1024
	DefaultWriteTimeout = 5 * time.Second
)

// Config configures the Emitter.
type Config struct {
	// Workers is the number of goroutines writing events. (Optional) Defaults to 4.
	Workers int `validate:"gte=0"`

	// QueueSize bounds how many visits may wait for a worker. Visits beyond it
	// are dropped. (Optional) Defaults to 1024.
	QueueSize int `validate:"gte=0"`

	// WriteTimeout bounds the writes made for a single visit. (Optional) Defaults to 5s.
	WriteTimeout time.Duration `validate:"gte=0"`

	NATS NATSConfig
}

// NATSConfig enables publishing events to NATS instead of the store.
type NATSConfig struct {
	URL     string
	Subject string
}

// Visit is what the request handler knows about a single redirect.
type Visit struct {
	Identifier string
	OwnerID    string
	UserAgent  string
	IP         string
	Referer    string
	At         time.Time
}

// Emitter records visits off the request path. Record never blocks and no
// write failure reaches its caller.
type Emitter struct {
	events       EventSink
	counters     CounterStore
	workers      int
	writeTimeout time.Duration
	logger       *zap.Logger
	outcomes     metrics.Counter
	now          func() time.Time
	newID        func() string

	lock    sync.RWMutex
	queue   chan Visit
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// NewEmitter creates an Emitter writing events to events and counters to counters.
// Nil measures disable metrics.
func NewEmitter(config Config, events EventSink, counters CounterStore, logger *zap.Logger, measures *Measures) *Emitter {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	outcomes := discard.NewCounter()
	if measures != nil {
		outcomes = measures.Events
	}
	return &Emitter{
		events:       events,
		counters:     counters,
		workers:      config.Workers,
		writeTimeout: config.WriteTimeout,
		logger:       logger,
		outcomes:     outcomes,
		now:          time.Now,
		newID:        uuid.NewString,
		queue:        make(chan Visit, config.QueueSize),
	}
}

// Record queues a visit and returns immediately. The visit is dropped when the
// queue is full or the emitter has stopped.
func (e *Emitter) Record(identifier, ownerID, userAgent, ip, referer string) {
	v := Visit{
		Identifier: identifier,
		OwnerID:    ownerID,
		UserAgent:  userAgent,
		IP:         ip,
		Referer:    referer,
		At:         e.now(),
	}

	e.lock.RLock()
	defer e.lock.RUnlock()
	if e.closed {
		e.drop(v, "emitter stopped")
		return
	}
	select {
	case e.queue <- v:
	default:
		e.drop(v, "queue full")
	}
}

func (e *Emitter) drop(v Visit, reason string) {
	e.outcomes.With(OutcomeLabelKey, DroppedOutcome).Add(1)
	e.logger.Warn("visit event dropped", zap.String("identifier", v.Identifier), zap.String("reason", reason))
}

// Start launches the workers.
func (e *Emitter) Start(context.Context) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.started || e.closed {
		return nil
	}
	e.started = true
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.work()
	}
	return nil
}

// Stop refuses new visits and waits for queued ones to be written.
func (e *Emitter) Stop(ctx context.Context) error {
	e.lock.Lock()
	if e.closed {
		e.lock.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	started := e.started
	e.lock.Unlock()

	if !started {
		return nil
	}
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Emitter) work() {
	defer e.wg.Done()
	for v := range e.queue {
		e.write(v)
	}
}

func (e *Emitter) write(v Visit) {
	outcome := FailedOutcome
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("visit event write panicked", zap.String("identifier", v.Identifier), zap.String("panic", fmt.Sprint(r)))
		}
		e.outcomes.With(OutcomeLabelKey, outcome).Add(1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.writeTimeout)
	defer cancel()

	event := model.VisitEvent{
		ID:         e.newID(),
		Type:       model.EventTypeScan,
		ResourceID: v.Identifier,
		OwnerID:    v.OwnerID,
		Timestamp:  v.At,
		VisitorData: model.VisitorData{
			IP:        v.IP,
			UserAgent: v.UserAgent,
			Referer:   v.Referer,
		},
	}

	failed := false
	if err := e.events.AppendEvent(ctx, event); err != nil {
		failed = true
		e.logger.Warn("failed to append visit event", zap.String("identifier", v.Identifier), zap.String("ownerID", v.OwnerID), zap.Error(err))
	}

	if v.OwnerID != "" && v.OwnerID != model.UnknownOwner {
		if err := e.counters.IncrementCounter(ctx, v.OwnerID, model.ScanCountField, 1, v.At); err != nil {
			failed = true
			e.logger.Warn("failed to update owner counter", zap.String("identifier", v.Identifier), zap.String("ownerID", v.OwnerID), zap.Error(err))
		}
	}

	if !failed {
		outcome = RecordedOutcome
	}
}

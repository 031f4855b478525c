// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
)

// Config seeds the in memory store.
type Config struct {
	Links  []model.Link
	Owners []string
}

// Owner is the in memory counter record for an owner.
type Owner struct {
	Counters   map[string]int64
	LastActive time.Time
}

type InMem struct {
	links  map[string]model.Link
	owners map[string]*Owner
	events []model.VisitEvent
	lock   sync.RWMutex
}

// NewInMem returns an in memory store seeded with the configured links and owners.
func NewInMem(config Config) *InMem {
	i := &InMem{
		links:  map[string]model.Link{},
		owners: map[string]*Owner{},
	}
	i.Seed(config.Links...)
	i.SeedOwners(config.Owners...)
	return i
}

// Seed adds or replaces links. Owners referenced by the links are created.
func (i *InMem) Seed(links ...model.Link) {
	i.lock.Lock()
	defer i.lock.Unlock()
	for _, l := range links {
		i.links[l.ID] = l
		if l.OwnerID != "" {
			i.addOwner(l.OwnerID)
		}
	}
}

// SeedOwners creates empty owner records.
func (i *InMem) SeedOwners(ids ...string) {
	i.lock.Lock()
	defer i.lock.Unlock()
	for _, id := range ids {
		i.addOwner(id)
	}
}

func (i *InMem) addOwner(id string) {
	if _, ok := i.owners[id]; !ok {
		i.owners[id] = &Owner{Counters: map[string]int64{}}
	}
}

func (i *InMem) Lookup(_ context.Context, id string) (model.Link, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()
	link, ok := i.links[id]
	if !ok {
		return model.Link{}, store.NotFound(store.LookupType, id)
	}
	return link, nil
}

func (i *InMem) AppendEvent(_ context.Context, event model.VisitEvent) error {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.events = append(i.events, event)
	return nil
}

func (i *InMem) IncrementCounter(_ context.Context, ownerID, field string, amount int64, at time.Time) error {
	i.lock.Lock()
	defer i.lock.Unlock()
	owner, ok := i.owners[ownerID]
	if !ok {
		return store.NotFound(store.IncrementType, ownerID)
	}
	owner.Counters[field] += amount
	owner.LastActive = at
	return nil
}

// Events returns a copy of the recorded events in append order.
func (i *InMem) Events() []model.VisitEvent {
	i.lock.RLock()
	defer i.lock.RUnlock()
	events := make([]model.VisitEvent, len(i.events))
	copy(events, i.events)
	return events
}

// Owner returns a copy of the owner record.
func (i *InMem) Owner(id string) (Owner, bool) {
	i.lock.RLock()
	defer i.lock.RUnlock()
	owner, ok := i.owners[id]
	if !ok {
		return Owner{}, false
	}
	counters := make(map[string]int64, len(owner.Counters))
	for k, v := range owner.Counters {
		counters[k] = v
	}
	return Owner{Counters: counters, LastActive: owner.LastActive}, true
}

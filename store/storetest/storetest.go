// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GenericTestLink must be seeded (together with its owner) before StoreTest runs.
var GenericTestLink = model.Link{
	ID:             "abc123",
	DestinationURL: "https://example.com/x",
	OwnerID:        "u1",
}

// GenericProfileLink is seeded without a destination.
var GenericProfileLink = model.Link{
	ID:      "profile7",
	OwnerID: "profile7",
}

// StoreTest validates that a given store implementation works.
func StoreTest(s store.S, t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	t.Log("Lookup")
	link, err := s.Lookup(ctx, GenericTestLink.ID)
	require.NoError(err)
	assert.Equal(GenericTestLink, link)

	link, err = s.Lookup(ctx, GenericProfileLink.ID)
	require.NoError(err)
	assert.Empty(link.DestinationURL)
	assert.Equal(GenericProfileLink.OwnerID, link.OwnerID)

	_, err = s.Lookup(ctx, "ghost")
	assert.True(store.IsNotFound(err))

	t.Log("AppendEvent")
	err = s.AppendEvent(ctx, model.VisitEvent{
		ID:         "00000000-0000-0000-0000-000000000001",
		Type:       model.EventTypeScan,
		ResourceID: GenericTestLink.ID,
		OwnerID:    GenericTestLink.OwnerID,
		Timestamp:  time.Now(),
		VisitorData: model.VisitorData{
			IP:        "10.0.0.1",
			UserAgent: "test",
			Referer:   "direct",
		},
	})
	assert.NoError(err)

	t.Log("IncrementCounter")
	err = s.IncrementCounter(ctx, GenericTestLink.OwnerID, model.ScanCountField, 1, time.Now())
	assert.NoError(err)

	err = s.IncrementCounter(ctx, "ghost", model.ScanCountField, 1, time.Now())
	assert.True(store.IsNotFound(err))
}

// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cassandra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"emperror.dev/errors"
	"github.com/gocql/gocql"
	"github.com/hailocab/go-hostpool"
	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
	"go.uber.org/zap"
)

type dbStore interface {
	store.S
	Close()
	Ping() error
}

var (
	errNoData           = errors.New("no data from query")
	errServerClosed     = errors.New("server is closed")
	errUnknownCounter   = errors.New("unknown counter field")
	errCounterContended = errors.New("counter update kept losing the race")
)

// maxCASAttempts bounds the compare-and-set loop used for counter updates.
const maxCASAttempts = 10

// counter columns that may be updated through IncrementCounter.
var counterColumns = map[string]bool{
	model.ScanCountField: true,
}

type cassandraExecutor struct {
	session *gocql.Session
	logger  *zap.Logger
}

func connect(clusterConfig *gocql.ClusterConfig, logger *zap.Logger) (dbStore, error) {
	clusterConfig.PoolConfig.HostSelectionPolicy = gocql.HostPoolHostPolicy(hostpool.New(nil))
	session, err := clusterConfig.CreateSession()
	if err != nil {
		return nil, err
	}

	return &cassandraExecutor{session: session, logger: logger}, nil
}

func (s *cassandraExecutor) Lookup(ctx context.Context, id string) (model.Link, error) {
	var destination, owner string
	err := s.session.Query("SELECT destination_url, owner_id FROM public_cards WHERE id = ?", id).
		WithContext(ctx).Scan(&destination, &owner)
	if errors.Is(err, gocql.ErrNotFound) {
		return model.Link{}, errNoData
	}
	if err != nil {
		return model.Link{}, err
	}
	return model.Link{ID: id, DestinationURL: destination, OwnerID: owner}, nil
}

func (s *cassandraExecutor) AppendEvent(ctx context.Context, event model.VisitEvent) error {
	visitor, err := json.Marshal(&event.VisitorData)
	if err != nil {
		return err
	}

	return s.session.Query("INSERT INTO events (id, type, resource_id, owner_id, timestamp, visitor_data) VALUES (?,?,?,?,?,?)",
		event.ID, event.Type, event.ResourceID, event.OwnerID, event.Timestamp, visitor).WithContext(ctx).Exec()
}

// IncrementCounter runs a compare-and-set loop over lightweight transactions.
// Owners without a row are reported as missing and never inserted.
func (s *cassandraExecutor) IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) error {
	if !counterColumns[field] {
		return errors.WithDetails(errUnknownCounter, "field", field)
	}

	var current *int64
	err := s.session.Query(fmt.Sprintf("SELECT %s FROM users WHERE id = ?", field), ownerID).
		WithContext(ctx).Scan(&current)
	if errors.Is(err, gocql.ErrNotFound) {
		return errNoData
	}
	if err != nil {
		return err
	}

	update := fmt.Sprintf("UPDATE users SET %[1]s = ?, %[2]s = ? WHERE id = ? IF %[1]s = ?", field, model.LastActiveField)
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		var next int64
		if current != nil {
			next = *current
		}
		next += amount

		var observed *int64
		applied, err := s.session.Query(update, next, at, ownerID, current).WithContext(ctx).ScanCAS(&observed)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
		s.logger.Debug("counter compare-and-set lost, retrying", zap.String("ownerID", ownerID), zap.Int("attempt", attempt))
		current = observed
	}
	return errors.WithDetails(errCounterContended, "ownerID", ownerID, "attempts", maxCASAttempts)
}

func (s *cassandraExecutor) Close() {
	s.session.Close()
}

func (s *cassandraExecutor) Ping() error {
	if s.session.Closed() {
		return errServerClosed
	}
	return nil
}

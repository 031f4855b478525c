// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cassandra

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/gocql/gocql"
	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
	"github.com/simpli-fi/airlock/store/db/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	Yugabyte = "yugabyte"

	defaultOpTimeout             = time.Duration(10) * time.Second
	defaultDatabase              = "airlock"
	defaultNumRetries            = 0
	defaultWaitTimeMult          = 1
	defaultMaxNumberConnsPerHost = 2
	defaultPingInterval          = 5 * time.Second
)

var (
	errNoHosts     = errors.New("number of hosts must be > 0")
	errNilMeasures = errors.New("measures cannot be nil")
)

type Config struct {
	// Hosts to  connect to. Must have at least one
	Hosts []string

	// Database aka Keyspace for cassandra
	Database string

	// OpTimeout
	OpTimeout time.Duration

	// SSLRootCert used for enabling tls to the cluster. SSLKey, and SSLCert must also be set.
	SSLRootCert string
	// SSLKey used for enabling tls to the cluster. SSLRootCert, and SSLCert must also be set.
	SSLKey string
	// SSLCert used for enabling tls to the cluster. SSLRootCert, and SSLRootCert must also be set.
	SSLCert string
	// If you want to verify the hostname and server cert (like a wildcard for cass cluster) then you should turn this on
	// This option is basically the inverse of InSecureSkipVerify
	// See InSecureSkipVerify in http://golang.org/pkg/crypto/tls/ for more info
	EnableHostVerification bool

	// Username to authenticate into the cluster. Password must also be provided.
	Username string
	// Password to authenticate into the cluster. Username must also be provided.
	Password string

	// NumRetries for connecting to the db
	NumRetries int

	// WaitTimeMult the amount of time to wait before retrying to connect to the db
	WaitTimeMult time.Duration

	// MaxConnsPerHost max number of connections per host
	MaxConnsPerHost int

	// PingInterval is how often the session is checked. (Optional) Defaults to 5s.
	PingInterval time.Duration
}

type CassandraClient struct {
	client   dbStore
	config   Config
	logger   *zap.Logger
	measures *metric.Measures
	now      func() time.Time
}

// NewCassandra connects to the cluster and ties the session to the application lifecycle.
func NewCassandra(config Config, measures *metric.Measures, lc fx.Lifecycle, logger *zap.Logger) (store.S, error) {
	client, err := CreateCassandraClient(config, measures, logger)
	if err != nil {
		return nil, err
	}
	ticker := doEvery(client.config.PingInterval, func(_ time.Time) {
		if err := client.Ping(); err != nil {
			logger.Error("ping failed", zap.Error(err))
		}
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			ticker.Stop()
			client.Close()
			return nil
		},
	})
	return client, nil
}

func doEvery(d time.Duration, f func(time.Time)) *time.Ticker {
	ticker := time.NewTicker(d)
	go func() {
		for x := range ticker.C {
			f(x)
		}
	}()
	return ticker
}

func CreateCassandraClient(config Config, measures *metric.Measures, logger *zap.Logger) (*CassandraClient, error) {
	if len(config.Hosts) == 0 {
		return nil, errNoHosts
	}
	if measures == nil {
		return nil, errNilMeasures
	}

	validateConfig(&config)

	clusterConfig := gocql.NewCluster(config.Hosts...)
	clusterConfig.Consistency = gocql.LocalQuorum
	clusterConfig.Keyspace = config.Database
	clusterConfig.Timeout = config.OpTimeout
	clusterConfig.NumConns = config.MaxConnsPerHost
	// let retry package handle it
	clusterConfig.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 1}
	// setup ssl
	if config.SSLRootCert != "" && config.SSLCert != "" && config.SSLKey != "" {
		clusterConfig.SslOpts = &gocql.SslOptions{
			CertPath:               config.SSLCert,
			KeyPath:                config.SSLKey,
			CaPath:                 config.SSLRootCert,
			EnableHostVerification: config.EnableHostVerification,
		}
	}
	// setup authentication
	if config.Username != "" && config.Password != "" {
		clusterConfig.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}

	session, err := connect(clusterConfig, logger)

	// retry if it fails
	waitTime := 1 * time.Second
	for attempt := 0; attempt < config.NumRetries && err != nil; attempt++ {
		time.Sleep(waitTime)
		session, err = connect(clusterConfig, logger)
		waitTime = waitTime * config.WaitTimeMult
	}
	if err != nil {
		return nil, errors.WrapWithDetails(err, "connecting to database failed", "hosts", config.Hosts)
	}

	return &CassandraClient{
		client:   session,
		config:   config,
		logger:   logger,
		measures: measures,
		now:      time.Now,
	}, nil
}

func (s *CassandraClient) observe(queryType string, start time.Time, err error) {
	s.measures.QueryDurationSeconds.With(metric.QueryTypeLabelKey, queryType).Observe(s.now().Sub(start).Seconds())
	outcome := metric.SuccessQueryOutcome
	if err != nil {
		outcome = metric.FailQueryOutcome
	}
	s.measures.Queries.With(metric.QueryOutcomeLabelKey, outcome, metric.QueryTypeLabelKey, queryType).Add(1.0)
}

func (s *CassandraClient) Lookup(ctx context.Context, id string) (model.Link, error) {
	start := s.now()
	link, err := s.client.Lookup(ctx, id)
	if errors.Is(err, errNoData) {
		s.observe(metric.LookupQueryType, start, nil)
		return link, store.NotFound(store.LookupType, id)
	}
	s.observe(metric.LookupQueryType, start, err)
	if err != nil {
		return link, store.ItemOperationError{Err: store.InternalError{Reason: err.Error()}, Identifier: id, Operation: store.LookupType}
	}
	return link, nil
}

func (s *CassandraClient) AppendEvent(ctx context.Context, event model.VisitEvent) error {
	start := s.now()
	err := s.client.AppendEvent(ctx, event)
	s.observe(metric.AppendQueryType, start, err)
	if err != nil {
		return store.ItemOperationError{Err: store.InternalError{Reason: err.Error()}, Identifier: event.ID, Operation: store.AppendType}
	}
	return nil
}

func (s *CassandraClient) IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) error {
	start := s.now()
	err := s.client.IncrementCounter(ctx, ownerID, field, amount, at)
	if errors.Is(err, errNoData) {
		s.observe(metric.IncrementQueryType, start, nil)
		return store.NotFound(store.IncrementType, ownerID)
	}
	s.observe(metric.IncrementQueryType, start, err)
	if err != nil {
		return store.ItemOperationError{
			Err:        store.InternalError{Reason: err.Error(), Retryable: errors.Is(err, errCounterContended)},
			Identifier: ownerID,
			Operation:  store.IncrementType,
		}
	}
	return nil
}

func (s *CassandraClient) Close() {
	s.client.Close()
}

// Ping is for pinging the database to verify that the connection is still good.
func (s *CassandraClient) Ping() error {
	start := s.now()
	err := s.client.Ping()
	s.observe(metric.PingQueryType, start, err)
	if err != nil {
		return errors.WrapWithDetails(err, "pinging connection failed")
	}
	return nil
}

func validateConfig(config *Config) {
	zeroDuration := time.Duration(0) * time.Second

	if config.OpTimeout == zeroDuration {
		config.OpTimeout = defaultOpTimeout
	}

	if config.Database == "" {
		config.Database = defaultDatabase
	}
	if config.NumRetries < 0 {
		config.NumRetries = defaultNumRetries
	}
	if config.WaitTimeMult < 1 {
		config.WaitTimeMult = defaultWaitTimeMult
	}
	if config.MaxConnsPerHost <= 0 {
		config.MaxConnsPerHost = defaultMaxNumberConnsPerHost
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaultPingInterval
	}
}

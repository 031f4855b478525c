// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package dynamodb

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
	"github.com/simpli-fi/airlock/store/db/metric"
	"go.uber.org/zap"
)

const (
	defaultLinksTable  = "public_cards"
	defaultEventsTable = "events"
	defaultUsersTable  = "users"
	defaultMaxRetries  = 3
)

// Config describes the DynamoDB tables and client.
type Config struct {
	// LinksTable holds identifier -> destination records. (Optional) Defaults to public_cards.
	LinksTable string

	// EventsTable receives visit events. (Optional) Defaults to events.
	EventsTable string

	// UsersTable holds owner counters. (Optional) Defaults to users.
	UsersTable string

	// Endpoint overrides the service endpoint, e.g. for DynamoDB local.
	Endpoint string

	Region string

	// MaxRetries is the maximum number of attempts the client makes per request.
	MaxRetries int

	// AccessKey and SecretKey are static credentials. When empty the default
	// credential chain is used.
	AccessKey string
	SecretKey string
}

var errNilMeasures = errors.New("measures cannot be nil")

type dao struct {
	s service
}

// NewDynamoDB builds a store backed by DynamoDB.
func NewDynamoDB(config Config, measures *metric.Measures, logger *zap.Logger) (store.S, error) {
	if measures == nil {
		return nil, errNilMeasures
	}
	validateConfig(&config)

	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(config.MaxRetries),
	}
	if config.Region != "" {
		options = append(options, awsconfig.WithRegion(config.Region))
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		options = append(options, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")))
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(context.Background(), options...)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "failed to load aws config", "region", config.Region)
	}

	c := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	var svc service = &executor{
		c:           c,
		linksTable:  config.LinksTable,
		eventsTable: config.EventsTable,
		usersTable:  config.UsersTable,
	}
	svc = newLoggingService(logger, svc)
	svc = newInstrumentingService(&dynamoMeasuresUpdater{measures: measures}, svc, time.Now)
	return &dao{s: svc}, nil
}

func (d *dao) Lookup(ctx context.Context, id string) (model.Link, error) {
	link, _, err := d.s.Lookup(ctx, id)
	return link, err
}

func (d *dao) AppendEvent(ctx context.Context, event model.VisitEvent) error {
	_, err := d.s.AppendEvent(ctx, event)
	return err
}

func (d *dao) IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) error {
	_, err := d.s.IncrementCounter(ctx, ownerID, field, amount, at)
	return err
}

func validateConfig(config *Config) {
	if config.LinksTable == "" {
		config.LinksTable = defaultLinksTable
	}
	if config.EventsTable == "" {
		config.EventsTable = defaultEventsTable
	}
	if config.UsersTable == "" {
		config.UsersTable = defaultUsersTable
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaultMaxRetries
	}
}

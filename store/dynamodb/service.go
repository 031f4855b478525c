// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package dynamodb

import (
	"context"
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/simpli-fi/airlock/model"
	"github.com/simpli-fi/airlock/store"
)

// client captures the methods of interest from the dynamoDB API. This
// should help mock API calls as well.
type client interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// service defines the dynamodb specific DAO interface. It helps keeping middleware
// such as logging and instrumentation orthogonal to business logic.
type service interface {
	Lookup(ctx context.Context, id string) (model.Link, *types.ConsumedCapacity, error)
	AppendEvent(ctx context.Context, event model.VisitEvent) (*types.ConsumedCapacity, error)
	IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) (*types.ConsumedCapacity, error)
}

// executor satisfies the service interface so dao can then adapt the outputs to match
// the store.S interface.
type executor struct {
	// c is the dynamodb client
	c client

	linksTable  string
	eventsTable string
	usersTable  string
}

// Dynamo DB attribute keys
const (
	idAttributeKey         = "id"
	lastActiveAttributeKey = model.LastActiveField
)

// Error codes DynamoDB reports for transient failures.
var retryableErrorCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ThrottlingException":                    true,
}

func handleClientError(err error, operation, id string) error {
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return store.NotFound(operation, id)
	}

	internal := store.InternalError{Reason: err.Error()}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		internal.Reason = apiErr.ErrorCode() + ": " + apiErr.ErrorMessage()
		internal.Retryable = retryableErrorCodes[apiErr.ErrorCode()]
	}
	return store.ItemOperationError{Err: internal, Identifier: id, Operation: operation}
}

func (d *executor) Lookup(ctx context.Context, id string) (model.Link, *types.ConsumedCapacity, error) {
	output, err := d.c.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.linksTable),
		Key: map[string]types.AttributeValue{
			idAttributeKey: &types.AttributeValueMemberS{Value: id},
		},
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	var consumedCapacity *types.ConsumedCapacity
	if output != nil {
		consumedCapacity = output.ConsumedCapacity
	}
	if err != nil {
		return model.Link{}, consumedCapacity, handleClientError(err, store.LookupType, id)
	}
	if len(output.Item) == 0 {
		return model.Link{}, consumedCapacity, store.NotFound(store.LookupType, id)
	}

	var link model.Link
	err = attributevalue.UnmarshalMap(output.Item, &link)
	if err != nil {
		return model.Link{}, consumedCapacity, errors.WrapWithDetails(err, "failed to unmarshal link", "id", id)
	}
	if link.ID == "" {
		link.ID = id
	}
	return link, consumedCapacity, nil
}

func (d *executor) AppendEvent(ctx context.Context, event model.VisitEvent) (*types.ConsumedCapacity, error) {
	av, err := attributevalue.MarshalMap(event)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "failed to marshal event", "id", event.ID)
	}

	output, err := d.c.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:              aws.String(d.eventsTable),
		Item:                   av,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	var consumedCapacity *types.ConsumedCapacity
	if output != nil {
		consumedCapacity = output.ConsumedCapacity
	}
	if err != nil {
		return consumedCapacity, handleClientError(err, store.AppendType, event.ID)
	}
	return consumedCapacity, nil
}

// IncrementCounter only updates existing owners; the condition keeps UpdateItem
// from creating a record for an unknown owner.
func (d *executor) IncrementCounter(ctx context.Context, ownerID, field string, amount int64, at time.Time) (*types.ConsumedCapacity, error) {
	output, err := d.c.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.usersTable),
		Key: map[string]types.AttributeValue{
			idAttributeKey: &types.AttributeValueMemberS{Value: ownerID},
		},
		UpdateExpression:    aws.String("ADD #counter :amount SET #lastActive = :at"),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#counter":    field,
			"#lastActive": lastActiveAttributeKey,
			"#id":         idAttributeKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amount": &types.AttributeValueMemberN{Value: strconv.FormatInt(amount, 10)},
			":at":     &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
		},
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	var consumedCapacity *types.ConsumedCapacity
	if output != nil {
		consumedCapacity = output.ConsumedCapacity
	}
	if err != nil {
		return consumedCapacity, handleClientError(err, store.IncrementType, ownerID)
	}
	return consumedCapacity, nil
}

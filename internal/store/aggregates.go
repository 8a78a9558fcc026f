package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/commentpulse/internal/models"
)

// AggregateStore persists per-entity running scores. Writes are conditional
// on the version read beforehand; losing the condition surfaces as
// ErrVersionConflict, never as a plain error.
type AggregateStore struct {
	client DynamoAPI
	table  string
}

func NewAggregateStore(client DynamoAPI) *AggregateStore {
	return &AggregateStore{client: client, table: SENTIMENT_SCORES_TABLE_NAME}
}

// Get returns the entity's aggregate, or nil when none exists yet.
func (as *AggregateStore) Get(ctx context.Context, entityID string) (*models.EntityAggregate, error) {
	out, err := as.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(as.table),
		Key: map[string]types.AttributeValue{
			"entity_id": &types.AttributeValueMemberS{Value: entityID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[AggregateStore] Failed to get aggregate for %s: %w", entityID, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var agg models.EntityAggregate
	if err := attributevalue.UnmarshalMap(out.Item, &agg); err != nil {
		return nil, fmt.Errorf("[AggregateStore] Failed to unmarshal aggregate for %s: %w", entityID, err)
	}
	return &agg, nil
}

// PutIfVersion writes the aggregate only if the stored version still equals
// expectedVersion. An empty expectedVersion means the caller read no row and
// the write must create one.
func (as *AggregateStore) PutIfVersion(ctx context.Context, agg models.EntityAggregate, expectedVersion string) error {
	item, err := attributevalue.MarshalMap(agg)
	if err != nil {
		return fmt.Errorf("[AggregateStore] Failed to marshal aggregate for %s: %w", agg.EntityID, err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(as.table),
		Item:      item,
	}
	if expectedVersion == "" {
		input.ConditionExpression = aws.String("attribute_not_exists(entity_id)")
	} else {
		input.ConditionExpression = aws.String("version = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberS{Value: expectedVersion},
		}
	}

	_, err = as.client.PutItem(ctx, input)
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrVersionConflict
		}
		return fmt.Errorf("[AggregateStore] Failed to put aggregate for %s: %w", agg.EntityID, err)
	}
	return nil
}

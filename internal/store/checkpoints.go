package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/commentpulse/internal/models"
)

// CheckpointStore persists pagination state per entity. Only the checkpoint
// manager writes here, and only after the batch behind a token advance is
// durably ingested.
type CheckpointStore struct {
	client DynamoAPI
	table  string
}

func NewCheckpointStore(client DynamoAPI) *CheckpointStore {
	return &CheckpointStore{client: client, table: PAGINATION_STATE_TABLE_NAME}
}

// Get returns the entity's pagination state, or nil when the entity is
// fresh.
func (ps *CheckpointStore) Get(ctx context.Context, entityID string) (*models.PaginationState, error) {
	out, err := ps.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ps.table),
		Key: map[string]types.AttributeValue{
			"entity_id": &types.AttributeValueMemberS{Value: entityID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[CheckpointStore] Failed to get state for %s: %w", entityID, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var state models.PaginationState
	if err := attributevalue.UnmarshalMap(out.Item, &state); err != nil {
		return nil, fmt.Errorf("[CheckpointStore] Failed to unmarshal state for %s: %w", entityID, err)
	}
	return &state, nil
}

func (ps *CheckpointStore) Put(ctx context.Context, state models.PaginationState) error {
	item, err := attributevalue.MarshalMap(state)
	if err != nil {
		return fmt.Errorf("[CheckpointStore] Failed to marshal state for %s: %w", state.EntityID, err)
	}

	_, err = ps.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ps.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("[CheckpointStore] Failed to put state for %s: %w", state.EntityID, err)
	}
	return nil
}

// Delete clears the entity's pagination state, returning it to fresh so the
// next cycle starts from the beginning.
func (ps *CheckpointStore) Delete(ctx context.Context, entityID string) error {
	_, err := ps.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(ps.table),
		Key: map[string]types.AttributeValue{
			"entity_id": &types.AttributeValueMemberS{Value: entityID},
		},
	})
	if err != nil {
		return fmt.Errorf("[CheckpointStore] Failed to delete state for %s: %w", entityID, err)
	}
	return nil
}

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/commentpulse/internal/models"
)

// CommentStore persists comments in the raw comments table, keyed by
// (entity_id, dedup_key). All writes are unconditional overwrites with
// content fully determined by their inputs, so redelivered batches are
// no-ops.
type CommentStore struct {
	client DynamoAPI
	table  string
}

func NewCommentStore(client DynamoAPI) *CommentStore {
	return &CommentStore{client: client, table: RAW_COMMENTS_TABLE_NAME}
}

// BatchUpsert writes comments in chunks of 25, retrying unprocessed items
// with a doubling backoff before giving up on them.
func (cs *CommentStore) BatchUpsert(ctx context.Context, comments []models.Comment) error {
	for i := 0; i < len(comments); i += maxBatchSize {
		select {
		case <-ctx.Done():
			slog.Warn("[CommentStore] context canceled")
			return ctx.Err()
		default:
		}

		end := i + maxBatchSize
		if end > len(comments) {
			end = len(comments)
		}

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, comment := range comments[i:end] {
			item, err := attributevalue.MarshalMap(comment)
			if err != nil {
				return fmt.Errorf("[CommentStore] Failed to marshal comment %s: %w", comment.DedupKey, err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		out, err := cs.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				cs.table: writeRequests,
			},
		})
		if err != nil {
			return fmt.Errorf("[CommentStore] Failed to batch write comments: %w", err)
		}

		retryCount := 0
		backoff := batchRetryBackoff
		for len(out.UnprocessedItems) > 0 && retryCount < batchRetryLimit {
			time.Sleep(backoff)
			backoff *= 2
			slog.Warn("[CommentStore] Retrying unprocessed comments...",
				slog.Int("attempt", retryCount+1),
				slog.Int("remaining", len(out.UnprocessedItems[cs.table])))

			out, err = cs.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: out.UnprocessedItems,
			})
			if err != nil {
				return fmt.Errorf("[CommentStore] Failed to retry batch write: %w", err)
			}
			retryCount++
		}

		if len(out.UnprocessedItems) > 0 {
			return fmt.Errorf("[CommentStore] %d comments still unprocessed after retries",
				len(out.UnprocessedItems[cs.table]))
		}
	}
	return nil
}

// Upsert overwrites a single comment. Used by enrichment, where the write is
// idempotent by dedup key.
func (cs *CommentStore) Upsert(ctx context.Context, comment models.Comment) error {
	item, err := attributevalue.MarshalMap(comment)
	if err != nil {
		return fmt.Errorf("[CommentStore] Failed to marshal comment %s: %w", comment.DedupKey, err)
	}

	_, err = cs.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(cs.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("[CommentStore] Failed to put comment %s: %w", comment.DedupKey, err)
	}
	return nil
}

func (cs *CommentStore) Get(ctx context.Context, entityID, dedupKey string) (*models.Comment, error) {
	out, err := cs.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(cs.table),
		Key: map[string]types.AttributeValue{
			"entity_id": &types.AttributeValueMemberS{Value: entityID},
			"dedup_key": &types.AttributeValueMemberS{Value: dedupKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[CommentStore] Failed to get comment %s: %w", dedupKey, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var comment models.Comment
	if err := attributevalue.UnmarshalMap(out.Item, &comment); err != nil {
		return nil, fmt.Errorf("[CommentStore] Failed to unmarshal comment %s: %w", dedupKey, err)
	}
	return &comment, nil
}

// QueryProcessedAfter returns the entity's comments with a processed_at
// strictly greater than the checkpoint. Unenriched comments carry no
// processed_at attribute and fall out of the filter.
func (cs *CommentStore) QueryProcessedAfter(ctx context.Context, entityID, checkpoint string) ([]models.Comment, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(cs.table),
		KeyConditionExpression: aws.String("entity_id = :entity_id"),
		FilterExpression:       aws.String("processed_at > :checkpoint"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entity_id":  &types.AttributeValueMemberS{Value: entityID},
			":checkpoint": &types.AttributeValueMemberS{Value: checkpoint},
		},
	}

	var comments []models.Comment
	paginator := dynamodb.NewQueryPaginator(cs.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[CommentStore] Query for new comments failed: %w", err)
		}
		var page []models.Comment
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("[CommentStore] Failed to unmarshal comment page: %w", err)
		}
		comments = append(comments, page...)
	}
	return comments, nil
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

const (
	RAW_COMMENTS_TABLE_NAME     = "RawCommentsTable"
	SENTIMENT_SCORES_TABLE_NAME = "SentimentScoresTable"
	PAGINATION_STATE_TABLE_NAME = "PaginationStateTable"
)

const (
	maxBatchSize      = 25
	batchRetryLimit   = 3
	batchRetryBackoff = 500 * time.Millisecond
)

// ErrVersionConflict reports that a conditional write lost the race: the
// record changed between read and write. Callers re-read and recompute; this
// is not a failure.
var ErrVersionConflict = errors.New("store: version conflict")

// DynamoAPI is the slice of the DynamoDB client the stores use. Narrowed so
// tests can drop in an in-memory fake.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

package store

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/commentpulse/internal/models"
)

// fakeDynamo captures inputs and serves scripted responses for the handful
// of calls the aggregate store makes.
type fakeDynamo struct {
	getOutput *dynamodb.GetItemOutput
	putErr    error
	lastPut   *dynamodb.PutItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getOutput != nil {
		return f.getOutput, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = params
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, _ *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, _ *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func TestAggregateStore_GetMissReturnsNil(t *testing.T) {
	as := NewAggregateStore(&fakeDynamo{})

	agg, err := as.Get(context.Background(), "abc")
	require.NoError(t, err)

	assert.Nil(t, agg)
}

func TestAggregateStore_PutIfVersion_ConditionFailureIsConflict(t *testing.T) {
	fake := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{}}
	as := NewAggregateStore(fake)

	err := as.PutIfVersion(context.Background(), models.EntityAggregate{EntityID: "abc"}, "stale-version")

	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestAggregateStore_PutIfVersion_Conditions(t *testing.T) {
	t.Run("first write requires absence", func(t *testing.T) {
		fake := &fakeDynamo{}
		as := NewAggregateStore(fake)

		require.NoError(t, as.PutIfVersion(context.Background(), models.EntityAggregate{EntityID: "abc"}, ""))

		require.NotNil(t, fake.lastPut)
		assert.Equal(t, "attribute_not_exists(entity_id)", *fake.lastPut.ConditionExpression)
	})

	t.Run("update requires matching version", func(t *testing.T) {
		fake := &fakeDynamo{}
		as := NewAggregateStore(fake)

		require.NoError(t, as.PutIfVersion(context.Background(), models.EntityAggregate{EntityID: "abc"}, "v-1"))

		require.NotNil(t, fake.lastPut)
		assert.Equal(t, "version = :expected", *fake.lastPut.ConditionExpression)
		expected, ok := fake.lastPut.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS)
		require.True(t, ok)
		assert.Equal(t, "v-1", expected.Value)
	})
}

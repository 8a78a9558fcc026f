package aggregation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/commentpulse/internal/models"
	"github.com/spacesedan/commentpulse/internal/store"
)

// fakeAggregateStore enforces the same version discipline as the DynamoDB
// store: a write only lands if the stored version matches what the writer
// read.
type fakeAggregateStore struct {
	agg   *models.EntityAggregate
	puts  int
	onPut func()
}

func (f *fakeAggregateStore) Get(_ context.Context, _ string) (*models.EntityAggregate, error) {
	if f.agg == nil {
		return nil, nil
	}
	copied := *f.agg
	return &copied, nil
}

func (f *fakeAggregateStore) PutIfVersion(_ context.Context, agg models.EntityAggregate, expectedVersion string) error {
	if f.onPut != nil {
		f.onPut()
		f.onPut = nil
	}

	current := ""
	if f.agg != nil {
		current = f.agg.Version
	}
	if current != expectedVersion {
		return store.ErrVersionConflict
	}
	f.agg = &agg
	f.puts++
	return nil
}

// fakeCommentReader applies the strict greater-than checkpoint filter over a
// fixed comment set, like the store's query does.
type fakeCommentReader struct {
	comments []models.Comment
}

func (f *fakeCommentReader) QueryProcessedAfter(_ context.Context, _ string, checkpoint string) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range f.comments {
		if c.ProcessedAt > checkpoint {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestEngine_FirstAggregation(t *testing.T) {
	aggs := &fakeAggregateStore{}
	reader := &fakeCommentReader{comments: []models.Comment{
		enriched("2026-01-01T00:00:01.000000", 0.90, 0.05),
		enriched("2026-01-01T00:00:02.000000", 0.10, 0.80),
		enriched("2026-01-01T00:00:03.000000", 0.50, 0.50),
	}}
	engine := NewEngine(aggs, reader)

	outcome, err := engine.Aggregate(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Folded)
	assert.Equal(t, 50, outcome.OverallScore)
	assert.Equal(t, 3, outcome.CommentCount)
	require.NotNil(t, aggs.agg)
	assert.Equal(t, "2026-01-01T00:00:03.000000", aggs.agg.LastCheckpoint)
	assert.NotEmpty(t, aggs.agg.Version)
}

func TestEngine_RedeliveredTriggerIsNoOp(t *testing.T) {
	aggs := &fakeAggregateStore{}
	reader := &fakeCommentReader{comments: []models.Comment{
		enriched("2026-01-01T00:00:01.000000", 1.0, 0.0),
	}}
	engine := NewEngine(aggs, reader)

	first, err := engine.Aggregate(context.Background(), "abc")
	require.NoError(t, err)
	require.False(t, first.NoOp)

	stored := *aggs.agg

	second, err := engine.Aggregate(context.Background(), "abc")
	require.NoError(t, err)

	assert.True(t, second.NoOp)
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.CommentCount, second.CommentCount)
	assert.Equal(t, stored, *aggs.agg)
}

func TestEngine_ConflictRetryLosesNoUpdate(t *testing.T) {
	// Two aggregation runs race over disjoint new-comment sets. The loser
	// of the conditional write must recompute against the winner's state,
	// so both sets end up in the final count.
	first := enriched("2026-01-01T00:00:01.000000", 1.0, 0.0)
	second := enriched("2026-01-01T00:00:02.000000", 0.0, 1.0)

	aggs := &fakeAggregateStore{}
	reader := &fakeCommentReader{comments: []models.Comment{first, second}}
	engine := NewEngine(aggs, reader)

	// Before our write lands, a concurrent run folds the first comment.
	aggs.onPut = func() {
		winner := Fold(models.FreshAggregate("abc"), []models.Comment{first}, DefaultPriorWeight)
		winner.Version = models.NewAggregateVersion(winner.LastCheckpoint)
		aggs.agg = &winner
	}

	outcome, err := engine.Aggregate(context.Background(), "abc")
	require.NoError(t, err)

	// The retry re-read the advanced checkpoint and folded only the second
	// comment; nothing was lost and nothing was double counted.
	assert.Equal(t, 1, outcome.Folded)
	assert.Equal(t, 2, outcome.CommentCount)
	assert.Equal(t, "2026-01-01T00:00:02.000000", aggs.agg.LastCheckpoint)
}

func TestEngine_CommentCountNeverDecreases(t *testing.T) {
	aggs := &fakeAggregateStore{}
	reader := &fakeCommentReader{}
	engine := NewEngine(aggs, reader)

	prev := 0
	stamps := []string{
		"2026-01-01T00:00:01.000000",
		"2026-01-01T00:00:02.000000",
		"2026-01-01T00:00:03.000000",
	}
	for _, stamp := range stamps {
		reader.comments = append(reader.comments, enriched(stamp, 0.3, 0.6))

		outcome, err := engine.Aggregate(context.Background(), "abc")
		require.NoError(t, err)

		assert.Greater(t, outcome.CommentCount, prev)
		assert.GreaterOrEqual(t, outcome.OverallScore, 0)
		assert.LessOrEqual(t, outcome.OverallScore, 100)
		prev = outcome.CommentCount
	}
}

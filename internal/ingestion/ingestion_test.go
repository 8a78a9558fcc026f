package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/commentpulse/internal/models"
)

type fakeCommentWriter struct {
	rows    map[string]models.Comment
	writes  int
	failing bool
}

func newFakeCommentWriter() *fakeCommentWriter {
	return &fakeCommentWriter{rows: make(map[string]models.Comment)}
}

func (f *fakeCommentWriter) BatchUpsert(_ context.Context, comments []models.Comment) error {
	if f.failing {
		return errors.New("store unreachable")
	}
	for _, c := range comments {
		f.rows[c.DedupKey] = c
	}
	f.writes++
	return nil
}

func validBatch() []models.RawComment {
	return []models.RawComment{
		{Text: "great video", Author: "a", PublishedAt: "2026-01-01T00:00:01Z"},
		{Text: "not a fan", Author: "b", PublishedAt: "2026-01-01T00:00:02Z"},
		{Text: "meh", Author: "c", PublishedAt: "2026-01-01T00:00:03Z"},
	}
}

func TestIngestBatch_Idempotent(t *testing.T) {
	writer := newFakeCommentWriter()
	ing := NewIngestor(writer)

	first, err := ing.IngestBatch(context.Background(), "abc", validBatch())
	require.NoError(t, err)
	require.Len(t, first.DedupKeys, 3)

	rowsAfterFirst := make(map[string]models.Comment, len(writer.rows))
	for k, v := range writer.rows {
		rowsAfterFirst[k] = v
	}

	// Redelivering the identical batch overwrites with identical content.
	second, err := ing.IngestBatch(context.Background(), "abc", validBatch())
	require.NoError(t, err)

	assert.ElementsMatch(t, first.DedupKeys, second.DedupKeys)
	assert.Equal(t, rowsAfterFirst, writer.rows)
}

func TestIngestBatch_SkipsMalformedTuples(t *testing.T) {
	tests := map[string]struct {
		bad models.RawComment
	}{
		"empty text":               {models.RawComment{Author: "a", PublishedAt: "2026-01-01T00:00:01Z"}},
		"missing published_at":     {models.RawComment{Text: "hi", Author: "a"}},
		"unparseable published_at": {models.RawComment{Text: "hi", Author: "a", PublishedAt: "yesterday"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			writer := newFakeCommentWriter()
			ing := NewIngestor(writer)

			batch := append(validBatch(), tc.bad)
			result, err := ing.IngestBatch(context.Background(), "abc", batch)
			require.NoError(t, err)

			// The bad tuple is reported, its siblings land.
			assert.Equal(t, 1, result.Skipped)
			assert.Len(t, result.DedupKeys, 3)
			assert.Len(t, writer.rows, 3)
		})
	}
}

func TestIngestBatch_CollapsesDuplicatesWithinBatch(t *testing.T) {
	writer := newFakeCommentWriter()
	ing := NewIngestor(writer)

	batch := validBatch()
	batch = append(batch, batch[0])

	result, err := ing.IngestBatch(context.Background(), "abc", batch)
	require.NoError(t, err)

	assert.Len(t, result.DedupKeys, 3)
	assert.Len(t, writer.rows, 3)
}

func TestIngestBatch_DistinctEntitiesGetDistinctKeys(t *testing.T) {
	writer := newFakeCommentWriter()
	ing := NewIngestor(writer)

	one, err := ing.IngestBatch(context.Background(), "abc", validBatch())
	require.NoError(t, err)
	two, err := ing.IngestBatch(context.Background(), "xyz", validBatch())
	require.NoError(t, err)

	for _, key := range one.DedupKeys {
		assert.NotContains(t, two.DedupKeys, key)
	}
	assert.Len(t, writer.rows, 6)
}

func TestIngestBatch_WriteFailureReturnsError(t *testing.T) {
	writer := newFakeCommentWriter()
	writer.failing = true
	ing := NewIngestor(writer)

	result, err := ing.IngestBatch(context.Background(), "abc", validBatch())

	require.Error(t, err)
	assert.Empty(t, result.DedupKeys)
}

func TestIngestBatch_EmptyBatchWritesNothing(t *testing.T) {
	writer := newFakeCommentWriter()
	ing := NewIngestor(writer)

	result, err := ing.IngestBatch(context.Background(), "abc", nil)
	require.NoError(t, err)

	assert.Empty(t, result.DedupKeys)
	assert.Zero(t, writer.writes)
}

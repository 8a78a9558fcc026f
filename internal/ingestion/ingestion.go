package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/commentpulse/internal/models"
)

// CommentWriter is the slice of the comment store ingestion needs.
type CommentWriter interface {
	BatchUpsert(ctx context.Context, comments []models.Comment) error
}

// Result reports what a batch ingestion actually did: the dedup keys now
// durable in the store, and how many tuples were skipped as malformed.
type Result struct {
	EntityID  string
	DedupKeys []string
	Skipped   int
}

// Ingestor turns raw comment batches into uniquely-keyed durable rows.
// Every write is an unconditional overwrite whose content is fully
// determined by its inputs, so ingesting the same batch twice changes
// nothing.
type Ingestor struct {
	comments CommentWriter
}

func NewIngestor(comments CommentWriter) *Ingestor {
	return &Ingestor{comments: comments}
}

// IngestBatch upserts one comment per unique dedup key. A malformed tuple is
// skipped and counted, never aborting its siblings. The returned dedup keys
// let the caller decide whether to advance pagination.
func (ing *Ingestor) IngestBatch(ctx context.Context, entityID string, batch []models.RawComment) (Result, error) {
	result := Result{EntityID: entityID}

	seen := make(map[string]struct{}, len(batch))
	comments := make([]models.Comment, 0, len(batch))
	for _, raw := range batch {
		if err := validate(raw); err != nil {
			slog.Warn("[Ingestion] Skipping malformed comment",
				slog.String("entity_id", entityID),
				slog.String("reason", err.Error()))
			result.Skipped++
			continue
		}

		naturalKey := raw.NaturalKey()
		dedupKey := models.DedupKey(entityID, naturalKey)
		if _, dup := seen[dedupKey]; dup {
			continue
		}
		seen[dedupKey] = struct{}{}

		comments = append(comments, models.Comment{
			EntityID:    entityID,
			DedupKey:    dedupKey,
			NaturalKey:  naturalKey,
			Text:        raw.Text,
			Author:      raw.Author,
			PublishedAt: raw.PublishedAt,
		})
		result.DedupKeys = append(result.DedupKeys, dedupKey)
	}

	if len(comments) > 0 {
		if err := ing.comments.BatchUpsert(ctx, comments); err != nil {
			return Result{EntityID: entityID}, fmt.Errorf("[Ingestion] Batch upsert failed: %w", err)
		}
	}

	slog.Info("[Ingestion] Batch ingested",
		slog.String("entity_id", entityID),
		slog.Int("ingested", len(result.DedupKeys)),
		slog.Int("skipped", result.Skipped))

	return result, nil
}

func validate(raw models.RawComment) error {
	if raw.Text == "" {
		return fmt.Errorf("empty text")
	}
	if raw.PublishedAt == "" {
		return fmt.Errorf("missing published_at")
	}
	if _, err := time.Parse(time.RFC3339, raw.PublishedAt); err != nil {
		return fmt.Errorf("unparseable published_at %q", raw.PublishedAt)
	}
	return nil
}

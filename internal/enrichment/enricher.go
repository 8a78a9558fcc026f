package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spacesedan/commentpulse/internal/models"
)

const (
	classifyRetryLimit   = 3
	classifyRetryBackoff = 500 * time.Millisecond
)

// CommentReadWriter is the slice of the comment store enrichment needs.
type CommentReadWriter interface {
	Get(ctx context.Context, entityID, dedupKey string) (*models.Comment, error)
	Upsert(ctx context.Context, comment models.Comment) error
}

// Summary reports per-batch enrichment outcomes. Failed items stay
// unenriched and are excluded from aggregation; they never block siblings.
type Summary struct {
	Enriched int
	Skipped  int
	Failed   int
}

// Enricher attaches a sentiment result to newly ingested comments, one
// comment at a time, idempotently: a redelivered trigger finds the comment
// already enriched and skips it.
type Enricher struct {
	classifier Classifier
	comments   CommentReadWriter
	now        func() time.Time
}

func NewEnricher(classifier Classifier, comments CommentReadWriter) *Enricher {
	return &Enricher{
		classifier: classifier,
		comments:   comments,
		now:        time.Now,
	}
}

// EnrichBatch classifies each referenced comment and writes the result back
// with a processed_at stamp. Items are independent: a permanent classifier
// failure on one is counted and the rest proceed.
func (e *Enricher) EnrichBatch(ctx context.Context, entityID string, dedupKeys []string) (Summary, error) {
	var summary Summary

	for _, dedupKey := range dedupKeys {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		comment, err := e.comments.Get(ctx, entityID, dedupKey)
		if err != nil {
			slog.Warn("[Enrichment] Failed to load comment",
				slog.String("dedup_key", dedupKey),
				slog.String("error", err.Error()))
			summary.Failed++
			continue
		}
		if comment == nil {
			slog.Warn("[Enrichment] Comment not found",
				slog.String("entity_id", entityID),
				slog.String("dedup_key", dedupKey))
			summary.Failed++
			continue
		}
		if comment.Sentiment != nil {
			summary.Skipped++
			continue
		}

		score, err := e.classifyWithRetry(ctx, comment.Text)
		if err != nil {
			if errors.Is(err, ErrTextTooLong) {
				slog.Warn("[Enrichment] Text too long, leaving unenriched",
					slog.String("dedup_key", dedupKey),
					slog.Int("bytes", len(comment.Text)))
			} else {
				slog.Error("[Enrichment] Classification failed",
					slog.String("dedup_key", dedupKey),
					slog.String("error", err.Error()))
			}
			summary.Failed++
			continue
		}

		comment.Sentiment = &score
		comment.ProcessedAt = e.now().UTC().Format(models.ProcessedAtLayout)

		if err := e.comments.Upsert(ctx, *comment); err != nil {
			slog.Error("[Enrichment] Failed to store enriched comment",
				slog.String("dedup_key", dedupKey),
				slog.String("error", err.Error()))
			summary.Failed++
			continue
		}
		summary.Enriched++
	}

	slog.Info("[Enrichment] Batch enriched",
		slog.String("entity_id", entityID),
		slog.Int("enriched", summary.Enriched),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed))

	return summary, nil
}

func (e *Enricher) classifyWithRetry(ctx context.Context, text string) (models.SentimentScore, error) {
	backoff := classifyRetryBackoff
	var lastErr error

	for attempt := 0; attempt < classifyRetryLimit; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return models.SentimentScore{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		score, err := e.classifier.Score(ctx, text)
		if err == nil {
			return score, nil
		}
		if !errors.Is(err, ErrThrottled) {
			return models.SentimentScore{}, err
		}

		slog.Warn("[Enrichment] Classifier throttled, backing off",
			slog.Int("attempt", attempt+1))
		lastErr = err
	}
	return models.SentimentScore{}, lastErr
}

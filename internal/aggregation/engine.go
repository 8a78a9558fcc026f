package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spacesedan/commentpulse/internal/models"
	"github.com/spacesedan/commentpulse/internal/store"
)

const maxConflictRetries = 5

// AggregateReadWriter is the slice of the aggregate store the engine needs.
type AggregateReadWriter interface {
	Get(ctx context.Context, entityID string) (*models.EntityAggregate, error)
	PutIfVersion(ctx context.Context, agg models.EntityAggregate, expectedVersion string) error
}

// CommentReader queries enriched comments past a checkpoint.
type CommentReader interface {
	QueryProcessedAfter(ctx context.Context, entityID, checkpoint string) ([]models.Comment, error)
}

// Outcome reports one aggregation run.
type Outcome struct {
	EntityID     string
	Folded       int
	OverallScore int
	CommentCount int
	NoOp         bool
}

// Engine is the system of record for per-entity running scores. Each run
// reads the aggregate, queries comments with processed_at strictly past its
// checkpoint, folds them, and writes back conditionally on the version it
// read. A version conflict means a concurrent run advanced the aggregate
// first; the whole fold is recomputed against the fresh state, so no item is
// folded twice and no concurrent writer's progress is lost.
type Engine struct {
	aggregates  AggregateReadWriter
	comments    CommentReader
	priorWeight int
}

func NewEngine(aggregates AggregateReadWriter, comments CommentReader) *Engine {
	return &Engine{
		aggregates:  aggregates,
		comments:    comments,
		priorWeight: DefaultPriorWeight,
	}
}

// Aggregate folds all newly enriched comments for the entity into its
// aggregate. A redelivered trigger with nothing new past the checkpoint is a
// no-op.
func (e *Engine) Aggregate(ctx context.Context, entityID string) (Outcome, error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		current, err := e.aggregates.Get(ctx, entityID)
		if err != nil {
			return Outcome{}, err
		}

		agg := models.FreshAggregate(entityID)
		expectedVersion := ""
		if current != nil {
			agg = *current
			expectedVersion = current.Version
		}

		newComments, err := e.comments.QueryProcessedAfter(ctx, entityID, agg.LastCheckpoint)
		if err != nil {
			return Outcome{}, err
		}

		folded := Fold(agg, newComments, e.priorWeight)
		if folded.CommentCount == agg.CommentCount {
			slog.Info("[Aggregation] Nothing new past checkpoint",
				slog.String("entity_id", entityID),
				slog.String("checkpoint", agg.LastCheckpoint))
			return Outcome{
				EntityID:     entityID,
				OverallScore: agg.OverallScore,
				CommentCount: agg.CommentCount,
				NoOp:         true,
			}, nil
		}

		folded.Version = models.NewAggregateVersion(folded.LastCheckpoint)
		err = e.aggregates.PutIfVersion(ctx, folded, expectedVersion)
		if errors.Is(err, store.ErrVersionConflict) {
			// A concurrent fold won the write. Re-read and recompute
			// against its advanced checkpoint.
			slog.Info("[Aggregation] Version conflict, retrying with fresh state",
				slog.String("entity_id", entityID),
				slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return Outcome{}, err
		}

		slog.Info("[Aggregation] Aggregate updated",
			slog.String("entity_id", entityID),
			slog.Int("folded", folded.CommentCount-agg.CommentCount),
			slog.Int("overall_score", folded.OverallScore),
			slog.Int("comment_count", folded.CommentCount))

		return Outcome{
			EntityID:     entityID,
			Folded:       folded.CommentCount - agg.CommentCount,
			OverallScore: folded.OverallScore,
			CommentCount: folded.CommentCount,
		}, nil
	}

	return Outcome{}, fmt.Errorf("[Aggregation] Gave up after %d version conflicts for %s",
		maxConflictRetries, entityID)
}

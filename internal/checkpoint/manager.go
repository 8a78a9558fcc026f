package checkpoint

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/commentpulse/internal/ingestion"
	"github.com/spacesedan/commentpulse/internal/models"
)

// CommentSource is a paginated comment feed. An empty token starts from the
// beginning; an empty returned token means the last page was delivered.
type CommentSource interface {
	Fetch(ctx context.Context, entityID, pageToken string) ([]models.RawComment, string, error)
}

// Ingestor durably stores one fetched page.
type Ingestor interface {
	IngestBatch(ctx context.Context, entityID string, batch []models.RawComment) (ingestion.Result, error)
}

// StateStore persists pagination state per entity.
type StateStore interface {
	Get(ctx context.Context, entityID string) (*models.PaginationState, error)
	Put(ctx context.Context, state models.PaginationState) error
	Delete(ctx context.Context, entityID string) error
}

// CycleResult summarizes one fetch cycle.
type CycleResult struct {
	EntityID  string
	DedupKeys []string
	Skipped   int
	Exhausted bool
}

// Manager brackets ingestion on the pagination axis. It commits a token
// advance only after the page behind it is durably ingested, trading
// duplicate fetches for the guarantee that no page is ever skipped.
type Manager struct {
	source      CommentSource
	ingestor    Ingestor
	checkpoints StateStore
}

func NewManager(source CommentSource, ingestor Ingestor, checkpoints StateStore) *Manager {
	return &Manager{
		source:      source,
		ingestor:    ingestor,
		checkpoints: checkpoints,
	}
}

// RunCycle fetches the entity's next page, ingests it, and commits the new
// pagination state. If ingestion fails the stored token is left untouched,
// so the next cycle refetches the same page; ingestion being idempotent
// makes that safe. An exhausted entity fetches nothing until Reset.
func (m *Manager) RunCycle(ctx context.Context, entityID string) (CycleResult, error) {
	state, err := m.checkpoints.Get(ctx, entityID)
	if err != nil {
		return CycleResult{}, fmt.Errorf("[Checkpoint] Failed to read state: %w", err)
	}

	var token string
	if state != nil {
		if state.Exhausted {
			slog.Info("[Checkpoint] Entity exhausted, skipping fetch",
				slog.String("entity_id", entityID))
			return CycleResult{EntityID: entityID, Exhausted: true}, nil
		}
		token = state.ContinuationToken
	}

	batch, nextToken, err := m.source.Fetch(ctx, entityID, token)
	if err != nil {
		return CycleResult{}, fmt.Errorf("[Checkpoint] Fetch failed: %w", err)
	}

	result, err := m.ingestor.IngestBatch(ctx, entityID, batch)
	if err != nil {
		// Stored token untouched: the same page will be refetched.
		return CycleResult{}, err
	}

	next := models.PaginationState{
		EntityID:          entityID,
		ContinuationToken: nextToken,
		Exhausted:         nextToken == "",
	}
	if err := m.checkpoints.Put(ctx, next); err != nil {
		// Commit failed after durable ingestion: the page may be refetched
		// and re-ingested, which the dedup keys absorb.
		return CycleResult{}, err
	}

	slog.Info("[Checkpoint] Cycle committed",
		slog.String("entity_id", entityID),
		slog.Int("ingested", len(result.DedupKeys)),
		slog.Bool("exhausted", next.Exhausted))

	return CycleResult{
		EntityID:  entityID,
		DedupKeys: result.DedupKeys,
		Skipped:   result.Skipped,
		Exhausted: next.Exhausted,
	}, nil
}

// Reset clears the entity's pagination state so the next cycle starts from
// the beginning of the feed.
func (m *Manager) Reset(ctx context.Context, entityID string) error {
	return m.checkpoints.Delete(ctx, entityID)
}

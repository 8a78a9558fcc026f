package models

import (
	"fmt"

	"github.com/google/uuid"
)

// NeutralScore is the midpoint of the 0-100 scale, used as the starting
// score for an entity with no folded comments.
const NeutralScore = 50

// EntityAggregate is the running sentiment score for one entity. It is the
// system of record: comment_count only ever grows, and last_checkpoint marks
// the newest processed_at already folded into overall_score.
type EntityAggregate struct {
	EntityID       string `json:"entity_id" dynamodbav:"entity_id"`
	OverallScore   int    `json:"overall_score" dynamodbav:"overall_score"`
	CommentCount   int    `json:"comment_count" dynamodbav:"comment_count"`
	LastCheckpoint string `json:"last_checkpoint" dynamodbav:"last_checkpoint"`
	Version        string `json:"version" dynamodbav:"version"`
}

// NewAggregateVersion builds the opaque optimistic-concurrency token for a
// write: the checkpoint it carries plus a random tiebreaker, so two writers
// landing on the same checkpoint still produce distinct versions.
func NewAggregateVersion(checkpoint string) string {
	return fmt.Sprintf("%s#%s", checkpoint, uuid.NewString()[:8])
}

// FreshAggregate returns the neutral starting aggregate for an entity that
// has never been folded.
func FreshAggregate(entityID string) EntityAggregate {
	return EntityAggregate{
		EntityID:     entityID,
		OverallScore: NeutralScore,
	}
}

// PaginationState tracks how far the comment source has been consumed for
// one entity. No stored row means the entity is fresh; a token means a fetch
// is in progress; the exhausted flag means the source reported its last page
// and no further fetch should be attempted until an external reset.
type PaginationState struct {
	EntityID          string `json:"entity_id" dynamodbav:"entity_id"`
	ContinuationToken string `json:"continuation_token,omitempty" dynamodbav:"continuation_token,omitempty"`
	Exhausted         bool   `json:"exhausted" dynamodbav:"exhausted"`
}

package enrichment

import (
	"context"
	"errors"

	"github.com/spacesedan/commentpulse/internal/models"
)

// MAX_TEXT_BYTES is the largest text a classifier call accepts. Anything
// longer fails permanently with ErrTextTooLong.
const MAX_TEXT_BYTES = 5000

var (
	// ErrTextTooLong is permanent: the comment stays unenriched and is
	// excluded from aggregation until manually resolved.
	ErrTextTooLong = errors.New("enrichment: text exceeds size limit")

	// ErrThrottled is transient: the call may be retried after a backoff.
	ErrThrottled = errors.New("enrichment: classifier throttled")
)

// Classifier scores a text's sentiment. Implementations must distinguish
// permanent failures (ErrTextTooLong) from transient ones (ErrThrottled);
// anything else is treated as a per-item failure.
type Classifier interface {
	Score(ctx context.Context, text string) (models.SentimentScore, error)
}

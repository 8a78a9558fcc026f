package aggregation

import (
	"math"

	"github.com/spacesedan/commentpulse/internal/models"
)

// DefaultPriorWeight is the weight of the neutral Bayesian prior: how many
// neutral pseudo-comments the fold assumes before trusting the data. It
// dampens the swing a single comment causes on a long-history entity while
// letting a new entity's first comments move its score meaningfully.
const DefaultPriorWeight = 10

// NormalizedSentiment maps a comment's positive/negative magnitudes onto
// [-1, 1]. A comment with no positive or negative signal is neutral.
func NormalizedSentiment(score models.SentimentScore) float64 {
	total := score.Positive + score.Negative
	if total <= 0 {
		return 0
	}
	return (score.Positive - score.Negative) / total
}

// Fold blends newly enriched comments into the aggregate under a fixed
// neutral prior of weight priorWeight:
//
//	combined = (existingNorm*count + newAvg*newCount + 0*prior) / (count + newCount + prior)
//
// Comments without sentiment are ignored. The returned aggregate carries the
// advanced checkpoint (max processed_at over the folded comments) but no
// version; the caller stamps that at write time.
func Fold(agg models.EntityAggregate, comments []models.Comment, priorWeight int) models.EntityAggregate {
	var sum float64
	newCount := 0
	checkpoint := agg.LastCheckpoint
	for _, comment := range comments {
		if comment.Sentiment == nil || comment.ProcessedAt == "" {
			continue
		}
		sum += NormalizedSentiment(*comment.Sentiment)
		newCount++
		if comment.ProcessedAt > checkpoint {
			checkpoint = comment.ProcessedAt
		}
	}
	if newCount == 0 {
		return agg
	}

	newAvg := sum / float64(newCount)

	var existingNorm float64
	if agg.CommentCount > 0 {
		existingNorm = float64(agg.OverallScore)/50 - 1
	}

	combined := (existingNorm*float64(agg.CommentCount) + newAvg*float64(newCount)) /
		float64(agg.CommentCount+newCount+priorWeight)

	return models.EntityAggregate{
		EntityID:       agg.EntityID,
		OverallScore:   scoreFromNorm(combined),
		CommentCount:   agg.CommentCount + newCount,
		LastCheckpoint: checkpoint,
	}
}

func scoreFromNorm(norm float64) int {
	score := int(math.Round((norm + 1) / 2 * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

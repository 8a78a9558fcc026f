package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spacesedan/commentpulse/internal/models"
)

func enriched(processedAt string, positive, negative float64) models.Comment {
	return models.Comment{
		Sentiment: &models.SentimentScore{
			Positive: positive,
			Negative: negative,
		},
		ProcessedAt: processedAt,
	}
}

func TestNormalizedSentiment(t *testing.T) {
	tests := map[string]struct {
		positive float64
		negative float64
		want     float64
	}{
		"fully positive":        {1.0, 0.0, 1.0},
		"fully negative":        {0.0, 1.0, -1.0},
		"balanced":              {0.5, 0.5, 0.0},
		"no signal is neutral":  {0.0, 0.0, 0.0},
		"mostly positive":       {0.90, 0.05, 0.894736842},
		"mostly negative":       {0.10, 0.80, -0.777777778},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := NormalizedSentiment(models.SentimentScore{Positive: tc.positive, Negative: tc.negative})
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestFold_FreshEntity(t *testing.T) {
	agg := models.FreshAggregate("abc")
	comments := []models.Comment{
		enriched("2026-01-01T00:00:01.000000", 0.90, 0.05),
		enriched("2026-01-01T00:00:02.000000", 0.10, 0.80),
		enriched("2026-01-01T00:00:03.000000", 0.50, 0.50),
	}

	folded := Fold(agg, comments, DefaultPriorWeight)

	// newAvg ~= 0.0390, blended against ten neutral pseudo-comments.
	assert.Equal(t, 50, folded.OverallScore)
	assert.Equal(t, 3, folded.CommentCount)
	assert.Equal(t, "2026-01-01T00:00:03.000000", folded.LastCheckpoint)
}

func TestFold_PriorSmoothingCanLowerScore(t *testing.T) {
	agg := models.EntityAggregate{
		EntityID:       "xyz",
		OverallScore:   70,
		CommentCount:   20,
		LastCheckpoint: "2026-01-01T00:00:00.000000",
	}
	comments := []models.Comment{
		enriched("2026-01-02T00:00:00.000000", 1.0, 0.0),
	}

	folded := Fold(agg, comments, DefaultPriorWeight)

	// existingNorm = 0.4; combined = (0.4*20 + 1*1) / (20+1+10) = 9/31.
	// Smoothing toward the neutral prior pulls the score below 70 even
	// though the new comment is maximally positive.
	assert.Equal(t, 65, folded.OverallScore)
	assert.Equal(t, 21, folded.CommentCount)
	assert.Less(t, folded.OverallScore, agg.OverallScore)
	assert.Equal(t, "2026-01-02T00:00:00.000000", folded.LastCheckpoint)
}

func TestFold_NoNewComments(t *testing.T) {
	agg := models.EntityAggregate{
		EntityID:       "abc",
		OverallScore:   62,
		CommentCount:   7,
		LastCheckpoint: "2026-01-01T00:00:00.000000",
	}

	folded := Fold(agg, nil, DefaultPriorWeight)

	assert.Equal(t, agg, folded)
}

func TestFold_IgnoresUnenrichedComments(t *testing.T) {
	agg := models.FreshAggregate("abc")
	comments := []models.Comment{
		{Text: "not yet scored"},
		enriched("2026-01-01T00:00:01.000000", 1.0, 0.0),
	}

	folded := Fold(agg, comments, DefaultPriorWeight)

	assert.Equal(t, 1, folded.CommentCount)
}

func TestFold_Bounds(t *testing.T) {
	tests := map[string]struct {
		positive float64
		negative float64
	}{
		"all positive": {1.0, 0.0},
		"all negative": {0.0, 1.0},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			agg := models.FreshAggregate("abc")
			// Fold a long stream of extreme comments in several passes and
			// check the score never escapes the scale.
			for pass := 0; pass < 10; pass++ {
				var comments []models.Comment
				for i := 0; i < 50; i++ {
					comments = append(comments, enriched("2026-01-01T00:00:01.000000", tc.positive, tc.negative))
				}
				prevCount := agg.CommentCount
				agg = Fold(agg, comments, DefaultPriorWeight)
				assert.GreaterOrEqual(t, agg.OverallScore, 0)
				assert.LessOrEqual(t, agg.OverallScore, 100)
				assert.Equal(t, prevCount+50, agg.CommentCount)
			}
		})
	}
}

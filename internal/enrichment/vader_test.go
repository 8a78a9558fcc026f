package enrichment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/commentpulse/internal/models"
)

func TestVADERClassifier_Labels(t *testing.T) {
	tests := map[string]struct {
		text string
		want string
	}{
		"positive": {"I absolutely love this, it is wonderful and amazing", models.SentimentPositive},
		"negative": {"I hate this, it is terrible and awful", models.SentimentNegative},
		"neutral":  {"The video is about ten minutes long", models.SentimentNeutral},
	}

	classifier := NewVADERClassifier()
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			score, err := classifier.Score(context.Background(), tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, score.Label)
		})
	}
}

func TestVADERClassifier_MagnitudesRoughlySumToOne(t *testing.T) {
	classifier := NewVADERClassifier()

	score, err := classifier.Score(context.Background(), "great video but the audio was horrible")
	require.NoError(t, err)

	sum := score.Positive + score.Negative + score.Neutral
	assert.InDelta(t, 1.0, sum, 0.05)
	assert.LessOrEqual(t, score.Mixed, score.Positive)
	assert.LessOrEqual(t, score.Mixed, score.Negative)
}

func TestVADERClassifier_TextTooLong(t *testing.T) {
	classifier := NewVADERClassifier()

	_, err := classifier.Score(context.Background(), strings.Repeat("a", MAX_TEXT_BYTES+1))

	assert.ErrorIs(t, err, ErrTextTooLong)
}

func TestRemoveLinks(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"markdown link keeps text": {"see [this video](https://example.com/watch) now", "see this video now"},
		"bare url stripped":        {"check https://example.com please", "check  please"},
		"no links untouched":       {"nothing to strip here", "nothing to strip here"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, RemoveLinks(tc.input))
		})
	}
}

func TestFlattenMarkdown(t *testing.T) {
	got := FlattenMarkdown("**bold** and _italic_ text")

	assert.NotContains(t, got, "*")
	assert.Contains(t, got, "bold")
	assert.Contains(t, got, "italic")
}

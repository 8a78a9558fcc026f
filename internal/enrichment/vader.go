package enrichment

import (
	"context"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"github.com/spacesedan/commentpulse/internal/models"
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// RemoveLinks strips markdown links (keeping their text) and bare URLs.
func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}

// FlattenMarkdown renders markdown-ish comment text to plain words before
// scoring; URLs and formatting only confuse the lexicon.
func FlattenMarkdown(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := strings.Join(strings.Fields(string(output)), " ")
	return RemoveLinks(plainText)
}

// VADERClassifier scores comments with the VADER lexicon in-process.
type VADERClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVADERClassifier() *VADERClassifier {
	return &VADERClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score maps VADER's proportions onto the four category magnitudes and picks
// a dominant label from the compound score.
func (vc *VADERClassifier) Score(_ context.Context, text string) (models.SentimentScore, error) {
	if len(text) > MAX_TEXT_BYTES {
		return models.SentimentScore{}, ErrTextTooLong
	}

	sentiment := vc.analyzer.PolarityScores(FlattenMarkdown(text))

	score := models.SentimentScore{
		Positive: sentiment.Positive,
		Negative: sentiment.Negative,
		Neutral:  sentiment.Neutral,
		Mixed:    min(sentiment.Positive, sentiment.Negative),
	}

	switch {
	case sentiment.Positive >= 0.25 && sentiment.Negative >= 0.25:
		score.Label = models.SentimentMixed
	case sentiment.Compound >= 0.20:
		score.Label = models.SentimentPositive
	case sentiment.Compound <= -0.20:
		score.Label = models.SentimentNegative
	default:
		score.Label = models.SentimentNeutral
	}

	return score, nil
}

package classifier

import (
	"context"

	"github.com/jonreiter/govader"

	"github.com/quantpulse/jumpsent/internal/models"
)

// Vader is the lexicon-based fallback scorer. It needs no model files or
// network and is mainly useful for dry runs and English-language datasets.
type Vader struct {
	analyzer  *govader.SentimentIntensityAnalyzer
	maxLength int
}

func NewVader() *Vader {
	return &Vader{
		analyzer:  govader.NewSentimentIntensityAnalyzer(),
		maxLength: DefaultMaxLength,
	}
}

func (v *Vader) Classify(_ context.Context, text string) (models.Probabilities, error) {
	scores := v.analyzer.PolarityScores(Truncate(text, v.maxLength))
	return models.Probabilities{
		Negative: scores.Negative,
		Neutral:  scores.Neutral,
		Positive: scores.Positive,
	}, nil
}

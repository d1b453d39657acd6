package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quantpulse/jumpsent/internal/models"
)

const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1

	DefaultScoreTimeout = 30 * time.Second
)

// Classifier is the external scorer: a pretrained model that assigns a
// probability distribution over negative/neutral/positive to one text.
// Implementations truncate over-long input themselves.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.Probabilities, error)
}

// Weighting converts a probability triple into a signed scalar in [-1, 1].
type Weighting func(models.Probabilities) float64

// SignedDiff is the default weighting: P(positive) - P(negative).
func SignedDiff(p models.Probabilities) float64 {
	return p.Positive - p.Negative
}

// WeightedScale discounts the signed difference by the neutral mass, so
// texts the model finds mostly neutral land closer to zero. Suits
// star-rating models whose folded triples carry heavy neutral weight.
func WeightedScale(p models.Probabilities) float64 {
	return (p.Positive - p.Negative) * (1 - p.Neutral)
}

// Classify maps a signed score onto a label. Both boundary values are
// neutral.
func Classify(score float64) models.Label {
	switch {
	case score > positiveThreshold:
		return models.LabelPositive
	case score < negativeThreshold:
		return models.LabelNegative
	default:
		return models.LabelNeutral
	}
}

// ZeroReading is substituted whenever an item cannot be meaningfully
// scored.
func ZeroReading() models.Reading {
	return models.Reading{Score: 0, Label: models.LabelNeutral}
}

type Scorer struct {
	classifier Classifier
	weight     Weighting
	timeout    time.Duration
}

type ScorerOption func(*Scorer)

func WithWeighting(w Weighting) ScorerOption {
	return func(s *Scorer) { s.weight = w }
}

func WithTimeout(d time.Duration) ScorerOption {
	return func(s *Scorer) { s.timeout = d }
}

func NewScorer(classifier Classifier, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		classifier: classifier,
		weight:     SignedDiff,
		timeout:    DefaultScoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score runs the classifier on one text and converts the result into a
// reading. A classifier failure of any kind degrades to the zero reading;
// one bad item must never take down a batch, so nothing propagates past
// this boundary.
func (s *Scorer) Score(ctx context.Context, text string) models.Reading {
	if strings.TrimSpace(text) == "" {
		return ZeroReading()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	probs, err := s.classify(ctx, text)
	if err != nil {
		slog.Warn("[Scorer] Classification failed, scoring as neutral",
			slog.String("error", err.Error()))
		return ZeroReading()
	}
	if !probs.Valid() {
		slog.Warn("[Scorer] Classifier returned malformed probabilities, scoring as neutral",
			slog.Float64("sum", probs.Sum()))
		return ZeroReading()
	}

	score := s.weight(probs)
	return models.Reading{Score: score, Label: Classify(score)}
}

// classify calls the classifier on its own goroutine so that a hung local
// model still honors the deadline, and turns panics into errors.
func (s *Scorer) classify(ctx context.Context, text string) (models.Probabilities, error) {
	type result struct {
		probs models.Probabilities
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("classifier panic: %v", r)}
			}
		}()
		probs, err := s.classifier.Classify(ctx, text)
		ch <- result{probs: probs, err: err}
	}()

	select {
	case <-ctx.Done():
		return models.Probabilities{}, ctx.Err()
	case res := <-ch:
		return res.probs, res.err
	}
}

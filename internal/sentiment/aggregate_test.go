package sentiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/quantpulse/jumpsent/internal/models"
)

func TestAggregateBundleEmptySkipsScorer(t *testing.T) {
	stub := fixed(models.Probabilities{Neutral: 1})
	scorer := NewScorer(stub)

	stats := AggregateBundle(context.Background(), SplitBundle("", '|'), scorer)
	if stats != (models.BundleStats{}) {
		t.Errorf("expected zero stats for empty bundle, got %+v", stats)
	}
	if stub.calls.Load() != 0 {
		t.Errorf("scorer should not run for empty bundle, got %d calls", stub.calls.Load())
	}
}

func TestAggregateBundleCountInvariant(t *testing.T) {
	stub := &stubClassifier{fn: func(call int, _ string) (models.Probabilities, error) {
		switch call % 3 {
		case 0:
			return models.Probabilities{Negative: 0.7, Neutral: 0.2, Positive: 0.1}, nil
		case 1:
			return models.Probabilities{Negative: 0.1, Neutral: 0.2, Positive: 0.7}, nil
		default:
			return models.Probabilities{Negative: 0.3, Neutral: 0.4, Positive: 0.3}, nil
		}
	}}
	scorer := NewScorer(stub)

	stats := AggregateBundle(context.Background(), SplitBundle("a|b|c|d|e|f|g", '|'), scorer)
	sum := stats.PositiveCount + stats.NegativeCount + stats.NeutralCount
	if sum != stats.TotalItems {
		t.Errorf("count invariant broken: %d + %d + %d != %d",
			stats.PositiveCount, stats.NegativeCount, stats.NeutralCount, stats.TotalItems)
	}
	if stats.TotalItems != 7 {
		t.Errorf("expected 7 items, got %d", stats.TotalItems)
	}
}

func TestAggregateBundleFailureIsolation(t *testing.T) {
	stub := &stubClassifier{fn: func(call int, _ string) (models.Probabilities, error) {
		if call == 2 {
			return models.Probabilities{}, errors.New("inference crashed")
		}
		return models.Probabilities{Negative: 0.1, Neutral: 0.1, Positive: 0.8}, nil
	}}
	scorer := NewScorer(stub)

	stats := AggregateBundle(context.Background(), SplitBundle("one|two|three", '|'), scorer)
	if stats.TotalItems != 3 {
		t.Errorf("expected all 3 items counted despite failure, got %d", stats.TotalItems)
	}
	if stats.NeutralCount < 1 {
		t.Errorf("failed item should count as neutral, got %d neutral", stats.NeutralCount)
	}
	if stats.PositiveCount != 2 {
		t.Errorf("expected 2 positive items, got %d", stats.PositiveCount)
	}
}

func TestAggregateBundleJapaneseHeadlines(t *testing.T) {
	stub := &stubClassifier{fn: func(call int, _ string) (models.Probabilities, error) {
		switch call {
		case 1:
			return models.Probabilities{Negative: 0.1, Neutral: 0.1, Positive: 0.8}, nil
		case 2:
			return models.Probabilities{Negative: 0.8, Neutral: 0.1, Positive: 0.1}, nil
		default:
			return models.Probabilities{Negative: 0.34, Neutral: 0.33, Positive: 0.33}, nil
		}
	}}
	scorer := NewScorer(stub)

	stats := AggregateBundle(context.Background(),
		SplitBundle("素晴らしい成果|最悪の結果|普通の日", '|'), scorer)

	wantAvg := ((0.8 - 0.1) + (0.1 - 0.8) + (0.33 - 0.34)) / 3
	if math.Abs(stats.AvgScore-wantAvg) > 1e-9 {
		t.Errorf("expected average %.5f, got %.5f", wantAvg, stats.AvgScore)
	}
	if stats.PositiveCount != 1 || stats.NegativeCount != 1 || stats.NeutralCount != 1 {
		t.Errorf("expected counts 1/1/1, got %d/%d/%d",
			stats.PositiveCount, stats.NegativeCount, stats.NeutralCount)
	}
	if stats.TotalItems != 3 {
		t.Errorf("expected 3 items, got %d", stats.TotalItems)
	}
}

func TestAggregateBundleDeterministic(t *testing.T) {
	newScorer := func() *Scorer {
		return NewScorer(fixed(models.Probabilities{Negative: 0.2, Neutral: 0.3, Positive: 0.5}))
	}

	first := AggregateBundle(context.Background(), SplitBundle("a|b|c", '|'), newScorer())
	second := AggregateBundle(context.Background(), SplitBundle("a|b|c", '|'), newScorer())
	if first != second {
		t.Errorf("aggregation not deterministic: %+v vs %+v", first, second)
	}
}

package classifier

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/knights-analytics/hugot/pipelines"

	"github.com/quantpulse/jumpsent/internal/models"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("expected text unchanged, got %q", got)
	}
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Errorf("expected %q, got %q", "abc", got)
	}

	// rune boundaries, not byte boundaries
	if got := Truncate("日経平均株価", 3); got != "日経平" {
		t.Errorf("expected %q, got %q", "日経平", got)
	}

	long := strings.Repeat("x", DefaultMaxLength+100)
	if got := Truncate(long, 0); len(got) != DefaultMaxLength {
		t.Errorf("expected default cap %d, got %d", DefaultMaxLength, len(got))
	}
}

type countingClassifier struct {
	mu     sync.Mutex
	active int
	peak   int
}

func (c *countingClassifier) Classify(context.Context, string) (models.Probabilities, error) {
	c.mu.Lock()
	c.active++
	if c.active > c.peak {
		c.peak = c.active
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()
	return models.Probabilities{Neutral: 1}, nil
}

func TestSerializeLimitsConcurrency(t *testing.T) {
	inner := &countingClassifier{}
	serialized := Serialize(inner)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := serialized.Classify(context.Background(), "text"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if inner.peak != 1 {
		t.Errorf("expected at most one concurrent call, observed %d", inner.peak)
	}
}

func TestVaderTriple(t *testing.T) {
	v := NewVader()

	p, err := v.Classify(context.Background(), "This is an absolutely wonderful, great result")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Valid() {
		t.Errorf("probabilities should sum to ~1, got %v", p.Sum())
	}
	if p.Positive <= p.Negative {
		t.Errorf("expected positive-leaning triple, got %+v", p)
	}

	p, err = v.Classify(context.Background(), "This is a horrible, terrible disaster")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Negative <= p.Positive {
		t.Errorf("expected negative-leaning triple, got %+v", p)
	}
}

func TestFoldLabelScoresTriple(t *testing.T) {
	p, err := foldLabelScores([]pipelines.ClassificationOutput{
		{Label: "NEGATIVE", Score: 0.1},
		{Label: "NEUTRAL", Score: 0.2},
		{Label: "POSITIVE", Score: 0.7},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p.Positive-0.7) > 1e-6 || math.Abs(p.Negative-0.1) > 1e-6 {
		t.Errorf("unexpected fold: %+v", p)
	}
}

func TestFoldLabelScoresStarCollapse(t *testing.T) {
	p, err := foldLabelScores([]pipelines.ClassificationOutput{
		{Label: "1 star", Score: 0.1},
		{Label: "2 stars", Score: 0.2},
		{Label: "3 stars", Score: 0.3},
		{Label: "4 stars", Score: 0.25},
		{Label: "5 stars", Score: 0.15},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p.Negative-0.3) > 1e-6 {
		t.Errorf("expected negative 0.3, got %v", p.Negative)
	}
	if math.Abs(p.Neutral-0.3) > 1e-6 {
		t.Errorf("expected neutral 0.3, got %v", p.Neutral)
	}
	if math.Abs(p.Positive-0.4) > 1e-6 {
		t.Errorf("expected positive 0.4, got %v", p.Positive)
	}
}

func TestFoldLabelScoresRenormalizes(t *testing.T) {
	// single-label output still yields a valid triple
	p, err := foldLabelScores([]pipelines.ClassificationOutput{
		{Label: "positive", Score: 0.98},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Valid() {
		t.Errorf("expected renormalized triple, got sum %v", p.Sum())
	}
	if p.Positive != 1 {
		t.Errorf("expected positive 1 after renormalization, got %v", p.Positive)
	}
}

func TestFoldLabelScoresUnexpectedLabel(t *testing.T) {
	if _, err := foldLabelScores([]pipelines.ClassificationOutput{
		{Label: "surprise", Score: 1},
	}); err == nil {
		t.Error("expected error for unexpected label")
	}
}

func TestFoldLabelScoresZeroSum(t *testing.T) {
	if _, err := foldLabelScores([]pipelines.ClassificationOutput{
		{Label: "positive", Score: 0},
	}); err == nil {
		t.Error("expected error for zero score sum")
	}
}

package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/quantpulse/jumpsent/internal/models"
)

type mapCache struct {
	entries map[string][]byte
	getErr  error
	setErr  error
	gets    int
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return nil, errors.New("key not found")
	}
	return raw, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = value
	return nil
}

type countedClassifier struct {
	calls int
	probs models.Probabilities
	err   error
}

func (c *countedClassifier) Classify(context.Context, string) (models.Probabilities, error) {
	c.calls++
	return c.probs, c.err
}

func TestCachedMissFallsThroughAndStores(t *testing.T) {
	cache := newMapCache()
	next := &countedClassifier{probs: models.Probabilities{Negative: 0.1, Neutral: 0.2, Positive: 0.7}}
	cached := &Cached{cache: cache, next: next}

	probs, err := cached.Classify(context.Background(), "日経平均が上昇")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.calls != 1 {
		t.Errorf("expected fall-through on miss, got %d classifier calls", next.calls)
	}
	if probs != next.probs {
		t.Errorf("unexpected probabilities: %+v", probs)
	}
	if cache.sets != 1 {
		t.Errorf("expected the score to be stored, got %d sets", cache.sets)
	}

	// second lookup is served from the cache
	if _, err := cached.Classify(context.Background(), "日経平均が上昇"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.calls != 1 {
		t.Errorf("expected cache hit, got %d classifier calls", next.calls)
	}
}

func TestCachedInvalidEntryFallsThrough(t *testing.T) {
	cache := newMapCache()
	cache.entries[cacheKey("text")] = []byte("not json")

	next := &countedClassifier{probs: models.Probabilities{Neutral: 1}}
	cached := &Cached{cache: cache, next: next}

	probs, err := cached.Classify(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.calls != 1 {
		t.Errorf("invalid cached entry should fall through, got %d calls", next.calls)
	}
	if probs != next.probs {
		t.Errorf("unexpected probabilities: %+v", probs)
	}
}

func TestCachedMalformedTripleFallsThrough(t *testing.T) {
	cache := newMapCache()
	// parses, but the triple does not sum to 1
	cache.entries[cacheKey("text")] = []byte(`{"negative":0.9,"neutral":0.9,"positive":0.9}`)

	next := &countedClassifier{probs: models.Probabilities{Neutral: 1}}
	cached := &Cached{cache: cache, next: next}

	if _, err := cached.Classify(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.calls != 1 {
		t.Errorf("malformed cached triple should fall through, got %d calls", next.calls)
	}
}

func TestCachedCacheErrorsDegrade(t *testing.T) {
	cache := newMapCache()
	cache.getErr = errors.New("connection refused")
	cache.setErr = errors.New("connection refused")

	next := &countedClassifier{probs: models.Probabilities{Negative: 0.6, Neutral: 0.2, Positive: 0.2}}
	cached := &Cached{cache: cache, next: next}

	probs, err := cached.Classify(context.Background(), "text")
	if err != nil {
		t.Fatalf("cache failure must not fail classification: %v", err)
	}
	if probs != next.probs {
		t.Errorf("unexpected probabilities: %+v", probs)
	}
	if next.calls != 1 {
		t.Errorf("expected direct classification, got %d calls", next.calls)
	}
}

func TestCachedClassifierErrorPropagates(t *testing.T) {
	cache := newMapCache()
	next := &countedClassifier{err: errors.New("model unavailable")}
	cached := &Cached{cache: cache, next: next}

	if _, err := cached.Classify(context.Background(), "text"); err == nil {
		t.Error("expected classifier error to propagate")
	}
	if cache.sets != 0 {
		t.Errorf("failed classification must not be cached, got %d sets", cache.sets)
	}
}

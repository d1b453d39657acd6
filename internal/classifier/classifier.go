// Package classifier provides the pluggable external scorer
// implementations: a local ONNX model, a remote analyzer service, a
// lexicon fallback, and an LLM, plus the cache and serialization
// decorators that wrap them.
package classifier

import (
	"context"
	"sync"

	"github.com/quantpulse/jumpsent/internal/models"
)

// DefaultMaxLength caps classifier input, in runes. Texts longer than the
// model's window are truncated rather than rejected.
const DefaultMaxLength = 512

type Classifier interface {
	Classify(ctx context.Context, text string) (models.Probabilities, error)
}

// Truncate caps text at max runes, falling back to DefaultMaxLength when
// max is not positive.
func Truncate(text string, max int) string {
	if max <= 0 {
		max = DefaultMaxLength
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

// Serialized guards a classifier that is not safe for concurrent callers.
// Whether to apply it is decided once at initialization, not adaptively.
type Serialized struct {
	mu   sync.Mutex
	next Classifier
}

func Serialize(next Classifier) *Serialized {
	return &Serialized{next: next}
}

func (s *Serialized) Classify(ctx context.Context, text string) (models.Probabilities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Classify(ctx, text)
}

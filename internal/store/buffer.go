package store

import "sync"

const DefaultChunkSize = 100

// ChunkBuffer accumulates results and hands them out in bounded chunks,
// so sinks with message or request size limits never see an unbounded
// batch. Safe for concurrent producers.
type ChunkBuffer[T any] struct {
	mu     sync.Mutex
	buffer []T
	chunk  int
}

func NewChunkBuffer[T any](chunkSize int) *ChunkBuffer[T] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkBuffer[T]{
		buffer: make([]T, 0, chunkSize),
		chunk:  chunkSize,
	}
}

func (b *ChunkBuffer[T]) Add(items ...T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = append(b.buffer, items...)
}

func (b *ChunkBuffer[T]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

// NextChunk removes and returns up to one chunk of buffered items, nil
// when the buffer is empty.
func (b *ChunkBuffer[T]) NextChunk() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buffer) == 0 {
		return nil
	}

	n := min(b.chunk, len(b.buffer))
	chunk := b.buffer[:n:n]
	b.buffer = b.buffer[n:]
	return chunk
}

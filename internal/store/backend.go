package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNoDocument is returned by Backend.Load when no document has ever been
// written. The migrator treats it the same as malformed content: seed fresh.
var ErrNoDocument = errors.New("store: no document")

// Backend is the raw persistence contract: one opaque document blob. The
// Store is the only component that serializes or deserializes it.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// MemoryBackend keeps the document in process memory. It backs tests and
// ad-hoc tooling; production deployments use the file or Postgres backend.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load returns the stored blob or ErrNoDocument.
func (b *MemoryBackend) Load(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, ErrNoDocument
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

// Save replaces the stored blob.
func (b *MemoryBackend) Save(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make([]byte, len(data))
	copy(b.data, data)
	return nil
}

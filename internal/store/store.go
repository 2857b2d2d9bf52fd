package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Store is the single source of truth for the persisted document. It is an
// explicit, constructed object: no package-level state. Every operation runs
// as one critical section over a full read-modify-write cycle, so no caller
// can ever observe a partially-updated document.
//
// The design assumes a single active writer per document. Two independent
// processes sharing one backend fall back to last-write-wins at document
// granularity.
type Store struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time
}

// Option configures Store behavior.
type Option func(*Store)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New constructs a Store over the given backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time (UTC).
func (s *Store) Now() time.Time { return s.now().UTC() }

func (s *Store) load(ctx context.Context) (*Document, error) {
	raw, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) save(ctx context.Context, doc *Document) error {
	doc.Meta.UpdatedAt = s.Now()
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, raw)
}

// View runs fn over a freshly loaded document without persisting changes.
// fn must treat the document as read-only and copy anything it returns.
func (s *Store) View(ctx context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

// Update runs fn over a freshly loaded document and persists the result.
// If fn returns an error nothing is written, so failed operations never
// partially apply.
func (s *Store) Update(ctx context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

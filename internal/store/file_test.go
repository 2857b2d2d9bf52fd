package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestFileBackendMissingFile(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "doc.json"))

	_, err := b.Load(context.Background())
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("err = %v, want ErrNoDocument", err)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	b := NewFileBackend(path)
	ctx := context.Background()

	if err := b.Save(ctx, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("Load = %q", got)
	}

	// Overwrites replace, not append.
	if err := b.Save(ctx, []byte(`{"b":2}`)); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err = b.Load(ctx)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if string(got) != `{"b":2}` {
		t.Fatalf("Load = %q", got)
	}
}

func TestFileBackendFullStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	ctx := context.Background()

	s := New(NewFileBackend(path))
	if _, err := s.LoadOrInit(ctx); err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	if _, err := s.CreateUser(ctx, CreateUserParams{Username: "ref_disk", Password: "rrsa"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// A second store over the same file sees the persisted state.
	s2 := New(NewFileBackend(path))
	res, err := s2.LoadOrInit(ctx)
	if err != nil {
		t.Fatalf("reopen LoadOrInit: %v", err)
	}
	if res.Seeded {
		t.Fatal("reopening an existing document must not reseed")
	}
	if _, err := s2.GetUserByUsername(ctx, "ref_disk"); err != nil {
		t.Fatalf("persisted user missing: %v", err)
	}
}

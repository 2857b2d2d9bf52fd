package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend persists the document as a single JSON file. Writes go through
// a temp file and rename so a crash never leaves a half-written document.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend storing the document at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load reads the document file, mapping a missing file to ErrNoDocument.
func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save writes the document atomically.
func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, ".rrsa-doc-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, b.path)
}

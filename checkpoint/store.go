package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Load when no checkpoint exists yet.
var ErrNotFound = errors.New("checkpoint: not found")

// Store abstracts durable checkpoint storage.
// Implementations must make Save atomic: a reader never observes a
// partially-written checkpoint.
type Store interface {
	// Save durably writes the checkpoint document, replacing any
	// previous one.
	Save(ctx context.Context, data []byte) error

	// Load reads the latest checkpoint document.
	// Returns ErrNotFound when none exists.
	Load(ctx context.Context) ([]byte, error)

	// Close releases store resources.
	Close() error
}

// FSStore persists checkpoints to a single local file.
// Saves write to a temporary sibling and rename over the target, so an
// interrupted save leaves the previous checkpoint intact.
type FSStore struct {
	path string
}

// NewFSStore creates a filesystem store writing to the given path.
// Parent directories are created on first save.
func NewFSStore(path string) (*FSStore, error) {
	if path == "" {
		return nil, errors.New("checkpoint: fs store requires a path")
	}
	return &FSStore{path: path}, nil
}

// Path returns the checkpoint file path.
func (s *FSStore) Path() string {
	return s.path
}

// Save implements Store.
func (s *FSStore) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("checkpoint: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("checkpoint: rename into place: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *FSStore) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("checkpoint: read %s: %w", s.path, err)
	}
	return data, nil
}

// Close implements Store. No resources to release for filesystem storage.
func (s *FSStore) Close() error {
	return nil
}

// StubStore is an in-memory Store for testing.
type StubStore struct {
	mu   sync.Mutex
	data []byte

	// ErrorOnSave, when set, is returned by every Save call.
	ErrorOnSave error
	// Saves counts successful Save calls.
	Saves int
}

// NewStubStore creates an empty in-memory store.
func NewStubStore() *StubStore {
	return &StubStore{}
}

// Save implements Store.
func (s *StubStore) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrorOnSave != nil {
		return s.ErrorOnSave
	}
	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.Saves++
	return nil
}

// Load implements Store.
func (s *StubStore) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNotFound
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// Close implements Store.
func (s *StubStore) Close() error {
	return nil
}

// Package imagestore persists the most recent camera upload at a fixed path.
//
// The assistant only ever reasons about the latest image: each upload
// replaces the previous one, and the vision flow reads whatever is current.
// A single well-known file keeps the recovery story trivial: restart the
// process and the last image is still there.
package imagestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoImage is returned by Read when no image has been stored yet.
var ErrNoImage = errors.New("imagestore: no image stored")

// Store holds one JPEG image at a fixed filesystem path.
// Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a Store writing to the given path. The parent directory is
// created if missing.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("imagestore: path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: create directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the fixed path images are stored at.
func (s *Store) Path() string {
	return s.path
}

// Save replaces the stored image with the contents of r. Any previous image
// is removed first, so a failed write never leaves a stale image behind.
func (s *Store) Save(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("imagestore: remove previous image: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("imagestore: create: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(s.path)
		return fmt.Errorf("imagestore: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("imagestore: close: %w", err)
	}
	return nil
}

// Read returns the stored image bytes, or ErrNoImage if none exists.
func (s *Store) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoImage
	}
	if err != nil {
		return nil, fmt.Errorf("imagestore: read: %w", err)
	}
	return data, nil
}

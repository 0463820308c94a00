package cart

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage is a single-slot key-value store for serialized cart snapshots.
// It abstracts the underlying medium, allowing for different implementations (e.g., file, in-memory).
type Storage interface {
	// Load returns the raw snapshot stored under key.
	// Returns os.ErrNotExist (wrapped) if no snapshot exists.
	Load(key string) ([]byte, error)

	// Save writes the raw snapshot under key, replacing any previous value.
	Save(key string, data []byte) error
}

// FileStorage persists each key as one JSON file inside a directory.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a FileStorage rooted at dir, creating it if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
	}
	return data, nil
}

// Save writes atomically via a temp file and rename, so a crash mid-write
// never leaves a half-written snapshot in the slot.
func (s *FileStorage) Save(key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for slot %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close slot %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace slot %s: %w", key, err)
	}
	return nil
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

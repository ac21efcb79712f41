package blobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalScheme prefixes references produced by FileStorage.
const LocalScheme = "local:"

// FileStorage keeps objects on the local filesystem.
// Thread-safe for concurrent operations.
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates the storage root if needed.
func NewFileStorage(basePath string) (*FileStorage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FileStorage{basePath: basePath}, nil
}

// Store writes data under a fresh key and returns a "local:" reference.
func (s *FileStorage) Store(ctx context.Context, data []byte, contentType, hint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("blob data cannot be empty")
	}

	key := ObjectKey(hint, contentType)
	p := s.Path(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob file: %w", err)
	}
	return LocalScheme + key, nil
}

// Release removes the file behind ref.
func (s *FileStorage) Release(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := s.keyFromRef(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete blob file: %w", err)
	}
	return nil
}

// Exists reports whether the object behind ref is present.
func (s *FileStorage) Exists(ref string) bool {
	key, err := s.keyFromRef(ref)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err = os.Stat(s.Path(key))
	return err == nil
}

// Root returns the directory files are served from.
func (s *FileStorage) Root() string {
	return s.basePath
}

// Path returns the full filesystem path for a key.
func (s *FileStorage) Path(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

func (s *FileStorage) keyFromRef(ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, LocalScheme)
	if !ok || !validKey(key) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRef, ref)
	}
	return key, nil
}

// Package blob is an opaque byte store keyed by slash separated paths.
package blob

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/zombor/expense-reports/internal/apperr"
)

// Storage defines the interface for blob storage operations
type Storage interface {
	// Save stores data at key and returns the stable key to retrieve it by
	Save(key string, data []byte) (string, error)

	// Get retrieves the blob stored at key
	Get(key string) ([]byte, error)

	// Delete removes the blob stored at key
	Delete(key string) error
}

// LocalStorage implements Storage on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage rooted at basePath
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save writes data to key, creating intermediate directories
func (l *LocalStorage) Save(key string, data []byte) (string, error) {
	full, clean, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return clean, nil
}

// Get reads the blob at key. A missing blob is apperr.ErrNotFound.
func (l *LocalStorage) Get(key string) ([]byte, error) {
	full, _, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFoundf("blob %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes the blob at key
func (l *LocalStorage) Delete(key string) error {
	full, _, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// resolve maps key onto the filesystem and rejects keys escaping basePath.
func (l *LocalStorage) resolve(key string) (string, string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", "", apperr.Validationf("invalid blob key %q", key)
	}
	return filepath.Join(l.basePath, filepath.FromSlash(clean)), clean, nil
}

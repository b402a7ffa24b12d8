package bill

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage keeps receipt blobs under opaque keys
type Storage interface {
	// Save writes data under key and returns the key to read it back
	Save(key string, data []byte) (string, error)
	// Get reads a receipt. Missing keys match ErrNotFound.
	Get(key string) ([]byte, error)
	// Delete removes a receipt. Deleting a missing key is not an error.
	Delete(key string) error
}

// LocalStorage keeps receipts as files below one directory
type LocalStorage struct {
	root string
}

// NewLocalStorage creates root if needed
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

// pathFor maps a key to a file below root; ".." segments cannot climb out
func (l *LocalStorage) pathFor(key string) (string, error) {
	rel := filepath.Clean(string(filepath.Separator) + key)
	if rel == string(filepath.Separator) {
		return "", fmt.Errorf("invalid receipt key %q", key)
	}
	return filepath.Join(l.root, rel), nil
}

// Save writes through a temp file so a reader never sees half a receipt
func (l *LocalStorage) Save(key string, data []byte) (string, error) {
	dst, err := l.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("creating receipt directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("writing receipt: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing receipt: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("writing receipt: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("writing receipt: %w", err)
	}
	return key, nil
}

// Get reads a receipt back
func (l *LocalStorage) Get(key string) ([]byte, error) {
	src, err := l.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: receipt %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading receipt: %w", err)
	}
	return data, nil
}

// Delete removes a receipt
func (l *LocalStorage) Delete(key string) error {
	target, err := l.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	return nil
}

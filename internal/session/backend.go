package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrUnavailable is returned by writes when no storage could be resolved.
var ErrUnavailable = errors.New("session: storage unavailable")

// ErrNotFound is returned by Get for an absent key.
var ErrNotFound = errors.New("session: key not found")

// Backend is a small string key-value store.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// DefaultDir returns ~/.handyhub.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".handyhub"), nil
}

// FileBackend stores each key as its own file under Dir.
type FileBackend struct {
	Dir string
}

// NewFileBackend returns a backend rooted at dir. An empty dir yields the
// unavailable backend.
func NewFileBackend(dir string) Backend {
	if dir == "" {
		return Unavailable{}
	}
	return &FileBackend{Dir: dir}
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.Dir, key)
}

// Get reads the value for key.
func (b *FileBackend) Get(key string) (string, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session.FileBackend.Get: %w", err)
	}
	return string(data), nil
}

// Set writes value atomically with owner-only permissions.
func (b *FileBackend) Set(key, value string) error {
	if err := os.MkdirAll(b.Dir, 0700); err != nil {
		return fmt.Errorf("session.FileBackend.Set: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(b.Dir, "."+key+".*")
	if err != nil {
		return fmt.Errorf("session.FileBackend.Set: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) } //nolint:errcheck

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close() //nolint:errcheck
		cleanup()
		return fmt.Errorf("session.FileBackend.Set: chmod: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close() //nolint:errcheck
		cleanup()
		return fmt.Errorf("session.FileBackend.Set: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("session.FileBackend.Set: close: %w", err)
	}
	if err := os.Rename(tmpName, b.path(key)); err != nil {
		cleanup()
		return fmt.Errorf("session.FileBackend.Set: rename: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (b *FileBackend) Delete(key string) error {
	if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session.FileBackend.Delete: %w", err)
	}
	return nil
}

// MemoryBackend is an in-process Backend. Fail, when set, is returned by Set
// for the named key.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
	Fail   map[string]error
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get returns the value for key, or ErrNotFound.
func (m *MemoryBackend) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key unless Fail names the key.
func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail[key]; err != nil {
		return err
	}
	m.values[key] = value
	return nil
}

// Delete removes key. A missing key is not an error.
func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Unavailable is the backend used when no storage exists. Reads find nothing
// and writes fail.
type Unavailable struct{}

// Get always reports ErrNotFound.
func (Unavailable) Get(string) (string, error) { return "", ErrNotFound }

// Set always fails with ErrUnavailable.
func (Unavailable) Set(string, string) error { return ErrUnavailable }

// Delete is a no-op.
func (Unavailable) Delete(string) error { return nil }

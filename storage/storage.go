// ABOUTME: Durable client storage for session-stable values like the local lead ID
// ABOUTME: JSON file under an XDG data path, with an in-memory fallback when the disk is unavailable
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Store is the minimal durable key/value surface the engine needs. Only
// the local lead ID is persisted; form data lives in memory for the
// session.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// FileStore persists keys to a single JSON file.
type FileStore struct {
	path string
}

// DefaultPath returns the XDG-compliant location for session storage.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "leadsync", "session.json")
}

// NewFileStore creates a file-backed store at path, creating parent
// directories as needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Get returns the stored value for key, or "" when absent.
func (s *FileStore) Get(key string) (string, error) {
	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Set writes key=value, preserving other keys.
func (s *FileStore) Set(key, value string) error {
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session storage: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session storage: %w", err)
	}
	return nil
}

func (s *FileStore) load() (map[string]string, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to read session storage: %w", err)
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode session storage: %w", err)
	}
	return values, nil
}

// MemStore is the in-memory fallback used when durable storage is
// unavailable. Values last for the process lifetime only.
type MemStore struct {
	values map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

// Get returns the stored value for key, or "" when absent.
func (s *MemStore) Get(key string) (string, error) {
	return s.values[key], nil
}

// Set writes key=value.
func (s *MemStore) Set(key, value string) error {
	s.values[key] = value
	return nil
}

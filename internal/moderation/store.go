package moderation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFile is the document name used inside the state directory.
const DefaultFile = "admin_data.json"

// Store reads and overwrites the whole moderation document.
type Store interface {
	// Load returns the stored document and whether one existed.
	Load() (State, bool, error)
	// Save overwrites the stored document.
	Save(State) error
}

// FileStore keeps the document as indented JSON on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the document. A missing file is not an error.
func (f *FileStore) Load() (State, bool, error) {
	data, err := os.ReadFile(f.path) // #nosec G304 - path comes from configuration
	if errors.Is(err, os.ErrNotExist) {
		return DefaultState(), false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("failed to read moderation document: %w", err)
	}

	// Absent keys keep their defaults.
	state := DefaultState()
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("failed to parse moderation document: %w", err)
	}
	state.normalize()
	return state, true, nil
}

// Save writes the document through a temp file and rename.
func (f *FileStore) Save(state State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal moderation document: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write moderation document: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace moderation document: %w", err)
	}
	return nil
}

// MemoryStore keeps the document in memory. FailWith makes every Save fail
// until cleared.
type MemoryStore struct {
	failWith error
	state    State
	saves    int
	mu       sync.Mutex
	stored   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the last saved document.
func (m *MemoryStore) Load() (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stored {
		return DefaultState(), false, nil
	}
	return m.state.clone(), true, nil
}

// Save stores a copy of state unless a failure is injected.
func (m *MemoryStore) Save(state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.state = state.clone()
	m.stored = true
	m.saves++
	return nil
}

// FailWith injects err into subsequent saves. Nil clears it.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Saves returns how many saves succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

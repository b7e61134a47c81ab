package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionPersistence handles saving and loading session data.
type SessionPersistence interface {
	SaveSessions(sessions map[string]*PersistedSession) error
	LoadSessions() (map[string]*PersistedSession, error)
}

// PersistedSession is the durable form of one identity's state.
type PersistedSession struct {
	LastActivity time.Time       `json:"last_activity"`
	Buffers      map[Mode][]Turn `json:"buffers"`
	Identity     string          `json:"identity"`
	Preferences  []string        `json:"preferences,omitempty"`
}

// DefaultSessionsFile is the file name used by FilePersistence.
const DefaultSessionsFile = "sessions.json"

// FilePersistence implements SessionPersistence using a JSON document.
type FilePersistence struct {
	directory string
	filename  string
}

// NewFilePersistence creates a new file-based persistence handler writing
// sessions.json in directory.
func NewFilePersistence(directory string) *FilePersistence {
	return &FilePersistence{
		directory: directory,
		filename:  DefaultSessionsFile,
	}
}

// Path returns the document location.
func (f *FilePersistence) Path() string {
	return filepath.Join(f.directory, f.filename)
}

// SaveSessions writes all sessions atomically.
func (f *FilePersistence) SaveSessions(sessions map[string]*PersistedSession) error {
	if err := os.MkdirAll(f.directory, 0o750); err != nil {
		return fmt.Errorf("failed to create persistence directory: %w", err)
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	return writeFileAtomic(f.Path(), data)
}

// LoadSessions reads the document; a missing file yields an empty map.
func (f *FilePersistence) LoadSessions() (map[string]*PersistedSession, error) {
	data, err := os.ReadFile(f.Path()) // #nosec G304 - path built from configured directory
	if os.IsNotExist(err) {
		return make(map[string]*PersistedSession), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions file: %w", err)
	}

	sessions := make(map[string]*PersistedSession)
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sessions: %w", err)
	}
	return sessions, nil
}

// writeFileAtomic writes through a temp file and renames it into place.
func writeFileAtomic(filename string, data []byte) error {
	tempFile := filename + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write sessions file: %w", err)
	}
	if err := os.Rename(tempFile, filename); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to save sessions: %w", err)
	}
	return nil
}

// NoopPersistence keeps sessions in memory only.
type NoopPersistence struct{}

// NewNoopPersistence creates a new no-op persistence handler.
func NewNoopPersistence() *NoopPersistence {
	return &NoopPersistence{}
}

// SaveSessions does nothing.
func (n *NoopPersistence) SaveSessions(_ map[string]*PersistedSession) error {
	return nil
}

// LoadSessions returns an empty map.
func (n *NoopPersistence) LoadSessions() (map[string]*PersistedSession, error) {
	return make(map[string]*PersistedSession), nil
}

// ManagerWithPersistence extends Manager with checkpointing.
type ManagerWithPersistence struct {
	*Manager

	persistence SessionPersistence
}

// NewManagerWithPersistence creates a store backed by persistence. A nil
// persistence keeps everything in memory.
func NewManagerWithPersistence(persistence SessionPersistence) *ManagerWithPersistence {
	if persistence == nil {
		persistence = NewNoopPersistence()
	}

	return &ManagerWithPersistence{
		Manager:     NewManager(),
		persistence: persistence,
	}
}

// SaveSessions checkpoints the current store.
func (m *ManagerWithPersistence) SaveSessions() error {
	if err := m.persistence.SaveSessions(m.Snapshot()); err != nil {
		return fmt.Errorf("failed to save sessions: %w", err)
	}
	return nil
}

// RestoreSessions replaces the store contents with the last checkpoint.
func (m *ManagerWithPersistence) RestoreSessions() error {
	persisted, err := m.persistence.LoadSessions()
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	m.Restore(persisted)
	return nil
}

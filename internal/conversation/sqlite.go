package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	identity      TEXT PRIMARY KEY,
	last_activity INTEGER NOT NULL,
	buffers       TEXT NOT NULL,
	preferences   TEXT NOT NULL
);`

// SQLitePersistence implements SessionPersistence on a SQLite database.
// Each checkpoint rewrites the table inside one transaction.
type SQLitePersistence struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLitePersistence opens (or creates) the database at path.
func NewSQLitePersistence(path string) (*SQLitePersistence, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create persistence directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sessions database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sessions schema: %w", err)
	}

	return &SQLitePersistence{db: db, timeout: 30 * time.Second}, nil
}

// SaveSessions replaces every stored row with sessions.
func (s *SQLitePersistence) SaveSessions(sessions map[string]*PersistedSession) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkpoint: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sessions (identity, last_activity, buffers, preferences) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for id, p := range sessions {
		if p == nil {
			continue
		}
		buffers, marshalErr := json.Marshal(p.Buffers)
		if marshalErr != nil {
			err = fmt.Errorf("failed to marshal buffers for %s: %w", id, marshalErr)
			return err
		}
		prefs, marshalErr := json.Marshal(p.Preferences)
		if marshalErr != nil {
			err = fmt.Errorf("failed to marshal preferences for %s: %w", id, marshalErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, id, p.LastActivity.UnixMilli(), string(buffers), string(prefs)); err != nil {
			return fmt.Errorf("failed to insert session %s: %w", id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// LoadSessions reads every stored row.
func (s *SQLitePersistence) LoadSessions() (map[string]*PersistedSession, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT identity, last_activity, buffers, preferences FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make(map[string]*PersistedSession)
	for rows.Next() {
		var (
			id          string
			lastMillis  int64
			buffersJSON string
			prefsJSON   string
		)
		if err := rows.Scan(&id, &lastMillis, &buffersJSON, &prefsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		p := &PersistedSession{
			Identity:     id,
			LastActivity: time.UnixMilli(lastMillis),
		}
		if err := json.Unmarshal([]byte(buffersJSON), &p.Buffers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal buffers for %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(prefsJSON), &p.Preferences); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences for %s: %w", id, err)
		}
		sessions[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return sessions, nil
}

// Close releases the database handle.
func (s *SQLitePersistence) Close() error {
	return s.db.Close()
}

package conversation

import (
	"sort"
	"sync"
	"time"
)

// Buffer caps per mode.
const (
	DirectCap    = 30
	GroupCap     = 50
	SensitiveCap = 30

	// PreferenceCap bounds the per-identity preference log.
	PreferenceCap = 10
)

// Role tags who produced a turn.
type Role string

const (
	// RoleUser is a turn written by the person chatting.
	RoleUser Role = "user"
	// RoleModel is a turn produced by the generation provider.
	RoleModel Role = "model"
)

// Mode selects the conversation bucket.
type Mode string

const (
	// ModeDirect is a private conversation.
	ModeDirect Mode = "direct"
	// ModeGroup is a shared group conversation.
	ModeGroup Mode = "group"
	// ModeSensitive is the consent-gated private conversation.
	ModeSensitive Mode = "sensitive"
)

// Modes lists every mode in a stable order.
func Modes() []Mode {
	return []Mode{ModeDirect, ModeGroup, ModeSensitive}
}

// Cap returns the buffer cap for the mode.
func (m Mode) Cap() int {
	switch m {
	case ModeGroup:
		return GroupCap
	case ModeSensitive:
		return SensitiveCap
	default:
		return DirectCap
	}
}

// Turn is one entry in a transcript.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// session is everything stored for one identity.
type session struct {
	lastActivity time.Time
	buffers      map[Mode][]Turn
	preferences  []string
}

func newSession() *session {
	return &session{buffers: make(map[Mode][]Turn)}
}

func (s *session) empty() bool {
	return len(s.buffers) == 0 && len(s.preferences) == 0
}

// groupOnly reports whether the session is a group chat's shared buffer.
func (s *session) groupOnly() bool {
	if len(s.buffers[ModeGroup]) == 0 || len(s.preferences) > 0 {
		return false
	}
	for mode, buf := range s.buffers {
		if mode != ModeGroup && len(buf) > 0 {
			return false
		}
	}
	return true
}

// Manager implements SessionStore with in-memory maps behind one lock.
type Manager struct {
	sessions map[string]*session
	now      func() time.Time
	mu       sync.RWMutex
}

// NewManager creates an empty session store.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// sessionLocked returns the identity's session, creating it. Callers hold mu.
func (m *Manager) sessionLocked(identity string) *session {
	sess, ok := m.sessions[identity]
	if !ok {
		sess = newSession()
		m.sessions[identity] = sess
	}
	sess.lastActivity = m.now()
	return sess
}

// Append pushes a turn, truncating from the front to the mode's cap.
func (m *Manager) Append(identity string, mode Mode, role Role, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.sessionLocked(identity)
	sess.buffers[mode] = truncate(append(sess.buffers[mode], Turn{Role: role, Text: text}), mode.Cap())
}

// AppendExchange pushes a user turn and a model turn without interleaving.
func (m *Manager) AppendExchange(identity string, mode Mode, user, model string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.sessionLocked(identity)
	buf := append(sess.buffers[mode],
		Turn{Role: RoleUser, Text: user},
		Turn{Role: RoleModel, Text: model},
	)
	sess.buffers[mode] = truncate(buf, mode.Cap())
}

// truncate keeps the newest limit turns. The result never aliases the
// dropped prefix so evicted turns can be collected.
func truncate(buf []Turn, limit int) []Turn {
	if len(buf) <= limit {
		return buf
	}
	kept := make([]Turn, limit)
	copy(kept, buf[len(buf)-limit:])
	return kept
}

// Transcript returns a copy of the buffer for (identity, mode).
func (m *Manager) Transcript(identity string, mode Mode) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[identity]
	if !ok {
		return nil
	}
	buf := sess.buffers[mode]
	if len(buf) == 0 {
		return nil
	}
	out := make([]Turn, len(buf))
	copy(out, buf)
	return out
}

// Clear drops the given modes for identity, or all modes and the preference
// log when no mode is given. Reports whether anything was removed.
func (m *Manager) Clear(identity string, modes ...Mode) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[identity]
	if !ok {
		return false
	}

	if len(modes) == 0 {
		delete(m.sessions, identity)
		return true
	}

	removed := false
	for _, mode := range modes {
		if _, exists := sess.buffers[mode]; exists {
			delete(sess.buffers, mode)
			removed = true
		}
	}
	if sess.empty() {
		delete(m.sessions, identity)
	}
	return removed
}

// ClearAll drops every session.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*session)
}

// RecordPreference appends text to the preference log, keeping the newest
// PreferenceCap entries.
func (m *Manager) RecordPreference(identity string, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.sessionLocked(identity)
	prefs := append(sess.preferences, text)
	if len(prefs) > PreferenceCap {
		prefs = append([]string(nil), prefs[len(prefs)-PreferenceCap:]...)
	}
	sess.preferences = prefs
}

// Preferences returns a copy of the preference log.
func (m *Manager) Preferences(identity string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[identity]
	if !ok || len(sess.preferences) == 0 {
		return nil
	}
	return append([]string(nil), sess.preferences...)
}

// Identities returns the sorted identities that have a non-empty buffer in
// mode.
func (m *Manager) Identities(mode Mode) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id, sess := range m.sessions {
		if len(sess.buffers[mode]) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Stats returns current store statistics. Sessions holding only a group
// buffer are group chats and count under "groups", not "total".
func (m *Manager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]int{
		"total":       0,
		"groups":      0,
		"preferences": 0,
	}
	for _, sess := range m.sessions {
		if sess.groupOnly() {
			stats["groups"]++
		} else {
			stats["total"]++
		}
		for mode, buf := range sess.buffers {
			if len(buf) > 0 {
				stats[string(mode)]++
			}
		}
		if len(sess.preferences) > 0 {
			stats["preferences"]++
		}
	}
	return stats
}

// Snapshot returns a deep copy of the store in persisted form.
func (m *Manager) Snapshot() map[string]*PersistedSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*PersistedSession, len(m.sessions))
	for id, sess := range m.sessions {
		p := &PersistedSession{
			Identity:     id,
			LastActivity: sess.lastActivity,
			Buffers:      make(map[Mode][]Turn, len(sess.buffers)),
			Preferences:  append([]string(nil), sess.preferences...),
		}
		for mode, buf := range sess.buffers {
			p.Buffers[mode] = append([]Turn(nil), buf...)
		}
		out[id] = p
	}
	return out
}

// Restore replaces the store contents with persisted sessions, re-applying
// caps in case the stored document was written with larger limits.
func (m *Manager) Restore(persisted map[string]*PersistedSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = make(map[string]*session, len(persisted))
	for id, p := range persisted {
		if p == nil {
			continue
		}
		sess := newSession()
		sess.lastActivity = p.LastActivity
		for mode, buf := range p.Buffers {
			if len(buf) == 0 {
				continue
			}
			sess.buffers[mode] = truncate(append([]Turn(nil), buf...), mode.Cap())
		}
		prefs := append([]string(nil), p.Preferences...)
		if len(prefs) > PreferenceCap {
			prefs = prefs[len(prefs)-PreferenceCap:]
		}
		sess.preferences = prefs
		if !sess.empty() {
			m.sessions[id] = sess
		}
	}
}

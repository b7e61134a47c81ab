package admin

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Veraticus/naina/internal/chat"
)

// Directory maps usernames to identities so admins can name targets by
// handle. It is rebuilt from traffic and never persisted.
type Directory struct {
	byName map[string]string
	mu     sync.RWMutex
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{byName: make(map[string]string)}
}

// Observe records the sender's username, if any.
func (d *Directory) Observe(msg chat.Inbound) {
	name := normalizeName(msg.Username)
	if name == "" || msg.SenderID == "" {
		return
	}
	d.mu.Lock()
	d.byName[name] = msg.SenderID
	d.mu.Unlock()
}

// Resolve turns "@name", a phone number, a numeric id or a UUID into an
// identity.
func (d *Directory) Resolve(target string) (string, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(target, "@", ""))
	if raw == "" {
		return "", false
	}
	if isNumeric(raw) {
		return raw, true
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id.String(), true
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[strings.ToLower(raw)]
	return id, ok
}

// Len returns the number of known usernames.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byName)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "@")))
}

// isNumeric accepts digits with an optional leading plus.
func isNumeric(s string) bool {
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

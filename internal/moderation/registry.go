package moderation

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrPersistenceFailed means a mutation was applied in memory but the
	// document could not be written. The next mutation or Flush retries.
	ErrPersistenceFailed = errors.New("moderation state not persisted")

	// ErrUnknownLabel is returned for labels outside Labels().
	ErrUnknownLabel = errors.New("unknown moderation label")
)

// Registry is the in-memory moderation state with write-through persistence.
// It is safe for concurrent use.
type Registry struct {
	store  Store
	logger *zap.Logger
	state  State
	mu     sync.RWMutex
	dirty  bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a registry holding the default state. A nil store keeps
// state in memory only.
func New(store Store, opts ...Option) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	r := &Registry{
		store:  store,
		logger: zap.NewNop(),
		state:  DefaultState(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "moderation"))
	return r
}

// Load creates a registry from the stored document, falling back to defaults
// when none exists.
func Load(store Store, opts ...Option) (*Registry, error) {
	r := New(store, opts...)
	state, found, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load moderation state: %w", err)
	}
	state.normalize()
	r.state = state
	r.logger.Info("Moderation state loaded",
		zap.Bool("found", found),
		zap.String("approver", state.Approver),
		zap.Int("admins", len(state.Admins)),
	)
	return r, nil
}

// mutate applies fn under the write lock and persists when fn reports a
// change or an earlier write is still outstanding.
func (r *Registry) mutate(op string, fn func(*State) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := fn(&r.state)
	if !changed && !r.dirty {
		return nil
	}
	return r.persistLocked(op)
}

func (r *Registry) persistLocked(op string) error {
	if err := r.store.Save(r.state.clone()); err != nil {
		r.dirty = true
		r.logger.Error("Failed to persist moderation state",
			zap.String("op", op),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %w", ErrPersistenceFailed, op, err)
	}
	r.dirty = false
	return nil
}

// Flush writes the document if an earlier write failed.
func (r *Registry) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty {
		return nil
	}
	return r.persistLocked("flush")
}

// Dirty reports whether the in-memory state is ahead of the store.
func (r *Registry) Dirty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dirty
}

// Add puts identity under label. Adding an existing member is a no-op.
func (r *Registry) Add(label Label, identity string) error {
	if !label.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return r.mutate("add "+string(label), func(s *State) bool {
		set := *s.set(label)
		if set[identity] {
			return false
		}
		set[identity] = true
		return true
	})
}

// Remove takes identity out of label. Removing a non-member is a no-op.
func (r *Registry) Remove(label Label, identity string) error {
	if !label.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return r.mutate("remove "+string(label), func(s *State) bool {
		set := *s.set(label)
		if _, ok := set[identity]; !ok {
			return false
		}
		delete(set, identity)
		return true
	})
}

// IsMember reports whether identity carries label.
func (r *Registry) IsMember(label Label, identity string) bool {
	if !label.Valid() {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return (*r.state.set(label))[identity]
}

// Members returns the sorted identities carrying label.
func (r *Registry) Members(label Label) []string {
	if !label.Valid() {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(*r.state.set(label))
}

// SetConsent records a consent decision for identity.
func (r *Registry) SetConsent(identity string, granted bool) error {
	return r.mutate("set consent", func(s *State) bool {
		if prev, ok := s.ConsentDecisions[identity]; ok && prev == granted {
			return false
		}
		s.ConsentDecisions[identity] = granted
		return true
	})
}

// ClearConsent forgets the decision for identity.
func (r *Registry) ClearConsent(identity string) error {
	return r.mutate("clear consent", func(s *State) bool {
		if _, ok := s.ConsentDecisions[identity]; !ok {
			return false
		}
		delete(s.ConsentDecisions, identity)
		return true
	})
}

// ClearAllConsent forgets every decision.
func (r *Registry) ClearAllConsent() error {
	return r.mutate("clear all consent", func(s *State) bool {
		if len(s.ConsentDecisions) == 0 {
			return false
		}
		s.ConsentDecisions = make(map[string]bool)
		return true
	})
}

// Consent returns the recorded decision and whether one exists.
func (r *Registry) Consent(identity string) (granted bool, recorded bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	granted, recorded = r.state.ConsentDecisions[identity]
	return granted, recorded
}

// Approver returns the identity that decides consent requests.
func (r *Registry) Approver() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Approver
}

// SetApprover sets the approver and makes it an admin.
func (r *Registry) SetApprover(identity string) error {
	return r.mutate("set approver", func(s *State) bool {
		changed := s.Approver != identity
		s.Approver = identity
		if identity != "" && !slices.Contains(s.Admins, identity) {
			s.Admins = append(s.Admins, identity)
			sort.Strings(s.Admins)
			changed = true
		}
		return changed
	})
}

// AddAdmin grants admin rights.
func (r *Registry) AddAdmin(identity string) error {
	return r.mutate("add admin", func(s *State) bool {
		if slices.Contains(s.Admins, identity) {
			return false
		}
		s.Admins = append(s.Admins, identity)
		sort.Strings(s.Admins)
		return true
	})
}

// RemoveAdmin revokes admin rights.
func (r *Registry) RemoveAdmin(identity string) error {
	return r.mutate("remove admin", func(s *State) bool {
		i := slices.Index(s.Admins, identity)
		if i < 0 {
			return false
		}
		s.Admins = slices.Delete(s.Admins, i, i+1)
		return true
	})
}

// IsAdmin reports whether identity may run admin commands.
func (r *Registry) IsAdmin(identity string) bool {
	if identity == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return identity == r.state.Approver || slices.Contains(r.state.Admins, identity)
}

// Admins returns the sorted admin identities.
func (r *Registry) Admins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.state.Admins)
}

// Enabled reports the global on/off switch.
func (r *Registry) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Enabled
}

// SetEnabled flips the global switch.
func (r *Registry) SetEnabled(enabled bool) error {
	return r.mutate("set enabled", func(s *State) bool {
		if s.Enabled == enabled {
			return false
		}
		s.Enabled = enabled
		return true
	})
}

// GroupAutoReply reports whether group messages get replies.
func (r *Registry) GroupAutoReply() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.GroupAutoReply
}

// SetGroupAutoReply flips group replies.
func (r *Registry) SetGroupAutoReply(on bool) error {
	return r.mutate("set group auto-reply", func(s *State) bool {
		if s.GroupAutoReply == on {
			return false
		}
		s.GroupAutoReply = on
		return true
	})
}

// TrackGroup remembers a group the bot has seen.
func (r *Registry) TrackGroup(groupID string) error {
	return r.mutate("track group", func(s *State) bool {
		if groupID == "" || slices.Contains(s.TrackedGroups, groupID) {
			return false
		}
		s.TrackedGroups = append(s.TrackedGroups, groupID)
		sort.Strings(s.TrackedGroups)
		return true
	})
}

// TrackedGroups returns the sorted group identifiers.
func (r *Registry) TrackedGroups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.state.TrackedGroups)
}

// Reset clears every label and consent decision. Approver, admins, flags
// and tracked groups survive.
func (r *Registry) Reset() error {
	return r.mutate("reset", func(s *State) bool {
		for _, label := range Labels() {
			*s.set(label) = make(map[string]bool)
		}
		s.ConsentDecisions = make(map[string]bool)
		return true
	})
}

// Snapshot returns a deep copy of the current document.
func (r *Registry) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone()
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

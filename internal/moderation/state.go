// Package moderation keeps the durable per-identity labels, consent
// decisions, admin set and global switches of the bot.
package moderation

import (
	"maps"
	"slices"
)

// Label is a moderation category an identity can belong to.
type Label string

const (
	// LabelBlocked silences every reply to the identity, commands included.
	LabelBlocked Label = "blocked"
	// LabelMuted silences conversational replies.
	LabelMuted Label = "muted"
	// LabelHostileTarget answers every message with a taunt.
	LabelHostileTarget Label = "hostile-target"
	// LabelAffectionateTarget switches the identity to the affectionate persona.
	LabelAffectionateTarget Label = "affectionate-target"
	// LabelConsentBlocked refuses sensitive content regardless of consent.
	LabelConsentBlocked Label = "consent-blocked"
)

// Labels lists every label.
func Labels() []Label {
	return []Label{
		LabelBlocked,
		LabelMuted,
		LabelHostileTarget,
		LabelAffectionateTarget,
		LabelConsentBlocked,
	}
}

// Valid reports whether l is a known label.
func (l Label) Valid() bool {
	return slices.Contains(Labels(), l)
}

// State is the whole persisted moderation document. Keys follow the
// admin_data.json layout; identities are always strings.
type State struct {
	Blocked             map[string]bool `json:"blocked_users"`
	Muted               map[string]bool `json:"muted_users"`
	HostileTargets      map[string]bool `json:"abuse_targets"`
	AffectionateTargets map[string]bool `json:"lover_targets"`
	ConsentBlocked      map[string]bool `json:"blocked_naughty_users"`
	ConsentDecisions    map[string]bool `json:"consent_decisions"`
	Approver            string          `json:"admin_chat_id,omitempty"`
	Admins              []string        `json:"admin_ids"`
	TrackedGroups       []string        `json:"tracked_groups"`
	Enabled             bool            `json:"bot_enabled"`
	GroupAutoReply      bool            `json:"group_auto_reply"`
}

// DefaultState is the document used when nothing has been persisted.
func DefaultState() State {
	s := State{
		Enabled:        true,
		GroupAutoReply: true,
	}
	s.normalize()
	return s
}

// normalize fills nil maps and slices so the document always has every key.
func (s *State) normalize() {
	for _, label := range Labels() {
		if *s.set(label) == nil {
			*s.set(label) = make(map[string]bool)
		}
	}
	if s.ConsentDecisions == nil {
		s.ConsentDecisions = make(map[string]bool)
	}
	if s.Admins == nil {
		s.Admins = []string{}
	}
	if s.TrackedGroups == nil {
		s.TrackedGroups = []string{}
	}
	slices.Sort(s.Admins)
	s.Admins = slices.Compact(s.Admins)
	slices.Sort(s.TrackedGroups)
	s.TrackedGroups = slices.Compact(s.TrackedGroups)
}

// set returns a pointer to the map backing label.
func (s *State) set(label Label) *map[string]bool {
	switch label {
	case LabelBlocked:
		return &s.Blocked
	case LabelMuted:
		return &s.Muted
	case LabelHostileTarget:
		return &s.HostileTargets
	case LabelAffectionateTarget:
		return &s.AffectionateTargets
	case LabelConsentBlocked:
		return &s.ConsentBlocked
	default:
		return nil
	}
}

// clone returns a deep copy.
func (s State) clone() State {
	out := s
	out.Blocked = maps.Clone(s.Blocked)
	out.Muted = maps.Clone(s.Muted)
	out.HostileTargets = maps.Clone(s.HostileTargets)
	out.AffectionateTargets = maps.Clone(s.AffectionateTargets)
	out.ConsentBlocked = maps.Clone(s.ConsentBlocked)
	out.ConsentDecisions = maps.Clone(s.ConsentDecisions)
	out.Admins = slices.Clone(s.Admins)
	out.TrackedGroups = slices.Clone(s.TrackedGroups)
	out.normalize()
	return out
}

package chat

import (
	"strings"
	"time"
)

// Kind distinguishes one-to-one conversations from group conversations.
type Kind string

const (
	// KindDirect is a private conversation with a single identity.
	KindDirect Kind = "direct"
	// KindGroup is a shared conversation (group, supergroup or channel).
	KindGroup Kind = "group"
)

// Channel is an opaque reply address understood only by the transport that
// produced it.
type Channel string

// DirectChannel returns the reply channel for a private conversation with
// identity. Transports address direct chats by the sender identity.
func DirectChannel(identity string) Channel {
	return Channel(identity)
}

// groupPrefix marks group reply channels.
const groupPrefix = "group:"

// GroupChannel returns the reply channel for a group conversation.
func GroupChannel(groupID string) Channel {
	return Channel(groupPrefix + groupID)
}

// ParseChannel splits a channel into its group ID or direct identity.
func ParseChannel(c Channel) (id string, group bool) {
	if id, ok := strings.CutPrefix(string(c), groupPrefix); ok && id != "" {
		return id, true
	}
	return string(c), false
}

// Inbound is a single message delivered by a transport.
type Inbound struct {
	Timestamp   time.Time
	ID          string  // transport message reference
	SenderID    string  // stable identity of the sender
	DisplayName string  // human readable name, may be empty
	Username    string  // handle used by admins to refer to the sender
	ChatID      string  // conversation identifier; equals SenderID for direct chats
	Kind        Kind    // direct or group
	Text        string  // message body
	ReplyTo     Channel // where replies for this message go
}

// IsGroup reports whether the message arrived in a group conversation.
func (m Inbound) IsGroup() bool {
	return m.Kind == KindGroup
}

// Name returns the display name, falling back to the username and then to
// fallback.
func (m Inbound) Name(fallback string) string {
	switch {
	case m.DisplayName != "":
		return m.DisplayName
	case m.Username != "":
		return m.Username
	default:
		return fallback
	}
}

// Outbound is a reply the core wants delivered.
type Outbound struct {
	To   Channel
	Text string
}

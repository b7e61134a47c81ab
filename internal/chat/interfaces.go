// Package chat defines the transport boundary shared by every messenger
// implementation and the routing core.
package chat

import (
	"context"
)

// Messenger abstracts a chat transport. Implementations must be safe for
// concurrent use.
type Messenger interface {
	// Send delivers text to an opaque reply channel.
	Send(ctx context.Context, to Channel, text string) error

	// Subscribe returns a channel of inbound messages. The channel is closed
	// when ctx is canceled or the transport ends.
	Subscribe(ctx context.Context) (<-chan Inbound, error)
}

// Sender is the send half of a Messenger.
type Sender interface {
	Send(ctx context.Context, to Channel, text string) error
}

// Typer is implemented by transports that can show a typing indicator.
type Typer interface {
	SendTyping(ctx context.Context, to Channel) error
}

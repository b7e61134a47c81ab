package signal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/naina/internal/chat"
)

// Compile-time checks.
var (
	_ chat.Messenger = (*Messenger)(nil)
	_ chat.Typer     = (*Messenger)(nil)
)

// Messenger adapts a signal-cli client to chat.Messenger.
type Messenger struct {
	client *Client
	self   string
}

// NewMessenger creates a messenger. Messages from self are ignored.
func NewMessenger(client *Client, self string) *Messenger {
	return &Messenger{client: client, self: self}
}

// Send implements chat.Messenger.
func (m *Messenger) Send(ctx context.Context, to chat.Channel, text string) error {
	if text == "" {
		return fmt.Errorf("message cannot be empty")
	}
	id, group := chat.ParseChannel(to)
	if id == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	req := &SendRequest{Message: text}
	if group {
		req.GroupID = id
	} else {
		req.Recipients = []string{id}
	}
	if _, err := m.client.Send(ctx, req); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendTyping implements chat.Typer.
func (m *Messenger) SendTyping(ctx context.Context, to chat.Channel) error {
	id, group := chat.ParseChannel(to)
	var err error
	if group {
		err = m.client.SendTyping(ctx, "", id)
	} else {
		err = m.client.SendTyping(ctx, id, "")
	}
	if err != nil {
		return fmt.Errorf("failed to send typing indicator: %w", err)
	}
	return nil
}

// Subscribe implements chat.Messenger.
func (m *Messenger) Subscribe(ctx context.Context) (<-chan chat.Inbound, error) {
	envelopes := m.client.Subscribe(ctx)
	out := make(chan chat.Inbound)
	go func() {
		defer close(out)
		for env := range envelopes {
			msg, ok := m.convert(env)
			if !ok {
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// convert turns a data message envelope into an inbound message. Sync
// messages, receipts and our own messages are skipped.
func (m *Messenger) convert(env *Envelope) (chat.Inbound, bool) {
	sender := senderID(env)
	if sender == "" || (m.self != "" && (env.Source == m.self || env.SourceNumber == m.self)) {
		return chat.Inbound{}, false
	}
	if env.DataMessage == nil || env.DataMessage.Message == "" {
		return chat.Inbound{}, false
	}

	msg := chat.Inbound{
		Timestamp:   time.UnixMilli(env.Timestamp),
		ID:          sender + ":" + strconv.FormatInt(env.Timestamp, 10),
		SenderID:    sender,
		DisplayName: env.SourceName,
		Username:    strings.ToLower(strings.ReplaceAll(env.SourceName, " ", "")),
		ChatID:      sender,
		Kind:        chat.KindDirect,
		Text:        env.DataMessage.Message,
		ReplyTo:     chat.DirectChannel(sender),
	}
	if gi := env.DataMessage.GroupInfo; gi != nil && gi.GroupID != "" {
		msg.Kind = chat.KindGroup
		msg.ChatID = gi.GroupID
		msg.ReplyTo = chat.GroupChannel(gi.GroupID)
	}
	return msg, true
}

func senderID(env *Envelope) string {
	switch {
	case env.SourceNumber != "":
		return env.SourceNumber
	case env.SourceUUID != "":
		return env.SourceUUID
	default:
		return env.Source
	}
}

// Package console provides a line-oriented messenger over a reader and a
// writer, used to talk to the bot from a terminal.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/naina/internal/chat"
)

// GroupPrefix marks a line as a group message.
const GroupPrefix = "#group "

// GroupID is the chat ID of the single console group.
const GroupID = "console"

var _ chat.Messenger = (*Messenger)(nil)

// Messenger reads one message per line and writes replies as text.
type Messenger struct {
	in       io.Reader
	out      io.Writer
	identity string
	name     string
	now      func() time.Time
	mu       sync.Mutex
	seq      int
}

// Option configures a Messenger.
type Option func(*Messenger)

// WithName sets the display name of the local user.
func WithName(name string) Option {
	return func(m *Messenger) {
		m.name = name
	}
}

// New creates a console messenger. Every line is sent as identity.
func New(in io.Reader, out io.Writer, identity string, opts ...Option) *Messenger {
	m := &Messenger{
		in:       in,
		out:      out,
		identity: identity,
		name:     identity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send implements chat.Messenger.
func (m *Messenger) Send(_ context.Context, to chat.Channel, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := "naina"
	if _, group := chat.ParseChannel(to); group {
		prefix = "naina@group"
	}
	if _, err := fmt.Fprintf(m.out, "%s> %s\n", prefix, text); err != nil {
		return fmt.Errorf("failed to write reply: %w", err)
	}
	return nil
}

// Subscribe implements chat.Messenger. The stream ends at EOF or when ctx
// is done; a read blocked on the underlying reader is abandoned.
func (m *Messenger) Subscribe(ctx context.Context) (<-chan chat.Inbound, error) {
	out := make(chan chat.Inbound)
	lines := make(chan string)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(m.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				msg, ok := m.parse(line)
				if !ok {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (m *Messenger) parse(line string) (chat.Inbound, bool) {
	text := strings.TrimSpace(line)
	group := false
	if rest, ok := strings.CutPrefix(text, GroupPrefix); ok {
		text, group = strings.TrimSpace(rest), true
	}
	if text == "" {
		return chat.Inbound{}, false
	}

	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	msg := chat.Inbound{
		Timestamp:   m.now(),
		ID:          m.identity + ":" + strconv.Itoa(seq),
		SenderID:    m.identity,
		DisplayName: m.name,
		Username:    strings.ToLower(strings.ReplaceAll(m.name, " ", "")),
		ChatID:      m.identity,
		Kind:        chat.KindDirect,
		Text:        text,
		ReplyTo:     chat.DirectChannel(m.identity),
	}
	if group {
		msg.Kind = chat.KindGroup
		msg.ChatID = GroupID
		msg.ReplyTo = chat.GroupChannel(GroupID)
	}
	return msg, true
}

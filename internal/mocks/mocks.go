// Package mocks provides hand-written fakes for testing.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/naina/internal/chat"
	"github.com/Veraticus/naina/internal/conversation"
	"github.com/Veraticus/naina/internal/provider"
)

// incomingChannelSize is the buffer size for injected inbound messages.
const incomingChannelSize = 100

// Compile-time checks to ensure mocks implement their interfaces.
var (
	_ provider.Backend = (*MockBackend)(nil)
	_ provider.Backend = (*ScriptedBackend)(nil)
	_ chat.Messenger   = (*MockMessenger)(nil)
)

// GenerateCall records one Generate call.
type GenerateCall struct {
	Timestamp   time.Time
	Persona     string
	Turns       []conversation.Turn
	Temperature float32
}

// MockBackend is a fixed-reply generation backend.
type MockBackend struct {
	err   error
	name  string
	reply string
	calls []GenerateCall
	mu    sync.Mutex

	// GenerateFunc overrides the fixed reply when set.
	GenerateFunc func(ctx context.Context, turns []conversation.Turn, persona string, temperature float32) (string, error)
}

// NewMockBackend creates a backend answering reply.
func NewMockBackend(name, reply string) *MockBackend {
	return &MockBackend{name: name, reply: reply}
}

// Name implements provider.Backend.
func (m *MockBackend) Name() string {
	return m.name
}

// Generate implements provider.Backend.
func (m *MockBackend) Generate(
	ctx context.Context,
	turns []conversation.Turn,
	persona string,
	temperature float32,
) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{
		Timestamp:   time.Now(),
		Turns:       append([]conversation.Turn(nil), turns...),
		Persona:     persona,
		Temperature: temperature,
	})
	fn, reply, err := m.GenerateFunc, m.reply, m.err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, turns, persona, temperature)
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

// SetReply changes the fixed reply.
func (m *MockBackend) SetReply(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = reply
}

// SetError makes every call fail with err. Nil clears it.
func (m *MockBackend) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetCalls returns every recorded call.
func (m *MockBackend) GetCalls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateCall(nil), m.calls...)
}

// CallCount returns how many times Generate ran.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// SentMessage records a sent message.
type SentMessage struct {
	Timestamp time.Time
	To        chat.Channel
	Text      string
}

// MockMessenger is an in-memory chat.Messenger.
type MockMessenger struct {
	sendErr      error
	subscribeErr error
	incomingChan chan chat.Inbound
	sentMessages []SentMessage
	failFor      map[chat.Channel]error
	mu           sync.Mutex
}

// NewMockMessenger creates a new mock messenger.
func NewMockMessenger() *MockMessenger {
	return &MockMessenger{
		incomingChan: make(chan chat.Inbound, incomingChannelSize),
		failFor:      make(map[chat.Channel]error),
	}
}

// Send implements chat.Messenger.
func (m *MockMessenger) Send(_ context.Context, to chat.Channel, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}
	if err := m.failFor[to]; err != nil {
		return err
	}

	m.sentMessages = append(m.sentMessages, SentMessage{
		To:        to,
		Text:      text,
		Timestamp: time.Now(),
	})
	return nil
}

// Subscribe implements chat.Messenger. The channel closes when ctx is done.
func (m *MockMessenger) Subscribe(ctx context.Context) (<-chan chat.Inbound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	out := make(chan chat.Inbound)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-m.incomingChan:
				if !ok {
					return
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

// InjectMessage queues an inbound message.
func (m *MockMessenger) InjectMessage(msg chat.Inbound) {
	m.incomingChan <- msg
}

// CloseIncoming ends the inbound stream.
func (m *MockMessenger) CloseIncoming() {
	close(m.incomingChan)
}

// GetSentMessages returns all sent messages.
func (m *MockMessenger) GetSentMessages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sentMessages...)
}

// SentTo returns the texts delivered to one channel.
func (m *MockMessenger) SentTo(to chat.Channel) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sentMessages {
		if s.To == to {
			out = append(out, s.Text)
		}
	}
	return out
}

// SetSendError makes every send fail with err.
func (m *MockMessenger) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// FailSendsTo makes sends to one channel fail with err.
func (m *MockMessenger) FailSendsTo(to chat.Channel, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFor[to] = err
}

// SetSubscribeError makes Subscribe fail with err.
func (m *MockMessenger) SetSubscribeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeErr = err
}

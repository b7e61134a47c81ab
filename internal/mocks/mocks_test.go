package mocks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/naina/internal/chat"
	"github.com/Veraticus/naina/internal/conversation"
	"github.com/Veraticus/naina/internal/mocks"
)

func TestMockBackend(t *testing.T) {
	b := mocks.NewMockBackend("primary", "hi")
	turns := []conversation.Turn{{Role: conversation.RoleUser, Text: "hello"}}

	text, err := b.Generate(t.Context(), turns, "persona", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	b.SetError(errors.New("down"))
	_, err = b.Generate(t.Context(), turns, "persona", 0.5)
	require.Error(t, err)

	calls := b.GetCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "persona", calls[0].Persona)
	assert.Equal(t, turns, calls[0].Turns)
}

func TestScriptedBackend(t *testing.T) {
	s := mocks.NewScriptedBackend("primary", nil).
		Reply("hello", "namaste").
		Add(mocks.Script{TextPattern: ".*", Reply: "always", Repeatable: true})

	turns := func(text string) []conversation.Turn {
		return []conversation.Turn{{Role: conversation.RoleUser, Text: text}}
	}

	got, err := s.Generate(t.Context(), turns("Ravi: hello"), "", 1)
	require.NoError(t, err)
	assert.Equal(t, "namaste", got)

	got, err = s.Generate(t.Context(), turns("Ravi: hello"), "", 1)
	require.NoError(t, err)
	assert.Equal(t, "always", got, "one-shot script was consumed")
	assert.Equal(t, 1, s.Remaining())
}

func TestScriptedBackend_DelayHonorsContext(t *testing.T) {
	s := mocks.NewScriptedBackend("slow", nil).Add(mocks.Script{Reply: "late", Delay: time.Second})

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Generate(ctx, nil, "", 1)
	assert.Error(t, err)
}

func TestMockMessenger(t *testing.T) {
	m := mocks.NewMockMessenger()
	m.FailSendsTo("bad", errors.New("unreachable"))

	require.NoError(t, m.Send(t.Context(), "42", "hi"))
	require.Error(t, m.Send(t.Context(), "bad", "hi"))
	assert.Equal(t, []string{"hi"}, m.SentTo("42"))

	ch, err := m.Subscribe(t.Context())
	require.NoError(t, err)
	m.InjectMessage(chat.Inbound{SenderID: "42", Text: "yo"})
	msg := <-ch
	assert.Equal(t, "yo", msg.Text)

	m.CloseIncoming()
	_, ok := <-ch
	assert.False(t, ok)
}

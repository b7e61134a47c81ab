package keepalive

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Veraticus/naina/internal/chat"
	"github.com/Veraticus/naina/internal/mocks"
	"github.com/Veraticus/naina/internal/moderation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type staticApprover string

func (s staticApprover) Approver() string { return string(s) }

func fixedClock() time.Time {
	return time.Date(2026, 3, 4, 13, 5, 9, 0, time.UTC)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, staticApprover("1"))
	require.Error(t, err)

	_, err = New(mocks.NewMockMessenger(), nil)
	require.Error(t, err)

	_, err = New(mocks.NewMockMessenger(), staticApprover("1"), WithInterval(0))
	require.Error(t, err)
}

func TestBeat(t *testing.T) {
	m := mocks.NewMockMessenger()
	s, err := New(m, staticApprover("1000"), WithClock(fixedClock))
	require.NoError(t, err)

	s.Beat(t.Context())

	assert.Equal(t,
		[]string{"💫 Auto keep-alive check [13:05:09] - Naina is alive! 💕"},
		m.SentTo(chat.DirectChannel("1000")))
}

func TestBeat_NoApprover(t *testing.T) {
	m := mocks.NewMockMessenger()
	registry := moderation.New(nil)
	s, err := New(m, registry)
	require.NoError(t, err)

	s.Beat(t.Context())
	assert.Empty(t, m.GetSentMessages())

	require.NoError(t, registry.SetApprover("1000"))
	s.Beat(t.Context())
	assert.Len(t, m.SentTo(chat.DirectChannel("1000")), 1)
}

func TestBeat_SendFailureIsTolerated(t *testing.T) {
	m := mocks.NewMockMessenger()
	m.SetSendError(errors.New("offline"))
	s, err := New(m, staticApprover("1000"))
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.Beat(t.Context()) })
}

func TestService_StartStop(t *testing.T) {
	m := mocks.NewMockMessenger()
	s, err := New(m, staticApprover("1000"), WithInterval(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, s.Start(t.Context()))
	require.NoError(t, s.Start(t.Context()), "second start is a no-op")
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool {
		return len(m.SentTo(chat.DirectChannel("1000"))) >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

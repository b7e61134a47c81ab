package conversation_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/naina/internal/conversation"
)

func TestManager_AppendKeepsChronologicalOrder(t *testing.T) {
	m := conversation.NewManager()

	m.AppendExchange("42", conversation.ModeDirect, "Ravi: hello", "hi Ravi")
	m.Append("42", conversation.ModeDirect, conversation.RoleUser, "Ravi: how are you")

	want := []conversation.Turn{
		{Role: conversation.RoleUser, Text: "Ravi: hello"},
		{Role: conversation.RoleModel, Text: "hi Ravi"},
		{Role: conversation.RoleUser, Text: "Ravi: how are you"},
	}
	if diff := cmp.Diff(want, m.Transcript("42", conversation.ModeDirect)); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, m.Transcript("42", conversation.ModeGroup))
	assert.Nil(t, m.Transcript("missing", conversation.ModeDirect))
}

func TestManager_CapsEvictOldestFirst(t *testing.T) {
	tests := []struct {
		mode conversation.Mode
		cap  int
	}{
		{mode: conversation.ModeDirect, cap: 30},
		{mode: conversation.ModeGroup, cap: 50},
		{mode: conversation.ModeSensitive, cap: 30},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			m := conversation.NewManager()
			total := tt.cap + 7
			for i := range total {
				m.Append("id", tt.mode, conversation.RoleUser, fmt.Sprintf("msg-%d", i))
			}

			got := m.Transcript("id", tt.mode)
			require.Len(t, got, tt.cap)
			assert.Equal(t, "msg-7", got[0].Text)
			assert.Equal(t, fmt.Sprintf("msg-%d", total-1), got[len(got)-1].Text)
		})
	}
}

func TestManager_TranscriptIsACopy(t *testing.T) {
	m := conversation.NewManager()
	m.Append("id", conversation.ModeDirect, conversation.RoleUser, "original")

	got := m.Transcript("id", conversation.ModeDirect)
	got[0].Text = "mutated"

	assert.Equal(t, "original", m.Transcript("id", conversation.ModeDirect)[0].Text)
}

func TestManager_Preferences(t *testing.T) {
	m := conversation.NewManager()
	assert.Nil(t, m.Preferences("id"))

	for i := range 12 {
		m.RecordPreference("id", fmt.Sprintf("pref-%d", i))
	}

	prefs := m.Preferences("id")
	require.Len(t, prefs, conversation.PreferenceCap)
	assert.Equal(t, "pref-2", prefs[0])
	assert.Equal(t, "pref-11", prefs[9])
}

func TestManager_Clear(t *testing.T) {
	m := conversation.NewManager()
	m.Append("id", conversation.ModeDirect, conversation.RoleUser, "a")
	m.Append("id", conversation.ModeSensitive, conversation.RoleUser, "b")
	m.RecordPreference("id", "be nice")

	assert.True(t, m.Clear("id", conversation.ModeSensitive))
	assert.Nil(t, m.Transcript("id", conversation.ModeSensitive))
	assert.Len(t, m.Transcript("id", conversation.ModeDirect), 1)
	assert.False(t, m.Clear("id", conversation.ModeSensitive))

	assert.True(t, m.Clear("id"))
	assert.Nil(t, m.Transcript("id", conversation.ModeDirect))
	assert.Nil(t, m.Preferences("id"))
	assert.False(t, m.Clear("id"))
}

func TestManager_IdentitiesAndStats(t *testing.T) {
	m := conversation.NewManager()
	m.Append("b", conversation.ModeDirect, conversation.RoleUser, "x")
	m.Append("a", conversation.ModeDirect, conversation.RoleUser, "x")
	m.Append("g1", conversation.ModeGroup, conversation.RoleUser, "x")
	m.RecordPreference("a", "short replies")

	assert.Equal(t, []string{"a", "b"}, m.Identities(conversation.ModeDirect))
	assert.Equal(t, []string{"g1"}, m.Identities(conversation.ModeGroup))

	stats := m.Stats()
	assert.Equal(t, 2, stats["total"])
	assert.Equal(t, 1, stats["groups"])
	assert.Equal(t, 2, stats["direct"])
	assert.Equal(t, 1, stats["group"])
	assert.Equal(t, 1, stats["preferences"])

	m.ClearAll()
	assert.Equal(t, 0, m.Stats()["total"])
}

func TestManager_StatsCountsGroupChatsSeparately(t *testing.T) {
	m := conversation.NewManager()
	m.Append("group-1", conversation.ModeGroup, conversation.RoleUser, "hi all")
	m.Append("group-2", conversation.ModeGroup, conversation.RoleUser, "hello")

	stats := m.Stats()
	assert.Equal(t, 0, stats["total"])
	assert.Equal(t, 2, stats["groups"])

	// An identity that also chats privately is a user.
	m.Append("group-1", conversation.ModeDirect, conversation.RoleUser, "psst")
	stats = m.Stats()
	assert.Equal(t, 1, stats["total"])
	assert.Equal(t, 1, stats["groups"])
}

func TestManager_SnapshotRestore(t *testing.T) {
	m := conversation.NewManager()
	m.AppendExchange("id", conversation.ModeDirect, "u", "m")
	m.RecordPreference("id", "pref")

	snap := m.Snapshot()
	require.Contains(t, snap, "id")

	other := conversation.NewManager()
	other.Restore(snap)

	if diff := cmp.Diff(m.Transcript("id", conversation.ModeDirect), other.Transcript("id", conversation.ModeDirect)); diff != "" {
		t.Errorf("restored transcript mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"pref"}, other.Preferences("id"))
}

func TestManager_RestoreReappliesCaps(t *testing.T) {
	buf := make([]conversation.Turn, 40)
	for i := range buf {
		buf[i] = conversation.Turn{Role: conversation.RoleUser, Text: fmt.Sprintf("t%d", i)}
	}

	m := conversation.NewManager()
	m.Restore(map[string]*conversation.PersistedSession{
		"id":    {Identity: "id", Buffers: map[conversation.Mode][]conversation.Turn{conversation.ModeDirect: buf}},
		"empty": {Identity: "empty"},
		"nil":   nil,
	})

	got := m.Transcript("id", conversation.ModeDirect)
	require.Len(t, got, conversation.DirectCap)
	assert.Equal(t, "t10", got[0].Text)
	assert.Equal(t, 1, m.Stats()["total"])
}

func TestManager_ConcurrentAppendsRespectCap(t *testing.T) {
	m := conversation.NewManager()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range 20 {
				m.AppendExchange("id", conversation.ModeDirect, fmt.Sprintf("u%d-%d", worker, i), "reply")
			}
		}(w)
	}
	wg.Wait()

	got := m.Transcript("id", conversation.ModeDirect)
	require.Len(t, got, conversation.DirectCap)
	for i := 0; i < len(got); i += 2 {
		assert.Equal(t, conversation.RoleUser, got[i].Role)
		assert.Equal(t, conversation.RoleModel, got[i+1].Role)
	}
}

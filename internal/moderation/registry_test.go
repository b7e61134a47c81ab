package moderation_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/naina/internal/moderation"
)

func TestRegistry_AddRemoveIdempotent(t *testing.T) {
	store := moderation.NewMemoryStore()
	r := moderation.New(store)

	for _, label := range moderation.Labels() {
		t.Run(string(label), func(t *testing.T) {
			require.NoError(t, r.Add(label, "99"))
			require.NoError(t, r.Add(label, "99"))
			assert.True(t, r.IsMember(label, "99"))
			assert.Equal(t, []string{"99"}, r.Members(label))

			require.NoError(t, r.Remove(label, "99"))
			require.NoError(t, r.Remove(label, "99"))
			assert.False(t, r.IsMember(label, "99"))
			assert.Empty(t, r.Members(label))
		})
	}

	// One write per state change, none for the repeated calls.
	assert.Equal(t, 2*len(moderation.Labels()), store.Saves())
}

func TestRegistry_UnknownLabel(t *testing.T) {
	r := moderation.New(nil)

	assert.ErrorIs(t, r.Add("vip", "1"), moderation.ErrUnknownLabel)
	assert.ErrorIs(t, r.Remove("vip", "1"), moderation.ErrUnknownLabel)
	assert.False(t, r.IsMember("vip", "1"))
	assert.Nil(t, r.Members("vip"))
}

func TestRegistry_EveryMutationIsWrittenBeforeReturning(t *testing.T) {
	store := moderation.NewMemoryStore()
	r := moderation.New(store)

	require.NoError(t, r.Add(moderation.LabelBlocked, "99"))
	state, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, state.Blocked["99"])

	require.NoError(t, r.SetConsent("7", true))
	state, _, _ = store.Load()
	assert.True(t, state.ConsentDecisions["7"])

	require.NoError(t, r.SetEnabled(false))
	state, _, _ = store.Load()
	assert.False(t, state.Enabled)
}

func TestRegistry_PersistenceFailureKeepsStateAndRetries(t *testing.T) {
	store := moderation.NewMemoryStore()
	r := moderation.New(store)

	store.FailWith(errors.New("disk full"))
	err := r.Add(moderation.LabelMuted, "5")
	require.ErrorIs(t, err, moderation.ErrPersistenceFailed)
	assert.True(t, r.IsMember(moderation.LabelMuted, "5"), "in-memory mutation stays applied")
	assert.True(t, r.Dirty())

	store.FailWith(nil)
	// A no-op mutation still flushes the outstanding change.
	require.NoError(t, r.Add(moderation.LabelMuted, "5"))
	assert.False(t, r.Dirty())

	state, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, state.Muted["5"])
}

func TestRegistry_Flush(t *testing.T) {
	store := moderation.NewMemoryStore()
	r := moderation.New(store)
	require.NoError(t, r.Flush())

	store.FailWith(errors.New("read-only"))
	require.Error(t, r.SetGroupAutoReply(false))
	require.ErrorIs(t, r.Flush(), moderation.ErrPersistenceFailed)

	store.FailWith(nil)
	require.NoError(t, r.Flush())
	state, _, _ := store.Load()
	assert.False(t, state.GroupAutoReply)
}

func TestRegistry_Consent(t *testing.T) {
	r := moderation.New(nil)

	_, recorded := r.Consent("7")
	assert.False(t, recorded)

	require.NoError(t, r.SetConsent("7", false))
	granted, recorded := r.Consent("7")
	assert.True(t, recorded)
	assert.False(t, granted)

	require.NoError(t, r.SetConsent("7", true))
	granted, _ = r.Consent("7")
	assert.True(t, granted)

	require.NoError(t, r.ClearConsent("7"))
	_, recorded = r.Consent("7")
	assert.False(t, recorded)

	require.NoError(t, r.SetConsent("1", true))
	require.NoError(t, r.SetConsent("2", false))
	require.NoError(t, r.ClearAllConsent())
	_, recorded = r.Consent("1")
	assert.False(t, recorded)
}

func TestRegistry_AdminsAndApprover(t *testing.T) {
	r := moderation.New(nil)
	assert.False(t, r.IsAdmin("1"))
	assert.False(t, r.IsAdmin(""))

	require.NoError(t, r.SetApprover("1"))
	assert.Equal(t, "1", r.Approver())
	assert.True(t, r.IsAdmin("1"))

	require.NoError(t, r.AddAdmin("3"))
	require.NoError(t, r.AddAdmin("2"))
	require.NoError(t, r.AddAdmin("2"))
	assert.Equal(t, []string{"1", "2", "3"}, r.Admins())

	require.NoError(t, r.RemoveAdmin("3"))
	require.NoError(t, r.RemoveAdmin("404"))
	assert.Equal(t, []string{"1", "2"}, r.Admins())
	assert.False(t, r.IsAdmin("3"))
}

func TestRegistry_FlagsAndGroups(t *testing.T) {
	r := moderation.New(nil)
	assert.True(t, r.Enabled())
	assert.True(t, r.GroupAutoReply())

	require.NoError(t, r.SetEnabled(false))
	require.NoError(t, r.SetGroupAutoReply(false))
	assert.False(t, r.Enabled())
	assert.False(t, r.GroupAutoReply())

	require.NoError(t, r.TrackGroup("g2"))
	require.NoError(t, r.TrackGroup("g1"))
	require.NoError(t, r.TrackGroup("g1"))
	require.NoError(t, r.TrackGroup(""))
	assert.Equal(t, []string{"g1", "g2"}, r.TrackedGroups())
}

func TestRegistry_ResetKeepsAdmins(t *testing.T) {
	r := moderation.New(nil)
	require.NoError(t, r.SetApprover("1"))
	require.NoError(t, r.Add(moderation.LabelBlocked, "9"))
	require.NoError(t, r.Add(moderation.LabelAffectionateTarget, "8"))
	require.NoError(t, r.SetConsent("7", true))

	require.NoError(t, r.Reset())

	for _, label := range moderation.Labels() {
		assert.Empty(t, r.Members(label))
	}
	_, recorded := r.Consent("7")
	assert.False(t, recorded)
	assert.Equal(t, "1", r.Approver())
	assert.True(t, r.IsAdmin("1"))
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	r := moderation.New(nil)
	require.NoError(t, r.Add(moderation.LabelBlocked, "9"))

	snap := r.Snapshot()
	snap.Blocked["10"] = true
	snap.Admins = append(snap.Admins, "x")

	assert.False(t, r.IsMember(moderation.LabelBlocked, "10"))
	assert.Empty(t, r.Admins())
}

func TestRegistry_ConcurrentMutations(t *testing.T) {
	store := moderation.NewMemoryStore()
	r := moderation.New(store)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			assert.NoError(t, r.Add(moderation.LabelMuted, id))
			assert.NoError(t, r.SetConsent(id, n%2 == 0))
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Members(moderation.LabelMuted), 20)
	state, _, _ := store.Load()
	assert.Len(t, state.Muted, 20)
	assert.Len(t, state.ConsentDecisions, 20)
}

func TestLoad_FileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", moderation.DefaultFile)
	store := moderation.NewFileStore(path)

	r, err := moderation.Load(store)
	require.NoError(t, err)
	assert.True(t, r.Enabled(), "missing document yields defaults")
	assert.True(t, r.GroupAutoReply())

	require.NoError(t, r.SetApprover("1"))
	require.NoError(t, r.Add(moderation.LabelConsentBlocked, "7"))
	require.NoError(t, r.SetConsent("8", true))
	require.NoError(t, r.SetEnabled(false))

	reloaded, err := moderation.Load(moderation.NewFileStore(path))
	require.NoError(t, err)
	assert.Equal(t, "1", reloaded.Approver())
	assert.True(t, reloaded.IsMember(moderation.LabelConsentBlocked, "7"))
	granted, recorded := reloaded.Consent("8")
	assert.True(t, granted && recorded)
	assert.False(t, reloaded.Enabled())
}

func TestFileStore_DocumentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), moderation.DefaultFile)
	r := moderation.New(moderation.NewFileStore(path))
	require.NoError(t, r.Add(moderation.LabelHostileTarget, "66"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{
		"admin_ids", "blocked_users", "muted_users", "abuse_targets", "lover_targets",
		"blocked_naughty_users", "bot_enabled", "group_auto_reply", "tracked_groups",
		"consent_decisions",
	} {
		assert.Contains(t, doc, key)
	}
	assert.JSONEq(t, `{"66": true}`, string(doc["abuse_targets"]))
}

func TestFileStore_PartialDocumentKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), moderation.DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"admin_chat_id":"5","blocked_users":{"9":true}}`), 0o600))

	r, err := moderation.Load(moderation.NewFileStore(path))
	require.NoError(t, err)
	assert.Equal(t, "5", r.Approver())
	assert.True(t, r.IsMember(moderation.LabelBlocked, "9"))
	assert.True(t, r.Enabled())
	assert.True(t, r.GroupAutoReply())
	assert.Empty(t, r.Members(moderation.LabelMuted))
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), moderation.DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))

	_, err := moderation.Load(moderation.NewFileStore(path))
	assert.Error(t, err)
}

package admin_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/naina/internal/admin"
	"github.com/Veraticus/naina/internal/chat"
	"github.com/Veraticus/naina/internal/consent"
	"github.com/Veraticus/naina/internal/conversation"
	"github.com/Veraticus/naina/internal/mocks"
	"github.com/Veraticus/naina/internal/moderation"
	"github.com/Veraticus/naina/internal/persona"
	"github.com/Veraticus/naina/internal/provider"
	"github.com/Veraticus/naina/internal/router"
)

const (
	owner = "1000"
	staff = "2000"
	user  = "42"
)

type fixture struct {
	exec      *admin.Executor
	registry  *moderation.Registry
	sessions  *conversation.Manager
	workflow  *consent.Workflow
	messenger *mocks.MockMessenger
	backend   *mocks.MockBackend
	clock     time.Time
	restarts  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		registry:  moderation.New(nil),
		sessions:  conversation.NewManager(),
		messenger: mocks.NewMockMessenger(),
		backend:   mocks.NewMockBackend("primary", "mmm"),
		clock:     time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.registry.SetApprover(owner))
	require.NoError(t, f.registry.AddAdmin(staff))
	f.workflow = consent.NewWorkflow(f.registry)

	replies := persona.NewReplies(persona.NewSequencePicker(0))
	r, err := router.New(
		provider.NewGateway(f.backend, nil),
		router.WithSessions(f.sessions),
		router.WithModeration(f.registry),
		router.WithConsent(f.workflow),
		router.WithReplies(replies),
	)
	require.NoError(t, err)

	exec, err := admin.NewExecutor(f.registry, f.sessions, r, f.workflow,
		admin.WithReplies(replies),
		admin.WithSender(f.messenger),
		admin.WithShutdown(func() { f.restarts++ }),
		admin.WithClock(func() time.Time { return f.clock }),
	)
	require.NoError(t, err)
	f.exec = exec
	return f
}

func (f *fixture) run(t *testing.T, from, text string) []chat.Outbound {
	t.Helper()
	cmd, ok := admin.Parse(text)
	require.True(t, ok, text)
	msg := chat.Inbound{
		SenderID: from,
		ChatID:   from,
		Kind:     chat.KindDirect,
		Text:     text,
		ReplyTo:  chat.DirectChannel(from),
	}
	return f.exec.Execute(t.Context(), msg, cmd)
}

func (f *fixture) text(t *testing.T, from, cmd string) string {
	t.Helper()
	out := f.run(t, from, cmd)
	require.Len(t, out, 1, cmd)
	assert.Equal(t, chat.DirectChannel(from), out[0].To)
	return out[0].Text
}

func rude() string {
	return persona.RudeRejections()[0]
}

func TestNewExecutor_Validation(t *testing.T) {
	reg := moderation.New(nil)
	sessions := conversation.NewManager()
	wf := consent.NewWorkflow(reg)

	_, err := admin.NewExecutor(nil, sessions, nil, wf)
	require.Error(t, err)

	_, err = admin.NewExecutor(reg, sessions, nil, wf)
	require.Error(t, err)
}

func TestExecute_NonAdminGetsRudeRejection(t *testing.T) {
	f := newFixture(t)

	for _, cmd := range []string{"/block 7", "/status", "/broadcast hi", "/reset", "/listusers", "/admin"} {
		assert.Equal(t, rude(), f.text(t, user, cmd), cmd)
	}
	assert.False(t, f.registry.IsMember(moderation.LabelBlocked, "7"))
}

func TestExecute_BlockedSenderGetsNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Add(moderation.LabelBlocked, user))

	assert.Empty(t, f.run(t, user, "/joke"))
	assert.Empty(t, f.run(t, user, "/help"))
}

func TestExecute_UnknownCommandIsIgnored(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.run(t, owner, "/dance"))
}

func TestExecute_LabelCommands(t *testing.T) {
	tests := []struct {
		cmd   string
		label moderation.Label
		want  string
	}{
		{"/block", moderation.LabelBlocked, "✅ User 7 blocked!"},
		{"/mute", moderation.LabelMuted, "🔇 User 7 muted!"},
		{"/abuse", moderation.LabelHostileTarget, "😈 User 7 is now a gaali target!"},
		{"/addlover", moderation.LabelAffectionateTarget, "❤️ User 7 is now a lover! 💕"},
		{"/blocknaughty", moderation.LabelConsentBlocked, "🔒 User 7 blocked from naughty talk!"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			f := newFixture(t)

			assert.Equal(t, tt.want, f.text(t, staff, tt.cmd+" 7"))
			assert.True(t, f.registry.IsMember(tt.label, "7"))
		})
	}
}

func TestExecute_LabelRemovalAndLists(t *testing.T) {
	f := newFixture(t)
	f.exec.Directory().Observe(chat.Inbound{SenderID: "7", Username: "ravi"})

	assert.Equal(t, "No blocked users!", f.text(t, owner, "/listblocked"))
	f.text(t, owner, "/block @Ravi")
	f.text(t, owner, "/block 9")
	assert.Equal(t, "🚫 **BLOCKED USERS:**\n7\n9", f.text(t, owner, "/listblocked"))

	assert.Equal(t, "✅ User 7 unblocked!", f.text(t, owner, "/unblock @ravi"))
	assert.False(t, f.registry.IsMember(moderation.LabelBlocked, "7"))

	assert.Equal(t, "No lovers! 💔", f.text(t, owner, "/listlovers"))
	f.text(t, owner, "/lover 7")
	assert.Equal(t, "💔 User 7 is no longer a lover.", f.text(t, owner, "/removelover 7"))
}

func TestExecute_LabelUsageAndUnknownTarget(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Usage: /mute @username or /mute user_id", f.text(t, owner, "/mute"))
	assert.Equal(t, "User not found!", f.text(t, owner, "/mute @nobody"))
}

func TestExecute_Switches(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "🔌 Bot disabled! Use /resume to turn it back on.", f.text(t, owner, "/stop"))
	assert.False(t, f.registry.Enabled())
	assert.Equal(t, "✅ Bot is back online! 💕", f.text(t, owner, "/resume"))
	assert.True(t, f.registry.Enabled())

	assert.Equal(t, "🔇 Group auto-reply DISABLED!", f.text(t, owner, "/groupoff"))
	assert.False(t, f.registry.GroupAutoReply())
	assert.Equal(t, "✅ Group auto-reply ENABLED!", f.text(t, owner, "/groupon"))
	assert.True(t, f.registry.GroupAutoReply())
}

func TestExecute_Start(t *testing.T) {
	reg := moderation.New(nil)
	sessions := conversation.NewManager()
	wf := consent.NewWorkflow(reg)
	exec, err := admin.NewExecutor(reg, sessions, stubDecider{}, wf)
	require.NoError(t, err)

	start, _ := admin.Parse("/start")
	first := chat.Inbound{SenderID: "5", Kind: chat.KindDirect, ReplyTo: "5"}

	out := exec.Execute(t.Context(), first, start)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "You're my admin now!")
	assert.Equal(t, "5", reg.Approver())
	assert.True(t, reg.IsAdmin("5"))

	second := chat.Inbound{SenderID: "6", Kind: chat.KindDirect, ReplyTo: "6"}
	out = exec.Execute(t.Context(), second, start)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "Welcome back")
	assert.Equal(t, "5", reg.Approver())

	inGroup := chat.Inbound{SenderID: "6", Kind: chat.KindGroup, ChatID: "-1", ReplyTo: chat.GroupChannel("-1")}
	assert.Empty(t, exec.Execute(t.Context(), inGroup, start))
}

func TestExecute_UserCommands(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.text(t, user, "/help"), "NAINA COMMAND GUIDE")
	assert.Equal(t, "🎲 You rolled: 1", f.text(t, user, "/dice"))
	assert.Equal(t, "💕 Love Meter: 1%", f.text(t, user, "/lovetest"))
	assert.Contains(t, f.text(t, user, "/flip"), "Flip result: ")
	assert.Contains(t, f.text(t, user, "/joke"), "😂 ")

	require.NoError(t, f.registry.Add(moderation.LabelAffectionateTarget, user))
	info := f.text(t, user, "/myinfo")
	assert.Contains(t, info, "👤 User ID: 42")
	assert.Contains(t, info, "👑 Admin: ❌ No")
	assert.Contains(t, info, "❤️ Lover: ❤️ Yes")
}

func TestExecute_Clear(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "No chat history to clear!", f.text(t, user, "/clear"))
	f.sessions.AppendExchange(user, conversation.ModeDirect, "Ravi: hi", "hello")
	assert.Equal(t, "🧹 Your chat history cleared!", f.text(t, user, "/clear"))
	assert.Empty(t, f.sessions.Transcript(user, conversation.ModeDirect))
}

func TestExecute_StatusAndUsers(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "No users yet!", f.text(t, owner, "/listusers"))

	f.sessions.AppendExchange("42", conversation.ModeDirect, "a", "b")
	f.sessions.AppendExchange("43", conversation.ModeSensitive, "a", "b")
	f.sessions.AppendExchange("-5", conversation.ModeGroup, "a", "b")
	f.clock = f.clock.Add(2*time.Hour + 5*time.Minute)

	status := f.text(t, owner, "/status")
	assert.Contains(t, status, "✅ Status: Active")
	assert.Contains(t, status, "⏰ Uptime: 2h 5m")
	assert.Contains(t, status, "👥 Total Users: 2")
	assert.Contains(t, status, "groups=1")
	assert.Contains(t, status, "total=2")

	assert.Equal(t, "👥 **TOTAL USERS (2):**\n42\n43", f.text(t, owner, "/listusers"))
}

func TestExecute_ViewChat(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "User not found or has no history!", f.text(t, owner, "/viewchat 42"))

	for i := range 15 {
		f.sessions.AppendExchange("42", conversation.ModeDirect, fmt.Sprintf("Ravi: q%d", i), fmt.Sprintf("a%d", i))
	}
	out := f.text(t, owner, "/viewchat 42")
	assert.Contains(t, out, "📜 Last 20 messages with 42:")
	assert.Contains(t, out, "**model:** a14")
	assert.NotContains(t, out, "q4\n", "older turns are trimmed")
	assert.Contains(t, out, "**user:** Ravi: q5")
}

func TestExecute_Admins(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "✅ Admin 3000 added!", f.text(t, staff, "/addadmin 3000"))
	assert.True(t, f.registry.IsAdmin("3000"))
	assert.Equal(t, "Invalid user ID!", f.text(t, staff, "/addadmin @nobody"))
	assert.Equal(t, "Usage: /addadmin <user_id>", f.text(t, staff, "/addadmin"))

	// Only the approver removes admins.
	assert.Equal(t, rude(), f.text(t, staff, "/removeadmin 3000"))
	assert.Equal(t, "✅ Admin 3000 removed!", f.text(t, owner, "/removeadmin 3000"))
	assert.False(t, f.registry.IsAdmin("3000"))
	assert.Equal(t, "The approver always stays an admin!", f.text(t, owner, "/removeadmin 1000"))

	assert.Equal(t, "👑 **ADMINS:**\n1000\n2000", f.text(t, owner, "/listadmins"))
}

func TestExecute_ApproveAndDeny(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "No pending request from 7!", f.text(t, owner, "/approve 7"))

	_, created := f.workflow.Open(consent.PendingRequest{
		Identity:    "7",
		DisplayName: "Ravi",
		Text:        "kiss me",
		ReplyTo:     chat.DirectChannel("7"),
	})
	require.True(t, created)

	// Admins who are not the approver cannot decide.
	assert.Equal(t, rude(), f.text(t, staff, "/approve 7"))

	out := f.run(t, owner, "/approve 7")
	require.Len(t, out, 2)
	assert.Equal(t, "✅ Naughty talk approved for 7! 🔥", out[0].Text)
	assert.Equal(t, chat.DirectChannel("7"), out[1].To)
	assert.Equal(t, "mmm", out[1].Text)
	assert.Equal(t, consent.StateGranted, f.workflow.State("7"))

	f.workflow.Open(consent.PendingRequest{Identity: "8", Text: "sexy", ReplyTo: chat.DirectChannel("8")})
	out = f.run(t, owner, "/deny 8")
	require.Len(t, out, 2)
	assert.Equal(t, "❌ Naughty talk denied for 8.", out[0].Text)
	assert.Equal(t, persona.DenialReply, out[1].Text)
}

func TestExecute_SetConsent(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Usage: /setconsent <user_id> on|off", f.text(t, owner, "/setconsent 7"))
	assert.Equal(t, "Usage: /setconsent <user_id> on|off", f.text(t, owner, "/setconsent 7 maybe"))
	assert.Equal(t, "No decision to change for 7! Use /approve or /deny first.", f.text(t, owner, "/setconsent 7 on"))

	f.workflow.Open(consent.PendingRequest{Identity: "7", Text: "kiss me", ReplyTo: chat.DirectChannel("7")})
	assert.Equal(t, "No decision to change for 7! Use /approve or /deny first.", f.text(t, owner, "/setconsent 7 off"))
	assert.Equal(t, consent.StatePending, f.workflow.State("7"))

	_, err := f.workflow.Deny("7")
	require.NoError(t, err)

	assert.Equal(t, rude(), f.text(t, staff, "/setconsent 7 on"))
	assert.Equal(t, consent.StateDenied, f.workflow.State("7"))

	assert.Equal(t, "🔥 Naughty talk switched ON for 7.", f.text(t, owner, "/setconsent 7 ON"))
	assert.Equal(t, consent.StateGranted, f.workflow.State("7"))

	assert.Equal(t, "🔒 Naughty talk switched OFF for 7.", f.text(t, owner, "/setconsent 7 off"))
	assert.Equal(t, consent.StateDenied, f.workflow.State("7"))
	granted, recorded := f.registry.Consent("7")
	assert.False(t, granted)
	assert.True(t, recorded)
}

func TestExecute_ForgetConsent(t *testing.T) {
	f := newFixture(t)

	_, created := f.workflow.Open(consent.PendingRequest{Identity: "7", ReplyTo: chat.DirectChannel("7")})
	require.True(t, created)
	_, err := f.workflow.Approve("7")
	require.NoError(t, err)
	f.workflow.Open(consent.PendingRequest{Identity: "8", ReplyTo: chat.DirectChannel("8")})

	assert.Equal(t, rude(), f.text(t, staff, "/forgetconsent 7"))
	assert.Equal(t, consent.StateGranted, f.workflow.State("7"))
	assert.Equal(t, "Usage: /forgetconsent <user_id>", f.text(t, owner, "/forgetconsent"))

	assert.Equal(t, "🧹 Consent record forgotten for 7.", f.text(t, owner, "/forgetconsent 7"))
	assert.Equal(t, consent.StateNoRecord, f.workflow.State("7"))
	_, recorded := f.registry.Consent("7")
	assert.False(t, recorded)

	assert.Equal(t, "🧹 Consent record forgotten for 8.", f.text(t, owner, "/forgetconsent 8"))
	_, pending := f.workflow.Pending("8")
	assert.False(t, pending)
}

func TestExecute_Reset(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Add(moderation.LabelMuted, "7"))
	f.sessions.AppendExchange("42", conversation.ModeDirect, "a", "b")
	f.workflow.Open(consent.PendingRequest{Identity: "9"})

	assert.Equal(t, "🔄 All data reset!", f.text(t, owner, "/reset"))

	assert.False(t, f.registry.IsMember(moderation.LabelMuted, "7"))
	assert.Empty(t, f.sessions.Transcript("42", conversation.ModeDirect))
	assert.Empty(t, f.workflow.PendingAll())
	assert.Equal(t, owner, f.registry.Approver())
}

func TestExecute_Restart(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "🔄 Restarting... bye! 👋", f.text(t, owner, "/restart"))
	assert.Equal(t, 1, f.restarts)
}

func TestExecute_Broadcast(t *testing.T) {
	f := newFixture(t)
	f.sessions.AppendExchange("42", conversation.ModeDirect, "a", "b")
	f.sessions.AppendExchange("43", conversation.ModeDirect, "a", "b")
	require.NoError(t, f.registry.TrackGroup("-5"))
	f.messenger.FailSendsTo(chat.DirectChannel("43"), errors.New("unreachable"))

	assert.Equal(t, "Usage: /broadcast <message>", f.text(t, owner, "/broadcast"))
	assert.Equal(t, "✅ Message sent to 2 users/groups!", f.text(t, owner, "/broadcast party tonight"))

	want := "📢 **BROADCAST FROM ADMIN:**\n\nparty tonight"
	assert.Equal(t, []string{want}, f.messenger.SentTo(chat.DirectChannel("42")))
	assert.Equal(t, []string{want}, f.messenger.SentTo(chat.GroupChannel("-5")))
}

type stubDecider struct{}

func (stubDecider) Approve(context.Context, string) ([]chat.Outbound, error) {
	return nil, consent.ErrNoPending
}

func (stubDecider) Deny(context.Context, string) ([]chat.Outbound, error) {
	return nil, consent.ErrNoPending
}

package admin

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/naina/internal/chat"
	"github.com/Veraticus/naina/internal/consent"
	"github.com/Veraticus/naina/internal/conversation"
	"github.com/Veraticus/naina/internal/moderation"
	"github.com/Veraticus/naina/internal/persona"
)

// defaultBroadcastLimit bounds concurrent broadcast sends.
const defaultBroadcastLimit = 8

// Sessions is the session store surface commands need.
type Sessions interface {
	Transcript(identity string, mode conversation.Mode) []conversation.Turn
	Clear(identity string, modes ...conversation.Mode) bool
	ClearAll()
	Identities(mode conversation.Mode) []string
	Stats() map[string]int
}

// Decider resolves consent requests and produces the follow-up replies.
// The router implements it.
type Decider interface {
	Approve(ctx context.Context, identity string) ([]chat.Outbound, error)
	Deny(ctx context.Context, identity string) ([]chat.Outbound, error)
}

// ConsentAdmin edits consent records directly. Reset drops pending requests.
type ConsentAdmin interface {
	Reset() error
	Override(identity string, granted bool) error
	Forget(identity string) error
}

// Executor runs parsed commands.
type Executor struct {
	registry       *moderation.Registry
	sessions       Sessions
	decider        Decider
	consent        ConsentAdmin
	directory      *Directory
	replies        *persona.Replies
	sender         chat.Sender
	shutdown       func()
	now            func() time.Time
	started        time.Time
	logger         *zap.Logger
	broadcastLimit int
}

// Option configures an Executor.
type Option func(*Executor) error

// NewExecutor creates an executor.
func NewExecutor(
	registry *moderation.Registry,
	sessions Sessions,
	decider Decider,
	consentAdmin ConsentAdmin,
	opts ...Option,
) (*Executor, error) {
	switch {
	case registry == nil:
		return nil, fmt.Errorf("executor creation failed: moderation registry is required")
	case sessions == nil:
		return nil, fmt.Errorf("executor creation failed: session store is required")
	case decider == nil:
		return nil, fmt.Errorf("executor creation failed: consent decider is required")
	case consentAdmin == nil:
		return nil, fmt.Errorf("executor creation failed: consent workflow is required")
	}

	e := &Executor{
		registry:       registry,
		sessions:       sessions,
		decider:        decider,
		consent:        consentAdmin,
		directory:      NewDirectory(),
		replies:        persona.NewReplies(nil),
		shutdown:       func() {},
		now:            time.Now,
		logger:         zap.NewNop(),
		broadcastLimit: defaultBroadcastLimit,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	e.started = e.now()
	e.logger = e.logger.With(zap.String("component", "admin"))
	return e, nil
}

// WithDirectory shares a username directory.
func WithDirectory(d *Directory) Option {
	return func(e *Executor) error {
		if d == nil {
			return fmt.Errorf("directory cannot be nil")
		}
		e.directory = d
		return nil
	}
}

// WithReplies sets the static reply source.
func WithReplies(r *persona.Replies) Option {
	return func(e *Executor) error {
		if r == nil {
			return fmt.Errorf("replies cannot be nil")
		}
		e.replies = r
		return nil
	}
}

// WithSender sets the transport used by broadcast.
func WithSender(s chat.Sender) Option {
	return func(e *Executor) error {
		e.sender = s
		return nil
	}
}

// WithShutdown sets the hook the restart command calls.
func WithShutdown(fn func()) Option {
	return func(e *Executor) error {
		if fn == nil {
			return fmt.Errorf("shutdown hook cannot be nil")
		}
		e.shutdown = fn
		return nil
	}
}

// WithClock overrides time.Now for uptime.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) error {
		e.now = now
		return nil
	}
}

// WithBroadcastLimit bounds concurrent broadcast sends.
func WithBroadcastLimit(n int) Option {
	return func(e *Executor) error {
		if n <= 0 {
			return fmt.Errorf("broadcast limit must be positive, got %d", n)
		}
		e.broadcastLimit = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		e.logger = logger
		return nil
	}
}

// Directory returns the username directory.
func (e *Executor) Directory() *Directory {
	return e.directory
}

// Execute runs cmd for msg and returns the replies. Blocked senders and
// unknown commands get nothing.
func (e *Executor) Execute(ctx context.Context, msg chat.Inbound, cmd Command) []chat.Outbound {
	sender := msg.SenderID
	if cmd.Kind == KindUnknown || e.registry.IsMember(moderation.LabelBlocked, sender) {
		return nil
	}
	if cmd.Kind.AdminOnly() && !e.registry.IsAdmin(sender) {
		e.logger.Info("Rejected admin command", zap.String("identity", sender), zap.String("command", cmd.Name))
		return reply(msg, e.replies.RudeRejection())
	}

	if op, ok := labelOps[cmd.Kind]; ok {
		return e.applyLabel(msg, cmd, op)
	}
	if op, ok := listOps[cmd.Kind]; ok {
		return reply(msg, formatList(op.header, op.empty, e.registry.Members(op.label)))
	}

	switch cmd.Kind {
	case KindStart:
		return e.start(msg)
	case KindHelp:
		return reply(msg, helpText)
	case KindMyInfo:
		return reply(msg, e.myInfo(sender))
	case KindClear:
		if e.sessions.Clear(sender) {
			return reply(msg, historyCleared)
		}
		return reply(msg, noHistory)
	case KindJoke:
		return reply(msg, e.replies.Joke())
	case KindQuote:
		return reply(msg, e.replies.Quote())
	case KindTip:
		return reply(msg, e.replies.Tip())
	case KindCompliment:
		return reply(msg, e.replies.Compliment())
	case KindFortune:
		return reply(msg, e.replies.Fortune())
	case KindDare:
		return reply(msg, e.replies.Dare())
	case KindTruth:
		return reply(msg, e.replies.Truth())
	case KindFlip:
		return reply(msg, e.replies.Flip())
	case KindDice:
		return reply(msg, e.replies.Dice())
	case KindLoveTest:
		return reply(msg, e.replies.LoveMeter())

	case KindPanel:
		return reply(msg, panelText)
	case KindStatus:
		return reply(msg, e.status())
	case KindStop:
		e.check("stop", e.registry.SetEnabled(false))
		return reply(msg, botStopped)
	case KindResume:
		e.check("resume", e.registry.SetEnabled(true))
		return reply(msg, botResumed)
	case KindGroupOn:
		e.check("group on", e.registry.SetGroupAutoReply(true))
		return reply(msg, groupEnabled)
	case KindGroupOff:
		e.check("group off", e.registry.SetGroupAutoReply(false))
		return reply(msg, groupOff)
	case KindReset:
		e.reset()
		return reply(msg, dataReset)
	case KindRestart:
		e.logger.Info("Restart requested", zap.String("identity", sender))
		e.shutdown()
		return reply(msg, restarting)
	case KindApprove, KindDeny:
		return e.decide(ctx, msg, cmd)
	case KindSetConsent:
		return e.setConsent(msg, cmd)
	case KindForgetConsent:
		return e.forgetConsent(msg, cmd)
	case KindAddAdmin:
		return e.addAdmin(msg, cmd)
	case KindRemoveAdmin:
		return e.removeAdmin(msg, cmd)
	case KindListAdmins:
		return reply(msg, formatList(adminsHeader, noAdmins, e.registry.Admins()))
	case KindViewChat:
		return e.viewChat(msg, cmd)
	case KindListUsers:
		users := e.users()
		if len(users) == 0 {
			return reply(msg, noUsers)
		}
		return reply(msg, fmt.Sprintf(usersHeader, len(users))+strings.Join(users, "\n"))
	case KindBroadcast:
		return e.broadcast(ctx, msg, cmd)
	}
	return nil
}

// start makes the first direct-chat user the approver.
func (e *Executor) start(msg chat.Inbound) []chat.Outbound {
	if msg.IsGroup() {
		return nil
	}
	if e.registry.Approver() == "" {
		e.check("bootstrap approver", e.registry.SetApprover(msg.SenderID))
		e.logger.Info("Approver bootstrapped", zap.String("identity", msg.SenderID))
		return reply(msg, welcomeAdmin)
	}
	return reply(msg, welcomeBack)
}

func (e *Executor) myInfo(identity string) string {
	flag := func(v bool, on string) string {
		if v {
			return on
		}
		return no
	}
	return fmt.Sprintf(myInfoFormat,
		identity,
		flag(e.registry.IsAdmin(identity), yes),
		flag(e.registry.IsMember(moderation.LabelBlocked, identity), yes),
		flag(e.registry.IsMember(moderation.LabelMuted, identity), yes),
		flag(e.registry.IsMember(moderation.LabelAffectionateTarget, identity), loverYes),
	)
}

func (e *Executor) status() string {
	state := "Inactive"
	if e.registry.Enabled() {
		state = "Active"
	}
	uptime := e.now().Sub(e.started)
	hours := int(uptime / time.Hour)
	mins := int((uptime % time.Hour) / time.Minute)
	return fmt.Sprintf(statusFormat, state, hours, mins, len(e.users()), formatStats(e.sessions.Stats()))
}

func (e *Executor) applyLabel(msg chat.Inbound, cmd Command, op labelOp) []chat.Outbound {
	if len(cmd.Args) == 0 {
		return reply(msg, fmt.Sprintf(targetUsage, cmd.Name, cmd.Name))
	}
	target, ok := e.directory.Resolve(cmd.Arg(0))
	if !ok {
		return reply(msg, userNotFound)
	}

	var err error
	if op.add {
		err = e.registry.Add(op.label, target)
	} else {
		err = e.registry.Remove(op.label, target)
	}
	e.check(cmd.Name, err)
	return reply(msg, fmt.Sprintf(op.done, target))
}

// decide approves or denies a consent request. Only the approver decides.
func (e *Executor) decide(ctx context.Context, msg chat.Inbound, cmd Command) []chat.Outbound {
	if msg.SenderID != e.registry.Approver() {
		return reply(msg, e.replies.RudeRejection())
	}
	if len(cmd.Args) == 0 {
		return reply(msg, fmt.Sprintf(adminUsage, cmd.Name))
	}
	target, ok := e.directory.Resolve(cmd.Arg(0))
	if !ok {
		return reply(msg, userNotFound)
	}

	decide, done := e.decider.Approve, consentGiven
	if cmd.Kind == KindDeny {
		decide, done = e.decider.Deny, consentDenied
	}

	out, err := decide(ctx, target)
	if errors.Is(err, consent.ErrNoPending) {
		return reply(msg, fmt.Sprintf(noPending, target))
	}
	e.check(cmd.Name, err)
	return append(reply(msg, fmt.Sprintf(done, target)), out...)
}

// setConsent flips a decided consent record. Pending requests go through
// /approve and /deny.
func (e *Executor) setConsent(msg chat.Inbound, cmd Command) []chat.Outbound {
	if msg.SenderID != e.registry.Approver() {
		return reply(msg, e.replies.RudeRejection())
	}
	if len(cmd.Args) < 2 {
		return reply(msg, setConsentUsage)
	}
	var granted bool
	switch strings.ToLower(cmd.Arg(1)) {
	case "on":
		granted = true
	case "off":
	default:
		return reply(msg, setConsentUsage)
	}
	target, ok := e.directory.Resolve(cmd.Arg(0))
	if !ok {
		return reply(msg, userNotFound)
	}

	err := e.consent.Override(target, granted)
	if errors.Is(err, consent.ErrInvalidTransition) {
		return reply(msg, fmt.Sprintf(noDecision, target))
	}
	e.check(cmd.Name, err)
	if granted {
		return reply(msg, fmt.Sprintf(consentSetOn, target))
	}
	return reply(msg, fmt.Sprintf(consentSetOff, target))
}

func (e *Executor) forgetConsent(msg chat.Inbound, cmd Command) []chat.Outbound {
	if msg.SenderID != e.registry.Approver() {
		return reply(msg, e.replies.RudeRejection())
	}
	if len(cmd.Args) == 0 {
		return reply(msg, fmt.Sprintf(adminUsage, cmd.Name))
	}
	target, ok := e.directory.Resolve(cmd.Arg(0))
	if !ok {
		return reply(msg, userNotFound)
	}
	e.check(cmd.Name, e.consent.Forget(target))
	return reply(msg, fmt.Sprintf(consentForgotten, target))
}

func (e *Executor) addAdmin(msg chat.Inbound, cmd Command) []chat.Outbound {
	if len(cmd.Args) == 0 {
		return reply(msg, fmt.Sprintf(adminUsage, cmd.Name))
	}
	target, ok := e.directory.Resolve(cmd.Arg(0))
	if !ok {
		return reply(msg, invalidUserID)
	}
	e.check(cmd.Name, e.registry.AddAdmin(target))
	return reply(msg, fmt.Sprintf(adminAdded, target))
}

// removeAdmin is reserved to the approver, who cannot be removed.
func (e *Executor) removeAdmin(msg chat.Inbound, cmd Command) []chat.Outbound {
	approver := e.registry.Approver()
	if msg.SenderID != approver {
		return reply(msg, e.replies.RudeRejection())
	}
	if len(cmd.Args) == 0 {
		return reply(msg, fmt.Sprintf(adminUsage, cmd.Name))
	}
	target, ok := e.directory.Resolve(cmd.Arg(0))
	if !ok {
		return reply(msg, invalidUserID)
	}
	if target == approver {
		return reply(msg, approverLocked)
	}
	e.check(cmd.Name, e.registry.RemoveAdmin(target))
	return reply(msg, fmt.Sprintf(adminRemoved, target))
}

func (e *Executor) viewChat(msg chat.Inbound, cmd Command) []chat.Outbound {
	if len(cmd.Args) == 0 {
		return reply(msg, fmt.Sprintf(targetUsage, cmd.Name, cmd.Name))
	}
	target, ok := e.directory.Resolve(cmd.Arg(0))
	if !ok {
		return reply(msg, viewChatEmpty)
	}
	turns := e.sessions.Transcript(target, conversation.ModeDirect)
	if len(turns) == 0 {
		return reply(msg, viewChatEmpty)
	}
	if len(turns) > viewChatLimit {
		turns = turns[len(turns)-viewChatLimit:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, viewChatHeader, viewChatLimit, target)
	for _, t := range turns {
		fmt.Fprintf(&b, viewChatLine, t.Role, t.Text)
	}
	return reply(msg, strings.TrimRight(b.String(), "\n"))
}

// broadcast fans a message out to every known user and tracked group.
// Failed sends are logged and not counted.
func (e *Executor) broadcast(ctx context.Context, msg chat.Inbound, cmd Command) []chat.Outbound {
	if cmd.Rest == "" {
		return reply(msg, broadcastUsage)
	}
	if e.sender == nil {
		e.logger.Warn("Broadcast requested without a transport")
		return reply(msg, fmt.Sprintf(broadcastDone, 0))
	}

	targets := make([]chat.Channel, 0)
	for _, id := range e.users() {
		targets = append(targets, chat.DirectChannel(id))
	}
	for _, g := range e.registry.TrackedGroups() {
		targets = append(targets, chat.GroupChannel(g))
	}

	text := fmt.Sprintf(broadcastFormat, cmd.Rest)
	var sent atomic.Int64
	var g errgroup.Group
	g.SetLimit(e.broadcastLimit)
	for _, to := range targets {
		g.Go(func() error {
			if err := e.sender.Send(ctx, to, text); err != nil {
				e.logger.Warn("Broadcast send failed", zap.String("to", string(to)), zap.Error(err))
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Info("Broadcast finished", zap.Int("targets", len(targets)), zap.Int64("sent", sent.Load()))
	return reply(msg, fmt.Sprintf(broadcastDone, sent.Load()))
}

// reset clears labels, consent and every transcript.
func (e *Executor) reset() {
	e.check("reset", e.registry.Reset())
	e.check("reset consent", e.consent.Reset())
	e.sessions.ClearAll()
	e.logger.Info("All data reset")
}

// users lists identities with a private transcript.
func (e *Executor) users() []string {
	seen := make(map[string]bool)
	for _, mode := range []conversation.Mode{conversation.ModeDirect, conversation.ModeSensitive} {
		for _, id := range e.sessions.Identities(mode) {
			seen[id] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// check logs persistence failures. The change stays applied in memory and
// the registry retries on its next write.
func (e *Executor) check(op string, err error) {
	if err != nil {
		e.logger.Warn("Command state not persisted", zap.String("op", op), zap.Error(err))
	}
}

func formatList(header, empty string, members []string) string {
	if len(members) == 0 {
		return empty
	}
	return header + "\n" + strings.Join(members, "\n")
}

func formatStats(stats map[string]int) string {
	parts := make([]string, 0, len(stats))
	for _, k := range slices.Sorted(maps.Keys(stats)) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, stats[k]))
	}
	return strings.Join(parts, " ")
}

func reply(msg chat.Inbound, text string) []chat.Outbound {
	return []chat.Outbound{{To: msg.ReplyTo, Text: text}}
}

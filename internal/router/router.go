// Package router decides how Naina answers each inbound message: which
// conversation it belongs to, which persona speaks, and whether moderation
// or consent rules short-circuit the reply.
package router

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Veraticus/naina/internal/chat"
	"github.com/Veraticus/naina/internal/classify"
	"github.com/Veraticus/naina/internal/consent"
	"github.com/Veraticus/naina/internal/conversation"
	"github.com/Veraticus/naina/internal/moderation"
	"github.com/Veraticus/naina/internal/persona"
)

// Generator produces a reply for a transcript. The provider gateway
// implements it.
type Generator interface {
	Generate(ctx context.Context, turns []conversation.Turn, persona string, temperature float32) (string, error)
}

// Moderation is the subset of the moderation registry the router reads.
type Moderation interface {
	Enabled() bool
	GroupAutoReply() bool
	TrackGroup(groupID string) error
	IsMember(label moderation.Label, identity string) bool
	Approver() string
}

// Consent is the consent workflow surface the router drives.
type Consent interface {
	State(identity string) consent.State
	Open(req consent.PendingRequest) (consent.PendingRequest, bool)
	Approve(identity string) (consent.PendingRequest, error)
	Deny(identity string) (consent.PendingRequest, error)
}

// Router turns inbound messages into outbound replies.
type Router struct {
	gateway    Generator
	sessions   conversation.SessionStore
	moderation Moderation
	consent    Consent
	classifier *classify.Classifier
	personas   *persona.Library
	replies    *persona.Replies
	logger     *zap.Logger
	locks      *keyedMutex
}

// Option configures a Router.
type Option func(*Router) error

// New creates a router. Sessions, moderation and consent are required.
func New(gateway Generator, opts ...Option) (*Router, error) {
	if gateway == nil {
		return nil, fmt.Errorf("router creation failed: generator is required")
	}

	r := &Router{
		gateway:    gateway,
		classifier: classify.Default(),
		replies:    persona.NewReplies(nil),
		logger:     zap.NewNop(),
		locks:      newKeyedMutex(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	switch {
	case r.sessions == nil:
		return nil, fmt.Errorf("router creation failed: session store is required")
	case r.moderation == nil:
		return nil, fmt.Errorf("router creation failed: moderation registry is required")
	case r.consent == nil:
		return nil, fmt.Errorf("router creation failed: consent workflow is required")
	}

	if r.personas == nil {
		lib, err := persona.NewLibrary(r.logger)
		if err != nil {
			return nil, fmt.Errorf("router creation failed: %w", err)
		}
		r.personas = lib
	}
	r.logger = r.logger.With(zap.String("component", "router"))
	return r, nil
}

// WithSessions sets the session store.
func WithSessions(store conversation.SessionStore) Option {
	return func(r *Router) error {
		if store == nil {
			return fmt.Errorf("session store cannot be nil")
		}
		r.sessions = store
		return nil
	}
}

// WithModeration sets the moderation registry.
func WithModeration(m Moderation) Option {
	return func(r *Router) error {
		if m == nil {
			return fmt.Errorf("moderation registry cannot be nil")
		}
		r.moderation = m
		return nil
	}
}

// WithConsent sets the consent workflow.
func WithConsent(c Consent) Option {
	return func(r *Router) error {
		if c == nil {
			return fmt.Errorf("consent workflow cannot be nil")
		}
		r.consent = c
		return nil
	}
}

// WithClassifier replaces the default keyword classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(r *Router) error {
		if c == nil {
			return fmt.Errorf("classifier cannot be nil")
		}
		r.classifier = c
		return nil
	}
}

// WithPersonas sets the persona library.
func WithPersonas(lib *persona.Library) Option {
	return func(r *Router) error {
		if lib == nil {
			return fmt.Errorf("persona library cannot be nil")
		}
		r.personas = lib
		return nil
	}
}

// WithReplies sets the static reply source.
func WithReplies(replies *persona.Replies) Option {
	return func(r *Router) error {
		if replies == nil {
			return fmt.Errorf("replies cannot be nil")
		}
		r.replies = replies
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// Silent reports whether Handle would drop msg without any reply: the bot
// is stopped, group auto-reply is off, or the sender is blocked or muted.
// It has no side effects.
func (r *Router) Silent(msg chat.Inbound) bool {
	if !r.moderation.Enabled() {
		return true
	}
	if msg.IsGroup() && !r.moderation.GroupAutoReply() {
		return true
	}
	return r.moderation.IsMember(moderation.LabelBlocked, msg.SenderID) ||
		r.moderation.IsMember(moderation.LabelMuted, msg.SenderID)
}

// Handle routes one message. It never returns an error: every failure is
// turned into a static reply or silence.
func (r *Router) Handle(ctx context.Context, msg chat.Inbound) []chat.Outbound {
	if !r.moderation.Enabled() {
		return nil
	}

	if msg.IsGroup() {
		if err := r.moderation.TrackGroup(msg.ChatID); err != nil {
			r.logger.Warn("Failed to persist tracked group", zap.String("group", msg.ChatID), zap.Error(err))
		}
	}
	if r.Silent(msg) {
		return nil
	}

	sender := msg.SenderID

	if r.moderation.IsMember(moderation.LabelHostileTarget, sender) {
		return reply(msg, r.replies.Taunt(msg.Name("User")))
	}

	tags := r.classifier.Classify(msg.Text)

	if tags.Hostile {
		return reply(msg, r.hostile(ctx, msg))
	}

	if tags.Advice {
		r.sessions.RecordPreference(sender, msg.Text)
	}

	if tags.Sensitive {
		return r.sensitive(ctx, msg)
	}

	if msg.IsGroup() {
		text := r.converse(ctx, exchange{
			key:  msg.ChatID,
			mode: conversation.ModeGroup,
			kind: persona.KindGroup,
			text: formatTurn(msg.Name("User"), msg.Text),
		})
		return reply(msg, text)
	}

	kind, name := persona.KindDefault, msg.Name("Cutie")
	if r.moderation.IsMember(moderation.LabelAffectionateTarget, sender) {
		kind, name = persona.KindAffectionate, msg.Name("Baby")
	}
	text := r.converse(ctx, exchange{
		key:         sender,
		mode:        conversation.ModeDirect,
		kind:        kind,
		text:        formatTurn(name, msg.Text),
		preferences: true,
	})
	return reply(msg, text)
}

// hostile answers an insult with a single-turn comeback. Nothing is
// recorded in the session store.
func (r *Router) hostile(ctx context.Context, msg chat.Inbound) string {
	prompt := r.replies.HostileMessage(msg.Name("User"), msg.Text)
	turns := []conversation.Turn{{Role: conversation.RoleUser, Text: prompt}}

	text, err := r.gateway.Generate(ctx, turns, r.personas.Prompt(persona.KindHostile, nil), persona.KindHostile.Temperature())
	if err != nil {
		r.logFailure(msg.SenderID, persona.KindHostile, err)
		return persona.KindHostile.Fallback()
	}
	return text
}

// sensitive applies the consent gate.
func (r *Router) sensitive(ctx context.Context, msg chat.Inbound) []chat.Outbound {
	sender := msg.SenderID

	// Sensitive conversation is private only.
	if msg.IsGroup() {
		return reply(msg, r.replies.GentleRejection())
	}

	unlock := r.locks.Lock(sender)
	if r.moderation.IsMember(moderation.LabelConsentBlocked, sender) {
		unlock()
		return reply(msg, r.replies.GentleRejection())
	}

	switch state := r.consent.State(sender); state {
	case consent.StateGranted:
		unlock()
		text := r.converse(ctx, exchange{
			key:         sender,
			mode:        conversation.ModeSensitive,
			kind:        persona.KindSensitive,
			text:        formatTurn(msg.Name("Baby"), msg.Text),
			preferences: true,
		})
		return reply(msg, text)

	case consent.StatePending:
		unlock()
		return reply(msg, persona.Placeholder)

	case consent.StateNoRecord:
		defer unlock()
		return r.requestConsent(msg)

	default:
		unlock()
		return reply(msg, r.replies.GentleRejection())
	}
}

// requestConsent opens a request and notifies the approver. Callers hold the
// sender's lock.
func (r *Router) requestConsent(msg chat.Inbound) []chat.Outbound {
	approver := r.moderation.Approver()
	if approver == "" {
		r.logger.Warn("Sensitive request with no approver configured", zap.String("identity", msg.SenderID))
		return reply(msg, r.replies.GentleRejection())
	}

	name := msg.Name(msg.SenderID)
	req, created := r.consent.Open(consent.PendingRequest{
		Identity:    msg.SenderID,
		DisplayName: name,
		Text:        msg.Text,
		ReplyTo:     msg.ReplyTo,
		MessageRef:  msg.ID,
	})

	out := reply(msg, persona.Placeholder)
	if created {
		out = append(out, chat.Outbound{
			To:   chat.DirectChannel(approver),
			Text: r.replies.ApprovalNotice(name, req.Identity, req.Text),
		})
	}
	return out
}

// Approve grants the pending request for identity and generates the
// deferred sensitive reply from the stored text.
func (r *Router) Approve(ctx context.Context, identity string) ([]chat.Outbound, error) {
	req, err := r.consent.Approve(identity)
	if errors.Is(err, consent.ErrNoPending) {
		return nil, err
	}
	if err != nil {
		r.logger.Warn("Consent approval not persisted", zap.String("identity", identity), zap.Error(err))
	}

	if r.moderation.IsMember(moderation.LabelBlocked, identity) {
		return nil, nil
	}
	out := chat.Outbound{To: req.ReplyTo}
	if r.moderation.IsMember(moderation.LabelConsentBlocked, identity) {
		out.Text = r.replies.GentleRejection()
		return []chat.Outbound{out}, nil
	}

	name := req.DisplayName
	if name == "" {
		name = "Baby"
	}
	out.Text = r.converse(ctx, exchange{
		key:         identity,
		mode:        conversation.ModeSensitive,
		kind:        persona.KindSensitive,
		text:        formatTurn(name, req.Text),
		preferences: true,
	})
	return []chat.Outbound{out}, nil
}

// Deny refuses the pending request for identity.
func (r *Router) Deny(_ context.Context, identity string) ([]chat.Outbound, error) {
	req, err := r.consent.Deny(identity)
	if errors.Is(err, consent.ErrNoPending) {
		return nil, err
	}
	if err != nil {
		r.logger.Warn("Consent denial not persisted", zap.String("identity", identity), zap.Error(err))
	}

	if r.moderation.IsMember(moderation.LabelBlocked, identity) {
		return nil, nil
	}
	return []chat.Outbound{{To: req.ReplyTo, Text: persona.DenialReply}}, nil
}

// exchange describes one generated turn.
type exchange struct {
	key         string
	mode        conversation.Mode
	kind        persona.Kind
	text        string
	preferences bool
}

// converse snapshots the transcript, calls the gateway without holding the
// identity lock, then appends both turns.
func (r *Router) converse(ctx context.Context, ex exchange) string {
	unlock := r.locks.Lock(lockKey(ex.mode, ex.key))
	transcript := r.sessions.Transcript(ex.key, ex.mode)
	var prefs []string
	if ex.preferences {
		prefs = r.sessions.Preferences(ex.key)
	}
	unlock()

	turns := append(transcript, conversation.Turn{Role: conversation.RoleUser, Text: ex.text})
	if limit := ex.mode.Cap(); len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	text, err := r.gateway.Generate(ctx, turns, r.personas.Prompt(ex.kind, prefs), ex.kind.Temperature())
	if err != nil {
		r.logFailure(ex.key, ex.kind, err)
		text = ex.kind.Fallback()
	}

	unlock = r.locks.Lock(lockKey(ex.mode, ex.key))
	r.sessions.AppendExchange(ex.key, ex.mode, ex.text, text)
	unlock()

	return text
}

func (r *Router) logFailure(key string, kind persona.Kind, err error) {
	r.logger.Warn("Generation failed, using static reply",
		zap.String("key", key),
		zap.String("persona", string(kind)),
		zap.String("reason", string(classifyFailure(err))),
		zap.Error(err),
	)
}

// lockKey separates group conversations from identities that might share
// an identifier.
func lockKey(mode conversation.Mode, key string) string {
	if mode == conversation.ModeGroup {
		return "group:" + key
	}
	return key
}

// formatTurn renders a user turn the way it is stored and sent.
func formatTurn(name, text string) string {
	return name + ": " + text
}

func reply(msg chat.Inbound, text string) []chat.Outbound {
	return []chat.Outbound{{To: msg.ReplyTo, Text: text}}
}

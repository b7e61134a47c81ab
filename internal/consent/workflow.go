package consent

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Veraticus/naina/internal/chat"
)

// Decisions is the durable record of approver decisions.
type Decisions interface {
	SetConsent(identity string, granted bool) error
	ClearConsent(identity string) error
	ClearAllConsent() error
	Consent(identity string) (granted bool, recorded bool)
}

// PendingRequest is an open request waiting for the approver.
type PendingRequest struct {
	CreatedAt   time.Time
	ID          string
	Identity    string
	DisplayName string
	Text        string
	ReplyTo     chat.Channel
	MessageRef  string
}

// Workflow serializes consent transitions. Pending requests live in memory;
// decisions go to the Decisions store.
type Workflow struct {
	decisions Decisions
	pending   map[string]PendingRequest
	logger    *zap.Logger
	now       func() time.Time
	mu        sync.Mutex
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the workflow logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWorkflow creates a workflow over decisions.
func NewWorkflow(decisions Decisions, opts ...Option) *Workflow {
	w := &Workflow{
		decisions: decisions,
		pending:   make(map[string]PendingRequest),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "consent"))
	return w
}

// State returns the identity's current state.
func (w *Workflow) State(identity string) State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked(identity)
}

func (w *Workflow) stateLocked(identity string) State {
	if _, ok := w.pending[identity]; ok {
		return StatePending
	}
	granted, recorded := w.decisions.Consent(identity)
	switch {
	case !recorded:
		return StateNoRecord
	case granted:
		return StateGranted
	default:
		return StateDenied
	}
}

// Open creates a request when the identity has no record. Otherwise it
// returns the request already in flight (if any) and false.
func (w *Workflow) Open(req PendingRequest) (PendingRequest, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if state := w.stateLocked(req.Identity); state != StateNoRecord {
		return w.pending[req.Identity], false
	}

	req.ID = uuid.NewString()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = w.now()
	}
	w.pending[req.Identity] = req

	w.logger.Info("Consent request opened",
		zap.String("identity", req.Identity),
		zap.String("request_id", req.ID),
	)
	return req, true
}

// Approve grants the open request.
func (w *Workflow) Approve(identity string) (PendingRequest, error) {
	return w.decide(identity, true)
}

// Deny refuses the open request.
func (w *Workflow) Deny(identity string) (PendingRequest, error) {
	return w.decide(identity, false)
}

// decide closes the open request. The request is removed even when the
// decision fails to persist; the error is returned alongside it.
func (w *Workflow) decide(identity string, granted bool) (PendingRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	req, ok := w.pending[identity]
	if !ok {
		return PendingRequest{}, fmt.Errorf("%w for %s", ErrNoPending, identity)
	}

	delete(w.pending, identity)
	err := w.decisions.SetConsent(identity, granted)

	w.logger.Info("Consent request decided",
		zap.String("identity", identity),
		zap.String("request_id", req.ID),
		zap.Bool("granted", granted),
		zap.Duration("waited", w.now().Sub(req.CreatedAt)),
	)
	if err != nil {
		return req, fmt.Errorf("failed to record consent decision: %w", err)
	}
	return req, nil
}

// Override flips an existing decision.
func (w *Workflow) Override(identity string, granted bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	from := w.stateLocked(identity)
	to := StateDenied
	if granted {
		to = StateGranted
	}
	if from == to {
		return nil
	}
	if !CanTransition(from, to) || from == StatePending {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return w.decisions.SetConsent(identity, granted)
}

// Forget drops any pending request and decision for identity.
func (w *Workflow) Forget(identity string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.pending, identity)
	return w.decisions.ClearConsent(identity)
}

// Reset drops every pending request and decision.
func (w *Workflow) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = make(map[string]PendingRequest)
	return w.decisions.ClearAllConsent()
}

// Pending returns the open request for identity.
func (w *Workflow) Pending(identity string) (PendingRequest, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	req, ok := w.pending[identity]
	return req, ok
}

// PendingAll returns every open request, oldest first.
func (w *Workflow) PendingAll() []PendingRequest {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]PendingRequest, 0, len(w.pending))
	for _, req := range w.pending {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Identity < out[j].Identity
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Package keepalive periodically tells the approver the bot is still up.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Veraticus/naina/internal/chat"
	"github.com/Veraticus/naina/internal/persona"
)

// DefaultInterval is the heartbeat period when none is configured.
const DefaultInterval = 10 * time.Minute

// ApproverSource reports the current approver identity.
type ApproverSource interface {
	Approver() string
}

// Service sends a heartbeat to the approver's direct channel.
type Service struct {
	sender   chat.Sender
	approver ApproverSource
	logger   *zap.Logger
	now      func() time.Time
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// Option configures a Service.
type Option func(*Service) error

// WithInterval sets the heartbeat period.
func WithInterval(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return fmt.Errorf("interval must be positive, got %s", d)
		}
		s.interval = d
		return nil
	}
}

// WithClock overrides the time source used for the message timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		s.now = now
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// New creates a heartbeat service.
func New(sender chat.Sender, approver ApproverSource, opts ...Option) (*Service, error) {
	if sender == nil || approver == nil {
		return nil, errors.New("keepalive requires a sender and an approver source")
	}
	s := &Service{
		sender:   sender,
		approver: approver,
		logger:   zap.NewNop(),
		now:      time.Now,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With(zap.String("component", "keepalive"))
	return s, nil
}

// Start begins sending heartbeats.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(runCtx, s.done)
	return nil
}

// Stop halts the service and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether the service is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		close(done)
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Beat(ctx)
		}
	}
}

// Beat sends one heartbeat. It does nothing while no approver is set.
func (s *Service) Beat(ctx context.Context) {
	approver := s.approver.Approver()
	if approver == "" {
		s.logger.Debug("No approver, skipping heartbeat")
		return
	}

	text := fmt.Sprintf(persona.KeepAlive, s.now().Format(time.TimeOnly))
	if err := s.sender.Send(ctx, chat.DirectChannel(approver), text); err != nil {
		s.logger.Warn("Heartbeat failed", zap.Error(err))
	}
}

// Package queue consumes inbound messages from a transport, applies
// per-identity rate limits, bounds concurrent work and delivers replies.
package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Veraticus/naina/internal/admin"
	"github.com/Veraticus/naina/internal/chat"
)

const (
	defaultMaxInFlight     = 8
	defaultCleanupInterval = 10 * time.Minute
	defaultStaleAfter      = 30 * time.Minute
)

// Handler answers conversational messages. The router implements it.
type Handler interface {
	Handle(ctx context.Context, msg chat.Inbound) []chat.Outbound
}

// Gate is implemented by handlers that can tell ahead of time that a
// message will get no reply. No typing indicator is shown for such messages.
type Gate interface {
	Silent(msg chat.Inbound) bool
}

// CommandExecutor answers slash commands.
type CommandExecutor interface {
	Execute(ctx context.Context, msg chat.Inbound, cmd admin.Command) []chat.Outbound
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Received     int64
	Dropped      int64
	Handled      int64
	Commands     int64
	Sent         int64
	SendFailures int64
	Panics       int64
}

// Dispatcher pumps one messenger.
type Dispatcher struct {
	messenger       chat.Messenger
	handler         Handler
	commands        CommandExecutor
	limiter         *RateLimiter
	observe         func(chat.Inbound)
	panicHandler    PanicHandler
	logger          *zap.Logger
	maxInFlight     int64
	cleanupInterval time.Duration
	staleAfter      time.Duration

	received     atomic.Int64
	dropped      atomic.Int64
	handled      atomic.Int64
	commandsRun  atomic.Int64
	sent         atomic.Int64
	sendFailures atomic.Int64
	panics       atomic.Int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// NewDispatcher creates a dispatcher.
func NewDispatcher(messenger chat.Messenger, handler Handler, opts ...Option) (*Dispatcher, error) {
	if messenger == nil {
		return nil, fmt.Errorf("dispatcher creation failed: messenger is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("dispatcher creation failed: handler is required")
	}

	d := &Dispatcher{
		messenger:       messenger,
		handler:         handler,
		observe:         func(chat.Inbound) {},
		logger:          zap.NewNop(),
		maxInFlight:     defaultMaxInFlight,
		cleanupInterval: defaultCleanupInterval,
		staleAfter:      defaultStaleAfter,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	d.logger = d.logger.With(zap.String("component", "dispatcher"))
	if d.panicHandler == nil {
		d.panicHandler = NewLogPanicHandler(d.logger)
	}
	return d, nil
}

// WithCommands routes slash commands to exec.
func WithCommands(exec CommandExecutor) Option {
	return func(d *Dispatcher) error {
		d.commands = exec
		return nil
	}
}

// WithRateLimiter drops messages from identities over their allowance.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(d *Dispatcher) error {
		d.limiter = rl
		return nil
	}
}

// WithMaxInFlight bounds concurrently handled messages.
func WithMaxInFlight(n int) Option {
	return func(d *Dispatcher) error {
		if n <= 0 {
			return fmt.Errorf("max in flight must be positive, got %d", n)
		}
		d.maxInFlight = int64(n)
		return nil
	}
}

// WithObserver sees every inbound message before rate limiting.
func WithObserver(fn func(chat.Inbound)) Option {
	return func(d *Dispatcher) error {
		if fn == nil {
			return fmt.Errorf("observer cannot be nil")
		}
		d.observe = fn
		return nil
	}
}

// WithPanicHandler replaces the logging panic handler.
func WithPanicHandler(h PanicHandler) Option {
	return func(d *Dispatcher) error {
		if h == nil {
			return fmt.Errorf("panic handler cannot be nil")
		}
		d.panicHandler = h
		return nil
	}
}

// WithLimiterCleanup sets how often idle rate-limit buckets are dropped.
func WithLimiterCleanup(interval, staleAfter time.Duration) Option {
	return func(d *Dispatcher) error {
		if interval <= 0 || staleAfter <= 0 {
			return fmt.Errorf("limiter cleanup durations must be positive")
		}
		d.cleanupInterval = interval
		d.staleAfter = staleAfter
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		d.logger = logger
		return nil
	}
}

// Run consumes messages until ctx is done or the transport closes. Messages
// already being handled run to completion, replies included, before Run
// returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	in, err := d.messenger.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	sem := semaphore.NewWeighted(d.maxInFlight)
	work := context.WithoutCancel(ctx)
	var wg sync.WaitGroup

	stopCleanup := d.startCleanup(ctx)
	defer stopCleanup()

	d.logger.Info("Dispatcher started", zap.Int64("max_in_flight", d.maxInFlight))
	defer func() {
		wg.Wait()
		d.logger.Info("Dispatcher stopped", zap.Any("stats", d.Stats()))
	}()

	for {
		var msg chat.Inbound
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case msg, ok = <-in:
			if !ok {
				return nil
			}
		}

		d.received.Add(1)
		d.observe(msg)

		if d.limiter != nil && !d.limiter.Allow(msg.SenderID) {
			d.dropped.Add(1)
			d.logger.Debug("Rate limited", zap.String("identity", msg.SenderID))
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return nil
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			d.process(work, msg)
		}()
	}
}

// process handles one message and delivers its replies.
func (d *Dispatcher) process(ctx context.Context, msg chat.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			d.panics.Add(1)
			handleRecovered(msg.ID, r, d.panicHandler)
		}
	}()

	var out []chat.Outbound
	if cmd, ok := admin.Parse(msg.Text); ok && d.commands != nil {
		d.commandsRun.Add(1)
		out = d.commands.Execute(ctx, msg, cmd)
	} else {
		d.typing(ctx, msg)
		out = d.handler.Handle(ctx, msg)
	}
	d.handled.Add(1)

	for _, o := range out {
		if err := d.messenger.Send(ctx, o.To, o.Text); err != nil {
			d.sendFailures.Add(1)
			d.logger.Warn("Failed to deliver reply",
				zap.String("to", string(o.To)),
				zap.Int("length", len(o.Text)),
				zap.Error(err),
			)
			continue
		}
		d.sent.Add(1)
	}
}

// typing shows a typing indicator when the transport supports one and the
// handler will answer.
func (d *Dispatcher) typing(ctx context.Context, msg chat.Inbound) {
	typer, ok := d.messenger.(chat.Typer)
	if !ok {
		return
	}
	if gate, ok := d.handler.(Gate); ok && gate.Silent(msg) {
		return
	}
	if err := typer.SendTyping(ctx, msg.ReplyTo); err != nil {
		d.logger.Debug("Typing indicator failed", zap.Error(err))
	}
}

// startCleanup periodically drops idle rate-limit buckets.
func (d *Dispatcher) startCleanup(ctx context.Context) func() {
	if d.limiter == nil {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(d.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := d.limiter.CleanupStale(d.staleAfter); n > 0 {
					d.logger.Debug("Dropped idle rate limit buckets", zap.Int("count", n))
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Received:     d.received.Load(),
		Dropped:      d.dropped.Load(),
		Handled:      d.handled.Load(),
		Commands:     d.commandsRun.Load(),
		Sent:         d.sent.Load(),
		SendFailures: d.sendFailures.Load(),
		Panics:       d.panics.Load(),
	}
}

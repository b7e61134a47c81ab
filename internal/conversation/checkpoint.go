package conversation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCheckpointInterval is how often sessions are written when no
// interval is configured.
const DefaultCheckpointInterval = 2 * time.Minute

// CheckpointService periodically saves the session store. Checkpoints are
// opportunistic: a failed save is logged and retried on the next tick.
type CheckpointService struct {
	store    *ManagerWithPersistence
	logger   *zap.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewCheckpointService creates a checkpoint service. A non-positive interval
// uses DefaultCheckpointInterval.
func NewCheckpointService(store *ManagerWithPersistence, interval time.Duration, logger *zap.Logger) *CheckpointService {
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckpointService{
		store:    store,
		logger:   logger.With(zap.String("component", "conversation.checkpoint")),
		interval: interval,
	}
}

// Start begins periodic checkpointing.
func (c *CheckpointService) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.run(runCtx, c.done)

	return nil
}

// Stop halts the service and writes one final checkpoint.
func (c *CheckpointService) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done
}

func (c *CheckpointService) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.checkpoint()
		c.mu.Lock()
		c.running = false
		close(done)
		c.mu.Unlock()
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Checkpoint service stopping")
			return
		case <-ticker.C:
			c.checkpoint()
		}
	}
}

func (c *CheckpointService) checkpoint() {
	start := time.Now()
	if err := c.store.SaveSessions(); err != nil {
		c.logger.Warn("Session checkpoint failed", zap.Error(err))
		return
	}

	stats := c.store.Stats()
	c.logger.Debug("Session checkpoint written",
		zap.Int("total", stats["total"]),
		zap.Int("groups", stats["groups"]),
		zap.Duration("duration", time.Since(start)),
	)
}

// IsRunning reports whether the service is active.
func (c *CheckpointService) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

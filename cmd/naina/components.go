package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/naina/internal/admin"
	"github.com/Veraticus/naina/internal/chat"
	"github.com/Veraticus/naina/internal/config"
	"github.com/Veraticus/naina/internal/consent"
	"github.com/Veraticus/naina/internal/conversation"
	"github.com/Veraticus/naina/internal/keepalive"
	"github.com/Veraticus/naina/internal/moderation"
	"github.com/Veraticus/naina/internal/persona"
	"github.com/Veraticus/naina/internal/provider"
	"github.com/Veraticus/naina/internal/queue"
	"github.com/Veraticus/naina/internal/router"
)

// components holds every long-lived part of the bot.
type components struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
	registry   *moderation.Registry
	sessions   *conversation.ManagerWithPersistence
	checkpoint *conversation.CheckpointService
	personas   *persona.Library
	dispatcher *queue.Dispatcher
	keepalive  *keepalive.Service
	closers    []func() error
	watchDir   string
}

func newGateway(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*provider.Gateway, error) {
	gateway, err := provider.NewGatewayFromKeys(ctx,
		cfg.Provider.PrimaryKey, cfg.Provider.SecondaryKey, cfg.Provider.Model,
		provider.WithTimeout(cfg.ProviderTimeout()),
		provider.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider gateway: %w", err)
	}
	return gateway, nil
}

// initializeComponents wires the bot around messenger. The admin restart
// command cancels the returned components' context.
func initializeComponents(
	parent context.Context,
	cfg *config.Config,
	messenger chat.Messenger,
	gateway router.Generator,
	logger *zap.Logger,
) (*components, error) {
	ctx, cancel := context.WithCancel(parent)
	c := &components{ctx: ctx, cancel: cancel, logger: logger}

	registry, err := loadRegistry(cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}
	c.registry = registry

	if err := c.initSessions(cfg); err != nil {
		cancel()
		return nil, err
	}

	personas, err := persona.NewLibrary(logger)
	if err != nil {
		c.closeAll()
		cancel()
		return nil, fmt.Errorf("failed to load personas: %w", err)
	}
	if cfg.PersonasDir != "" {
		if err := personas.LoadDir(cfg.PersonasDir); err != nil {
			logger.Warn("Some persona overrides were skipped", zap.Error(err))
		}
		c.watchDir = cfg.PersonasDir
	}
	c.personas = personas

	workflow := consent.NewWorkflow(registry, consent.WithLogger(logger))
	replies := persona.NewReplies(nil)

	rt, err := router.New(gateway,
		router.WithSessions(c.sessions),
		router.WithModeration(registry),
		router.WithConsent(workflow),
		router.WithPersonas(personas),
		router.WithReplies(replies),
		router.WithLogger(logger),
	)
	if err != nil {
		c.closeAll()
		cancel()
		return nil, err
	}

	directory := admin.NewDirectory()
	executor, err := admin.NewExecutor(registry, c.sessions, rt, workflow,
		admin.WithDirectory(directory),
		admin.WithReplies(replies),
		admin.WithSender(messenger),
		admin.WithShutdown(cancel),
		admin.WithLogger(logger),
	)
	if err != nil {
		c.closeAll()
		cancel()
		return nil, err
	}

	dispatchOpts := []queue.Option{
		queue.WithCommands(executor),
		queue.WithObserver(directory.Observe),
		queue.WithRateLimiter(rateLimiter(cfg)),
		queue.WithLogger(logger),
	}
	if cfg.Dispatch.MaxInFlight > 0 {
		dispatchOpts = append(dispatchOpts, queue.WithMaxInFlight(cfg.Dispatch.MaxInFlight))
	}
	c.dispatcher, err = queue.NewDispatcher(messenger, rt, dispatchOpts...)
	if err != nil {
		c.closeAll()
		cancel()
		return nil, err
	}

	if cfg.KeepAlive.Enabled {
		c.keepalive, err = keepalive.New(messenger, registry,
			keepalive.WithInterval(cfg.KeepAliveInterval()),
			keepalive.WithLogger(logger),
		)
		if err != nil {
			c.closeAll()
			cancel()
			return nil, err
		}
	}

	return c, nil
}

// loadRegistry reads the moderation document and seeds the configured
// approver and admins.
func loadRegistry(cfg *config.Config, logger *zap.Logger) (*moderation.Registry, error) {
	registry, err := moderation.Load(moderation.NewFileStore(cfg.ModerationPath()), moderation.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if registry.Approver() == "" && cfg.Approver != "" {
		if err := registry.SetApprover(cfg.Approver); err != nil {
			logger.Warn("Failed to persist configured approver", zap.Error(err))
		}
	}
	for _, id := range cfg.Admins {
		if err := registry.AddAdmin(id); err != nil {
			logger.Warn("Failed to persist configured admin", zap.String("identity", id), zap.Error(err))
		}
	}
	return registry, nil
}

func (c *components) initSessions(cfg *config.Config) error {
	var persistence conversation.SessionPersistence
	switch cfg.Sessions.Backend {
	case config.SessionBackendSQLite:
		db, err := conversation.NewSQLitePersistence(cfg.SessionsPath())
		if err != nil {
			return err
		}
		c.closers = append(c.closers, db.Close)
		persistence = db
	case config.SessionBackendJSON:
		persistence = conversation.NewFilePersistence(filepath.Dir(cfg.SessionsPath()))
	default:
		persistence = conversation.NewNoopPersistence()
	}

	c.sessions = conversation.NewManagerWithPersistence(persistence)
	if err := c.sessions.RestoreSessions(); err != nil {
		c.logger.Warn("Starting with empty sessions", zap.Error(err))
	}
	if cfg.Sessions.Backend != config.SessionBackendNone {
		c.checkpoint = conversation.NewCheckpointService(c.sessions, cfg.CheckpointInterval(), c.logger)
	}
	return nil
}

func rateLimiter(cfg *config.Config) *queue.RateLimiter {
	d := cfg.Dispatch
	if d.RateCapacity <= 0 || d.RateRefill <= 0 {
		return queue.DefaultRateLimiter()
	}
	return queue.NewRateLimiter(d.RateCapacity, d.RateRefill, cfg.RatePeriod())
}

// run serves until the context is canceled or the inbound stream ends,
// then shuts down the background services.
func (c *components) run() error {
	defer c.cancel()

	g, ctx := errgroup.WithContext(c.ctx)

	g.Go(func() error {
		defer c.cancel()
		return c.dispatcher.Run(ctx)
	})

	if c.watchDir != "" {
		g.Go(func() error {
			if err := c.personas.Watch(ctx, c.watchDir); err != nil {
				c.logger.Warn("Persona hot reload disabled", zap.Error(err))
			}
			return nil
		})
	}

	if c.checkpoint != nil {
		if err := c.checkpoint.Start(ctx); err != nil {
			return err
		}
	}
	if c.keepalive != nil {
		if err := c.keepalive.Start(ctx); err != nil {
			return err
		}
	}

	c.logger.Info("Naina started, listening for messages")
	err := g.Wait()
	c.shutdown()
	return err
}

func (c *components) shutdown() {
	c.logger.Info("Shutting down")
	if c.keepalive != nil {
		c.keepalive.Stop()
	}
	if c.checkpoint != nil {
		c.checkpoint.Stop()
	}
	if err := c.registry.Flush(); err != nil {
		c.logger.Error("Moderation state not saved", zap.Error(err))
	}
	c.closeAll()
}

func (c *components) closeAll() {
	var errs []error
	for _, closeFn := range c.closers {
		errs = append(errs, closeFn())
	}
	c.closers = nil
	if err := errors.Join(errs...); err != nil && !errors.Is(err, os.ErrClosed) {
		c.logger.Warn("Failed to close session store", zap.Error(err))
	}
}

// Package main provides the entry point for the Naina chat bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Veraticus/naina/internal/chat"
	"github.com/Veraticus/naina/internal/config"
	"github.com/Veraticus/naina/internal/console"
	"github.com/Veraticus/naina/internal/logging"
	signalpkg "github.com/Veraticus/naina/internal/signal"
)

var (
	configPath string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "naina",
		Short:        "Naina persona chat bot",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "naina.yaml", "path to the configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve Signal conversations through signal-cli",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runWith(cmd.Context(), serveSignal)
			},
		},
		&cobra.Command{
			Use:   "console",
			Short: "Chat with the bot on stdin/stdout",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runWith(cmd.Context(), serveConsole(cmd))
			},
		},
	)
	return root
}

// transportFunc opens the messenger and returns its cleanup.
type transportFunc func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (chat.Messenger, func() error, error)

func runWith(parent context.Context, open transportFunc) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	messenger, closeTransport, err := open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeTransport(); err != nil {
			logger.Warn("Failed to close transport", zap.Error(err))
		}
	}()

	gateway, err := newGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}

	c, err := initializeComponents(ctx, cfg, messenger, gateway, logger)
	if err != nil {
		return err
	}
	return c.run()
}

func serveSignal(ctx context.Context, cfg *config.Config, logger *zap.Logger) (chat.Messenger, func() error, error) {
	transport, err := signalpkg.DialUnixSocket(ctx, cfg.Signal.Socket, logger)
	if err != nil {
		return nil, nil, err
	}
	client := signalpkg.NewClient(transport, signalpkg.WithAccount(cfg.Signal.Account))
	logger.Info("Connected to signal-cli", zap.String("socket", cfg.Signal.Socket))
	return signalpkg.NewMessenger(client, cfg.Signal.Account), client.Close, nil
}

func serveConsole(cmd *cobra.Command) transportFunc {
	return func(_ context.Context, cfg *config.Config, _ *zap.Logger) (chat.Messenger, func() error, error) {
		identity := cfg.Approver
		if identity == "" {
			identity = "console"
		}
		m := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), identity)
		return m, func() error { return nil }, nil
	}
}

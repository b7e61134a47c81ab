package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Veraticus/naina/internal/conversation"
)

// Gateway tries the primary backend and falls back to the secondary exactly
// once with identical arguments.
type Gateway struct {
	primary   Backend
	secondary Backend
	logger    *zap.Logger
	timeout   time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(logger *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTimeout bounds each backend attempt. Zero disables the bound.
func WithTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.timeout = timeout
	}
}

// NewGateway creates a gateway. A nil backend is treated as unavailable.
func NewGateway(primary, secondary Backend, opts ...GatewayOption) *Gateway {
	if primary == nil {
		primary = Unavailable("primary")
	}
	if secondary == nil {
		secondary = Unavailable("secondary")
	}
	g := &Gateway{
		primary:   primary,
		secondary: secondary,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("component", "provider.gateway"))
	return g
}

// NewGatewayFromKeys builds Gemini backends for both credentials.
func NewGatewayFromKeys(
	ctx context.Context,
	primaryKey, secondaryKey, model string,
	opts ...GatewayOption,
) (*Gateway, error) {
	primary, err := NewGeminiBackend(ctx, "primary", primaryKey, model)
	if err != nil {
		return nil, fmt.Errorf("primary backend: %w", err)
	}
	secondary, err := NewGeminiBackend(ctx, "secondary", secondaryKey, model)
	if err != nil {
		return nil, fmt.Errorf("secondary backend: %w", err)
	}
	return NewGateway(primary, secondary, opts...), nil
}

// Generate returns the first non-empty reply. When both backends fail the
// error wraps ErrNoProvider and both attempt errors.
func (g *Gateway) Generate(
	ctx context.Context,
	turns []conversation.Turn,
	persona string,
	temperature float32,
) (string, error) {
	text, primaryErr := g.attempt(ctx, g.primary, turns, persona, temperature)
	if primaryErr == nil {
		return text, nil
	}
	g.logger.Warn("Primary provider failed, trying secondary",
		zap.String("backend", g.primary.Name()),
		zap.Int("turns", len(turns)),
		zap.Error(primaryErr),
	)

	text, secondaryErr := g.attempt(ctx, g.secondary, turns, persona, temperature)
	if secondaryErr == nil {
		return text, nil
	}
	g.logger.Error("Secondary provider failed",
		zap.String("backend", g.secondary.Name()),
		zap.Error(secondaryErr),
	)

	return "", errors.Join(ErrNoProvider, primaryErr, secondaryErr)
}

func (g *Gateway) attempt(
	ctx context.Context,
	backend Backend,
	turns []conversation.Turn,
	persona string,
	temperature float32,
) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := backend.Generate(ctx, turns, persona, temperature)
	if err != nil {
		return "", fmt.Errorf("%s: %w", backend.Name(), err)
	}
	if text == "" {
		return "", fmt.Errorf("%s: %w", backend.Name(), ErrEmptyResponse)
	}
	return text, nil
}

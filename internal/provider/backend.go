// Package provider calls the text generation service, failing over from a
// primary credential to a secondary one.
package provider

import (
	"context"

	"github.com/Veraticus/naina/internal/conversation"
)

// Backend produces one reply for a transcript and persona.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Generate returns the reply text for turns under the given persona.
	Generate(ctx context.Context, turns []conversation.Turn, persona string, temperature float32) (string, error)
}

// unavailable is the backend used when a credential is missing.
type unavailable struct {
	name string
}

// Unavailable returns a backend that always fails with ErrProviderUnavailable.
func Unavailable(name string) Backend {
	return unavailable{name: name}
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Generate(context.Context, []conversation.Turn, string, float32) (string, error) {
	return "", ErrProviderUnavailable
}

package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Veraticus/naina/internal/conversation"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// contentGenerator is the slice of the genai Models service we use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiBackend generates replies through the Gemini API.
type GeminiBackend struct {
	models contentGenerator
	name   string
	model  string
}

// NewGeminiBackend creates a backend for one API key. An empty key yields
// the Unavailable backend so the gateway can still fail over.
func NewGeminiBackend(ctx context.Context, name, apiKey, model string) (Backend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return Unavailable(name), nil
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiBackend{models: client.Models, name: name, model: model}, nil
}

// Name returns the backend label.
func (g *GeminiBackend) Name() string {
	return g.name
}

// Generate sends the transcript with persona as the system instruction.
func (g *GeminiBackend) Generate(
	ctx context.Context,
	turns []conversation.Turn,
	persona string,
	temperature float32,
) (string, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		var role genai.Role = genai.RoleUser
		if turn.Role == conversation.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	if persona != "" {
		cfg.SystemInstruction = genai.NewContentFromText(persona, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", &CallError{Backend: g.name, Err: err}
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

package mocks

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/Veraticus/naina/internal/conversation"
)

// Script is one scripted reply.
type Script struct {
	// Err is returned instead of Reply when set.
	Err error

	// Reply is the generated text.
	Reply string

	// TextPattern matches the newest turn (regex). Empty matches anything.
	TextPattern string

	// PersonaPattern matches the persona prompt (regex). Empty matches anything.
	PersonaPattern string

	// Delay simulates a slow backend; it honors ctx cancellation.
	Delay time.Duration

	// Repeatable scripts are not consumed.
	Repeatable bool
}

// ScriptedBackend answers from an ordered list of scripts. The first
// matching script wins; non-repeatable scripts are consumed.
type ScriptedBackend struct {
	fallbackErr error
	name        string
	scripts     []Script
	calls       []GenerateCall
	mu          sync.Mutex
}

// NewScriptedBackend creates an empty scripted backend. Unmatched calls
// fail with fallbackErr, or a descriptive error when it is nil.
func NewScriptedBackend(name string, fallbackErr error) *ScriptedBackend {
	return &ScriptedBackend{name: name, fallbackErr: fallbackErr}
}

// Add appends a script.
func (s *ScriptedBackend) Add(script Script) *ScriptedBackend {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, script)
	return s
}

// Reply appends a one-shot reply matching textPattern.
func (s *ScriptedBackend) Reply(textPattern, reply string) *ScriptedBackend {
	return s.Add(Script{TextPattern: textPattern, Reply: reply})
}

// Name implements provider.Backend.
func (s *ScriptedBackend) Name() string {
	return s.name
}

// Generate implements provider.Backend.
func (s *ScriptedBackend) Generate(
	ctx context.Context,
	turns []conversation.Turn,
	persona string,
	temperature float32,
) (string, error) {
	last := ""
	if len(turns) > 0 {
		last = turns[len(turns)-1].Text
	}

	s.mu.Lock()
	s.calls = append(s.calls, GenerateCall{
		Timestamp:   time.Now(),
		Turns:       append([]conversation.Turn(nil), turns...),
		Persona:     persona,
		Temperature: temperature,
	})
	script, ok := s.matchLocked(last, persona)
	s.mu.Unlock()

	if !ok {
		if s.fallbackErr != nil {
			return "", s.fallbackErr
		}
		return "", fmt.Errorf("no script matches %q", last)
	}

	if script.Delay > 0 {
		select {
		case <-time.After(script.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if script.Err != nil {
		return "", script.Err
	}
	return script.Reply, nil
}

func (s *ScriptedBackend) matchLocked(text, persona string) (Script, bool) {
	for i, script := range s.scripts {
		if !matches(script.TextPattern, text) || !matches(script.PersonaPattern, persona) {
			continue
		}
		if !script.Repeatable {
			s.scripts = append(s.scripts[:i:i], s.scripts[i+1:]...)
		}
		return script, true
	}
	return Script{}, false
}

func matches(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	ok, err := regexp.MatchString(pattern, value)
	return err == nil && ok
}

// GetCalls returns every recorded call.
func (s *ScriptedBackend) GetCalls() []GenerateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GenerateCall(nil), s.calls...)
}

// Remaining returns how many scripts are left.
func (s *ScriptedBackend) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scripts)
}

// Package persona holds the system instructions, temperatures and static
// replies for each conversational persona.
package persona

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Veraticus/naina/internal/config"
)

// Kind selects a persona.
type Kind string

const (
	// KindDefault is the private-chat persona.
	KindDefault Kind = "default"
	// KindGroup is the group-chat persona.
	KindGroup Kind = "group"
	// KindSensitive is the consent-gated persona.
	KindSensitive Kind = "sensitive"
	// KindAffectionate is used for affectionate-target identities.
	KindAffectionate Kind = "affectionate"
	// KindHostile answers insults.
	KindHostile Kind = "hostile"
)

// Kinds lists every persona.
func Kinds() []Kind {
	return []Kind{KindDefault, KindGroup, KindSensitive, KindAffectionate, KindHostile}
}

// Temperature returns the sampling temperature for the persona.
func (k Kind) Temperature() float32 {
	switch k {
	case KindSensitive, KindHostile:
		return 1.0
	case KindAffectionate:
		return 0.9
	default:
		return 0.95
	}
}

// Fallback returns the static reply used when generation fails.
func (k Kind) Fallback() string {
	switch k {
	case KindSensitive:
		return "Mmm~ 😏"
	case KindAffectionate:
		return "I love you~ 💕"
	case KindHostile:
		return "Chal be, tujhe baat karne ki tameez nahi hai 🙄"
	default:
		return "Hmm, kya hua? 😅"
	}
}

// preferenceHeader introduces the preference log in a system instruction.
const preferenceHeader = "\n\nUser's previous suggestions: "

//go:embed prompts/*.md
var embedded embed.FS

// Library resolves persona prompts. Embedded prompts are the defaults;
// files in an override directory replace them.
type Library struct {
	prompts map[Kind]string
	logger  *zap.Logger
	mu      sync.RWMutex
}

// NewLibrary loads the embedded prompts.
func NewLibrary(logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Library{
		prompts: make(map[Kind]string, len(Kinds())),
		logger:  logger.With(zap.String("component", "persona")),
	}
	for _, kind := range Kinds() {
		data, err := embedded.ReadFile("prompts/" + string(kind) + ".md")
		if err != nil {
			return nil, fmt.Errorf("missing embedded persona %s: %w", kind, err)
		}
		prompt := strings.TrimSpace(string(data))
		if err := config.ValidatePersona(prompt); err != nil {
			return nil, fmt.Errorf("embedded persona %s: %w", kind, err)
		}
		l.prompts[kind] = prompt
	}
	return l, nil
}

// Prompt returns the persona's system instruction with the preference log
// appended when it is non-empty.
func (l *Library) Prompt(kind Kind, preferences []string) string {
	l.mu.RLock()
	prompt, ok := l.prompts[kind]
	if !ok {
		prompt = l.prompts[KindDefault]
	}
	l.mu.RUnlock()

	if len(preferences) == 0 {
		return prompt
	}
	return prompt + preferenceHeader + strings.Join(preferences, "; ")
}

// Set replaces one prompt.
func (l *Library) Set(kind Kind, prompt string) error {
	if err := config.ValidatePersona(prompt); err != nil {
		return fmt.Errorf("persona %s: %w", kind, err)
	}
	l.mu.Lock()
	l.prompts[kind] = strings.TrimSpace(prompt)
	l.mu.Unlock()
	return nil
}

// LoadDir replaces prompts with <kind>.md files found in dir. Missing files
// keep the current prompt; invalid files are reported and skipped.
func (l *Library) LoadDir(dir string) error {
	var errs []error
	for _, kind := range Kinds() {
		if err := l.loadFile(filepath.Join(dir, string(kind)+".md"), kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Library) loadFile(path string, kind Kind) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	prompt, err := config.LoadPersonaFile(path)
	if err != nil {
		return err
	}
	if err := l.Set(kind, prompt); err != nil {
		return err
	}
	l.logger.Info("Persona loaded", zap.String("kind", string(kind)), zap.String("path", path))
	return nil
}

// kindForPath maps an override file to its persona.
func kindForPath(path string) (Kind, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".md") {
		return "", false
	}
	kind := Kind(strings.TrimSuffix(name, ".md"))
	for _, k := range Kinds() {
		if k == kind {
			return k, true
		}
	}
	return "", false
}

// Watch reloads override files in dir whenever they are written or created.
// It blocks until ctx is done.
func (l *Library) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create persona watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch persona directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			kind, ok := kindForPath(event.Name)
			if !ok {
				continue
			}
			if err := l.loadFile(event.Name, kind); err != nil {
				l.logger.Warn("Persona reload failed", zap.String("path", event.Name), zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("Persona watcher error", zap.Error(err))
		}
	}
}

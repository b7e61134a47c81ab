package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyPersona is returned for persona text that is blank after trimming.
var ErrEmptyPersona = errors.New("persona prompt is empty")

// LoadPersonaFile loads a persona prompt from path and validates it.
func LoadPersonaFile(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("persona file not found: %s", path)
	}

	content, err := os.ReadFile(path) // #nosec G304 - path comes from the configured personas directory
	if err != nil {
		return "", fmt.Errorf("failed to read persona: %w", err)
	}

	prompt := strings.TrimSpace(string(content))
	if err := ValidatePersona(prompt); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return prompt, nil
}

// ValidatePersona ensures a persona prompt is non-empty after trimming
// whitespace.
func ValidatePersona(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPersona
	}
	return nil
}

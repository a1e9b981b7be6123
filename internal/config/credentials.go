package config

import (
	"errors"
	"regexp"
)

var (
	recombeeKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)
	geminiKeyPattern   = regexp.MustCompile(`^[A-Za-z0-9-]{39}$`)
)

var (
	ErrEmptyKey           = errors.New("api key cannot be empty")
	ErrInvalidRecombeeKey = errors.New("invalid Recombee API key format")
	ErrInvalidGeminiKey   = errors.New("invalid Gemini API key format")
)

// ValidateRecombeeKey checks a Primary provider key before it is stored
func ValidateRecombeeKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if !recombeeKeyPattern.MatchString(key) {
		return ErrInvalidRecombeeKey
	}
	return nil
}

// ValidateGeminiKey checks a Fallback provider key before it is stored
func ValidateGeminiKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if !geminiKeyPattern.MatchString(key) {
		return ErrInvalidGeminiKey
	}
	return nil
}

// Package providers contains the upstream recommendation provider implementations
package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies which upstream service serves a request
type Kind string

const (
	// Primary is the main recommendation engine (Recombee-style)
	Primary Kind = "primary"
	// Fallback is the generative-text alternative (Gemini-style)
	Fallback Kind = "fallback"
)

// ParseKind maps a user-supplied provider name to a Kind. An empty name is Primary.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "primary", "recombee":
		return Primary, nil
	case "fallback", "gemini":
		return Fallback, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// Record is one recommended product
type Record struct {
	ProductID string   `json:"productId"`
	Score     *float64 `json:"score,omitempty"`
}

// Source fetches recommendations from a single upstream provider.
// Errors returned by a Source are *FetchError.
type Source interface {
	// Kind returns the provider kind the source serves
	Kind() Kind

	// Recommend returns at most count records for subjectID
	Recommend(ctx context.Context, subjectID string, count int) ([]Record, error)
}

// Factory builds a Source bound to an API key
type Factory func(apiKey string) (Source, error)

// Registry manages available provider factories
type Registry struct {
	factories map[Kind]Factory
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Kind]Factory),
	}
}

// Register adds a factory for kind, replacing any previous one
func (r *Registry) Register(kind Kind, f Factory) {
	r.factories[kind] = f
}

// Get retrieves a factory by kind
func (r *Registry) Get(kind Kind) (Factory, bool) {
	f, exists := r.factories[kind]
	return f, exists
}

// List returns all registered kinds in sorted order
func (r *Registry) List() []Kind {
	kinds := make([]Kind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Package render formats recommendation records for the command line
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/briangreenhill/recogateway/internal/providers"
)

// Renderer turns records into printable output
type Renderer interface {
	// Name returns the format name (e.g., "text", "json")
	Name() string

	// Render formats records fetched for subject
	Render(subject string, records []providers.Record) (string, error)
}

// Registry manages available output formats
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry creates a registry holding the built-in formats
func NewRegistry() *Registry {
	r := &Registry{renderers: make(map[string]Renderer)}
	r.Register(Text{})
	r.Register(JSON{})
	return r
}

// Register adds a renderer, replacing any with the same name
func (r *Registry) Register(renderer Renderer) {
	r.renderers[renderer.Name()] = renderer
}

// Get retrieves a renderer by name
func (r *Registry) Get(name string) (Renderer, bool) {
	renderer, exists := r.renderers[name]
	return renderer, exists
}

// List returns all registered format names in sorted order
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Text prints one product per line with its score when known
type Text struct{}

func (Text) Name() string { return "text" }

func (Text) Render(subject string, records []providers.Record) (string, error) {
	if len(records) == 0 {
		return fmt.Sprintf("No recommendations found for %s.\n", subject), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recommendations for %s:\n", subject)
	for i, r := range records {
		fmt.Fprintf(&b, "%2d. %s", i+1, r.ProductID)
		if r.Score != nil {
			b.WriteString("  (score " + strconv.FormatFloat(*r.Score, 'f', 3, 64) + ")")
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// JSON prints the records array as the REST endpoint would
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Render(_ string, records []providers.Record) (string, error) {
	if records == nil {
		records = []providers.Record{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

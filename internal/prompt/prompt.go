// Package prompt renders the natural-language prompt sent to the generative fallback provider
package prompt

import (
	"fmt"
	"os"
	"strings"
	"text/template"
)

// Data is the input to a prompt template
type Data struct {
	SubjectID string
	Count     int
}

// Generator renders prompts from a parsed template
type Generator struct {
	tmpl *template.Template
}

// NewGenerator creates a generator using the built-in template
func NewGenerator() *Generator {
	return &Generator{tmpl: template.Must(template.New("default").Parse(DefaultTemplate))}
}

// Load creates a generator from a custom template file. An empty path
// returns the built-in template.
func Load(path string) (*Generator, error) {
	if path == "" {
		return NewGenerator(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	g, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse creates a generator from template text
func Parse(text string) (*Generator, error) {
	tmpl, err := template.New("custom").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &Generator{tmpl: tmpl}, nil
}

// Generate renders the prompt for d
func (g *Generator) Generate(d Data) (string, error) {
	var b strings.Builder
	if err := g.tmpl.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

package providers

import (
	"net/http"

	"github.com/briangreenhill/recogateway/gemini"
	"github.com/briangreenhill/recogateway/internal/config"
	"github.com/briangreenhill/recogateway/internal/prompt"
	"github.com/briangreenhill/recogateway/recombee"
)

// Setup creates a registry with factories for every provider kind. Keys are
// bound per call, so a provider with no key configured is still registered
// and simply reports itself disabled at fetch time.
func Setup(cfg *config.Config, httpClient *http.Client) (*Registry, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	prompts, err := prompt.Load(cfg.Gemini.PromptPath)
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()

	registry.Register(Primary, NewRecombeeFactory(
		recombee.WithHTTPClient(httpClient),
		recombee.WithBaseURL(cfg.Recombee.BaseURL),
		recombee.WithTimeout(cfg.Recombee.Timeout),
	))

	registry.Register(Fallback, func(apiKey string) (Source, error) {
		client, err := gemini.NewClientWithHTTP(apiKey, httpClient)
		if err != nil {
			return nil, err
		}
		if cfg.Gemini.BaseURL != "" {
			client.BaseURL = cfg.Gemini.BaseURL
		}
		if cfg.Gemini.Path != "" {
			client.Path = cfg.Gemini.Path
		}
		if cfg.Gemini.Timeout > 0 {
			client.Timeout = cfg.Gemini.Timeout
		}
		return NewGeminiProvider(client, prompts), nil
	})

	return registry, nil
}

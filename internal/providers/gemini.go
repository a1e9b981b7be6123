package providers

import (
	"context"
	"errors"

	"github.com/briangreenhill/recogateway/gemini"
	"github.com/briangreenhill/recogateway/internal/prompt"
)

// GeminiProvider implements Source by asking a generative model for product ids.
// Parsing free-form text is best-effort; anything unparseable is a malformed response.
type GeminiProvider struct {
	client  *gemini.Client
	prompts *prompt.Generator
}

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(client *gemini.Client, prompts *prompt.Generator) *GeminiProvider {
	if prompts == nil {
		prompts = prompt.NewGenerator()
	}
	return &GeminiProvider{
		client:  client,
		prompts: prompts,
	}
}

// Kind returns Fallback
func (p *GeminiProvider) Kind() Kind {
	return Fallback
}

// Recommend asks the model for count product ids for subjectID
func (p *GeminiProvider) Recommend(ctx context.Context, subjectID string, count int) ([]Record, error) {
	text, err := p.prompts.Generate(prompt.Data{SubjectID: subjectID, Count: count})
	if err != nil {
		return nil, &FetchError{Provider: Fallback, Kind: KindRequest, Err: err}
	}

	resp, err := p.client.Generate(ctx, text)
	if err != nil {
		return nil, classifyGemini(err)
	}

	ids := gemini.ProductIDs(resp.Text(), count)
	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, Record{ProductID: id})
	}
	return records, nil
}

func classifyGemini(err error) *FetchError {
	var se *gemini.StatusError
	switch {
	case errors.As(err, &se):
		return &FetchError{Provider: Fallback, Kind: KindStatus, Status: se.Code, Err: err}
	case errors.Is(err, gemini.ErrMalformedResponse):
		return &FetchError{Provider: Fallback, Kind: KindMalformed, Err: err}
	default:
		return &FetchError{Provider: Fallback, Kind: KindTransport, Err: err}
	}
}

var _ Source = (*GeminiProvider)(nil)

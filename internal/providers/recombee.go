package providers

import (
	"context"
	"errors"

	"github.com/briangreenhill/recogateway/recombee"
)

// RecombeeProvider implements Source for the Recombee item recommendation API
type RecombeeProvider struct {
	client *recombee.Client
}

// NewRecombeeProvider creates a new Recombee provider instance
func NewRecombeeProvider(client *recombee.Client) *RecombeeProvider {
	return &RecombeeProvider{
		client: client,
	}
}

// NewRecombeeFactory returns a Factory building clients with opts
func NewRecombeeFactory(opts ...recombee.Option) Factory {
	return func(apiKey string) (Source, error) {
		client, err := recombee.New(apiKey, opts...)
		if err != nil {
			return nil, err
		}
		return NewRecombeeProvider(client), nil
	}
}

// Kind returns Primary
func (p *RecombeeProvider) Kind() Kind {
	return Primary
}

// Recommend retrieves recommended items for subjectID
func (p *RecombeeProvider) Recommend(ctx context.Context, subjectID string, count int) ([]Record, error) {
	items, err := p.client.RecommendItems(ctx, subjectID, count)
	if err != nil {
		return nil, classifyRecombee(err)
	}

	if count > 0 && len(items) > count {
		items = items[:count]
	}

	records := make([]Record, 0, len(items))
	for _, it := range items {
		records = append(records, Record{ProductID: string(it.ID), Score: it.Score})
	}
	return records, nil
}

func classifyRecombee(err error) *FetchError {
	var se *recombee.StatusError
	switch {
	case errors.As(err, &se):
		return &FetchError{Provider: Primary, Kind: KindStatus, Status: se.Code, Err: err}
	case errors.Is(err, recombee.ErrMalformedResponse):
		return &FetchError{Provider: Primary, Kind: KindMalformed, Err: err}
	default:
		return &FetchError{Provider: Primary, Kind: KindTransport, Err: err}
	}
}

var _ Source = (*RecombeeProvider)(nil)

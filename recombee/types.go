package recombee

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// ErrMalformedResponse wraps every body that cannot be decoded into items
var ErrMalformedResponse = errors.New("recombee: malformed response")

// Item is one recommended item. The API returns ids as strings, but
// catalog-backed databases frequently hold numeric ids.
type Item struct {
	ID    ItemID   `json:"id"`
	Score *float64 `json:"score,omitempty"`
}

// ItemID accepts either a JSON string or a JSON number
type ItemID string

func (id *ItemID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

// DecodeItems parses a response body that is either a bare item list or the
// documented {"recommId": ..., "recomms": [...]} envelope. Items with an empty id are rejected.
func DecodeItems(body []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var items []Item
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	case '{':
		var env struct {
			RecommID string  `json:"recommId"`
			Recomms  *[]Item `json:"recomms"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if env.Recomms == nil {
			return nil, fmt.Errorf("%w: missing recomms", ErrMalformedResponse)
		}
		items = *env.Recomms
	default:
		return nil, fmt.Errorf("%w: unexpected body", ErrMalformedResponse)
	}

	for i, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("%w: item %d has no id", ErrMalformedResponse, i)
		}
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

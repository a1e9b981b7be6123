package gemini

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// ErrMalformedResponse wraps every body that does not carry generated text
var ErrMalformedResponse = errors.New("gemini: malformed response")

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerateRequest is the request body sent to the generate endpoint
type GenerateRequest struct {
	Contents []Content `json:"contents"`
}

// NewTextRequest wraps a single user prompt
func NewTextRequest(prompt string) GenerateRequest {
	return GenerateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
	}
}

type Candidate struct {
	Content      *Content `json:"content"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// GenerateResponse is the nested generated-text response
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Text returns the concatenated text parts of the first candidate
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// DecodeResponse parses body and requires at least one candidate with content parts
func DecodeResponse(body []byte) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	c := resp.Candidates[0]
	if c.Content == nil || len(c.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: candidate has no content parts", ErrMalformedResponse)
	}
	return &resp, nil
}

// ProductIDs splits generated text into discrete product identifiers.
// Commas, semicolons and newlines separate tokens. Surrounding whitespace,
// quotes and brackets are trimmed, a leading "- " or "* " list bullet is
// removed, and empty tokens are dropped. Other characters inside an id are
// kept as generated.
// At most limit ids are returned when limit > 0.
func ProductIDs(text string, limit int) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})

	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		id := trimID(f)
		if id == "" {
			continue
		}
		ids = append(ids, id)
		if limit > 0 && len(ids) == limit {
			break
		}
	}
	return ids
}

const idCutset = " \t\"'`[](){}"

func trimID(f string) string {
	id := strings.Trim(f, idCutset)
	if id == "-" || id == "*" {
		return ""
	}
	for _, bullet := range []string{"- ", "* "} {
		if rest, ok := strings.CutPrefix(id, bullet); ok {
			return strings.Trim(rest, idCutset)
		}
	}
	return id
}

// Package gemini is a minimal client for a Gemini-style text generation API.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultPath    = "/v1/generate"
	DefaultTimeout = 15 * time.Second

	// APIKeyHeader carries the key on every request
	APIKeyHeader = "x-goog-api-key"
)

const maxBodyBytes = 1 << 20

// ErrAPIKeyRequired is returned by New when no key is supplied
var ErrAPIKeyRequired = errors.New("gemini: api key required")

// StatusError is returned for any non-2xx response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d: %s", e.Code, e.Body)
}

// Client represents a Gemini API client
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Path       string
	Timeout    time.Duration
	apiKey     string
}

// NewClient creates a new Gemini client
func NewClient(apiKey string) (*Client, error) {
	return NewClientWithHTTP(apiKey, http.DefaultClient)
}

// NewClientWithHTTP creates a new Gemini client with a custom HTTP client
func NewClientWithHTTP(apiKey string, httpClient *http.Client) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		HTTPClient: httpClient,
		BaseURL:    DefaultBaseURL,
		Path:       DefaultPath,
		Timeout:    DefaultTimeout,
		apiKey:     apiKey,
	}, nil
}

func (c *Client) endpoint() (string, error) {
	p := c.Path
	if p == "" {
		p = DefaultPath
	}
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(p, "/"))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Generate sends prompt and returns the decoded response
func (c *Client) Generate(ctx context.Context, prompt string) (*GenerateResponse, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(NewTextRequest(prompt))
	if err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(APIKeyHeader, c.apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > 256 {
			msg = msg[:256] + "..."
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: msg}
	}

	return DecodeResponse(body)
}

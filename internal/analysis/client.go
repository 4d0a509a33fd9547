// Package analysis sends solver logs to the Gemini generateContent API and
// builds the prompt shown in preview mode.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the Gemini REST base URL.
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTimeout bounds a single generateContent call.
	DefaultTimeout = 120 * time.Second
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("API key is not set; configure it with `gurobilab settings set gemini_api_key <key>`")

// Client talks to the generateContent endpoint.
type Client struct {
	endpoint    string
	maxLogBytes int
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxLogBytes sets how much of the log tail is sent.
func WithMaxLogBytes(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxLogBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient returns a Client with defaults applied.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:    DefaultEndpoint,
		maxLogBytes: DefaultMaxLogBytes,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Preview returns the prompt Analyze would send, without sending it.
func (c *Client) Preview(_ context.Context, req Request) (string, error) {
	return BuildPrompt(req, c.maxLogBytes), nil
}

// Analyze sends the log to the model and returns its Markdown report.
func (c *Client) Analyze(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return "", ErrMissingAPIKey
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}

	blob, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: BuildPrompt(req, c.maxLogBytes)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(blob))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-goog-api-key", req.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("generateContent finished",
		"model", model,
		"status", resp.StatusCode,
		"prompt_bytes", len(blob),
		"duration", time.Since(start),
	)

	var out generateResponse
	if resp.StatusCode < 400 && json.Unmarshal(body, &out) == nil {
		if len(out.Candidates) > 0 && len(out.Candidates[0].Content.Parts) > 0 {
			if text := out.Candidates[0].Content.Parts[0].Text; text != "" {
				return text, nil
			}
		}
	}

	return "", fmt.Errorf("API Error: %s", strings.TrimSpace(string(body)))
}

package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"signoff/pkg/domerrors"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	defaultModel    = "claude-3-7-sonnet-20250219"
	apiVersion      = "2023-06-01"

	// maxTokens caps the reply size; the expected output is a short analysis
	// plus one STATUS line.
	maxTokens = 1000

	// requestTimeout bounds one inference round trip.
	requestTimeout = 60 * time.Second

	// maxErrorBody limits how much of an error response is read for the
	// error message.
	maxErrorBody = 4096
)

// AnthropicClient implements Client against the Anthropic messages API.
// Sampling is pinned to temperature zero so identical requests yield
// identical replies, which keeps verification results cacheable.
type AnthropicClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// AnthropicOption configures an AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithEndpoint overrides the API endpoint, mainly for tests.
func WithEndpoint(endpoint string) AnthropicOption {
	return func(c *AnthropicClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithModel overrides the model identifier.
func WithModel(model string) AnthropicOption {
	return func(c *AnthropicClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) AnthropicOption {
	return func(c *AnthropicClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithClientLogger sets the logger for request-level debug output.
func WithClientLogger(logger *slog.Logger) AnthropicOption {
	return func(c *AnthropicClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewAnthropicClient constructs a client with production defaults.
func NewAnthropicClient(apiKey string, opts ...AnthropicOption) *AnthropicClient {
	c := &AnthropicClient{
		endpoint:   defaultEndpoint,
		model:      defaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire types for the messages API.
type messageRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentItem `json:"content"`
}

type contentItem struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messageResponse struct {
	Content []contentItem `json:"content"`
}

// Complete sends the request and concatenates the text blocks of the reply.
// Non-2xx statuses and malformed response bodies are first-class errors; a
// reply with no text blocks yields an empty string and no error.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	payload := messageRequest{
		Model:       c.model,
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: 0,
		Messages: []message{{
			Role:    "user",
			Content: encodeParts(req.Parts),
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", domerrors.Wrap(domerrors.CodeInference, "encode inference request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", domerrors.Wrap(domerrors.CodeInference, "build inference request", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	httpReq.Header.Set("content-type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", domerrors.Wrap(domerrors.CodeInference, "call inference service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", domerrors.Newf(domerrors.CodeInference, "inference service returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domerrors.Wrap(domerrors.CodeInference, "decode inference response", err)
	}

	var text strings.Builder
	for _, item := range out.Content {
		if item.Type == "text" {
			text.WriteString(item.Text)
		}
	}
	if c.logger != nil {
		c.logger.DebugContext(ctx, "inference completed",
			"model", c.model,
			"parts", len(req.Parts),
			"reply_bytes", text.Len(),
			"duration", time.Since(start))
	}
	return text.String(), nil
}

func encodeParts(parts []Part) []contentItem {
	items := make([]contentItem, 0, len(parts))
	for _, part := range parts {
		if part.IsImage() {
			items = append(items, contentItem{
				Type: "image",
				Source: &imageSource{
					Type:      "base64",
					MediaType: "image/jpeg",
					Data:      base64.StdEncoding.EncodeToString(part.Image),
				},
			})
			continue
		}
		items = append(items, contentItem{Type: "text", Text: part.Text})
	}
	return items
}

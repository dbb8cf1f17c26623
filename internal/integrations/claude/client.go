// Package claude calls the Anthropic Messages API.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chat-gateway/internal/domain"
)

const (
	defaultBaseURL      = "https://api.anthropic.com"
	defaultModel        = "claude-3-haiku-20240307"
	apiVersion          = "2023-06-01"
	defaultCallTimeout  = 30 * time.Second
	defaultProbeTimeout = 5 * time.Second
	maxTokens           = 500
)

// Persona is prepended to the user message; the Messages API call carries no
// system message.
const Persona = "คุณเป็นผู้ช่วย AI ที่เป็นมิตรและช่วยเหลือผู้ใช้ ตอบเป็นภาษาไทยอย่างสุภาพ กระชับ และเข้าใจง่าย\n\nคำถามของผู้ใช้: "

type messagesRequest struct {
	Model     string               `json:"model"`
	MaxTokens int                  `json:"max_tokens"`
	Messages  []domain.ChatMessage `json:"messages"`
}

type messagesResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type errorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client is a minimal Anthropic Messages API client.
type Client struct {
	apiKey       string
	model        string
	baseURL      string
	httpClient   *http.Client
	callTimeout  time.Duration
	probeTimeout time.Duration
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

func WithTimeouts(call, probe time.Duration) Option {
	return func(c *Client) {
		if call > 0 {
			c.callTimeout = call
		}
		if probe > 0 {
			c.probeTimeout = probe
		}
	}
}

// NewClient creates a Client. Without an apiKey every call fails fast with an
// Unconfigured ProviderError.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       strings.TrimSpace(apiKey),
		model:        defaultModel,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{},
		callTimeout:  defaultCallTimeout,
		probeTimeout: defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool { return c.apiKey != "" }

func messagesURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/messages"
	}
	return base + "/v1/messages"
}

func (c *Client) Generate(ctx context.Context, message string) (string, error) {
	slog.InfoContext(ctx, "claude: generate", "model", c.model, "message_len", len(message))
	return c.send(ctx, c.callTimeout, messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []domain.ChatMessage{{Role: "user", Content: Persona + message}},
	})
}

func (c *Client) Probe(ctx context.Context) error {
	slog.InfoContext(ctx, "claude: probe", "model", c.model)
	_, err := c.send(ctx, c.probeTimeout, messagesRequest{
		Model:     c.model,
		MaxTokens: 1,
		Messages:  []domain.ChatMessage{{Role: "user", Content: "test"}},
	})
	return err
}

func (c *Client) send(ctx context.Context, timeout time.Duration, in messagesRequest) (string, error) {
	if !c.Configured() {
		err := &domain.ProviderError{
			Kind:     domain.FailureUnconfigured,
			Provider: domain.ProviderClaude,
			Detail:   "CLAUDE_API_KEY is not set",
		}
		slog.WarnContext(ctx, "claude: skipped", "err", err)
		return "", err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("claude: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messagesURL(c.baseURL), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("claude: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	start := time.Now()
	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	res, err := httpClient.Do(req)
	if err != nil {
		perr := &domain.ProviderError{
			Kind:     domain.FailureTransport,
			Provider: domain.ProviderClaude,
			Detail:   err.Error(),
			Err:      err,
		}
		slog.WarnContext(ctx, "claude: request failed", "err", perr, "elapsed_ms", time.Since(start).Milliseconds())
		return "", perr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		perr := apiError(res.StatusCode, buf)
		slog.WarnContext(ctx, "claude: request failed", "err", perr, "elapsed_ms", time.Since(start).Milliseconds())
		return "", perr
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		perr := &domain.ProviderError{
			Kind:     domain.FailureTransport,
			Provider: domain.ProviderClaude,
			Detail:   "read response body: " + err.Error(),
			Err:      err,
		}
		slog.WarnContext(ctx, "claude: request failed", "err", perr, "elapsed_ms", time.Since(start).Milliseconds())
		return "", perr
	}

	var payload messagesResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", malformed(fmt.Errorf("decode response: %w", err))
	}
	var text strings.Builder
	for _, block := range payload.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", malformed(errors.New("no text content in response"))
	}
	slog.InfoContext(ctx, "claude: completed", "id", payload.ID, "elapsed_ms", time.Since(start).Milliseconds())
	return strings.TrimSpace(text.String()), nil
}

func apiError(status int, body []byte) *domain.ProviderError {
	out := &domain.ProviderError{
		Kind:       domain.FailureAPI,
		Provider:   domain.ProviderClaude,
		StatusCode: status,
		Detail:     strings.TrimSpace(string(body)),
	}
	var e errorResponse
	if json.Unmarshal(body, &e) != nil {
		return out
	}
	out.Code = e.Error.Type
	if e.Error.Message != "" {
		out.Detail = e.Error.Message
	}
	return out
}

func malformed(err error) *domain.ProviderError {
	return &domain.ProviderError{
		Kind:       domain.FailureAPI,
		Provider:   domain.ProviderClaude,
		Code:       "malformed_response",
		StatusCode: http.StatusOK,
		Detail:     err.Error(),
		Err:        err,
	}
}

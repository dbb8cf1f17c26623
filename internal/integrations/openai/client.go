package openai

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
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultModel        = "gpt-3.5-turbo"
	defaultCallTimeout  = 30 * time.Second
	defaultProbeTimeout = 5 * time.Second
	maxTokens           = 500
	temperature         = 0.7
)

// SystemPrompt is the persona sent ahead of every user message.
const SystemPrompt = "คุณเป็นผู้ช่วย AI ที่เป็นมิตรและช่วยเหลือผู้ใช้ ตอบเป็นภาษาไทยอย่างสุภาพ กระชับ และเข้าใจง่าย"

// chatRequest is the request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature *float64             `json:"temperature,omitempty"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int                `json:"index"`
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

// errorResponse is the error envelope returned on non-2xx responses.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Client is a focused OpenAI-compatible client for chat completions.
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

// WithTimeouts overrides the per-call deadlines. Non-positive values keep the
// defaults.
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

// NewClient creates a Client. An empty apiKey is allowed: every call then fails
// with an Unconfigured ProviderError without touching the network.
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

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Generate sends message with the persona prompt and returns the first choice.
func (c *Client) Generate(ctx context.Context, message string) (string, error) {
	t := temperature
	slog.InfoContext(ctx, "openai: generate", "model", c.model, "message_len", len(message))
	return c.complete(ctx, c.callTimeout, chatRequest{
		Model: c.model,
		Messages: []domain.ChatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens:   maxTokens,
		Temperature: &t,
	})
}

// Probe issues a one-token completion to check that the key and endpoint work.
func (c *Client) Probe(ctx context.Context) error {
	slog.InfoContext(ctx, "openai: probe", "model", c.model)
	_, err := c.complete(ctx, c.probeTimeout, chatRequest{
		Model:     c.model,
		Messages:  []domain.ChatMessage{{Role: "user", Content: "test"}},
		MaxTokens: 1,
	})
	return err
}

func (c *Client) complete(ctx context.Context, timeout time.Duration, in chatRequest) (string, error) {
	if !c.Configured() {
		err := &domain.ProviderError{
			Kind:     domain.FailureUnconfigured,
			Provider: domain.ProviderOpenAI,
			Detail:   "OPENAI_API_KEY is not set",
		}
		slog.WarnContext(ctx, "openai: skipped", "err", err)
		return "", err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := chatURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	raw, err := c.doJSONRequest(req)
	if err != nil {
		slog.WarnContext(ctx, "openai: request failed", "err", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", malformed(fmt.Errorf("decode response: %w", err))
	}
	if len(payload.Choices) == 0 {
		return "", malformed(errors.New("no choices in response"))
	}
	slog.InfoContext(ctx, "openai: completed", "id", payload.ID, "elapsed_ms", time.Since(start).Milliseconds())
	return strings.TrimSpace(payload.Choices[0].Message.Content), nil
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, &domain.ProviderError{
			Kind:     domain.FailureTransport,
			Provider: domain.ProviderOpenAI,
			Detail:   err.Error(),
			Err:      err,
		}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, apiError(res.StatusCode, buf)
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, &domain.ProviderError{
			Kind:     domain.FailureTransport,
			Provider: domain.ProviderOpenAI,
			Detail:   "read response body: " + err.Error(),
			Err:      err,
		}
	}
	return buf, nil
}

// apiError extracts the provider error code from the body. OpenAI sends the
// specific condition in error.code and a broader category in error.type.
func apiError(status int, body []byte) *domain.ProviderError {
	out := &domain.ProviderError{
		Kind:       domain.FailureAPI,
		Provider:   domain.ProviderOpenAI,
		StatusCode: status,
		Detail:     strings.TrimSpace(string(body)),
	}
	var e errorResponse
	if json.Unmarshal(body, &e) != nil {
		return out
	}
	if code, ok := e.Error.Code.(string); ok && code != "" {
		out.Code = code
	} else {
		out.Code = e.Error.Type
	}
	if e.Error.Message != "" {
		out.Detail = e.Error.Message
	}
	return out
}

func malformed(err error) *domain.ProviderError {
	return &domain.ProviderError{
		Kind:       domain.FailureAPI,
		Provider:   domain.ProviderOpenAI,
		Code:       "malformed_response",
		StatusCode: http.StatusOK,
		Detail:     err.Error(),
		Err:        err,
	}
}

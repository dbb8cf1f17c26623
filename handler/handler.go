package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-gateway/internal/domain"
	"chat-gateway/internal/usecase"
)

const (
	Version          = "1.0.0"
	correlationIDKey = "X-Correlation-Id"
	timestampLayout  = "2006-01-02T15:04:05.000Z"
)

type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (domain.ChatResult, error)
}

type CatalogUseCase interface {
	List(ctx context.Context) usecase.ProviderListing
	Status() usecase.ProviderStatus
}

type chatRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider,omitempty"`
}

type chatResponse struct {
	Success        bool            `json:"success"`
	Response       string          `json:"response"`
	Provider       domain.Provider `json:"provider"`
	Timestamp      string          `json:"timestamp"`
	ProcessingTime int64           `json:"processingTime"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type providerInfo struct {
	ID          domain.Provider `json:"id"`
	Name        string          `json:"name"`
	Available   bool            `json:"available"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
}

type recommendations struct {
	Primary  domain.Provider `json:"primary"`
	Fallback domain.Provider `json:"fallback"`
}

type providersResponse struct {
	Providers       []providerInfo  `json:"providers"`
	Default         domain.Provider `json:"default"`
	Recommendations recommendations `json:"recommendations"`
}

type statusResponse struct {
	OpenAIConfigured bool            `json:"openaiConfigured"`
	ClaudeConfigured bool            `json:"claudeConfigured"`
	DefaultProvider  domain.Provider `json:"defaultProvider"`
	Timestamp        string          `json:"timestamp"`
}

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Message   string  `json:"message"`
}

type rootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

type historyResponse struct {
	Message string   `json:"message"`
	History []string `json:"history"`
}

// Handler serves the gateway endpoints. Transport adapters (gin and Lambda)
// share the same route table.
type Handler struct {
	chat        ChatUseCase
	catalog     CatalogUseCase
	development bool
	startedAt   time.Time
	now         func() time.Time
	newID       func() string
}

type Option func(*Handler)

// WithDevelopment exposes internal error details in 500 responses.
func WithDevelopment(dev bool) Option {
	return func(h *Handler) {
		h.development = dev
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

func NewHandler(chat ChatUseCase, catalog CatalogUseCase, opts ...Option) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if catalog == nil {
		return nil, errors.New("handler: catalog use case must not be nil")
	}
	h := &Handler{
		chat:    chat,
		catalog: catalog,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.startedAt = h.now()
	return h, nil
}

type route struct {
	method string
	path   string
	serve  func(h *Handler, ctx context.Context, body []byte) (int, any)
}

var routes = []route{
	{http.MethodGet, "/", (*Handler).root},
	{http.MethodGet, "/api/health", (*Handler).health},
	{http.MethodPost, "/api/chat", (*Handler).postChat},
	{http.MethodGet, "/api/chat/history", (*Handler).history},
	{http.MethodGet, "/api/providers", (*Handler).providers},
	{http.MethodGet, "/api/status", (*Handler).status},
}

func lookupRoute(method, path string) (route, bool) {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	for _, rt := range routes {
		if rt.method == method && rt.path == path {
			return rt, true
		}
	}
	return route{}, false
}

func notFound(path string) (int, any) {
	return http.StatusNotFound, errorResponse{Error: "Not Found", Message: "Route " + path + " not found"}
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(timestampLayout)
}

func (h *Handler) postChat(ctx context.Context, body []byte) (int, any) {
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		slog.WarnContext(ctx, "chat: invalid request body", "err", err)
		return badRequest()
	}

	res, err := h.chat.Chat(ctx, usecase.ChatInput{Message: req.Message, Provider: req.Provider})
	if err != nil {
		var ue *usecase.Error
		if errors.As(err, &ue) && ue.Code == usecase.ErrorInvalidInput {
			return badRequest()
		}
		slog.ErrorContext(ctx, "chat: failed", "err", err)
		return h.internalError("Failed to process chat message", err)
	}

	return http.StatusOK, chatResponse{
		Success:        true,
		Response:       res.Text,
		Provider:       res.ProviderUsed,
		Timestamp:      h.timestamp(),
		ProcessingTime: res.ElapsedMillis,
	}
}

func badRequest() (int, any) {
	return http.StatusBadRequest, errorResponse{
		Error:   "Bad Request",
		Message: "Message is required and must be a non-empty string",
	}
}

func (h *Handler) internalError(public string, err error) (int, any) {
	msg := public
	if h.development && err != nil {
		msg = err.Error()
	}
	return http.StatusInternalServerError, errorResponse{Error: "Internal Server Error", Message: msg}
}

func (h *Handler) providers(ctx context.Context, _ []byte) (int, any) {
	listing := h.catalog.List(ctx)
	out := providersResponse{
		Providers: make([]providerInfo, 0, len(listing.Providers)),
		Default:   listing.Default,
		Recommendations: recommendations{
			Primary:  listing.Primary,
			Fallback: listing.Fallback,
		},
	}
	for _, p := range listing.Providers {
		out.Providers = append(out.Providers, providerInfo{
			ID:          p.ID,
			Name:        p.Name,
			Available:   p.Available,
			Description: p.Description,
			Status:      p.Status,
		})
	}
	return http.StatusOK, out
}

func (h *Handler) status(_ context.Context, _ []byte) (int, any) {
	st := h.catalog.Status()
	return http.StatusOK, statusResponse{
		OpenAIConfigured: st.OpenAIConfigured,
		ClaudeConfigured: st.ClaudeConfigured,
		DefaultProvider:  st.DefaultProvider,
		Timestamp:        h.timestamp(),
	}
}

func (h *Handler) health(_ context.Context, _ []byte) (int, any) {
	return http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: h.timestamp(),
		Uptime:    h.now().Sub(h.startedAt).Seconds(),
		Message:   "AI Chat API is running",
	}
}

func (h *Handler) root(_ context.Context, _ []byte) (int, any) {
	return http.StatusOK, rootResponse{
		Message: "AI Chat API Server",
		Version: Version,
		Endpoints: map[string]string{
			"health":    "/api/health",
			"chat":      "/api/chat",
			"history":   "/api/chat/history",
			"providers": "/api/providers",
			"status":    "/api/status",
		},
	}
}

// history is a placeholder; the gateway keeps no conversation memory.
func (h *Handler) history(_ context.Context, _ []byte) (int, any) {
	return http.StatusOK, historyResponse{
		Message: "Chat history feature not implemented yet",
		History: []string{},
	}
}

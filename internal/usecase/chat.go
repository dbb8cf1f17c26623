package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"chat-gateway/internal/config"
	"chat-gateway/internal/domain"
)

// Generator is a remote text-generation backend.
type Generator interface {
	Generate(ctx context.Context, message string) (string, error)
}

// Responder is the local, infallible backend.
type Responder interface {
	Respond(message string) string
}

type ChatInput struct {
	Message  string
	Provider string
}

// ChatService routes a message to a backend and applies the fallback chain:
// requested (or default) provider, then at most one other configured remote,
// then the mock responder.
type ChatService struct {
	cfg           config.Config
	remotes       map[domain.Provider]Generator
	mock          Responder
	formatFailure FailureFormatter
	now           func() time.Time
}

type ChatOption func(*ChatService)

func WithFailureFormatter(f FailureFormatter) ChatOption {
	return func(s *ChatService) {
		if f != nil {
			s.formatFailure = f
		}
	}
}

func WithClock(now func() time.Time) ChatOption {
	return func(s *ChatService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewChatService(cfg config.Config, openai, claude Generator, mock Responder, opts ...ChatOption) (*ChatService, error) {
	if openai == nil {
		return nil, errors.New("usecase: openai generator must not be nil")
	}
	if claude == nil {
		return nil, errors.New("usecase: claude generator must not be nil")
	}
	if mock == nil {
		return nil, errors.New("usecase: mock responder must not be nil")
	}
	if _, ok := domain.ParseProvider(string(cfg.DefaultProvider)); !ok {
		cfg.DefaultProvider = domain.ProviderMock
	}
	s := &ChatService{
		cfg: cfg,
		remotes: map[domain.Provider]Generator{
			domain.ProviderOpenAI: openai,
			domain.ProviderClaude: claude,
		},
		mock:          mock,
		formatFailure: ThaiFailureMessage,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Chat validates the input and routes it. The only error it returns is
// ErrorInvalidInput; provider failures are absorbed by the fallback chain.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (domain.ChatResult, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return domain.ChatResult{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	return s.Route(ctx, message, in.Provider), nil
}

// Route never fails; it always resolves to at least a mock reply.
func (s *ChatService) Route(ctx context.Context, message, requested string) domain.ChatResult {
	start := s.now()
	primary := s.resolve(requested)
	slog.InfoContext(ctx, "chat: routing", "requested", requested, "provider", primary)

	text, used := s.dispatch(ctx, message, primary)

	elapsed := s.now().Sub(start).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	slog.InfoContext(ctx, "chat: answered", "provider", used, "elapsed_ms", elapsed)
	return domain.ChatResult{Text: text, ProviderUsed: used, ElapsedMillis: elapsed}
}

func (s *ChatService) resolve(requested string) domain.Provider {
	if p, ok := domain.ParseProvider(requested); ok {
		return p
	}
	return s.cfg.DefaultProvider
}

func (s *ChatService) dispatch(ctx context.Context, message string, primary domain.Provider) (string, domain.Provider) {
	if primary == domain.ProviderMock {
		return s.mock.Respond(message), domain.ProviderMock
	}

	text, err := s.attempt(ctx, primary, message)
	if err == nil {
		return text, primary
	}
	failures := []failureRecord{{provider: primary, cause: err}}

	if secondary, ok := s.secondaryFor(primary); ok {
		slog.InfoContext(ctx, "chat: trying secondary provider", "failed", primary, "secondary", secondary)
		text, err := s.attempt(ctx, secondary, message)
		if err == nil {
			return secondary.Tag() + " " + text, secondary
		}
		failures = append(failures, failureRecord{provider: secondary, cause: err})
	}

	tried := make([]domain.Provider, 0, len(failures))
	for _, f := range failures {
		tried = append(tried, f.provider)
	}
	slog.WarnContext(ctx, "chat: falling back to mock", "tried", tried)
	return s.mockFallback(message, failures), domain.ProviderMock
}

// attempt skips the network entirely for providers without a key.
func (s *ChatService) attempt(ctx context.Context, p domain.Provider, message string) (string, error) {
	if !s.cfg.HasKey(p) {
		err := &domain.ProviderError{
			Kind:     domain.FailureUnconfigured,
			Provider: p,
			Detail:   "API key is not configured",
		}
		slog.WarnContext(ctx, "chat: provider unavailable", "provider", p, "err", err)
		return "", err
	}
	text, err := s.remotes[p].Generate(ctx, message)
	if err != nil {
		slog.WarnContext(ctx, "chat: provider failed", "provider", p, "err", err)
		return "", err
	}
	return text, nil
}

// secondaryFor returns the other remote provider when its key is configured.
func (s *ChatService) secondaryFor(failed domain.Provider) (domain.Provider, bool) {
	var alt domain.Provider
	switch failed {
	case domain.ProviderOpenAI:
		alt = domain.ProviderClaude
	case domain.ProviderClaude:
		alt = domain.ProviderOpenAI
	default:
		return "", false
	}
	return alt, s.cfg.HasKey(alt)
}

func (s *ChatService) mockFallback(message string, failures []failureRecord) string {
	reply := s.mock.Respond(message)
	var b strings.Builder
	b.WriteString(domain.ProviderMock.Tag())
	b.WriteString(" ")
	b.WriteString(reply)
	b.WriteString("\n\n⚠️ หมายเหตุ: ไม่สามารถใช้งาน AI จริงได้ในขณะนี้ (")
	b.WriteString(s.formatFailure(failures[0].cause))
	b.WriteString(")")
	return b.String()
}

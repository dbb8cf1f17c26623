package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chat-gateway/internal/config"
	"chat-gateway/internal/domain"
)

const (
	StatusAvailable     = "available"
	StatusNotConfigured = "not_configured"
	StatusUnavailable   = "unavailable"

	defaultProbeTimeout = 5 * time.Second
)

var descriptions = map[domain.Provider]string{
	domain.ProviderOpenAI: "OpenAI Chat Completions",
	domain.ProviderClaude: "Anthropic Claude Messages",
	domain.ProviderMock:   "ตัวตอบกลับในเครื่อง ใช้งานได้เสมอโดยไม่ต้องมี API key",
}

// Prober checks whether a remote provider currently accepts requests.
type Prober interface {
	Probe(ctx context.Context) error
}

type ProviderInfo struct {
	ID          domain.Provider
	Name        string
	Available   bool
	Description string
	Status      string
}

type ProviderListing struct {
	Providers []ProviderInfo
	Default   domain.Provider
	Primary   domain.Provider
	Fallback  domain.Provider
}

type ProviderStatus struct {
	OpenAIConfigured bool
	ClaudeConfigured bool
	DefaultProvider  domain.Provider
}

// CatalogService reports which providers are usable.
type CatalogService struct {
	cfg           config.Config
	probers       map[domain.Provider]Prober
	probeTimeout  time.Duration
	formatFailure FailureFormatter
}

type CatalogOption func(*CatalogService)

func WithProbeTimeout(d time.Duration) CatalogOption {
	return func(s *CatalogService) {
		if d > 0 {
			s.probeTimeout = d
		}
	}
}

func WithCatalogFailureFormatter(f FailureFormatter) CatalogOption {
	return func(s *CatalogService) {
		if f != nil {
			s.formatFailure = f
		}
	}
}

func NewCatalogService(cfg config.Config, openai, claude Prober, opts ...CatalogOption) (*CatalogService, error) {
	if openai == nil || claude == nil {
		return nil, errors.New("usecase: probers must not be nil")
	}
	s := &CatalogService{
		cfg: cfg,
		probers: map[domain.Provider]Prober{
			domain.ProviderOpenAI: openai,
			domain.ProviderClaude: claude,
		},
		probeTimeout:  defaultProbeTimeout,
		formatFailure: ThaiFailureMessage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Status reports key presence without any network traffic.
func (s *CatalogService) Status() ProviderStatus {
	return ProviderStatus{
		OpenAIConfigured: s.cfg.HasKey(domain.ProviderOpenAI),
		ClaudeConfigured: s.cfg.HasKey(domain.ProviderClaude),
		DefaultProvider:  s.cfg.DefaultProvider,
	}
}

// List probes both remote providers concurrently and waits for both. Each
// goroutine owns one slot of the result slice.
func (s *CatalogService) List(ctx context.Context) ProviderListing {
	remotes := []domain.Provider{domain.ProviderOpenAI, domain.ProviderClaude}
	infos := make([]ProviderInfo, len(remotes), len(remotes)+1)

	var wg sync.WaitGroup
	for i, p := range remotes {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			infos[i] = s.probe(ctx, p)
		}()
	}
	wg.Wait()

	infos = append(infos, ProviderInfo{
		ID:          domain.ProviderMock,
		Name:        domain.ProviderMock.DisplayName(),
		Available:   true,
		Description: descriptions[domain.ProviderMock],
		Status:      StatusAvailable,
	})

	primary := domain.ProviderMock
	for _, info := range infos {
		if info.Available {
			primary = info.ID
			break
		}
	}

	return ProviderListing{
		Providers: infos,
		Default:   s.cfg.DefaultProvider,
		Primary:   primary,
		Fallback:  domain.ProviderMock,
	}
}

func (s *CatalogService) probe(ctx context.Context, p domain.Provider) ProviderInfo {
	info := ProviderInfo{
		ID:          p,
		Name:        p.DisplayName(),
		Description: descriptions[p],
	}
	if !s.cfg.HasKey(p) {
		info.Status = StatusNotConfigured
		return info
	}

	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	start := time.Now()
	if err := s.probers[p].Probe(ctx); err != nil {
		slog.WarnContext(ctx, "catalog: probe failed", "provider", p, "err", err, "elapsed_ms", time.Since(start).Milliseconds())
		info.Status = StatusUnavailable
		info.Description = s.formatFailure(err)
		return info
	}
	info.Available = true
	info.Status = StatusAvailable
	return info
}

// Package config builds the process-wide gateway configuration. It is read once
// at startup and passed by value afterwards.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"chat-gateway/internal/domain"
	"chat-gateway/internal/integrations/paramstore"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultPort = 3000
)

// Config is the immutable gateway configuration.
type Config struct {
	OpenAIKey       string
	ClaudeKey       string
	DefaultProvider domain.Provider
	OpenAIModel     string
	ClaudeModel     string
	Port            int
	Environment     string
	ParamPrefix     string
}

func (c Config) HasKey(p domain.Provider) bool {
	switch p {
	case domain.ProviderOpenAI:
		return c.OpenAIKey != ""
	case domain.ProviderClaude:
		return c.ClaudeKey != ""
	default:
		return false
	}
}

func (c Config) Development() bool {
	return c.Environment == EnvDevelopment
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv reads the configuration through lookup. Unknown AI_PROVIDER values
// and malformed PORT values fall back to defaults with a warning.
func FromEnv(lookup LookupFunc) Config {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		OpenAIKey:       get("OPENAI_API_KEY"),
		ClaudeKey:       get("CLAUDE_API_KEY"),
		DefaultProvider: domain.ProviderMock,
		OpenAIModel:     get("OPENAI_MODEL"),
		ClaudeModel:     get("CLAUDE_MODEL"),
		Port:            defaultPort,
		Environment:     EnvProduction,
		ParamPrefix:     strings.TrimRight(get("PARAM_PREFIX"), "/"),
	}

	if raw := get("AI_PROVIDER"); raw != "" {
		if p, ok := domain.ParseProvider(raw); ok {
			cfg.DefaultProvider = p
		} else {
			slog.Warn("unknown AI_PROVIDER, using mock", "value", raw)
		}
	}

	if raw := get("PORT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < 65536 {
			cfg.Port = n
		} else {
			slog.Warn("invalid PORT, using default", "value", raw, "default", defaultPort)
		}
	}

	env := get("APP_ENV")
	if env == "" {
		env = get("NODE_ENV")
	}
	if env != "" {
		cfg.Environment = strings.ToLower(env)
	}
	return cfg
}

// KeyGetter is satisfied by *paramstore.Client.
type KeyGetter interface {
	GetAPIKey(ctx context.Context, name string) (string, error)
}

// ResolveSecrets fills API keys missing from the environment from the
// parameter store under cfg.ParamPrefix. Absent parameters are not an error;
// the provider simply stays unconfigured.
func ResolveSecrets(ctx context.Context, cfg Config, keys KeyGetter) (Config, error) {
	if cfg.ParamPrefix == "" {
		return cfg, nil
	}
	if keys == nil {
		return cfg, errors.New("config: key getter must not be nil when PARAM_PREFIX is set")
	}

	fill := func(dst *string, name string) error {
		if *dst != "" {
			return nil
		}
		v, err := keys.GetAPIKey(ctx, cfg.ParamPrefix+"/"+name)
		if errors.Is(err, paramstore.ErrNotFound) {
			slog.InfoContext(ctx, "api key not in parameter store", "name", name)
			return nil
		}
		if err != nil {
			return fmt.Errorf("config: load %s: %w", name, err)
		}
		*dst = v
		return nil
	}

	if err := fill(&cfg.OpenAIKey, "openai-api-key"); err != nil {
		return cfg, err
	}
	if err := fill(&cfg.ClaudeKey, "claude-api-key"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

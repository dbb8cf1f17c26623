package domain

import "strings"

// Provider identifies one of the interchangeable text-generation backends.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
	ProviderMock   Provider = "mock"
)

// ParseProvider maps a raw identifier to a known Provider. The match is
// case-insensitive and ignores surrounding whitespace.
func ParseProvider(raw string) (Provider, bool) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(raw))); p {
	case ProviderOpenAI, ProviderClaude, ProviderMock:
		return p, true
	default:
		return "", false
	}
}

// DisplayName is the human-facing provider label.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI GPT"
	case ProviderClaude:
		return "Anthropic Claude"
	case ProviderMock:
		return "Mock AI"
	default:
		return string(p)
	}
}

// Tag is the bracketed marker prepended to replies produced by p on a
// fallback path.
func (p Provider) Tag() string {
	switch p {
	case ProviderOpenAI:
		return "[OpenAI]"
	case ProviderClaude:
		return "[Claude AI]"
	case ProviderMock:
		return "[Mock AI]"
	default:
		return "[" + string(p) + "]"
	}
}

package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-gateway/internal/config"
	"chat-gateway/internal/domain"
	"chat-gateway/internal/responder"
)

type stubGenerator struct {
	provider domain.Provider
	text     string
	err      error
	calls    int
	got      string
}

func (g *stubGenerator) Generate(_ context.Context, message string) (string, error) {
	g.calls++
	g.got = message
	return g.text, g.err
}

type fixedResponder string

func (r fixedResponder) Respond(string) string { return string(r) }

func apiFailure(p domain.Provider, code string) error {
	return &domain.ProviderError{Kind: domain.FailureAPI, Provider: p, Code: code, StatusCode: 429, Detail: "boom"}
}

type fixture struct {
	openai *stubGenerator
	claude *stubGenerator
	svc    *ChatService
}

func newFixture(t *testing.T, cfg config.Config, mock Responder) fixture {
	t.Helper()
	f := fixture{
		openai: &stubGenerator{provider: domain.ProviderOpenAI, text: "from openai"},
		claude: &stubGenerator{provider: domain.ProviderClaude, text: "from claude"},
	}
	svc, err := NewChatService(cfg, f.openai, f.claude, mock)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func bothKeys() config.Config {
	return config.Config{OpenAIKey: "sk", ClaudeKey: "ck", DefaultProvider: domain.ProviderMock}
}

func TestNewChatService_ValidatesDependencies(t *testing.T) {
	g := &stubGenerator{}
	_, err := NewChatService(config.Config{}, nil, g, fixedResponder("x"))
	require.Error(t, err)
	_, err = NewChatService(config.Config{}, g, nil, fixedResponder("x"))
	require.Error(t, err)
	_, err = NewChatService(config.Config{}, g, g, nil)
	require.Error(t, err)
}

func TestNewChatService_InvalidDefaultBecomesMock(t *testing.T) {
	f := newFixture(t, config.Config{DefaultProvider: "gemini"}, fixedResponder("mock"))
	res := f.svc.Route(context.Background(), "hi", "")
	require.Equal(t, domain.ProviderMock, res.ProviderUsed)
}

func TestChat_RejectsBlankMessage(t *testing.T) {
	f := newFixture(t, bothKeys(), fixedResponder("mock"))
	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := f.svc.Chat(context.Background(), ChatInput{Message: msg})
		var ue *Error
		require.ErrorAs(t, err, &ue)
		require.Equal(t, ErrorInvalidInput, ue.Code)
	}
	require.Zero(t, f.openai.calls)
	require.Zero(t, f.claude.calls)
}

func TestChat_TrimsMessage(t *testing.T) {
	f := newFixture(t, bothKeys(), fixedResponder("mock"))
	res, err := f.svc.Chat(context.Background(), ChatInput{Message: "  hi  ", Provider: "openai"})
	require.NoError(t, err)
	require.Equal(t, "from openai", res.Text)
	require.Equal(t, "hi", f.openai.got)
}

func TestRoute_GreetingScenario_NoKeys(t *testing.T) {
	f := newFixture(t, config.Config{DefaultProvider: domain.ProviderMock}, responder.New())
	res := f.svc.Route(context.Background(), "สวัสดีครับ", "")
	require.Equal(t, domain.ProviderMock, res.ProviderUsed)
	require.Equal(t, "สวัสดีครับ! ยินดีที่ได้รู้จักนะครับ มีอะไรให้ช่วยไหมครับ?", res.Text)
	require.Zero(t, f.openai.calls)
	require.Zero(t, f.claude.calls)
}

func TestRoute_ResolvesProvider(t *testing.T) {
	cases := []struct {
		name      string
		def       domain.Provider
		requested string
		want      domain.Provider
		wantText  string
	}{
		{"explicit openai", domain.ProviderMock, "openai", domain.ProviderOpenAI, "from openai"},
		{"explicit claude", domain.ProviderOpenAI, "claude", domain.ProviderClaude, "from claude"},
		{"explicit mock", domain.ProviderOpenAI, "mock", domain.ProviderMock, "mock"},
		{"case insensitive", domain.ProviderMock, " OpenAI ", domain.ProviderOpenAI, "from openai"},
		{"unset uses default", domain.ProviderClaude, "", domain.ProviderClaude, "from claude"},
		{"unknown uses default", domain.ProviderOpenAI, "gemini", domain.ProviderOpenAI, "from openai"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := bothKeys()
			cfg.DefaultProvider = tc.def
			f := newFixture(t, cfg, fixedResponder("mock"))
			res := f.svc.Route(context.Background(), "hi", tc.requested)
			require.Equal(t, tc.want, res.ProviderUsed)
			require.Equal(t, tc.wantText, res.Text)
		})
	}
}

func TestRoute_OpenAIWithoutKey_FallsBackToClaude(t *testing.T) {
	f := newFixture(t, config.Config{ClaudeKey: "ck", DefaultProvider: domain.ProviderMock}, responder.New())
	res := f.svc.Route(context.Background(), "hello", "openai")
	require.Equal(t, domain.ProviderClaude, res.ProviderUsed)
	require.True(t, strings.HasPrefix(res.Text, "[Claude AI] "), res.Text)
	require.Equal(t, "[Claude AI] from claude", res.Text)
	require.Zero(t, f.openai.calls, "openai must not be attempted without a key")
	require.Equal(t, 1, f.claude.calls)
}

func TestRoute_OpenAIWithoutAnyKey_FallsBackToMock(t *testing.T) {
	f := newFixture(t, config.Config{DefaultProvider: domain.ProviderMock}, fixedResponder("canned"))
	res := f.svc.Route(context.Background(), "hello", "openai")
	require.Equal(t, domain.ProviderMock, res.ProviderUsed)
	require.True(t, strings.HasPrefix(res.Text, "[Mock AI] canned"))
	require.Contains(t, res.Text, "ยังไม่ได้ตั้งค่า API key ของ OpenAI GPT")
	require.Zero(t, f.openai.calls)
	require.Zero(t, f.claude.calls)
}

func TestRoute_ClaudeFails_FallsBackToOpenAI(t *testing.T) {
	f := newFixture(t, bothKeys(), fixedResponder("canned"))
	f.claude.err = apiFailure(domain.ProviderClaude, "rate_limit_error")
	res := f.svc.Route(context.Background(), "hello", "claude")
	require.Equal(t, domain.ProviderOpenAI, res.ProviderUsed)
	require.Equal(t, "[OpenAI] from openai", res.Text)
	require.Equal(t, 1, f.claude.calls)
	require.Equal(t, 1, f.openai.calls)
}

func TestRoute_BothFail_MockWithPrimaryDetail(t *testing.T) {
	f := newFixture(t, bothKeys(), fixedResponder("canned"))
	f.openai.err = apiFailure(domain.ProviderOpenAI, "insufficient_quota")
	f.claude.err = &domain.ProviderError{Kind: domain.FailureTransport, Provider: domain.ProviderClaude, Detail: "dial tcp: refused"}

	res := f.svc.Route(context.Background(), "hello", "openai")
	require.Equal(t, domain.ProviderMock, res.ProviderUsed)
	require.True(t, strings.HasPrefix(res.Text, "[Mock AI] canned"))
	require.Contains(t, res.Text, "⚠️")
	require.Contains(t, res.Text, "โควต้าการใช้งาน OpenAI GPT หมดแล้ว")
	require.NotContains(t, res.Text, "dial tcp")
	require.Equal(t, 1, f.openai.calls)
	require.Equal(t, 1, f.claude.calls)
}

func TestRoute_FailureWithoutSecondaryKey_NoSecondaryAttempt(t *testing.T) {
	f := newFixture(t, config.Config{OpenAIKey: "sk", DefaultProvider: domain.ProviderOpenAI}, fixedResponder("canned"))
	f.openai.err = errors.New("network down")
	res := f.svc.Route(context.Background(), "hello", "")
	require.Equal(t, domain.ProviderMock, res.ProviderUsed)
	require.Contains(t, res.Text, "network down")
	require.Equal(t, 1, f.openai.calls)
	require.Zero(t, f.claude.calls)
}

func TestRoute_NeverRetriesSameProvider(t *testing.T) {
	f := newFixture(t, bothKeys(), fixedResponder("canned"))
	f.openai.err = apiFailure(domain.ProviderOpenAI, "server_error")
	f.claude.err = apiFailure(domain.ProviderClaude, "overloaded_error")
	_ = f.svc.Route(context.Background(), "hello", "openai")
	require.Equal(t, 1, f.openai.calls)
	require.Equal(t, 1, f.claude.calls)
}

func TestRoute_CustomFormatterAndElapsed(t *testing.T) {
	ticks := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 1, 250_000_000, time.UTC),
	}
	i := 0
	clock := func() time.Time {
		ts := ticks[i]
		i++
		return ts
	}
	g := &stubGenerator{err: errors.New("x")}
	svc, err := NewChatService(
		config.Config{OpenAIKey: "sk", DefaultProvider: domain.ProviderOpenAI},
		g, &stubGenerator{}, fixedResponder("canned"),
		WithFailureFormatter(func(error) string { return "custom" }),
		WithClock(clock),
	)
	require.NoError(t, err)

	res := svc.Route(context.Background(), "hi", "")
	require.Equal(t, "[Mock AI] canned\n\n⚠️ หมายเหตุ: ไม่สามารถใช้งาน AI จริงได้ในขณะนี้ (custom)", res.Text)
	require.Equal(t, int64(1250), res.ElapsedMillis)
}

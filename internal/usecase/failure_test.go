package usecase

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-gateway/internal/domain"
)

func TestThaiFailureMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unconfigured",
			err:  &domain.ProviderError{Kind: domain.FailureUnconfigured, Provider: domain.ProviderClaude},
			want: "ยังไม่ได้ตั้งค่า API key ของ Anthropic Claude",
		},
		{
			name: "transport",
			err:  &domain.ProviderError{Kind: domain.FailureTransport, Provider: domain.ProviderOpenAI, Detail: "timeout"},
			want: "ไม่สามารถเชื่อมต่อกับ OpenAI GPT ได้: timeout",
		},
		{
			name: "openai quota",
			err:  &domain.ProviderError{Kind: domain.FailureAPI, Provider: domain.ProviderOpenAI, Code: "insufficient_quota"},
			want: "โควต้าการใช้งาน OpenAI GPT หมดแล้ว กรุณาตรวจสอบแผนการใช้งานและการชำระเงิน",
		},
		{
			name: "openai bad key",
			err:  &domain.ProviderError{Kind: domain.FailureAPI, Provider: domain.ProviderOpenAI, Code: "invalid_api_key", StatusCode: 401},
			want: "API key ของ OpenAI GPT ไม่ถูกต้อง",
		},
		{
			name: "openai rate limit",
			err:  &domain.ProviderError{Kind: domain.FailureAPI, Provider: domain.ProviderOpenAI, Code: "rate_limit_exceeded", StatusCode: 429},
			want: "มีการเรียกใช้ OpenAI GPT บ่อยเกินไป กรุณาลองใหม่ในภายหลัง",
		},
		{
			name: "claude 401",
			err:  &domain.ProviderError{Kind: domain.FailureAPI, Provider: domain.ProviderClaude, Code: "authentication_error", StatusCode: 401},
			want: "API key ของ Anthropic Claude ไม่ถูกต้อง",
		},
		{
			name: "claude 429",
			err:  &domain.ProviderError{Kind: domain.FailureAPI, Provider: domain.ProviderClaude, StatusCode: 429},
			want: "มีการเรียกใช้ Anthropic Claude บ่อยเกินไป กรุณาลองใหม่ในภายหลัง",
		},
		{
			name: "openai 401 without code is generic",
			err:  &domain.ProviderError{Kind: domain.FailureAPI, Provider: domain.ProviderOpenAI, StatusCode: 401, Detail: "nope"},
			want: "เกิดข้อผิดพลาดจาก OpenAI GPT: nope",
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("ctx: %w", &domain.ProviderError{Kind: domain.FailureAPI, Provider: domain.ProviderClaude, StatusCode: 500, Detail: "overloaded"}),
			want: "เกิดข้อผิดพลาดจาก Anthropic Claude: overloaded",
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: "เกิดข้อผิดพลาดที่ไม่คาดคิด: boom",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ThaiFailureMessage(tc.err))
		})
	}
}

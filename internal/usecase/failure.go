package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"chat-gateway/internal/domain"
)

// FailureFormatter turns a provider failure into user-facing text.
type FailureFormatter func(err error) string

// failureRecord captures one failed attempt within a single request.
type failureRecord struct {
	provider domain.Provider
	cause    error
}

// ThaiFailureMessage is the default FailureFormatter.
func ThaiFailureMessage(err error) string {
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		return fmt.Sprintf("เกิดข้อผิดพลาดที่ไม่คาดคิด: %v", err)
	}
	name := perr.Provider.DisplayName()

	switch perr.Kind {
	case domain.FailureUnconfigured:
		return fmt.Sprintf("ยังไม่ได้ตั้งค่า API key ของ %s", name)
	case domain.FailureTransport:
		return fmt.Sprintf("ไม่สามารถเชื่อมต่อกับ %s ได้: %s", name, perr.Detail)
	}

	switch {
	case perr.Code == "insufficient_quota":
		return fmt.Sprintf("โควต้าการใช้งาน %s หมดแล้ว กรุณาตรวจสอบแผนการใช้งานและการชำระเงิน", name)
	case perr.Code == "invalid_api_key",
		perr.Provider == domain.ProviderClaude && perr.StatusCode == http.StatusUnauthorized:
		return fmt.Sprintf("API key ของ %s ไม่ถูกต้อง", name)
	case perr.Code == "rate_limit_exceeded",
		perr.Provider == domain.ProviderClaude && perr.StatusCode == http.StatusTooManyRequests:
		return fmt.Sprintf("มีการเรียกใช้ %s บ่อยเกินไป กรุณาลองใหม่ในภายหลัง", name)
	default:
		return fmt.Sprintf("เกิดข้อผิดพลาดจาก %s: %s", name, perr.Detail)
	}
}

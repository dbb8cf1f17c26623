package domain

import "fmt"

// FailureKind classifies why a remote provider could not produce a reply.
type FailureKind string

const (
	FailureUnconfigured FailureKind = "unconfigured"
	FailureTransport    FailureKind = "transport"
	FailureAPI          FailureKind = "api_error"
)

// ProviderError is the normalized failure returned by remote provider clients.
// Code carries the provider's error code or type when the response had one.
type ProviderError struct {
	Kind       FailureKind
	Provider   Provider
	Code       string
	StatusCode int
	Detail     string
	Err        error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

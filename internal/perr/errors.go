// Package perr defines Pollux's error taxonomy and the outbound error
// envelope shape shared by every inbound dialect.
package perr

import (
	"fmt"
	"net/http"
)

// Kind classifies an error for logging and retry-policy purposes.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNoCapacity Kind = "no_capacity"
	KindUpstream   Kind = "upstream"
	KindOAuthFlow  Kind = "oauth_flow"
	KindInternal   Kind = "internal"
)

// Error is the canonical error type returned by every handler and core
// component. It carries enough information to render the wire envelope:
//
//	{"error":{"code":<http>,"message":<string>,"status":<UPPER_SNAKE>}}
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// StatusText overrides the default UPPER_SNAKE status derived from Status.
	StatusText string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Envelope renders the wire-format error body.
func (e *Error) Envelope() map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    e.Status,
			"message": e.Message,
			"status":  e.statusText(),
		},
	}
}

func (e *Error) statusText() string {
	if e.StatusText != "" {
		return e.StatusText
	}
	return http.StatusText(e.Status)
}

// Validation builds a 400 KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...), StatusText: "INVALID_ARGUMENT"}
}

// Unauthorized builds a 401 KindAuth error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Message: message, StatusText: "UNAUTHENTICATED"}
}

// NoCapacity builds the fixed 503 body returned verbatim when no
// credential is available.
func NoCapacity() *Error {
	return &Error{
		Kind:       KindNoCapacity,
		Status:     http.StatusServiceUnavailable,
		Message:    "No available credentials to process the request.",
		StatusText: "UNAVAILABLE",
	}
}

// Upstream wraps a passthrough or normalized upstream failure.
func Upstream(status int, message string) *Error {
	return &Error{Kind: KindUpstream, Status: status, Message: message, StatusText: "UPSTREAM_ERROR"}
}

// OAuthFlow builds a 401 error carrying an upstream-supplied reason code
// (e.g. ineligibleTiers/reasonCode from a Code Assist onboarding check).
func OAuthFlow(code, message string) *Error {
	st := code
	if st == "" {
		st = "PERMISSION_DENIED"
	}
	return &Error{Kind: KindOAuthFlow, Status: http.StatusUnauthorized, Message: message, StatusText: st}
}

// Internal builds an opaque 500 error; callers should log the real cause
// separately since Message is shown to clients.
func Internal(message string) *Error {
	if message == "" {
		message = "internal error"
	}
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: message, StatusText: "INTERNAL"}
}

// GatewayTimeout builds a 504 for a retry budget exhausted by deadline.
func GatewayTimeout(message string) *Error {
	return &Error{Kind: KindUpstream, Status: http.StatusGatewayTimeout, Message: message, StatusText: "DEADLINE_EXCEEDED"}
}

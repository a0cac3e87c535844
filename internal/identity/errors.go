package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds classify identity-service failures so callers can branch
// without parsing provider messages.
const (
	KindDuplicateEmail     = "duplicate_email"
	KindInvalidCredentials = "invalid_credentials"
	KindInvalidEmail       = "invalid_email"
	KindWeakPassword       = "weak_password"
	KindPasswordMismatch   = "password_mismatch"
	KindPasswordTooShort   = "password_too_short"
	KindUnknown            = "unknown"
)

// ErrNoSession reports that no live session exists for the supplied token.
var ErrNoSession = errors.New("identity: no active session")

// Error is a classified identity-service failure. Message is safe to show
// to an end user; Raw keeps the upstream message for logs; Code carries
// the upstream HTTP status when known.
type Error struct {
	Kind    string
	Message string
	Raw     string
	Code    int
}

func (e *Error) Error() string {
	s := fmt.Sprintf("identity: %s: %s", e.Kind, e.Message)
	if e.Code != 0 {
		s = fmt.Sprintf("identity: %s (%d): %s", e.Kind, e.Code, e.Message)
	}
	if e.Raw != "" && e.Raw != e.Message {
		s += " (upstream: " + e.Raw + ")"
	}
	return s
}

// KindOf extracts the error kind, or KindUnknown for foreign errors.
func KindOf(err error) string {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindUnknown
}

// UserMessage extracts the user-safe message, with a generic fallback.
func UserMessage(err error) string {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Message
	}
	return "An unexpected error occurred. Please try again."
}

// normalize maps an upstream status and message onto a classified Error.
// Status codes disambiguate first; 400 responses are split on message
// content because the provider reuses the code for several failures.
func normalize(status int, raw string) *Error {
	switch {
	case status == 409:
		return &Error{Kind: KindDuplicateEmail, Code: status, Raw: raw, Message: "An account with this email already exists"}
	case status == 401:
		return &Error{Kind: KindInvalidCredentials, Code: status, Raw: raw, Message: "Invalid email or password"}
	case status == 400 && strings.Contains(strings.ToLower(raw), "password"):
		return &Error{Kind: KindWeakPassword, Code: status, Raw: raw, Message: "Password does not meet security requirements"}
	case status == 400 && strings.Contains(strings.ToLower(raw), "email"):
		return &Error{Kind: KindInvalidEmail, Code: status, Raw: raw, Message: "Please enter a valid email address"}
	default:
		return &Error{Kind: KindUnknown, Code: status, Raw: raw, Message: "An unexpected error occurred. Please try again."}
	}
}

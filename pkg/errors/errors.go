package errors

import "fmt"

// ErrorType classifies failures the bot can run into while driving the
// browser or touching local storage.
type ErrorType string

const (
	ErrorTypeSession         ErrorType = "session"
	ErrorTypeCaptcha         ErrorType = "captcha"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeElementNotFound ErrorType = "element_not_found"
	ErrorTypePersistence     ErrorType = "persistence"
	ErrorTypeUnknown         ErrorType = "unknown"
)

// Error carries the failure class alongside the message so callers can
// decide between retrying, backing off, or giving up on the session.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a typed error.
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a typed error around an underlying cause.
func Wrap(errorType ErrorType, message string, cause error) *Error {
	return &Error{Type: errorType, Message: message, Cause: cause}
}

// IsRetryable reports whether an action that failed with this error type is
// worth attempting again after a backoff. Captcha and session errors need
// operator intervention; persistence failures are absorbed locally and never
// block the action stream.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeElementNotFound:
		return true
	case ErrorTypeSession, ErrorTypeCaptcha, ErrorTypePersistence:
		return false
	default:
		return false
	}
}

// Package apierr defines the error taxonomy surfaced by chat calls.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a chat failure.
type Kind string

const (
	KindConfig    Kind = "CONFIG_ERROR"
	KindRateLimit Kind = "RATE_LIMIT_ERROR"
	KindNetwork   Kind = "NETWORK_ERROR"
	KindAPI       Kind = "API_ERROR"
	KindTimeout   Kind = "TIMEOUT_ERROR"
	KindParse     Kind = "PARSE_ERROR"

	// KindValidation rejects a request locally before any network activity.
	KindValidation Kind = "VALIDATION_ERROR"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrConfig    = errors.New(string(KindConfig))
	ErrRateLimit = errors.New(string(KindRateLimit))
	ErrNetwork   = errors.New(string(KindNetwork))
	ErrAPI       = errors.New(string(KindAPI))
	ErrTimeout   = errors.New(string(KindTimeout))
	ErrParse     = errors.New(string(KindParse))

	ErrValidation = errors.New(string(KindValidation))
)

var sentinels = map[Kind]error{
	KindConfig:    ErrConfig,
	KindRateLimit: ErrRateLimit,
	KindNetwork:   ErrNetwork,
	KindAPI:       ErrAPI,
	KindTimeout:   ErrTimeout,
	KindParse:     ErrParse,

	KindValidation: ErrValidation,
}

// Error is a classified chat failure. Message is short and suitable for
// direct display; Err carries the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// New returns an Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Config returns a CONFIG_ERROR.
func Config(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// RateLimited returns a RATE_LIMIT_ERROR with the friendly message.
func RateLimited() *Error {
	return &Error{Kind: KindRateLimit, Message: rateLimitMessage}
}

// Status returns an API_ERROR for a non-success HTTP status.
func Status(code int) *Error {
	return &Error{Kind: KindAPI, Message: StatusMessage(code), Status: code}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

const (
	rateLimitMessage = "You're sending messages too quickly. Please wait a moment and try again."
	genericMessage   = "Something went wrong while contacting the assistant. Please try again."
)

var statusMessages = map[int]string{
	http.StatusBadRequest:          "The request was invalid. Please rephrase your message and try again.",
	http.StatusUnauthorized:        "Authentication failed. Please check the API key.",
	http.StatusForbidden:           "Access denied. This key is not allowed to use the assistant.",
	http.StatusNotFound:            "The assistant endpoint was not found. Please check the base URL.",
	http.StatusTooManyRequests:     "The assistant is busy right now. Please wait a moment and try again.",
	http.StatusInternalServerError: "The assistant ran into a problem. Please try again shortly.",
	http.StatusBadGateway:          "The assistant is temporarily unreachable. Please try again shortly.",
	http.StatusServiceUnavailable:  "The assistant is temporarily unavailable. Please try again shortly.",
	http.StatusGatewayTimeout:      "The assistant took too long to respond. Please try again.",
}

// StatusMessage maps an HTTP status code to a user-facing message.
func StatusMessage(code int) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return genericMessage
}

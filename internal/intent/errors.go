package intent

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by a classification matches exactly one
// of these with errors.Is.
var (
	// ErrTransport indicates the backend could not be reached.
	ErrTransport = errors.New("transport failure")

	// ErrBackend indicates a non-2xx status or an envelope reporting a failed generation.
	ErrBackend = errors.New("backend error")

	// ErrMalformedResponse indicates the envelope is missing required fields.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnrecognizedIntent indicates the model answered with a token outside the closed set.
	ErrUnrecognizedIntent = errors.New("unrecognized intent")

	// ErrNoExtractableJSON indicates no classification object could be located in the model text.
	ErrNoExtractableJSON = errors.New("no extractable JSON")
)

// Error is the typed failure returned by agents.
type Error struct {
	Kind error

	// Status is the HTTP status for ErrBackend; 0 when the envelope itself reported the failure.
	Status int
	// Body is the backend response body for ErrBackend.
	Body string
	// Token is the raw model token for ErrUnrecognizedIntent.
	Token string

	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrBackend:
		if e.Status != 0 {
			return fmt.Sprintf("%s: status %d: %s", e.Kind, e.Status, e.Body)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case ErrUnrecognizedIntent:
		return fmt.Sprintf("%s %q", e.Kind, e.Token)
	}
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// TransportFailure wraps a network-level failure.
func TransportFailure(err error) *Error {
	return &Error{Kind: ErrTransport, Err: err}
}

// BackendError records a non-2xx response or an envelope-level failure.
func BackendError(status int, body string) *Error {
	e := &Error{Kind: ErrBackend, Status: status, Body: body}
	if status == 0 {
		e.Detail = body
	}
	return e
}

// MalformedResponse records an envelope that could not be decoded into the expected shape.
func MalformedResponse(detail string, err error) *Error {
	return &Error{Kind: ErrMalformedResponse, Detail: detail, Err: err}
}

// UnrecognizedIntent records a model token outside the closed set.
func UnrecognizedIntent(token string) *Error {
	return &Error{Kind: ErrUnrecognizedIntent, Token: token}
}

// NoExtractableJSON records model text with no usable classification object.
func NoExtractableJSON(detail string, err error) *Error {
	return &Error{Kind: ErrNoExtractableJSON, Detail: detail, Err: err}
}

// KindOf returns the short machine-readable name of err's kind, or "internal"
// for errors that did not originate from a classification.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return "transport_failure"
	case errors.Is(err, ErrBackend):
		return "backend_error"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrUnrecognizedIntent):
		return "unrecognized_intent"
	case errors.Is(err, ErrNoExtractableJSON):
		return "no_extractable_json"
	default:
		return "internal"
	}
}

// Retryable reports whether retrying the same request could plausibly succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport)
}

const (
	msgNotUnderstood = "could not understand the request"
	msgUnavailable   = "the assistant backend is unavailable"
)

// UserMessage returns the end-user phrasing for err.
func UserMessage(err error) string {
	if errors.Is(err, ErrUnrecognizedIntent) || errors.Is(err, ErrNoExtractableJSON) {
		return msgNotUnderstood
	}
	return msgUnavailable
}

// Failure is the wire form of a failed classification.
type Failure struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// Describe returns the wire form of err.
func Describe(err error) Failure {
	return Failure{
		Error:  UserMessage(err),
		Kind:   KindOf(err),
		Detail: err.Error(),
	}
}

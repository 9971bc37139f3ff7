package mlsub

import (
	"errors"
	"fmt"
)

// Common errors returned by the mlsub client.
var (
	// ErrMissingCredentials indicates Login was called without a username or password.
	ErrMissingCredentials = errors.New("username and password are required")

	// ErrUnknownNetwork indicates a network name outside the documented set.
	ErrUnknownNetwork = errors.New("unknown network")
)

// HTTPError represents a transport-level failure: the server answered with a
// non-2xx HTTP status before any envelope could be decoded.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("mlsub: unexpected HTTP status %d", e.StatusCode)
}

// MalformedResponseError indicates the response body was not valid JSON, or
// that the decoded envelope lacks the mandatory response_code field.
type MalformedResponseError struct {
	Context string
	Err     error
}

// Error implements the error interface
func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mlsub: malformed response: %s: %v", e.Context, e.Err)
	}
	return fmt.Sprintf("mlsub: malformed response: %s", e.Context)
}

// Unwrap returns the underlying decode error, if any.
func (e *MalformedResponseError) Unwrap() error { return e.Err }

// APIError represents an envelope whose response_code reported a failure.
// Envelope holds the full decoded response for diagnostics.
type APIError struct {
	Code        int
	Message     string
	Information string
	Envelope    map[string]any
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("mlsub: API error %d: %s%s", e.Code, e.Message, e.Information)
}

// IsAuthFailure checks if the error indicates a stale or invalid session token.
// Expired tokens are an expected case: the caller should log in again, or
// refresh the epgtoken via Channels when the EPG endpoint rejects it.
func (e *APIError) IsAuthFailure() bool {
	return e.Code == 401 || e.Code == 403
}

// EntityError indicates a success envelope whose payload did not match the
// expected entity shape: a missing key, a wrong type, or an unparsable value.
type EntityError struct {
	Entity   string
	Field    string
	Value    any
	Err      error
	Envelope map[string]any
}

// Error implements the error interface
func (e *EntityError) Error() string {
	msg := fmt.Sprintf("mlsub: malformed %s: field %q", e.Entity, e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf(" (value %v)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *EntityError) Unwrap() error { return e.Err }

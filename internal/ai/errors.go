package ai

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TransportError covers network failures, non-2xx answers and error envelopes
// returned by the provider. StatusCode is zero when no response arrived.
// RetryAfter is the delay the provider asked for, if any.
type TransportError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *TransportError) Error() string {
	msg := "llm transport failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Temporary reports whether repeating the same request may succeed.
func (e *TransportError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

// MalformedResponseError means the provider answered with something that is
// not its documented envelope.
type MalformedResponseError struct {
	Message string
	Cause   error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed llm response: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed llm response: %s", e.Message)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// SchemaError means the model text is not the expected analysis object.
type SchemaError struct {
	Message string
	Fields  []string
	Cause   error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("llm analysis does not match schema: %s", e.Message)
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s %v", msg, e.Fields)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a temporary transport failure. Schema
// and envelope problems are never retried.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Temporary()
	}
	return false
}

// Kind names the error class for API responses and logs.
func Kind(err error) string {
	var (
		transportErr *TransportError
		malformedErr *MalformedResponseError
		schemaErr    *SchemaError
	)
	switch {
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &malformedErr):
		return "malformed_response"
	case errors.As(err, &schemaErr):
		return "schema"
	default:
		return ""
	}
}

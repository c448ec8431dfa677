package beestat

import (
	"errors"
	"fmt"
)

// Failure classes. Every error returned by Client.Call wraps exactly one.
var (
	// ErrAuth indicates the API key was rejected. Retrying with the same
	// key will not help.
	ErrAuth = errors.New("beestat: authentication failed")

	// ErrAPI indicates the API understood the request but refused it
	// (bad arguments, unknown method, rate limiting).
	ErrAPI = errors.New("beestat: api error")

	// ErrTransport indicates the request did not produce a usable
	// response envelope (network failure, timeout, HTTP 5xx, bad JSON).
	ErrTransport = errors.New("beestat: transport error")

	// ErrNoAPIKey is returned by NewClient when no key is configured.
	ErrNoAPIKey = errors.New("beestat: api key is required")
)

// Error carries the details of a failed call.
//
// Use errors.Is with ErrAuth, ErrAPI or ErrTransport to classify it and
// errors.As to read the details.
type Error struct {
	Kind     error  // ErrAuth, ErrAPI or ErrTransport
	Resource string // e.g. "thermostat"
	Method   string // e.g. "read"
	Status   int    // HTTP status, 0 if no response was received
	Message  string // message reported by the API, if any
	Err      error  // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%v: %s.%s", e.Kind, e.Resource, e.Method)
	if e.Status != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the failure class and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

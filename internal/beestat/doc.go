// Package beestat is a client for the Beestat telemetry API.
//
// Every call is an HTTP POST to a single endpoint carrying the API key,
// a resource, a method and the arguments serialized as JSON text:
//
//	{"api_key":"...","resource":"thermostat","method":"read","arguments":"{}"}
//
// The response is an envelope with a success flag and a data member.
// Call returns the data member unparsed; interpreting it is the job of
// package thermostat.
//
// # Failures
//
// Every failure is an *Error wrapping one of three classes:
//
//   - ErrAuth: the key was rejected (HTTP 401/403 or an error message
//     naming the API key). Not retryable with the same key.
//   - ErrAPI: the request was refused (HTTP 4xx, success=false).
//   - ErrTransport: no usable envelope (network, timeout, HTTP 5xx,
//     non-object body, missing success flag).
//
// The client never retries. Scheduling and retry policy belong to the caller.
package beestat

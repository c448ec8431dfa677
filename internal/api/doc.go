// Package api implements the HTTP status and options API for the Beestat bridge.
//
// This package provides:
//   - Read-only endpoints for health, the cached snapshot, single
//     thermostats, and the redacted config entry
//   - Mutating endpoints to change the poll interval, replace the API key,
//     and request an immediate refresh
//   - An audit trail of accepted config entry changes
//   - WebSocket hub pushing snapshot.updated events after every poll
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Security
//
// Mutating routes and GET /audit require an HS256 bearer token signed with
// security.jwt.secret (see IssueToken). The API key is never returned;
// GET /entry reports only whether a key is set and its last four
// characters.
//
// # Ordering
//
// Option changes are persisted before the coordinator is touched, so a
// restart always comes back with the last accepted values. A new API key is
// validated against Beestat before it is stored.
package api

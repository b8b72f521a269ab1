// Package api implements the HTTP REST API and WebSocket server for the
// Alarm.com bridge.
//
// This package provides:
//   - REST endpoints to list number entities, read one, set its value and
//     page through its recorded history
//   - WebSocket hub broadcasting "number.state" events
//   - JWT bearer authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Writes
//
// PUT /api/v1/numbers/{id}/value answers 202 once the camera has accepted
// the value. The entity's displayed value is not changed by the request;
// it follows on the controller's next refresh and is pushed to WebSocket
// subscribers then. Vendor failures map to 502, timeouts to 504.
//
// # Security
//
// Tokens are HS256 JWTs signed with security.jwt.secret and minted by the
// operator (adcbridge -issue-token). WebSocket clients exchange a token for
// a single-use ticket so the JWT never appears in a URL.
package api

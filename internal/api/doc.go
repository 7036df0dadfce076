// Package api implements the HTTP control API and WebSocket feed.
//
// This package provides:
//   - Read-only endpoints for the stage layout and the live receiver state
//   - Operator endpoints (JWT) to list and compile sequences, inspect
//     compiled frames and start or stop playback
//   - A WebSocket hub broadcasting receiver snapshots ("state") and
//     playback status changes ("playback")
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// Both binaries use it. The controller wires the sequence manager and the
// playback controller; the simulator wires only the receiver. Endpoints
// whose backend is not wired answer 503.
//
//	GET    /api/v1/health
//	POST   /api/v1/auth/login
//	GET    /api/v1/devices
//	GET    /api/v1/state
//	GET    /api/v1/ws
//	GET    /api/v1/sequences                      (operator)
//	POST   /api/v1/sequences/{name}/compile       (operator)
//	GET    /api/v1/sequences/{name}/frames/{index} (operator)
//	GET    /api/v1/playback                       (operator)
//	POST   /api/v1/playback?sequence={name}       (operator)
//	DELETE /api/v1/playback                       (operator)
package api

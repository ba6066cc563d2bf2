// Package api implements the HTTP API and WebSocket feed of the DTU bridge.
//
// This package provides:
//   - Status endpoints (health, JSON metrics, Prometheus exposition)
//   - Read access to the device inventory, publish failures and the latest
//     normalized snapshot
//   - Frame ingest over HTTP, guarded by an HS256 bearer token when a JWT
//     secret is configured
//   - A WebSocket hub that pushes every processed snapshot to clients
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Routes
//
//	GET  /api/v1/health
//	GET  /api/v1/metrics
//	GET  /api/v1/devices?kind=inverter
//	GET  /api/v1/failures?limit=50
//	GET  /api/v1/snapshots/latest
//	POST /api/v1/frames
//	GET  /api/v1/ws
//	GET  /metrics
//
// # Graceful Degradation
//
// Inventory and failure routes answer 503 when SQLite is not configured;
// everything else works without it.
package api

// Package api implements the HTTP REST API and WebSocket server for Fusion Bridge.
//
// This package provides:
//   - REST endpoints for device, connector, location and automation CRUD
//   - Event history queries over the append-only event store
//   - Device state-change requests routed through the action handler chain
//   - WebSocket hub for real-time standardized event broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between operator tooling and the core registries.
// Raw vendor events flow in over MQTT and through the pipeline; the
// pipeline hands each standardized event to the WebSocket hub, which
// fans it out to clients subscribed to the event channel. State-change
// requests flow the other way, through the device action service to
// the owning vendor's cloud or controller.
//
// # Graceful Degradation
//
// Optional dependencies (event store, device actions, locations) may be
// absent; the endpoints they back return 503 while the rest of the API
// keeps working. This enables testing and partial deployments.
package api

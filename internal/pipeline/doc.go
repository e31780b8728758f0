// Package pipeline routes raw vendor payloads through the event
// processing chain: per-connector parsing, spatial snapshot
// resolution, persistence, telemetry, websocket broadcast, and
// automation evaluation.
//
// # Key Types
//
//   - Pipeline: the orchestrator; one instance serves all connectors
//   - Parser: per-connector payload normalisation, registered at startup
//
// # Processing Model
//
// HandleRaw is the single entry point. Malformed payloads are
// discarded with a logged warning and never retried. Enabled
// automations evaluate concurrently per event; a failure or panic in
// one never affects another, and action dispatch failures are logged
// per action without retry.
//
// # Thread Safety
//
// RegisterParser is startup-only. Everything else is safe for
// concurrent use once payloads start flowing.
package pipeline

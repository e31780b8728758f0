// Package eventstore persists standardized events and answers the
// time-windowed, spatially scoped queries temporal rule conditions run.
//
// # Key Types
//
//   - Store: append, windowed query, retention pruning
//   - StoredEvent: event plus its append-time area/location snapshot
//   - QueryParams: inclusive window with optional AND-combined filters
//
// The area and location ids are denormalized at append time, so scoped
// correlation reflects where a device was when its event happened, not
// where it sits today.
//
// # Thread Safety
//
// SQLiteStore is safe for concurrent use; it holds no state beyond the
// *sql.DB handle.
package eventstore

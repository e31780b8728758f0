// Package deviceactions bridges the abstract device-state vocabulary
// (on, off, locked, unlocked) to vendor command sets.
//
// # Key Types
//
//   - Handler: per-vendor strategy declaring its connector category and
//     the devices/states it can drive
//   - Registry: ordered handler list with first-match dispatch
//   - Service: the requestDeviceStateChange entry point, resolving the
//     device and owning connector before delegating
//
// Dispatch is first-match, not best-match: the earliest registered
// handler whose category and canHandle both pass wins, so registration
// order matters. No handler match yields ErrActionUnsupported.
//
// # Thread Safety
//
// Registry and Service are immutable after construction and safe for
// concurrent use.
package deviceactions

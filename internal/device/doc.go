// Package device defines the canonical device taxonomy for Fusion Bridge
// Core and the lookups built on it.
//
// # Key Types
//
//   - DeviceType, Subtype: closed classification enums; each type permits
//     a fixed (possibly empty) set of subtypes, enforced by
//     NewTypedDeviceInfo rather than by convention
//   - TypedDeviceInfo: the (type, subtype?) classification of one device
//   - TypeRegistry: raw vendor identifier -> TypedDeviceInfo, per
//     connector category; misses degrade to Unmapped, never error
//   - Device: persisted device record (vendor ids, spatial assignment,
//     last display state, raw vendor document)
//   - Context: the minimal projection device action handlers consume
//   - Registry: thread-safe cached lookups over a Repository
//
// # Thread Safety
//
// TypeRegistry is immutable after construction. Registry guards its cache
// with a RWMutex and hands out deep copies, so callers can never corrupt
// cached records.
package device

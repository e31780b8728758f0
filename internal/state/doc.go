// Package state translates raw vendor state tokens into the closed
// IntermediateState vocabulary and derives human-readable DisplayStates
// from them via the two-tier Canonical State Map.
//
// Tier one is context-free: states like BinaryOn or LockLocked map to a
// display string without ever consulting the device. Tier two applies
// only to Sensor devices, where SensorNormal/SensorAlert resolve per
// subtype (a leak sensor's alert reads "Leak Detected", a motion
// sensor's "Motion Detected").
//
// Both directions are lookups over tables fixed at construction; a miss
// is reported through the boolean return and is never an error.
package state

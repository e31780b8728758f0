// Package netbox normalises access-control records from NetBox panels.
//
// Most records carry an activity descname ("ACCESS GRANTED", "ACCESS
// DENIED" plus a reason) that resolves through a flat table. Portal
// alarm/secure transitions are ambiguous at the activity level, so they
// arrive with structured prior/current state snapshots and resolve
// through a decision tree instead: the door state monitor distinguishes
// forced from held doors, and an alarm-to-secure transition clears.
// Records that carry only a lock state become plain state changes.
package netbox

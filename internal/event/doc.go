// Package event defines the canonical, vendor-neutral event model for
// Fusion Bridge Core.
//
// Every raw vendor payload that survives basic validation is normalised
// into exactly one StandardizedEvent whose (category, type, subtype)
// triple is a member of the closed Event Hierarchy. Classifications are
// created through NewClassification, which derives the category from a
// reverse index built once at startup — an unknown type is a
// configuration defect and fails construction, so a classification that
// exists is valid by construction.
//
// # Key Types
//
//   - Category, Type, Subtype: the three levels of the closed hierarchy
//   - Hierarchy: the versioned category -> types -> subtypes table
//   - Index: reverse lookup (type -> category, type -> subtypes)
//   - Classification: a proven-valid (category, type, subtype) triple
//   - StandardizedEvent: the canonical event record
//
// # Thread Safety
//
// Hierarchy and Index are immutable after construction and safe for
// concurrent use. StandardizedEvent values are immutable once created;
// no pipeline stage may mutate one.
package event

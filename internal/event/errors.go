package event

import "errors"

// Domain errors for the event package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, event.ErrUnknownType) {
//	    // configuration defect: type missing from hierarchy
//	}
var (
	// ErrUnknownType is returned when a classification names a type that
	// is absent from the Event Hierarchy. This is a configuration defect,
	// not a runtime condition.
	ErrUnknownType = errors.New("event: type not in hierarchy")

	// ErrInvalidSubtype is returned when a subtype is not owned by the
	// classification's type.
	ErrInvalidSubtype = errors.New("event: subtype not valid for type")
)

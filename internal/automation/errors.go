package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrAutomationNotFound) {
//	    // handle not found case
//	}
var (
	// ErrAutomationNotFound is returned when an automation ID does not exist.
	ErrAutomationNotFound = errors.New("automation: not found")

	// ErrAutomationExists is returned when creating an automation with an
	// ID that already exists.
	ErrAutomationExists = errors.New("automation: already exists")

	// ErrInvalidAutomation is returned when automation validation fails.
	ErrInvalidAutomation = errors.New("automation: invalid")

	// ErrInvalidName is returned when an automation name is empty or too long.
	ErrInvalidName = errors.New("automation: invalid name")

	// ErrInvalidGroup is returned for a condition group defining neither
	// all nor any.
	ErrInvalidGroup = errors.New("automation: group must define all or any")

	// ErrUnknownFact is returned for a condition referencing a fact
	// absent from the catalog.
	ErrUnknownFact = errors.New("automation: unknown fact")

	// ErrOperatorNotAllowed is returned when a condition's operator is
	// not legal for its fact's data type.
	ErrOperatorNotAllowed = errors.New("automation: operator not allowed for fact")

	// ErrInvalidTemporal is returned when a temporal condition fails
	// validation.
	ErrInvalidTemporal = errors.New("automation: invalid temporal condition")

	// ErrInvalidAction is returned when an action fails static validation.
	ErrInvalidAction = errors.New("automation: invalid action")

	// ErrTemplateExpansion is returned when a template references a fact
	// missing from the context at dispatch time.
	ErrTemplateExpansion = errors.New("automation: template expansion failed")

	// ErrTemporalQuery is returned when the event store cannot answer a
	// temporal lookup. Evaluation fails closed: the automation does not
	// fire.
	ErrTemporalQuery = errors.New("automation: temporal query failed")
)

package connector

import "errors"

// Domain errors for the connector package.
var (
	// ErrConnectorNotFound is returned when a connector ID does not exist.
	ErrConnectorNotFound = errors.New("connector: not found")

	// ErrConnectorExists is returned when creating a connector with an ID that already exists.
	ErrConnectorExists = errors.New("connector: already exists")

	// ErrConnectorDisabled is returned when routing an event to a disabled connector.
	ErrConnectorDisabled = errors.New("connector: disabled")

	// ErrInvalidPayload is returned by vendor parsers when a raw payload
	// fails basic validation (missing discriminator, timestamp, or device
	// identifier). Such payloads are discarded, logged, and never retried.
	ErrInvalidPayload = errors.New("connector: invalid payload")
)

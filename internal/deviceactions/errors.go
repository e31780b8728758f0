package deviceactions

import "errors"

var (
	// ErrActionUnsupported is returned when no registered handler can
	// drive the device to the desired state.
	ErrActionUnsupported = errors.New("deviceactions: unsupported for this device/action")

	// ErrMissingToken is returned when a handler's vendor precondition
	// (an auth token in the device's last raw payload) is not met.
	ErrMissingToken = errors.New("deviceactions: device token unavailable")
)

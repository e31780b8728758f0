package drivers

import "errors"

var (
	// ErrNoDriver indicates the target connector's category has no
	// registered driver.
	ErrNoDriver = errors.New("drivers: no driver for connector category")

	// ErrMissingConfig indicates the connector config lacks a field the
	// driver needs (endpoint, credentials).
	ErrMissingConfig = errors.New("drivers: connector config incomplete")

	// ErrVendorRejected indicates the vendor API returned a non-success
	// response.
	ErrVendorRejected = errors.New("drivers: vendor rejected request")
)

package device

import (
	"fmt"
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
)

// DeviceType represents the canonical kind of a device.
type DeviceType string //nolint:revive // device.DeviceType is clearer than device.Type in calling code

// DeviceType constants.
const (
	TypeSensor   DeviceType = "sensor"
	TypeLock     DeviceType = "lock"
	TypeCamera   DeviceType = "camera"
	TypeHub      DeviceType = "hub"
	TypeSwitch   DeviceType = "switch"
	TypeOutlet   DeviceType = "outlet"
	TypeSiren    DeviceType = "siren"
	TypeDoor     DeviceType = "door"
	TypeUnmapped DeviceType = "unmapped"
)

// AllDeviceTypes returns all valid device type values.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		TypeSensor, TypeLock, TypeCamera, TypeHub,
		TypeSwitch, TypeOutlet, TypeSiren, TypeDoor, TypeUnmapped,
	}
}

// Subtype refines a DeviceType. Only types listed in subtypesByType
// permit subtypes at all.
type Subtype string

// Sensor subtypes.
const (
	SubtypeContact     Subtype = "contact"
	SubtypeMotion      Subtype = "motion"
	SubtypeLeak        Subtype = "leak"
	SubtypeVibration   Subtype = "vibration"
	SubtypeSmoke       Subtype = "smoke"
	SubtypeTemperature Subtype = "temperature"
)

// subtypesByType fixes which subtypes each device type permits. A type
// absent from this table permits none.
var subtypesByType = map[DeviceType]map[Subtype]struct{}{
	TypeSensor: {
		SubtypeContact:     {},
		SubtypeMotion:      {},
		SubtypeLeak:        {},
		SubtypeVibration:   {},
		SubtypeSmoke:       {},
		SubtypeTemperature: {},
	},
}

// TypedDeviceInfo is the canonical classification of a device: a type
// plus an optional subtype constrained by that type. Construct through
// NewTypedDeviceInfo so the constraint holds structurally.
type TypedDeviceInfo struct {
	Type    DeviceType `json:"type"`
	Subtype *Subtype   `json:"subtype,omitempty"`
}

// NewTypedDeviceInfo builds a TypedDeviceInfo, rejecting subtypes the
// type does not permit.
func NewTypedDeviceInfo(typ DeviceType, subtype *Subtype) (TypedDeviceInfo, error) {
	if subtype != nil {
		allowed, ok := subtypesByType[typ]
		if !ok {
			return TypedDeviceInfo{}, fmt.Errorf("%w: type %q permits no subtypes", ErrInvalidSubtype, typ)
		}
		if _, ok := allowed[*subtype]; !ok {
			return TypedDeviceInfo{}, fmt.Errorf("%w: %q for type %q", ErrInvalidSubtype, *subtype, typ)
		}
	}
	return TypedDeviceInfo{Type: typ, Subtype: subtype}, nil
}

// Unmapped returns the classification used when a vendor identifier is
// not recognised. Lookups never fail; they degrade to this value.
func Unmapped() TypedDeviceInfo {
	return TypedDeviceInfo{Type: TypeUnmapped}
}

// SubtypePtr is a convenience for building optional subtype arguments.
func SubtypePtr(s Subtype) *Subtype {
	return &s
}

// Device represents a known device owned by a connector.
//
// InternalID is the Fusion-assigned identifier used by automations and
// the device-action entry point; VendorDeviceID is the id the vendor
// uses on the wire.
type Device struct {
	// Identity
	ID             string `json:"id"`
	ConnectorID    string `json:"connector_id"`
	VendorDeviceID string `json:"vendor_device_id"`
	Name           string `json:"name"`

	// Classification
	RawVendorType string           `json:"raw_vendor_type"`
	Info          *TypedDeviceInfo `json:"info,omitempty"`

	// Spatial assignment (optional)
	AreaID     *string `json:"area_id,omitempty"`
	LocationID *string `json:"location_id,omitempty"`

	// Last known translated state
	DisplayState   *string    `json:"display_state,omitempty"`
	StateUpdatedAt *time.Time `json:"state_updated_at,omitempty"`

	// RawDeviceData is the vendor's last reported device document. Device
	// action handlers mine it for vendor preconditions (auth tokens,
	// portal keys).
	RawDeviceData map[string]any `json:"raw_device_data,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d

	if d.Info != nil {
		info := *d.Info
		if d.Info.Subtype != nil {
			st := *d.Info.Subtype
			info.Subtype = &st
		}
		cpy.Info = &info
	}

	cpy.AreaID = cloneStringPtr(d.AreaID)
	cpy.LocationID = cloneStringPtr(d.LocationID)
	cpy.DisplayState = cloneStringPtr(d.DisplayState)
	cpy.RawDeviceData = deepCopyMap(d.RawDeviceData)

	return &cpy
}

// Context is the minimal projection of a Device consumed by device
// action handlers.
type Context struct {
	ID             string         `json:"id"`
	VendorDeviceID string         `json:"vendor_device_id"`
	RawVendorType  string         `json:"raw_vendor_type"`
	ConnectorID    string         `json:"connector_id"`
	RawDeviceData  map[string]any `json:"raw_device_data,omitempty"`
}

// ActionContext projects the device down to what handlers need.
func (d *Device) ActionContext() Context {
	return Context{
		ID:             d.ID,
		VendorDeviceID: d.VendorDeviceID,
		RawVendorType:  d.RawVendorType,
		ConnectorID:    d.ConnectorID,
		RawDeviceData:  deepCopyMap(d.RawDeviceData),
	}
}

// Category is re-exported for convenience so device consumers do not all
// need the connector import.
type Category = connector.Category

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives are immutable
		return v
	}
}

// cloneStringPtr creates an independent copy of a *string.
func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

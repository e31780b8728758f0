package event

import (
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
)

// Category is the top level of the event hierarchy.
type Category string

// Category constants.
const (
	CategoryDeviceState   Category = "DEVICE_STATE"
	CategoryAccessControl Category = "ACCESS_CONTROL"
	CategoryAnalytics     Category = "ANALYTICS"
	CategoryDiagnostics   Category = "DIAGNOSTICS"
	CategorySecurity      Category = "SECURITY"
	CategoryUnknown       Category = "UNKNOWN"
)

// Type is the second level of the event hierarchy. Each type belongs to
// exactly one category.
type Type string

// Device state event types.
const (
	TypeStateChanged Type = "STATE_CHANGED"
)

// Access control event types.
const (
	TypeAccessGranted  Type = "ACCESS_GRANTED"
	TypeAccessDenied   Type = "ACCESS_DENIED"
	TypeDoorHeldOpen   Type = "DOOR_HELD_OPEN"
	TypeDoorForcedOpen Type = "DOOR_FORCED_OPEN"
	TypeExitRequest    Type = "EXIT_REQUEST"
)

// Analytics event types.
const (
	TypeObjectDetected Type = "OBJECT_DETECTED"
	TypeLineCrossing   Type = "LINE_CROSSING"
	TypeLoitering      Type = "LOITERING"
	TypeMotionDetected Type = "MOTION_DETECTED"
)

// Diagnostics event types.
const (
	TypeDeviceCheckIn Type = "DEVICE_CHECK_IN"
	TypeDeviceOnline  Type = "DEVICE_ONLINE"
	TypeDeviceOffline Type = "DEVICE_OFFLINE"
	TypeBatteryLow    Type = "BATTERY_LOW"
)

// Security event types.
const (
	TypeArmed          Type = "ARMED"
	TypeDisarmed       Type = "DISARMED"
	TypeAlarmTriggered Type = "ALARM_TRIGGERED"
	TypeAlarmCleared   Type = "ALARM_CLEARED"
)

// Unknown event types.
const (
	TypeUnknownExternalEvent Type = "UNKNOWN_EXTERNAL_EVENT"
)

// Subtype is the optional third level of the event hierarchy. Each type
// owns a fixed (possibly empty) set of valid subtypes.
type Subtype string

// Access denial subtypes.
const (
	SubtypeInvalidCredential Subtype = "INVALID_CREDENTIAL"
	SubtypeExpiredCredential Subtype = "EXPIRED_CREDENTIAL"
	SubtypeNotAuthorized     Subtype = "NOT_AUTHORIZED"
	SubtypeAntipassback      Subtype = "ANTIPASSBACK"
)

// Object detection subtypes.
const (
	SubtypePerson  Subtype = "PERSON"
	SubtypeVehicle Subtype = "VEHICLE"
	SubtypeAnimal  Subtype = "ANIMAL"
)

// Arming subtypes.
const (
	SubtypeAway Subtype = "AWAY"
	SubtypeStay Subtype = "STAY"
)

// Alarm subtypes.
const (
	SubtypeIntrusion Subtype = "INTRUSION"
	SubtypeTamper    Subtype = "TAMPER"
	SubtypeDuress    Subtype = "DURESS"
)

// Payload keys used by every connector when building standardized events.
// Centralised here so rule authors and tests address the same paths.
const (
	PayloadKeyDisplayState      = "displayState"
	PayloadKeyRawState          = "rawState"
	PayloadKeyOriginalEventType = "originalEventType"
)

// StandardizedEvent is the canonical, vendor-neutral representation of a
// single vendor event. It is immutable once created: no pipeline stage,
// rule evaluation, or dispatch step may modify it. The (Category, Type,
// Subtype) triple is always a member of the Event Hierarchy because it is
// only ever produced via NewClassification.
type StandardizedEvent struct {
	// EventID is a unique identifier assigned at creation.
	EventID string `json:"event_id"`

	// Timestamp is the event time in UTC, converted from the vendor's
	// native representation.
	Timestamp time.Time `json:"timestamp"`

	// ConnectorID identifies the integration that produced the event.
	ConnectorID string `json:"connector_id"`

	// DeviceID is the vendor's identifier for the originating device.
	DeviceID string `json:"device_id"`

	// DeviceInfo is the resolved canonical device classification, when
	// the device type registry recognised the device.
	DeviceInfo *device.TypedDeviceInfo `json:"device_info,omitempty"`

	// Classification carries the proven-valid hierarchy triple.
	Category Category `json:"category"`
	Type     Type     `json:"type"`
	Subtype  *Subtype `json:"subtype,omitempty"`

	// Payload holds normalised, connector-extracted fields
	// (display state, raw state token, original discriminator, etc.).
	Payload map[string]any `json:"payload,omitempty"`

	// OriginalEvent preserves the raw vendor payload verbatim.
	OriginalEvent map[string]any `json:"original_event,omitempty"`
}

// Classification returns the event's hierarchy triple.
func (e *StandardizedEvent) Classification() Classification {
	return Classification{Category: e.Category, Type: e.Type, Subtype: e.Subtype}
}

package state

// IntermediateState is the closed, vendor-neutral state vocabulary.
// Raw vendor tokens translate into one of these before any display
// conversion happens.
type IntermediateState string

// IntermediateState constants.
const (
	BinaryOn      IntermediateState = "binary_on"
	BinaryOff     IntermediateState = "binary_off"
	ContactOpen   IntermediateState = "contact_open"
	ContactClosed IntermediateState = "contact_closed"
	SensorNormal  IntermediateState = "sensor_normal"
	SensorAlert   IntermediateState = "sensor_alert"
	LockLocked    IntermediateState = "lock_locked"
	LockUnlocked  IntermediateState = "lock_unlocked"
	StateError    IntermediateState = "error"
)

// AllIntermediateStates returns all valid intermediate states.
func AllIntermediateStates() []IntermediateState {
	return []IntermediateState{
		BinaryOn, BinaryOff,
		ContactOpen, ContactClosed,
		SensorNormal, SensorAlert,
		LockLocked, LockUnlocked,
		StateError,
	}
}

// DisplayState is the final human-readable state string.
type DisplayState string

// Display state constants for the context-free simple map.
const (
	DisplayOn       DisplayState = "On"
	DisplayOff      DisplayState = "Off"
	DisplayOpen     DisplayState = "Open"
	DisplayClosed   DisplayState = "Closed"
	DisplayLocked   DisplayState = "Locked"
	DisplayUnlocked DisplayState = "Unlocked"
	DisplayError    DisplayState = "Error"
)

// Display state constants for the subtype-dependent sensor map.
const (
	DisplayClear             DisplayState = "Clear"
	DisplayMotionDetected    DisplayState = "Motion Detected"
	DisplayDry               DisplayState = "Dry"
	DisplayLeakDetected      DisplayState = "Leak Detected"
	DisplayStill             DisplayState = "Still"
	DisplayVibrationDetected DisplayState = "Vibration Detected"
	DisplaySmokeDetected     DisplayState = "Smoke Detected"
	DisplayTemperatureNormal DisplayState = "Normal"
	DisplayTemperatureAlert  DisplayState = "Temperature Alert"
)

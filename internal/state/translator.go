package state

import (
	"strings"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// tokenKey addresses one row of a connector's raw-token table.
// Subtype is empty for types without subtypes.
type tokenKey struct {
	typ     device.DeviceType
	subtype device.Subtype
	token   string
}

// Translator converts raw vendor state tokens into IntermediateStates and
// IntermediateStates into DisplayStates.
//
// Both lookups are deterministic and total-but-partial: a defined
// (type, subtype, token) triple translates identically on every call; an
// undefined one reports "no mapping" via the boolean return, never an
// error. Translation tables are fixed at construction; the Translator is
// safe for concurrent use.
type Translator struct {
	tokens map[connector.Category]map[tokenKey]IntermediateState
	logger Logger
}

// NewTranslator creates a translator over the given per-category token
// tables. Pass DefaultTokenTables() for the built-in vendor mappings.
func NewTranslator(tokens map[connector.Category]map[tokenKey]IntermediateState, logger Logger) *Translator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Translator{tokens: tokens, logger: logger}
}

// NewDefaultTranslator creates a translator with the built-in tables.
func NewDefaultTranslator(logger Logger) *Translator {
	return NewTranslator(DefaultTokenTables(), logger)
}

// Translate maps a raw vendor state token to an IntermediateState for the
// given device classification. Tokens are matched case-insensitively.
//
// The second return is false when no mapping exists. Callers must treat
// that as a non-fatal absence of state, not as an error.
func (t *Translator) Translate(category connector.Category, info device.TypedDeviceInfo, rawToken string) (IntermediateState, bool) {
	table, ok := t.tokens[category]
	if !ok {
		return "", false
	}

	key := tokenKey{typ: info.Type, token: strings.ToLower(rawToken)}
	if info.Subtype != nil {
		key.subtype = *info.Subtype
	}

	st, ok := table[key]
	return st, ok
}

// simpleDisplayMap is the context-free tier of the Canonical State Map.
// Entries here never consult device context: the conversion must be pure.
var simpleDisplayMap = map[IntermediateState]DisplayState{
	BinaryOn:      DisplayOn,
	BinaryOff:     DisplayOff,
	ContactOpen:   DisplayOpen,
	ContactClosed: DisplayClosed,
	LockLocked:    DisplayLocked,
	LockUnlocked:  DisplayUnlocked,
	StateError:    DisplayError,
}

// sensorDisplayMap is the subtype-dependent tier, consulted only for
// Sensor devices whose subtype appears here.
var sensorDisplayMap = map[device.Subtype]map[IntermediateState]DisplayState{
	device.SubtypeMotion: {
		SensorNormal: DisplayClear,
		SensorAlert:  DisplayMotionDetected,
	},
	device.SubtypeLeak: {
		SensorNormal: DisplayDry,
		SensorAlert:  DisplayLeakDetected,
	},
	device.SubtypeVibration: {
		SensorNormal: DisplayStill,
		SensorAlert:  DisplayVibrationDetected,
	},
	device.SubtypeSmoke: {
		SensorNormal: DisplayClear,
		SensorAlert:  DisplaySmokeDetected,
	},
	device.SubtypeTemperature: {
		SensorNormal: DisplayTemperatureNormal,
		SensorAlert:  DisplayTemperatureAlert,
	},
}

// ToDisplay derives the human-readable state for an IntermediateState.
//
// Resolution order:
//  1. the context-free simple map (device context is ignored entirely)
//  2. for Sensor devices with a subtype present in the sensor map, the
//     subtype's entry for the state
//  3. undefined: (zero, false), logged at debug
func (t *Translator) ToDisplay(st IntermediateState, info device.TypedDeviceInfo) (DisplayState, bool) {
	if ds, ok := simpleDisplayMap[st]; ok {
		return ds, true
	}

	if info.Type == device.TypeSensor && info.Subtype != nil {
		if byState, ok := sensorDisplayMap[*info.Subtype]; ok {
			if ds, ok := byState[st]; ok {
				return ds, true
			}
		}
	}

	t.logger.Debug("no display mapping for state",
		"state", string(st),
		"device_type", string(info.Type),
	)
	return "", false
}

// DefaultTokenTables returns the built-in raw-token tables.
//
// The returned maps are freshly allocated on each call so callers cannot
// corrupt a shared copy.
func DefaultTokenTables() map[connector.Category]map[tokenKey]IntermediateState {
	yolink := map[tokenKey]IntermediateState{}

	// Contact sensors report open/closed.
	yolink[tokenKey{device.TypeSensor, device.SubtypeContact, "open"}] = ContactOpen
	yolink[tokenKey{device.TypeSensor, device.SubtypeContact, "closed"}] = ContactClosed

	// Alert-style sensors report alert/normal.
	for _, st := range []device.Subtype{
		device.SubtypeMotion, device.SubtypeLeak, device.SubtypeVibration,
		device.SubtypeSmoke, device.SubtypeTemperature,
	} {
		yolink[tokenKey{device.TypeSensor, st, "alert"}] = SensorAlert
		yolink[tokenKey{device.TypeSensor, st, "normal"}] = SensorNormal
	}

	// Locks.
	yolink[tokenKey{typ: device.TypeLock, token: "locked"}] = LockLocked
	yolink[tokenKey{typ: device.TypeLock, token: "unlocked"}] = LockUnlocked

	// Binary devices.
	for _, typ := range []device.DeviceType{device.TypeSwitch, device.TypeOutlet, device.TypeSiren} {
		yolink[tokenKey{typ: typ, token: "on"}] = BinaryOn
		yolink[tokenKey{typ: typ, token: "off"}] = BinaryOff
	}

	// Vendor-reported fault states.
	yolink[tokenKey{typ: device.TypeHub, token: "error"}] = StateError

	netbox := map[tokenKey]IntermediateState{
		{device.TypeDoor, "", "unlocked"}:                    LockUnlocked,
		{device.TypeDoor, "", "locked"}:                      LockLocked,
		{device.TypeSensor, device.SubtypeContact, "open"}:   ContactOpen,
		{device.TypeSensor, device.SubtypeContact, "closed"}: ContactClosed,
	}

	return map[connector.Category]map[tokenKey]IntermediateState{
		connector.CategoryYoLink: yolink,
		connector.CategoryNetBox: netbox,
	}
}

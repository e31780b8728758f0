package device

import (
	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// TypeRegistry maps raw vendor device-type identifiers to canonical
// TypedDeviceInfo, per connector category.
//
// The tables are fixed at construction and the registry is immutable
// afterwards, so it is safe for concurrent use. A lookup miss is a
// logged degradation, never an error: unknown identifiers resolve to
// the Unmapped classification.
type TypeRegistry struct {
	tables map[connector.Category]map[string]TypedDeviceInfo
	logger Logger
}

// NewTypeRegistry creates a registry over the given per-category tables.
// Pass DefaultTypeTables() for the built-in vendor mappings, or a fixture
// table in tests.
func NewTypeRegistry(tables map[connector.Category]map[string]TypedDeviceInfo, logger Logger) *TypeRegistry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &TypeRegistry{tables: tables, logger: logger}
}

// Resolve returns the canonical classification for a raw vendor
// identifier. Unknown categories and identifiers resolve to Unmapped.
func (r *TypeRegistry) Resolve(category connector.Category, rawIdentifier string) TypedDeviceInfo {
	table, ok := r.tables[category]
	if !ok {
		r.logger.Debug("no device type table for category",
			"category", string(category),
			"raw_type", rawIdentifier,
		)
		return Unmapped()
	}

	info, ok := table[rawIdentifier]
	if !ok {
		r.logger.Debug("unmapped vendor device type",
			"category", string(category),
			"raw_type", rawIdentifier,
		)
		return Unmapped()
	}
	return info
}

// DefaultTypeTables returns the built-in vendor identifier tables.
//
// The returned maps are freshly allocated on each call so callers cannot
// corrupt a shared copy.
func DefaultTypeTables() map[connector.Category]map[string]TypedDeviceInfo {
	sensor := func(st Subtype) TypedDeviceInfo {
		return TypedDeviceInfo{Type: TypeSensor, Subtype: SubtypePtr(st)}
	}
	plain := func(t DeviceType) TypedDeviceInfo {
		return TypedDeviceInfo{Type: t}
	}

	return map[connector.Category]map[string]TypedDeviceInfo{
		connector.CategoryYoLink: {
			"DoorSensor":      sensor(SubtypeContact),
			"MotionSensor":    sensor(SubtypeMotion),
			"LeakSensor":      sensor(SubtypeLeak),
			"VibrationSensor": sensor(SubtypeVibration),
			"SmokeAlarm":      sensor(SubtypeSmoke),
			"THSensor":        sensor(SubtypeTemperature),
			"Lock":            plain(TypeLock),
			"Hub":             plain(TypeHub),
			"SpeakerHub":      plain(TypeHub),
			"Switch":          plain(TypeSwitch),
			"Outlet":          plain(TypeOutlet),
			"Siren":           plain(TypeSiren),
		},
		connector.CategoryPiko: {
			"Camera": plain(TypeCamera),
			"Server": plain(TypeHub),
		},
		connector.CategoryNetBox: {
			"Portal": plain(TypeDoor),
			"Reader": plain(TypeDoor),
			"Panel":  plain(TypeHub),
			"Input":  sensor(SubtypeContact),
		},
	}
}

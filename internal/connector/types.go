package connector

import "time"

// Category identifies the vendor integration family a connector belongs
// to. It selects the device type registry table, the state translation
// table, and the device action handlers that apply to the connector's
// devices.
type Category string

// Category constants.
const (
	CategoryYoLink Category = "yolink"
	CategoryPiko   Category = "piko"
	CategoryNetBox Category = "netbox"
)

// AllCategories returns all valid connector categories.
func AllCategories() []Category {
	return []Category{CategoryYoLink, CategoryPiko, CategoryNetBox}
}

// ValidCategory reports whether c is a known connector category.
func ValidCategory(c Category) bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// Connector represents a configured vendor integration instance.
//
// The engine treats connectors as read-only records: they are created and
// edited externally and fetched by id here.
type Connector struct {
	// Identity
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`

	// Config holds vendor-specific settings (credentials, endpoints) as a
	// JSON map. Handlers and drivers interpret it; the core passes it
	// through opaquely.
	Config map[string]any `json:"config,omitempty"`

	Enabled bool `json:"enabled"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates an independent copy of the Connector so cached copies
// cannot be corrupted by callers.
func (c *Connector) DeepCopy() *Connector {
	if c == nil {
		return nil
	}
	cpy := *c
	cpy.Config = deepCopyMap(c.Config)
	return &cpy
}

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

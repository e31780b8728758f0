package event

import "fmt"

// Hierarchy is the closed, versioned classification table:
// category -> types -> subtypes (possibly empty). Any new classification
// must be added here before a classifier can produce it.
//
// The table is data, not behaviour: classifiers never consult it directly.
// They go through an Index, which is built once at startup.
type Hierarchy map[Category]map[Type][]Subtype

// DefaultHierarchy returns the current classification table.
//
// The returned value is freshly allocated on each call so callers cannot
// corrupt a shared copy.
func DefaultHierarchy() Hierarchy {
	return Hierarchy{
		CategoryDeviceState: {
			TypeStateChanged: nil,
		},
		CategoryAccessControl: {
			TypeAccessGranted: nil,
			TypeAccessDenied: {
				SubtypeInvalidCredential,
				SubtypeExpiredCredential,
				SubtypeNotAuthorized,
				SubtypeAntipassback,
			},
			TypeDoorHeldOpen:   nil,
			TypeDoorForcedOpen: nil,
			TypeExitRequest:    nil,
		},
		CategoryAnalytics: {
			TypeObjectDetected: {SubtypePerson, SubtypeVehicle, SubtypeAnimal},
			TypeLineCrossing:   nil,
			TypeLoitering:      nil,
			TypeMotionDetected: nil,
		},
		CategoryDiagnostics: {
			TypeDeviceCheckIn: nil,
			TypeDeviceOnline:  nil,
			TypeDeviceOffline: nil,
			TypeBatteryLow:    nil,
		},
		CategorySecurity: {
			TypeArmed:          {SubtypeAway, SubtypeStay},
			TypeDisarmed:       nil,
			TypeAlarmTriggered: {SubtypeIntrusion, SubtypeTamper, SubtypeDuress},
			TypeAlarmCleared:   nil,
		},
		CategoryUnknown: {
			TypeUnknownExternalEvent: nil,
		},
	}
}

// Index is the reverse lookup over a Hierarchy: type -> owning category
// and type -> allowed subtypes. It replaces per-call linear scans of the
// hierarchy with a map built once at startup.
//
// Immutable after construction; safe for concurrent use.
type Index struct {
	categoryByType map[Type]Category
	subtypesByType map[Type]map[Subtype]struct{}
}

// NewIndex builds a reverse index from the given hierarchy.
// It fails if the same type appears under more than one category, which
// would make category derivation ambiguous.
func NewIndex(h Hierarchy) (*Index, error) {
	idx := &Index{
		categoryByType: make(map[Type]Category),
		subtypesByType: make(map[Type]map[Subtype]struct{}),
	}
	for category, types := range h {
		for typ, subtypes := range types {
			if existing, ok := idx.categoryByType[typ]; ok {
				return nil, fmt.Errorf("building event index: type %q owned by both %q and %q", typ, existing, category)
			}
			idx.categoryByType[typ] = category

			set := make(map[Subtype]struct{}, len(subtypes))
			for _, st := range subtypes {
				set[st] = struct{}{}
			}
			idx.subtypesByType[typ] = set
		}
	}
	return idx, nil
}

// MustIndex builds an index from the default hierarchy, panicking on
// error. The default hierarchy is a compile-time table, so a failure here
// is a programming defect caught by the package tests.
func MustIndex() *Index {
	idx, err := NewIndex(DefaultHierarchy())
	if err != nil {
		panic(err)
	}
	return idx
}

// CategoryOf returns the category owning the given type.
func (i *Index) CategoryOf(typ Type) (Category, bool) {
	c, ok := i.categoryByType[typ]
	return c, ok
}

// Classification is a proven-valid (category, type, subtype) triple.
// Values are only produced by Index.NewClassification, so holding one is
// proof of hierarchy membership.
type Classification struct {
	Category Category
	Type     Type
	Subtype  *Subtype
}

// NewClassification derives the category for typ from the reverse index
// and validates the optional subtype against the type's allowed set.
//
// Returns ErrUnknownType when typ is absent from the hierarchy and
// ErrInvalidSubtype when subtype is not owned by typ. Both indicate a
// classifier configuration defect, not bad inbound data.
func (i *Index) NewClassification(typ Type, subtype *Subtype) (Classification, error) {
	category, ok := i.categoryByType[typ]
	if !ok {
		return Classification{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if subtype != nil {
		if _, ok := i.subtypesByType[typ][*subtype]; !ok {
			return Classification{}, fmt.Errorf("%w: %q for type %q", ErrInvalidSubtype, *subtype, typ)
		}
	}
	return Classification{Category: category, Type: typ, Subtype: subtype}, nil
}

// SubtypePtr is a convenience for building optional subtype arguments.
func SubtypePtr(s Subtype) *Subtype {
	return &s
}

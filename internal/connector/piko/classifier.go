package piko

import (
	"fmt"

	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
)

// classentry pairs a type with an optional subtype for table entries.
type classEntry struct {
	typ     event.Type
	subtype *event.Subtype
}

// Classifier maps Piko VMS discriminators to canonical classifications.
//
// Piko events carry up to two discriminators: an analytics sub-engine id
// ("analytics.lineCrossing") when an analytics rule fired, and a generic
// eventType ("motionEvent", "cameraOnlineEvent") always. Matching
// precedence:
//  1. analytics sub-engine id (most specific)
//  2. generic eventType
//  3. no match — the parser emits UNKNOWN_EXTERNAL_EVENT
//
// Immutable after construction; safe for concurrent use.
type Classifier struct {
	idx       *event.Index
	byEngine  map[string]classEntry
	byGeneric map[string]classEntry
}

// NewClassifier builds the Piko classifier over the given hierarchy
// index. Every table entry is proven against the hierarchy at
// configuration time.
func NewClassifier(idx *event.Index) (*Classifier, error) {
	c := &Classifier{
		idx: idx,
		byEngine: map[string]classEntry{
			"analytics.objectDetection.person":  {event.TypeObjectDetected, event.SubtypePtr(event.SubtypePerson)},
			"analytics.objectDetection.vehicle": {event.TypeObjectDetected, event.SubtypePtr(event.SubtypeVehicle)},
			"analytics.objectDetection.animal":  {event.TypeObjectDetected, event.SubtypePtr(event.SubtypeAnimal)},
			"analytics.lineCrossing":            {event.TypeLineCrossing, nil},
			"analytics.loitering":               {event.TypeLoitering, nil},
		},
		byGeneric: map[string]classEntry{
			"motionEvent":        {event.TypeMotionDetected, nil},
			"analyticsSdkEvent":  {event.TypeObjectDetected, nil},
			"cameraOnlineEvent":  {event.TypeDeviceOnline, nil},
			"cameraOfflineEvent": {event.TypeDeviceOffline, nil},
			"serverStartEvent":   {event.TypeDeviceCheckIn, nil},
		},
	}

	for name, e := range c.byEngine {
		if _, err := idx.NewClassification(e.typ, e.subtype); err != nil {
			return nil, fmt.Errorf("piko engine entry %q: %w", name, err)
		}
	}
	for name, e := range c.byGeneric {
		if _, err := idx.NewClassification(e.typ, e.subtype); err != nil {
			return nil, fmt.Errorf("piko event entry %q: %w", name, err)
		}
	}
	return c, nil
}

// Classify resolves the (engineID, eventType) discriminator pair.
// engineID may be empty when no analytics rule fired.
func (c *Classifier) Classify(engineID, eventType string) (event.Classification, bool) {
	if engineID != "" {
		if e, ok := c.byEngine[engineID]; ok {
			cls, err := c.idx.NewClassification(e.typ, e.subtype)
			if err == nil {
				return cls, true
			}
		}
	}

	if e, ok := c.byGeneric[eventType]; ok {
		cls, err := c.idx.NewClassification(e.typ, e.subtype)
		if err == nil {
			return cls, true
		}
	}

	return event.Classification{}, false
}

package yolink

import (
	"fmt"

	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
)

// Classifier is the pure mapping from YoLink event discriminators to
// canonical classifications. YoLink names every event "<Class>.<Method>"
// ("DoorSensor.Alert", "Hub.Report", "Lock.setState").
//
// Matching precedence:
//  1. exact "<Class>.<Method>" entries
//  2. payload-derived state change (the parser reports whether the
//     payload carried a recognisable state token)
//  3. no match — the parser emits UNKNOWN_EXTERNAL_EVENT
//
// Immutable after construction; safe for concurrent use.
type Classifier struct {
	idx   *event.Index
	exact map[string]event.Type
}

// NewClassifier builds the YoLink classifier over the given hierarchy
// index. Every table entry is proven against the hierarchy here, at
// configuration time, so Classify can never produce an invalid triple.
func NewClassifier(idx *event.Index) (*Classifier, error) {
	c := &Classifier{
		idx: idx,
		exact: map[string]event.Type{
			"Hub.Report":          event.TypeDeviceCheckIn,
			"SpeakerHub.Report":   event.TypeDeviceCheckIn,
			"Hub.getState":        event.TypeDeviceCheckIn,
			"SmokeAlarm.Alert":    event.TypeAlarmTriggered,
			"Siren.Alert":         event.TypeAlarmTriggered,
			"DeviceEvent.Online":  event.TypeDeviceOnline,
			"DeviceEvent.Offline": event.TypeDeviceOffline,
		},
	}

	// Fail construction for any table entry the hierarchy disowns.
	for name, typ := range c.exact {
		if _, err := idx.NewClassification(typ, nil); err != nil {
			return nil, fmt.Errorf("yolink classifier entry %q: %w", name, err)
		}
	}
	return c, nil
}

// Classify resolves a discriminator to a classification.
//
// hasState reports whether the payload carried a state token the state
// translator recognised; it drives the second-tier state-change match.
// The boolean return is false when no tier matched.
func (c *Classifier) Classify(eventName string, hasState bool) (event.Classification, bool) {
	if typ, ok := c.exact[eventName]; ok {
		cls, err := c.idx.NewClassification(typ, nil)
		if err != nil {
			// Unreachable: entries are validated at construction.
			return event.Classification{}, false
		}
		return cls, true
	}

	if hasState {
		cls, err := c.idx.NewClassification(event.TypeStateChanged, nil)
		if err != nil {
			return event.Classification{}, false
		}
		return cls, true
	}

	return event.Classification{}, false
}

package netbox

import (
	"fmt"
	"strings"

	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
)

// Classifier maps NetBox access-control discriminators to canonical
// classifications.
//
// Plain activity records ("ACCESS GRANTED", "ACCESS DENIED" plus a
// reason) resolve through a flat table. Portal alarm/secure transitions
// are ambiguous at the activity level — the same record covers forced
// doors, held doors, and ordinary re-secures — so they resolve through a
// small decision tree over the structured prior/current state diff
// instead.
//
// Immutable after construction; safe for concurrent use.
type Classifier struct {
	idx *event.Index
}

// NewClassifier builds the NetBox classifier over the given hierarchy
// index. The classifier's output set is proven against the hierarchy at
// configuration time.
func NewClassifier(idx *event.Index) (*Classifier, error) {
	c := &Classifier{idx: idx}

	// Prove every type and subtype this classifier can emit.
	checks := []struct {
		typ     event.Type
		subtype *event.Subtype
	}{
		{event.TypeAccessGranted, nil},
		{event.TypeAccessDenied, nil},
		{event.TypeAccessDenied, event.SubtypePtr(event.SubtypeInvalidCredential)},
		{event.TypeAccessDenied, event.SubtypePtr(event.SubtypeExpiredCredential)},
		{event.TypeAccessDenied, event.SubtypePtr(event.SubtypeNotAuthorized)},
		{event.TypeAccessDenied, event.SubtypePtr(event.SubtypeAntipassback)},
		{event.TypeExitRequest, nil},
		{event.TypeDoorForcedOpen, nil},
		{event.TypeDoorHeldOpen, nil},
		{event.TypeAlarmTriggered, event.SubtypePtr(event.SubtypeIntrusion)},
		{event.TypeAlarmTriggered, event.SubtypePtr(event.SubtypeTamper)},
		{event.TypeAlarmCleared, nil},
	}
	for _, chk := range checks {
		if _, err := idx.NewClassification(chk.typ, chk.subtype); err != nil {
			return nil, fmt.Errorf("netbox classifier output: %w", err)
		}
	}
	return c, nil
}

// ClassifyActivity resolves a plain activity record.
// reason refines access denials into subtypes; unrecognised reasons
// degrade to a bare ACCESS_DENIED.
func (c *Classifier) ClassifyActivity(descname, reason string) (event.Classification, bool) {
	switch strings.ToUpper(strings.TrimSpace(descname)) {
	case "ACCESS GRANTED":
		return c.mustClassify(event.TypeAccessGranted, nil), true

	case "ACCESS DENIED":
		return c.mustClassify(event.TypeAccessDenied, denialSubtype(reason)), true

	case "REQUEST TO EXIT":
		return c.mustClassify(event.TypeExitRequest, nil), true

	case "TAMPER":
		return c.mustClassify(event.TypeAlarmTriggered, event.SubtypePtr(event.SubtypeTamper)), true
	}
	return event.Classification{}, false
}

// denialSubtype maps NetBox denial reasons onto ACCESS_DENIED subtypes.
func denialSubtype(reason string) *event.Subtype {
	switch strings.ToUpper(strings.TrimSpace(reason)) {
	case "UNKNOWN CREDENTIAL", "BADGE NOT IN FILE":
		return event.SubtypePtr(event.SubtypeInvalidCredential)
	case "EXPIRED CREDENTIAL", "BADGE EXPIRED":
		return event.SubtypePtr(event.SubtypeExpiredCredential)
	case "NOT AUTHORIZED", "ACCESS LEVEL":
		return event.SubtypePtr(event.SubtypeNotAuthorized)
	case "ANTIPASSBACK VIOLATION":
		return event.SubtypePtr(event.SubtypeAntipassback)
	default:
		return nil
	}
}

// PortalState is the structured state snapshot NetBox attaches to portal
// transition records.
type PortalState struct {
	AlarmState string `json:"alarmState"` // SECURE or ALARM
	DoorState  string `json:"doorState"`  // OPEN or CLOSED
	DSM        string `json:"dsm"`        // door state monitor: FORCED, HELD, or empty
}

func (s PortalState) inAlarm() bool { return strings.EqualFold(s.AlarmState, "ALARM") }

func (s PortalState) doorOpen() bool { return strings.EqualFold(s.DoorState, "OPEN") }

// ClassifyTransition resolves an ambiguous portal alarm/secure
// transition from the prior/current diff:
//
//	secure -> alarm, monitor says FORCED        => DOOR_FORCED_OPEN
//	secure -> alarm, monitor says HELD          => DOOR_HELD_OPEN
//	secure -> alarm, door went closed -> open   => DOOR_FORCED_OPEN
//	secure -> alarm otherwise                   => ALARM_TRIGGERED (intrusion)
//	alarm  -> secure                            => ALARM_CLEARED
//
// Transitions that change nothing alarm-related do not classify.
func (c *Classifier) ClassifyTransition(prior, current PortalState) (event.Classification, bool) {
	switch {
	case !prior.inAlarm() && current.inAlarm():
		switch strings.ToUpper(strings.TrimSpace(current.DSM)) {
		case "FORCED":
			return c.mustClassify(event.TypeDoorForcedOpen, nil), true
		case "HELD":
			return c.mustClassify(event.TypeDoorHeldOpen, nil), true
		}
		// Older panels omit the door state monitor field: a door that
		// opened without a grant while entering alarm was forced.
		if !prior.doorOpen() && current.doorOpen() {
			return c.mustClassify(event.TypeDoorForcedOpen, nil), true
		}
		return c.mustClassify(event.TypeAlarmTriggered, event.SubtypePtr(event.SubtypeIntrusion)), true

	case prior.inAlarm() && !current.inAlarm():
		return c.mustClassify(event.TypeAlarmCleared, nil), true
	}
	return event.Classification{}, false
}

// mustClassify builds a classification for outputs proven at
// construction time.
func (c *Classifier) mustClassify(typ event.Type, subtype *event.Subtype) event.Classification {
	cls, err := c.idx.NewClassification(typ, subtype)
	if err != nil {
		// Unreachable: the output set is validated in NewClassifier.
		panic(err)
	}
	return cls
}

package netbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
	"github.com/austin-smith/fusion-bridge-sub003/internal/state"
)

// ─── Mock Dependencies ───────────────────────────────────────────────

type mockResolver struct {
	mu      sync.Mutex
	devices map[string]*device.Device // keyed by vendor device id
}

func (m *mockResolver) GetByVendorID(_ context.Context, _, vendorDeviceID string) (*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[vendorDeviceID]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return d, nil
}

type mockSink struct {
	mu       sync.Mutex
	recorded []sinkCall
	err      error
}

type sinkCall struct {
	deviceID string
	display  string
}

func (m *mockSink) RecordDisplayState(_ context.Context, deviceID, displayState string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, sinkCall{deviceID: deviceID, display: displayState})
	return m.err
}

func newTestParser(t *testing.T, resolver DeviceResolver, sink StatusSink) *Parser {
	t.Helper()

	idx := event.MustIndex()
	classifier, err := NewClassifier(idx)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return NewParser("conn-netbox", classifier, idx,
		device.NewTypeRegistry(device.DefaultTypeTables(), nil),
		state.NewTranslator(state.DefaultTokenTables(), nil),
		resolver, sink, nil)
}

// ─── Activity Classification ─────────────────────────────────────────

func TestParseAccessGranted(t *testing.T) {
	p := newTestParser(t, nil, nil)

	raw := []byte(`{
		"descname": "ACCESS GRANTED",
		"cdt": "2026-01-01T00:00:00Z",
		"portalkey": "portal-7",
		"portalname": "Front Door",
		"personname": "A. Visitor"
	}`)
	ev, err := p.Parse(context.Background(), raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.Category != event.CategoryAccessControl || ev.Type != event.TypeAccessGranted {
		t.Errorf("classification = %s/%s, want ACCESS_CONTROL/ACCESS_GRANTED", ev.Category, ev.Type)
	}
	if ev.DeviceID != "portal-7" {
		t.Errorf("DeviceID = %q, want portal key", ev.DeviceID)
	}
	if ev.DeviceInfo == nil || ev.DeviceInfo.Type != device.TypeDoor {
		t.Errorf("device info = %+v, want Door", ev.DeviceInfo)
	}
	if got := ev.Payload["personName"]; got != "A. Visitor" {
		t.Errorf("personName = %v", got)
	}
}

func TestParseDenialReasonSubtypes(t *testing.T) {
	tests := []struct {
		reason  string
		subtype *event.Subtype
	}{
		{"UNKNOWN CREDENTIAL", event.SubtypePtr(event.SubtypeInvalidCredential)},
		{"BADGE EXPIRED", event.SubtypePtr(event.SubtypeExpiredCredential)},
		{"NOT AUTHORIZED", event.SubtypePtr(event.SubtypeNotAuthorized)},
		{"ANTIPASSBACK VIOLATION", event.SubtypePtr(event.SubtypeAntipassback)},
		{"SOME FUTURE REASON", nil}, // degrades to bare denial
	}

	p := newTestParser(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			raw := []byte(`{
				"descname": "ACCESS DENIED",
				"cdt": "2026-01-01T00:00:00Z",
				"portalkey": "portal-7",
				"reason": "` + tt.reason + `"
			}`)
			ev, err := p.Parse(context.Background(), raw)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if ev.Type != event.TypeAccessDenied {
				t.Fatalf("type = %s, want ACCESS_DENIED", ev.Type)
			}
			switch {
			case tt.subtype == nil && ev.Subtype != nil:
				t.Errorf("subtype = %s, want none", *ev.Subtype)
			case tt.subtype != nil && (ev.Subtype == nil || *ev.Subtype != *tt.subtype):
				t.Errorf("subtype = %v, want %s", ev.Subtype, *tt.subtype)
			}
		})
	}
}

// ─── Transition Decision Tree ────────────────────────────────────────

func TestParsePortalTransitions(t *testing.T) {
	tests := []struct {
		name     string
		prior    string
		current  string
		wantType event.Type
		wantSub  *event.Subtype
	}{
		{
			name:     "forced door via monitor",
			prior:    `{"alarmState": "SECURE", "doorState": "CLOSED"}`,
			current:  `{"alarmState": "ALARM", "doorState": "OPEN", "dsm": "FORCED"}`,
			wantType: event.TypeDoorForcedOpen,
		},
		{
			name:     "held door via monitor",
			prior:    `{"alarmState": "SECURE", "doorState": "OPEN"}`,
			current:  `{"alarmState": "ALARM", "doorState": "OPEN", "dsm": "HELD"}`,
			wantType: event.TypeDoorHeldOpen,
		},
		{
			name:     "forced door inferred from door diff",
			prior:    `{"alarmState": "SECURE", "doorState": "CLOSED"}`,
			current:  `{"alarmState": "ALARM", "doorState": "OPEN"}`,
			wantType: event.TypeDoorForcedOpen,
		},
		{
			name:     "intrusion when the door stayed shut",
			prior:    `{"alarmState": "SECURE", "doorState": "CLOSED"}`,
			current:  `{"alarmState": "ALARM", "doorState": "CLOSED"}`,
			wantType: event.TypeAlarmTriggered,
			wantSub:  event.SubtypePtr(event.SubtypeIntrusion),
		},
		{
			name:     "alarm cleared",
			prior:    `{"alarmState": "ALARM", "doorState": "CLOSED"}`,
			current:  `{"alarmState": "SECURE", "doorState": "CLOSED"}`,
			wantType: event.TypeAlarmCleared,
		},
	}

	p := newTestParser(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`{
				"descname": "PORTAL STATE",
				"cdt": "2026-01-01T00:00:00Z",
				"portalkey": "portal-7",
				"priorState": ` + tt.prior + `,
				"currentState": ` + tt.current + `
			}`)
			ev, err := p.Parse(context.Background(), raw)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if ev.Type != tt.wantType {
				t.Errorf("type = %s, want %s", ev.Type, tt.wantType)
			}
			if tt.wantSub != nil && (ev.Subtype == nil || *ev.Subtype != *tt.wantSub) {
				t.Errorf("subtype = %v, want %s", ev.Subtype, *tt.wantSub)
			}
		})
	}
}

func TestParseTransitionWithoutAlarmChangeFallsThrough(t *testing.T) {
	p := newTestParser(t, nil, nil)

	// Door opened and closed while secure: nothing alarm-related
	// changed, and the descname is unmapped, so the record must emerge
	// as UNKNOWN rather than vanish.
	raw := []byte(`{
		"descname": "PORTAL STATE",
		"cdt": "2026-01-01T00:00:00Z",
		"portalkey": "portal-7",
		"priorState": {"alarmState": "SECURE", "doorState": "CLOSED"},
		"currentState": {"alarmState": "SECURE", "doorState": "OPEN"}
	}`)
	ev, err := p.Parse(context.Background(), raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.Type != event.TypeUnknownExternalEvent {
		t.Errorf("type = %s, want UNKNOWN_EXTERNAL_EVENT", ev.Type)
	}
	if got := ev.Payload[event.PayloadKeyOriginalEventType]; got != "PORTAL STATE" {
		t.Errorf("originalEventType = %v, want PORTAL STATE", got)
	}
}

// ─── Lock State Changes ──────────────────────────────────────────────

func TestParseLockStateChangeNotifiesSink(t *testing.T) {
	resolver := &mockResolver{devices: map[string]*device.Device{
		"portal-7": {ID: "dev-9", ConnectorID: "conn-netbox", VendorDeviceID: "portal-7"},
	}}
	sink := &mockSink{}
	p := newTestParser(t, resolver, sink)

	raw := []byte(`{
		"descname": "PORTAL UNLOCKED",
		"cdt": "2026-01-01T00:00:00Z",
		"portalkey": "portal-7",
		"lockstate": "UNLOCKED"
	}`)
	ev, err := p.Parse(context.Background(), raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.Type != event.TypeStateChanged {
		t.Errorf("type = %s, want STATE_CHANGED", ev.Type)
	}
	if got := ev.Payload[event.PayloadKeyDisplayState]; got != string(state.DisplayUnlocked) {
		t.Errorf("displayState = %v, want %s", got, state.DisplayUnlocked)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.recorded) != 1 || sink.recorded[0].deviceID != "dev-9" {
		t.Errorf("sink calls = %+v, want one for internal id dev-9", sink.recorded)
	}
}

func TestParseUnknownPortalStillEmits(t *testing.T) {
	resolver := &mockResolver{devices: map[string]*device.Device{}}
	sink := &mockSink{}
	p := newTestParser(t, resolver, sink)

	raw := []byte(`{
		"descname": "PORTAL LOCKED",
		"cdt": "2026-01-01T00:00:00Z",
		"portalkey": "portal-unregistered",
		"lockstate": "LOCKED"
	}`)
	ev, err := p.Parse(context.Background(), raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.Type != event.TypeStateChanged {
		t.Errorf("type = %s, want STATE_CHANGED", ev.Type)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.recorded) != 0 {
		t.Errorf("sink calls = %+v, want none for an unknown portal", sink.recorded)
	}
}

// ─── Validation and Timestamps ───────────────────────────────────────

func TestParseValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"missing descname", `{"cdt": "2026-01-01T00:00:00Z", "portalkey": "p"}`},
		{"missing timestamp", `{"descname": "ACCESS GRANTED", "portalkey": "p"}`},
		{"missing portalkey", `{"descname": "ACCESS GRANTED", "cdt": "2026-01-01T00:00:00Z"}`},
	}

	p := newTestParser(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := p.Parse(context.Background(), []byte(tt.raw))
			if !errors.Is(err, connector.ErrInvalidPayload) {
				t.Errorf("err = %v, want ErrInvalidPayload", err)
			}
			if ev != nil {
				t.Errorf("event = %+v, want nil", ev)
			}
		})
	}
}

func TestParseTimestampForms(t *testing.T) {
	p := newTestParser(t, nil, nil)
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", "2026-01-02T03:04:05Z", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"panel local form", "2026-01-02 03:04:05", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"epoch seconds", "1767321845", time.Unix(1767321845, 0).UTC()},
		{"garbage falls back to now", "not-a-time", fixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.parseTimestamp(tt.raw)
			if !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

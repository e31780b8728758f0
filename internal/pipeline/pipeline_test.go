package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/automation"
	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
	"github.com/austin-smith/fusion-bridge-sub003/internal/eventstore"
	"github.com/austin-smith/fusion-bridge-sub003/internal/location"
)

// ─── Mock Dependencies ───

type mockParser struct {
	mu     sync.Mutex
	ev     *event.StandardizedEvent
	err    error
	parsed int
}

func (m *mockParser) Parse(_ context.Context, _ []byte) (*event.StandardizedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parsed++
	if m.err != nil {
		return nil, m.err
	}
	return m.ev, nil
}

type appendCall struct {
	eventID    string
	areaID     *string
	locationID *string
}

type mockSink struct {
	mu      sync.Mutex
	err     error
	appends []appendCall
}

func (m *mockSink) Append(_ context.Context, ev *event.StandardizedEvent, areaID, locationID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends = append(m.appends, appendCall{eventID: ev.EventID, areaID: areaID, locationID: locationID})
	return m.err
}

type mockDevices struct {
	mu      sync.Mutex
	devices map[string]*device.Device // by vendor device id
}

func (m *mockDevices) GetByVendorID(_ context.Context, _, vendorDeviceID string) (*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dev, ok := m.devices[vendorDeviceID]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return dev, nil
}

type mockConnectors struct {
	mu   sync.Mutex
	conn *connector.Connector
}

func (m *mockConnectors) GetByID(_ context.Context, id string) (*connector.Connector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || m.conn.ID != id {
		return nil, connector.ErrConnectorNotFound
	}
	return m.conn, nil
}

type mockSpaces struct {
	mu       sync.Mutex
	area     *location.Area
	location *location.Location
}

func (m *mockSpaces) GetArea(_ context.Context, id string) (*location.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.area == nil || m.area.ID != id {
		return nil, location.ErrAreaNotFound
	}
	return m.area, nil
}

func (m *mockSpaces) GetLocation(_ context.Context, id string) (*location.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.location == nil || m.location.ID != id {
		return nil, location.ErrLocationNotFound
	}
	return m.location, nil
}

type mockAutomations struct {
	mu    sync.Mutex
	items []automation.Automation
}

func (m *mockAutomations) ListEnabled(_ context.Context) []automation.Automation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items
}

type mockQuerier struct {
	mu      sync.Mutex
	err     error
	results []eventstore.StoredEvent
}

func (m *mockQuerier) Query(_ context.Context, _ eventstore.QueryParams) ([]eventstore.StoredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type stateChange struct {
	deviceID string
	state    string
}

type mockStateChanger struct {
	mu      sync.Mutex
	err     error
	changes []stateChange
}

func (m *mockStateChanger) RequestDeviceStateChange(_ context.Context, internalDeviceID, targetState string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, stateChange{deviceID: internalDeviceID, state: targetState})
	return m.err
}

func (m *mockStateChanger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.changes)
}

type mockTelemetry struct {
	mu     sync.Mutex
	events int
	states []string // "deviceID=displayState"
	fired  []string // "automationID:actions/failed"
}

func (m *mockTelemetry) RecordEvent(_ *event.StandardizedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events++
}

func (m *mockTelemetry) RecordDeviceState(internalDeviceID, displayState string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, internalDeviceID+"="+displayState)
}

func (m *mockTelemetry) RecordAutomationFired(automationID string, actionCount, failedCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fired = append(m.fired, fmt.Sprintf("%s:%d/%d", automationID, actionCount, failedCount))
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (m *mockBroadcaster) BroadcastEvent(ev *event.StandardizedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev.EventID)
}

// ─── Fixtures ───

func strPtr(s string) *string { return &s }

func motionEvent() *event.StandardizedEvent {
	return &event.StandardizedEvent{
		EventID:     "evt-1",
		Timestamp:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ConnectorID: "conn-1",
		DeviceID:    "vendor-dev-1",
		DeviceInfo:  &device.TypedDeviceInfo{Type: device.TypeSensor},
		Category:    event.CategoryAnalytics,
		Type:        event.TypeMotionDetected,
		Payload:     map[string]any{"batteryLevel": float64(4)},
	}
}

type fixture struct {
	pipeline    *Pipeline
	parser      *mockParser
	sink        *mockSink
	changer     *mockStateChanger
	telemetry   *mockTelemetry
	broadcaster *mockBroadcaster
	automations *mockAutomations
	querier     *mockQuerier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		parser:      &mockParser{ev: motionEvent()},
		sink:        &mockSink{},
		changer:     &mockStateChanger{},
		telemetry:   &mockTelemetry{},
		broadcaster: &mockBroadcaster{},
		automations: &mockAutomations{},
		querier:     &mockQuerier{},
	}

	devices := &mockDevices{devices: map[string]*device.Device{
		"vendor-dev-1": {
			ID:             "dev-1",
			ConnectorID:    "conn-1",
			VendorDeviceID: "vendor-dev-1",
			Name:           "Lobby Motion",
			AreaID:         strPtr("area-1"),
			LocationID:     strPtr("loc-1"),
		},
	}}
	connectors := &mockConnectors{conn: &connector.Connector{
		ID: "conn-1", Name: "YoLink Home", Category: connector.CategoryYoLink,
	}}
	spaces := &mockSpaces{
		area:     &location.Area{ID: "area-1", Name: "Lobby"},
		location: &location.Location{ID: "loc-1", Name: "HQ"},
	}

	engine := automation.NewEngine(f.querier)
	dispatcher := automation.NewDispatcher(nil, nil, f.changer, nil)

	f.pipeline = New(devices, connectors, spaces, f.sink, engine, f.automations, dispatcher,
		WithTelemetry(f.telemetry), WithBroadcaster(f.broadcaster))
	f.pipeline.RegisterParser("conn-1", f.parser)
	return f
}

func matchMotion() automation.Automation {
	return automation.Automation{
		ID:      "auto-1",
		Name:    "Motion Response",
		Enabled: true,
		Config: automation.AutomationConfig{
			Conditions: automation.NewAllGroup(automation.CondRule(automation.Condition{
				Fact: "event.type", Operator: automation.OpEqual, Value: "MOTION_DETECTED",
			})),
			Actions: []automation.Action{{
				Type: automation.ActionSetDeviceState,
				SetDeviceState: &automation.SetDeviceStateParams{
					TargetDeviceInternalID: "dev-siren",
					TargetState:            "on",
				},
			}},
		},
	}
}

// ─── Tests ───

func TestHandleRawPersistsWithSpatialSnapshot(t *testing.T) {
	f := newFixture(t)

	if err := f.pipeline.HandleRaw(context.Background(), "conn-1", []byte(`{}`)); err != nil {
		t.Fatalf("HandleRaw() error = %v", err)
	}

	if len(f.sink.appends) != 1 {
		t.Fatalf("appends = %d, want 1", len(f.sink.appends))
	}
	got := f.sink.appends[0]
	if got.eventID != "evt-1" {
		t.Errorf("appended event id = %q, want evt-1", got.eventID)
	}
	if got.areaID == nil || *got.areaID != "area-1" {
		t.Errorf("area snapshot = %v, want area-1", got.areaID)
	}
	if got.locationID == nil || *got.locationID != "loc-1" {
		t.Errorf("location snapshot = %v, want loc-1", got.locationID)
	}

	if f.telemetry.events != 1 {
		t.Errorf("telemetry events = %d, want 1", f.telemetry.events)
	}
	if len(f.broadcaster.events) != 1 || f.broadcaster.events[0] != "evt-1" {
		t.Errorf("broadcast events = %v, want [evt-1]", f.broadcaster.events)
	}
}

func TestHandleRawMatchedAutomationDispatchesActions(t *testing.T) {
	f := newFixture(t)
	f.automations.items = []automation.Automation{matchMotion()}

	if err := f.pipeline.HandleRaw(context.Background(), "conn-1", []byte(`{}`)); err != nil {
		t.Fatalf("HandleRaw() error = %v", err)
	}

	if f.changer.count() != 1 {
		t.Fatalf("state changes = %d, want 1", f.changer.count())
	}
	if got := f.changer.changes[0]; got.deviceID != "dev-siren" || got.state != "on" {
		t.Errorf("state change = %+v, want dev-siren/on", got)
	}
}

func TestHandleRawTelemetryMeasurements(t *testing.T) {
	f := newFixture(t)
	f.parser.ev.Payload[event.PayloadKeyDisplayState] = "Open"
	f.automations.items = []automation.Automation{matchMotion()}

	if err := f.pipeline.HandleRaw(context.Background(), "conn-1", []byte(`{}`)); err != nil {
		t.Fatalf("HandleRaw() error = %v", err)
	}

	f.telemetry.mu.Lock()
	defer f.telemetry.mu.Unlock()
	if f.telemetry.events != 1 {
		t.Errorf("event points = %d, want 1", f.telemetry.events)
	}
	// Display state points carry the internal device id, not the
	// vendor's.
	if len(f.telemetry.states) != 1 || f.telemetry.states[0] != "dev-1=Open" {
		t.Errorf("state points = %v, want [dev-1=Open]", f.telemetry.states)
	}
	if len(f.telemetry.fired) != 1 || f.telemetry.fired[0] != "auto-1:1/0" {
		t.Errorf("fired points = %v, want [auto-1:1/0]", f.telemetry.fired)
	}
}

func TestHandleRawNonMatchingAutomationDispatchesNothing(t *testing.T) {
	f := newFixture(t)
	auto := matchMotion()
	auto.Config.Conditions = automation.NewAllGroup(automation.CondRule(automation.Condition{
		Fact: "event.type", Operator: automation.OpEqual, Value: "DOOR_FORCED_OPEN",
	}))
	f.automations.items = []automation.Automation{auto}

	if err := f.pipeline.HandleRaw(context.Background(), "conn-1", []byte(`{}`)); err != nil {
		t.Fatalf("HandleRaw() error = %v", err)
	}
	if f.changer.count() != 0 {
		t.Errorf("state changes = %d, want 0", f.changer.count())
	}
}

func TestHandleRawMalformedPayloadDiscarded(t *testing.T) {
	f := newFixture(t)
	f.parser.err = connector.ErrInvalidPayload

	if err := f.pipeline.HandleRaw(context.Background(), "conn-1", []byte(`garbage`)); err != nil {
		t.Fatalf("HandleRaw() error = %v, want nil for malformed payload", err)
	}
	if len(f.sink.appends) != 0 {
		t.Errorf("appends = %d, want 0", len(f.sink.appends))
	}
	if f.telemetry.events != 0 {
		t.Errorf("telemetry events = %d, want 0", f.telemetry.events)
	}
}

func TestHandleRawUnknownConnectorIgnored(t *testing.T) {
	f := newFixture(t)

	if err := f.pipeline.HandleRaw(context.Background(), "conn-unknown", []byte(`{}`)); err != nil {
		t.Fatalf("HandleRaw() error = %v, want nil for unknown connector", err)
	}
	if f.parser.parsed != 0 {
		t.Errorf("parsed = %d, want 0", f.parser.parsed)
	}
}

func TestHandleRawUnregisteredDeviceAppendsWithoutSnapshot(t *testing.T) {
	f := newFixture(t)
	ev := motionEvent()
	ev.DeviceID = "vendor-dev-ghost"
	f.parser.ev = ev

	if err := f.pipeline.HandleRaw(context.Background(), "conn-1", []byte(`{}`)); err != nil {
		t.Fatalf("HandleRaw() error = %v", err)
	}
	if len(f.sink.appends) != 1 {
		t.Fatalf("appends = %d, want 1", len(f.sink.appends))
	}
	got := f.sink.appends[0]
	if got.areaID != nil || got.locationID != nil {
		t.Errorf("snapshot = (%v, %v), want (nil, nil)", got.areaID, got.locationID)
	}
}

func TestHandleRawAppendFailureStillEvaluates(t *testing.T) {
	f := newFixture(t)
	f.sink.err = errors.New("disk full")
	f.automations.items = []automation.Automation{matchMotion()}

	if err := f.pipeline.HandleRaw(context.Background(), "conn-1", []byte(`{}`)); err != nil {
		t.Fatalf("HandleRaw() error = %v", err)
	}
	if len(f.broadcaster.events) != 1 {
		t.Errorf("broadcast events = %d, want 1", len(f.broadcaster.events))
	}
	if f.changer.count() != 1 {
		t.Errorf("state changes = %d, want 1", f.changer.count())
	}
}

// One automation's temporal query failure must not stop a sibling from
// evaluating and dispatching.
func TestHandleRawFailingAutomationDoesNotAffectSiblings(t *testing.T) {
	f := newFixture(t)
	f.querier.err = errors.New("store offline")

	window := 60
	failing := matchMotion()
	failing.ID = "auto-temporal"
	failing.Config.TemporalConditions = []automation.TemporalCondition{{
		ID:                      "tc-1",
		Type:                    automation.TemporalEventOccurred,
		Scoping:                 automation.ScopeAnywhere,
		EventFilter:             automation.NewAllGroup(),
		TimeWindowSecondsBefore: &window,
	}}

	f.automations.items = []automation.Automation{failing, matchMotion()}

	if err := f.pipeline.HandleRaw(context.Background(), "conn-1", []byte(`{}`)); err != nil {
		t.Fatalf("HandleRaw() error = %v", err)
	}
	if f.changer.count() != 1 {
		t.Errorf("state changes = %d, want 1 (only the healthy automation)", f.changer.count())
	}
}

func TestBuildContextFacts(t *testing.T) {
	f := newFixture(t)

	facts, areaID, locationID := f.pipeline.buildContext(context.Background(), motionEvent())

	want := map[string]any{
		"event.type":          "MOTION_DETECTED",
		"event.category":      "ANALYTICS",
		"device.id":           "dev-1",
		"device.name":         "Lobby Motion",
		"device.batteryLevel": float64(4),
		"connector.category":  string(connector.CategoryYoLink),
		"area.id":             "area-1",
		"area.name":           "Lobby",
		"location.id":         "loc-1",
		"location.name":       "HQ",
	}
	for k, v := range want {
		if got := facts[k]; got != v {
			t.Errorf("facts[%q] = %v, want %v", k, got, v)
		}
	}
	if areaID == nil || *areaID != "area-1" {
		t.Errorf("areaID = %v, want area-1", areaID)
	}
	if locationID == nil || *locationID != "loc-1" {
		t.Errorf("locationID = %v, want loc-1", locationID)
	}
}

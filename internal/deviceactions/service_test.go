package deviceactions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
)

// ─── Mock Dependencies ───────────────────────────────────────────────

type mockDevices struct {
	mu       sync.Mutex
	contexts map[string]device.Context
}

func (m *mockDevices) ActionContext(_ context.Context, id string) (device.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dc, ok := m.contexts[id]
	if !ok {
		return device.Context{}, device.ErrDeviceNotFound
	}
	return dc, nil
}

type mockConnectors struct {
	mu    sync.Mutex
	items map[string]*connector.Connector
}

func (m *mockConnectors) GetByID(_ context.Context, id string) (*connector.Connector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, connector.ErrConnectorNotFound
	}
	return c.DeepCopy(), nil
}

type recordingHandler struct {
	mu       sync.Mutex
	category connector.Category
	accepts  func(device.Context, string) bool
	err      error
	calls    []string // device ids, in order
}

func (h *recordingHandler) Category() connector.Category { return h.category }

func (h *recordingHandler) CanHandle(dev device.Context, targetState string) bool {
	if h.accepts == nil {
		return true
	}
	return h.accepts(dev, targetState)
}

func (h *recordingHandler) ExecuteStateChange(_ context.Context, dev device.Context, _ map[string]any, _ string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, dev.ID)
	return h.err
}

func (h *recordingHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func fixtures() (*mockDevices, *mockConnectors) {
	devices := &mockDevices{contexts: map[string]device.Context{
		"dev-lock": {
			ID: "dev-lock", VendorDeviceID: "yl-1", RawVendorType: "Lock",
			ConnectorID:   "conn-yolink",
			RawDeviceData: map[string]any{"token": "tok-123"},
		},
		"dev-portal": {
			ID: "dev-portal", VendorDeviceID: "portal-7", RawVendorType: "Portal",
			ConnectorID: "conn-netbox",
		},
	}}
	connectors := &mockConnectors{items: map[string]*connector.Connector{
		"conn-yolink": {ID: "conn-yolink", Category: connector.CategoryYoLink, Enabled: true},
		"conn-netbox": {ID: "conn-netbox", Category: connector.CategoryNetBox, Enabled: true},
	}}
	return devices, connectors
}

// ─── Dispatch Selection ──────────────────────────────────────────────

// Two handlers registered for distinct categories: a device owned by
// category B's connector must invoke only handler B.
func TestDispatchSelectsByConnectorCategory(t *testing.T) {
	devices, connectors := fixtures()
	yolinkH := &recordingHandler{category: connector.CategoryYoLink}
	netboxH := &recordingHandler{category: connector.CategoryNetBox}
	svc := NewService(devices, connectors, NewRegistry(yolinkH, netboxH))

	if err := svc.RequestDeviceStateChange(context.Background(), "dev-portal", StateLocked); err != nil {
		t.Fatalf("RequestDeviceStateChange: %v", err)
	}
	if yolinkH.callCount() != 0 {
		t.Error("yolink handler must not run for a netbox device")
	}
	if netboxH.callCount() != 1 {
		t.Errorf("netbox handler calls = %d, want 1", netboxH.callCount())
	}
}

func TestDispatchFirstMatchWins(t *testing.T) {
	devices, connectors := fixtures()
	first := &recordingHandler{category: connector.CategoryYoLink}
	second := &recordingHandler{category: connector.CategoryYoLink}
	svc := NewService(devices, connectors, NewRegistry(first, second))

	if err := svc.RequestDeviceStateChange(context.Background(), "dev-lock", StateLocked); err != nil {
		t.Fatalf("RequestDeviceStateChange: %v", err)
	}
	if first.callCount() != 1 || second.callCount() != 0 {
		t.Errorf("calls = %d/%d, want first handler only", first.callCount(), second.callCount())
	}
}

func TestDispatchSkipsDecliningHandler(t *testing.T) {
	devices, connectors := fixtures()
	declines := &recordingHandler{
		category: connector.CategoryYoLink,
		accepts:  func(device.Context, string) bool { return false },
	}
	accepts := &recordingHandler{category: connector.CategoryYoLink}
	svc := NewService(devices, connectors, NewRegistry(declines, accepts))

	if err := svc.RequestDeviceStateChange(context.Background(), "dev-lock", StateLocked); err != nil {
		t.Fatalf("RequestDeviceStateChange: %v", err)
	}
	if declines.callCount() != 0 || accepts.callCount() != 1 {
		t.Error("dispatch must fall through to the next capable handler")
	}
}

func TestDispatchNoHandlerMatch(t *testing.T) {
	devices, connectors := fixtures()
	netboxOnly := &recordingHandler{category: connector.CategoryNetBox}
	svc := NewService(devices, connectors, NewRegistry(netboxOnly))

	err := svc.RequestDeviceStateChange(context.Background(), "dev-lock", StateLocked)
	if !errors.Is(err, ErrActionUnsupported) {
		t.Errorf("err = %v, want ErrActionUnsupported", err)
	}
}

func TestDispatchResolutionFailures(t *testing.T) {
	devices, connectors := fixtures()
	svc := NewService(devices, connectors, NewRegistry())

	err := svc.RequestDeviceStateChange(context.Background(), "dev-missing", StateLocked)
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("err = %v, want ErrDeviceNotFound", err)
	}

	connectors.mu.Lock()
	connectors.items["conn-yolink"].Enabled = false
	connectors.mu.Unlock()
	err = svc.RequestDeviceStateChange(context.Background(), "dev-lock", StateLocked)
	if !errors.Is(err, connector.ErrConnectorDisabled) {
		t.Errorf("err = %v, want ErrConnectorDisabled", err)
	}
}

func TestDispatchPropagatesHandlerFailure(t *testing.T) {
	devices, connectors := fixtures()
	failing := &recordingHandler{
		category: connector.CategoryYoLink,
		err:      errors.New("vendor timeout"),
	}
	svc := NewService(devices, connectors, NewRegistry(failing))

	err := svc.RequestDeviceStateChange(context.Background(), "dev-lock", StateLocked)
	if err == nil || err.Error() != "vendor timeout" {
		t.Errorf("err = %v, want the handler's failure", err)
	}
}

// ─── Vendor Handlers ─────────────────────────────────────────────────

type mockYoLinkCommander struct {
	mu    sync.Mutex
	calls []yolinkCall
	err   error
}

type yolinkCall struct {
	method string
	device string
	token  string
	state  any
}

func (m *mockYoLinkCommander) SendCommand(_ context.Context, _ map[string]any, method, vendorDeviceID, token string, params map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, yolinkCall{method, vendorDeviceID, token, params["state"]})
	return m.err
}

func TestYoLinkHandlerCommandMapping(t *testing.T) {
	commander := &mockYoLinkCommander{}
	h := NewYoLinkHandler(commander)

	lock := device.Context{
		ID: "dev-lock", VendorDeviceID: "yl-1", RawVendorType: "Lock",
		RawDeviceData: map[string]any{"token": "tok-123"},
	}
	if !h.CanHandle(lock, StateLocked) {
		t.Fatal("lock should handle locked")
	}
	if h.CanHandle(lock, StateOn) {
		t.Error("lock must not handle on")
	}
	if h.CanHandle(device.Context{RawVendorType: "DoorSensor"}, StateOn) {
		t.Error("sensors are not actuatable")
	}

	if err := h.ExecuteStateChange(context.Background(), lock, nil, StateUnlocked); err != nil {
		t.Fatalf("ExecuteStateChange: %v", err)
	}

	commander.mu.Lock()
	defer commander.mu.Unlock()
	call := commander.calls[0]
	if call.method != "Lock.setState" || call.state != "unlock" || call.token != "tok-123" {
		t.Errorf("call = %+v", call)
	}
}

func TestYoLinkHandlerRequiresToken(t *testing.T) {
	h := NewYoLinkHandler(&mockYoLinkCommander{})

	noToken := device.Context{
		ID: "dev-lock", VendorDeviceID: "yl-1", RawVendorType: "Lock",
	}
	err := h.ExecuteStateChange(context.Background(), noToken, nil, StateLocked)
	if !errors.Is(err, ErrMissingToken) {
		t.Errorf("err = %v, want ErrMissingToken", err)
	}
}

type mockNetBoxCommander struct {
	mu    sync.Mutex
	calls []netboxCall
}

type netboxCall struct {
	portalKey string
	command   string
}

func (m *mockNetBoxCommander) SetPortalState(_ context.Context, _ map[string]any, portalKey, command string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, netboxCall{portalKey, command})
	return nil
}

func TestNetBoxHandlerCommandMapping(t *testing.T) {
	commander := &mockNetBoxCommander{}
	h := NewNetBoxHandler(commander)

	portal := device.Context{ID: "dev-portal", VendorDeviceID: "portal-7", RawVendorType: "Portal"}
	if !h.CanHandle(portal, StateUnlocked) {
		t.Fatal("portal should handle unlocked")
	}
	if h.CanHandle(portal, StateOn) {
		t.Error("portal must not handle on")
	}

	if err := h.ExecuteStateChange(context.Background(), portal, nil, StateUnlocked); err != nil {
		t.Fatalf("ExecuteStateChange: %v", err)
	}

	commander.mu.Lock()
	defer commander.mu.Unlock()
	if commander.calls[0] != (netboxCall{"portal-7", "UNLOCK"}) {
		t.Errorf("call = %+v", commander.calls[0])
	}
}

package deviceactions

import (
	"context"
	"fmt"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
)

// YoLinkCommander sends one command to a YoLink device through the
// vendor API. The wire protocol lives with the transport; handlers
// supply the method name, the per-device auth token, and params.
type YoLinkCommander interface {
	SendCommand(ctx context.Context, connectorConfig map[string]any, method, vendorDeviceID, token string, params map[string]any) error
}

// yolinkVendorClasses maps the raw vendor type to its command method
// prefix and the abstract states it accepts.
var yolinkVendorClasses = map[string]struct {
	methodPrefix string
	states       map[string]string // abstract state -> vendor state token
}{
	"Switch": {"Switch", map[string]string{StateOn: "open", StateOff: "close"}},
	"Outlet": {"Outlet", map[string]string{StateOn: "open", StateOff: "close"}},
	"Lock":   {"Lock", map[string]string{StateLocked: "lock", StateUnlocked: "unlock"}},
	"Siren":  {"Siren", map[string]string{StateOn: "alert", StateOff: "normal"}},
}

// YoLinkHandler drives YoLink switches, outlets, locks and sirens.
//
// YoLink commands authenticate with a per-device token delivered in
// every report; the handler reads it from the device's last raw
// payload and fails the action when none has been seen yet.
type YoLinkHandler struct {
	commander YoLinkCommander
}

// NewYoLinkHandler creates the YoLink state-change handler.
func NewYoLinkHandler(commander YoLinkCommander) *YoLinkHandler {
	return &YoLinkHandler{commander: commander}
}

// Category implements Handler.
func (h *YoLinkHandler) Category() connector.Category {
	return connector.CategoryYoLink
}

// CanHandle implements Handler.
func (h *YoLinkHandler) CanHandle(dev device.Context, targetState string) bool {
	class, ok := yolinkVendorClasses[dev.RawVendorType]
	if !ok {
		return false
	}
	_, ok = class.states[targetState]
	return ok
}

// ExecuteStateChange implements Handler.
func (h *YoLinkHandler) ExecuteStateChange(ctx context.Context, dev device.Context, connectorConfig map[string]any, targetState string) error {
	class, ok := yolinkVendorClasses[dev.RawVendorType]
	if !ok {
		return ErrActionUnsupported
	}
	vendorState, ok := class.states[targetState]
	if !ok {
		return ErrActionUnsupported
	}

	token, ok := dev.RawDeviceData["token"].(string)
	if !ok || token == "" {
		return fmt.Errorf("%w: no token in last report for %s", ErrMissingToken, dev.ID)
	}

	method := class.methodPrefix + ".setState"
	params := map[string]any{"state": vendorState}
	if err := h.commander.SendCommand(ctx, connectorConfig, method, dev.VendorDeviceID, token, params); err != nil {
		return fmt.Errorf("yolink %s: %w", method, err)
	}
	return nil
}

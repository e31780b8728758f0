package deviceactions

import (
	"context"
	"fmt"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
)

// NetBoxCommander issues a portal command against a NetBox panel.
type NetBoxCommander interface {
	SetPortalState(ctx context.Context, connectorConfig map[string]any, portalKey, command string) error
}

// netboxPortalCommands maps abstract lock states to the panel's portal
// command vocabulary.
var netboxPortalCommands = map[string]string{
	StateLocked:   "LOCK",
	StateUnlocked: "UNLOCK",
}

// NetBoxHandler drives NetBox portals between locked and unlocked.
type NetBoxHandler struct {
	commander NetBoxCommander
}

// NewNetBoxHandler creates the NetBox state-change handler.
func NewNetBoxHandler(commander NetBoxCommander) *NetBoxHandler {
	return &NetBoxHandler{commander: commander}
}

// Category implements Handler.
func (h *NetBoxHandler) Category() connector.Category {
	return connector.CategoryNetBox
}

// CanHandle implements Handler.
func (h *NetBoxHandler) CanHandle(dev device.Context, targetState string) bool {
	if dev.RawVendorType != "Portal" {
		return false
	}
	_, ok := netboxPortalCommands[targetState]
	return ok
}

// ExecuteStateChange implements Handler.
func (h *NetBoxHandler) ExecuteStateChange(ctx context.Context, dev device.Context, connectorConfig map[string]any, targetState string) error {
	command, ok := netboxPortalCommands[targetState]
	if !ok {
		return ErrActionUnsupported
	}
	if err := h.commander.SetPortalState(ctx, connectorConfig, dev.VendorDeviceID, command); err != nil {
		return fmt.Errorf("netbox portal %s: %w", command, err)
	}
	return nil
}

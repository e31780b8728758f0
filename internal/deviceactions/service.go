package deviceactions

import (
	"context"
	"fmt"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
)

// DeviceProvider resolves a device's action context by internal id.
type DeviceProvider interface {
	ActionContext(ctx context.Context, id string) (device.Context, error)
}

// ConnectorProvider resolves a connector record by id.
type ConnectorProvider interface {
	GetByID(ctx context.Context, id string) (*connector.Connector, error)
}

// Service is the device action entry point: it loads the device and
// its owning connector and delegates to the handler registry.
type Service struct {
	devices    DeviceProvider
	connectors ConnectorProvider
	registry   *Registry
	logger     Logger
}

// NewService creates the device action service.
func NewService(devices DeviceProvider, connectors ConnectorProvider, registry *Registry) *Service {
	return &Service{
		devices:    devices,
		connectors: connectors,
		registry:   registry,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// RequestDeviceStateChange drives the device to the desired abstract
// state. Failures are typed: resolution errors pass through, a
// capability miss is ErrActionUnsupported, and handler failures carry
// the vendor error. No retry happens here.
func (s *Service) RequestDeviceStateChange(ctx context.Context, internalDeviceID, targetState string) error {
	dev, err := s.devices.ActionContext(ctx, internalDeviceID)
	if err != nil {
		return fmt.Errorf("resolving device %s: %w", internalDeviceID, err)
	}

	conn, err := s.connectors.GetByID(ctx, dev.ConnectorID)
	if err != nil {
		return fmt.Errorf("resolving connector %s: %w", dev.ConnectorID, err)
	}
	if !conn.Enabled {
		return connector.ErrConnectorDisabled
	}

	if err := s.registry.Dispatch(ctx, dev, conn, targetState); err != nil {
		s.logger.Warn("state change failed",
			"device_id", internalDeviceID, "target_state", targetState, "error", err)
		return err
	}

	s.logger.Debug("state change dispatched",
		"device_id", internalDeviceID, "target_state", targetState)
	return nil
}

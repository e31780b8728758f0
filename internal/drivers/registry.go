package drivers

import (
	"context"
	"fmt"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ConnectorResolver resolves a connector record by id.
type ConnectorResolver interface {
	GetByID(ctx context.Context, id string) (*connector.Connector, error)
}

// Driver is one vendor's createEvent/createBookmark transport. The
// connector config carries its endpoint and credentials.
type Driver interface {
	CreateEvent(ctx context.Context, connectorConfig map[string]any, source, caption, description string) error
	CreateBookmark(ctx context.Context, connectorConfig map[string]any, name, description string, durationMs int64, tags []string) error
}

// Registry routes driver calls by the target connector's category. It
// satisfies the action dispatcher's driver contract.
type Registry struct {
	connectors ConnectorResolver
	drivers    map[connector.Category]Driver
	logger     Logger
}

// NewRegistry creates a driver registry over the given per-category
// drivers.
func NewRegistry(connectors ConnectorResolver, driverMap map[connector.Category]Driver) *Registry {
	return &Registry{
		connectors: connectors,
		drivers:    driverMap,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// CreateEvent injects a synthetic event into the target connector's
// vendor system.
func (r *Registry) CreateEvent(ctx context.Context, connectorID, source, caption, description string) error {
	conn, driver, err := r.resolve(ctx, connectorID)
	if err != nil {
		return err
	}

	if err := driver.CreateEvent(ctx, conn.Config, source, caption, description); err != nil {
		return fmt.Errorf("createEvent on %s: %w", connectorID, err)
	}
	r.logger.Debug("vendor event created", "connector_id", connectorID, "source", source)
	return nil
}

// CreateBookmark creates a video bookmark on the target connector's
// vendor system.
func (r *Registry) CreateBookmark(ctx context.Context, connectorID, name, description string, durationMs int64, tags []string) error {
	conn, driver, err := r.resolve(ctx, connectorID)
	if err != nil {
		return err
	}

	if err := driver.CreateBookmark(ctx, conn.Config, name, description, durationMs, tags); err != nil {
		return fmt.Errorf("createBookmark on %s: %w", connectorID, err)
	}
	r.logger.Debug("vendor bookmark created", "connector_id", connectorID, "name", name)
	return nil
}

// resolve loads the connector and selects its category driver.
func (r *Registry) resolve(ctx context.Context, connectorID string) (*connector.Connector, Driver, error) {
	conn, err := r.connectors.GetByID(ctx, connectorID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving connector %s: %w", connectorID, err)
	}
	if !conn.Enabled {
		return nil, nil, connector.ErrConnectorDisabled
	}

	driver, ok := r.drivers[conn.Category]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoDriver, conn.Category)
	}
	return conn, driver, nil
}

package deviceactions

import (
	"context"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
)

// Target states form the abstract vocabulary automations and the HTTP
// surface use; handlers map them to vendor commands.
const (
	StateOn       = "on"
	StateOff      = "off"
	StateLocked   = "locked"
	StateUnlocked = "unlocked"
)

// Handler executes state changes for one vendor category. Handlers
// own vendor preconditions (auth tokens, device eligibility) and the
// mapping from the abstract vocabulary to the vendor's command set.
type Handler interface {
	// Category is the connector category this handler serves.
	Category() connector.Category

	// CanHandle reports whether this handler can drive the device to
	// the desired state. Called only for devices whose connector
	// matches Category.
	CanHandle(dev device.Context, targetState string) bool

	// ExecuteStateChange performs the vendor command. connectorConfig
	// is the owning connector's stored configuration.
	ExecuteStateChange(ctx context.Context, dev device.Context, connectorConfig map[string]any, targetState string) error
}

// Registry is the ordered handler list. Dispatch selects the first
// handler matching (connector category, canHandle) — first match, not
// best match, so registration order is a load-bearing invariant.
//
// Nothing prevents two handlers from overlapping on the same category
// and device shape; the first registered one simply wins. Immutable
// after startup; safe for concurrent use.
type Registry struct {
	handlers []Handler
	logger   Logger
}

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

// NewRegistry creates a handler registry. Registration order is the
// dispatch precedence.
func NewRegistry(handlers ...Handler) *Registry {
	return &Registry{handlers: handlers, logger: noopLogger{}}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Dispatch selects and runs the first capable handler.
// Returns ErrActionUnsupported when no handler matches.
func (r *Registry) Dispatch(ctx context.Context, dev device.Context, conn *connector.Connector, targetState string) error {
	for _, h := range r.handlers {
		if h.Category() != conn.Category {
			continue
		}
		if !h.CanHandle(dev, targetState) {
			continue
		}
		r.logger.Debug("dispatching state change",
			"device_id", dev.ID, "target_state", targetState,
			"category", string(conn.Category))
		return h.ExecuteStateChange(ctx, dev, conn.Config, targetState)
	}
	return ErrActionUnsupported
}

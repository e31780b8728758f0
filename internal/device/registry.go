package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Registry provides device lookups with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for the hot paths:
// per-event vendor-id resolution and action-time context loading.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by the write-through update methods.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // Cached devices by internal ID
	byVend  map[string]string  // (connectorID|vendorDeviceID) -> internal ID
	cacheMu sync.RWMutex       // Protects cache and byVend
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		byVend: make(map[string]string),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	r.byVend = make(map[string]string, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.DeepCopy()
		r.byVend[vendorKey(d.ConnectorID, d.VendorDeviceID)] = d.ID
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by internal ID.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(_ context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrDeviceNotFound
}

// GetByVendorID resolves a device from the vendor's wire identifier.
// The returned device is a deep copy.
func (r *Registry) GetByVendorID(_ context.Context, connectorID, vendorDeviceID string) (*Device, error) {
	r.cacheMu.RLock()
	id, ok := r.byVend[vendorKey(connectorID, vendorDeviceID)]
	var cached *Device
	if ok {
		cached = r.cache[id]
	}
	r.cacheMu.RUnlock()

	if cached != nil {
		return cached.DeepCopy(), nil
	}
	return nil, ErrDeviceNotFound
}

// ActionContext loads the handler-facing projection for a device.
func (r *Registry) ActionContext(ctx context.Context, id string) (Context, error) {
	d, err := r.GetDevice(ctx, id)
	if err != nil {
		return Context{}, err
	}
	return d.ActionContext(), nil
}

// RecordDisplayState persists a newly translated display state and keeps
// the cache coherent. This is the device-status sink the event parsers
// notify after a successful state-change transformation.
func (r *Registry) RecordDisplayState(ctx context.Context, id string, displayState string, at time.Time) error {
	if err := r.repo.UpdateDisplayState(ctx, id, displayState, at); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		ds := displayState
		t := at.UTC()
		cached.DisplayState = &ds
		cached.StateUpdatedAt = &t
	}
	r.cacheMu.Unlock()
	return nil
}

// RecordRawDeviceData persists the vendor's latest device document and
// keeps the cache coherent.
func (r *Registry) RecordRawDeviceData(ctx context.Context, id string, raw map[string]any) error {
	if err := r.repo.UpdateRawDeviceData(ctx, id, raw); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		cached.RawDeviceData = deepCopyMap(raw)
	}
	r.cacheMu.Unlock()
	return nil
}

// vendorKey builds the composite cache key for vendor-id lookups.
func vendorKey(connectorID, vendorDeviceID string) string {
	return connectorID + "|" + vendorDeviceID
}

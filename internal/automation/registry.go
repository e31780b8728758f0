package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry provides automation management with caching and thread
// safety. It wraps a Repository and adds an in-memory cache so the
// pipeline's per-event evaluation never touches the database.
//
// The cache is populated on startup via RefreshCache() and kept in
// sync by cache-invalidating CRUD operations. Writes validate against
// the fact catalog first, so configuration defects surface to the rule
// author at save time.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	catalog *Catalog
	cache   map[string]*Automation // Cached automations by ID
	cacheMu sync.RWMutex           // Protects cache
	logger  Logger
}

// NewRegistry creates a new automation registry.
func NewRegistry(repo Repository, catalog *Catalog) *Registry {
	return &Registry{
		repo:    repo,
		catalog: catalog,
		cache:   make(map[string]*Automation),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Catalog returns the fact catalog automations validate against.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// RefreshCache reloads all automations from the repository into the
// cache. This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	automations, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading automations: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Automation, len(automations))
	for i := range automations {
		a := automations[i]
		r.cache[a.ID] = a.DeepCopy()
	}

	r.logger.Info("automation cache refreshed", "count", len(automations))
	return nil
}

// GetAutomation retrieves an automation by ID.
// The returned automation is a deep copy; callers can safely modify it.
func (r *Registry) GetAutomation(_ context.Context, id string) (*Automation, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	a, ok := r.cache[id]
	if !ok {
		return nil, ErrAutomationNotFound
	}
	return a.DeepCopy(), nil
}

// ListAutomations retrieves all automations, sorted by name.
func (r *Registry) ListAutomations(_ context.Context) []Automation {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	out := make([]Automation, 0, len(r.cache))
	for _, a := range r.cache {
		out = append(out, *a.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListEnabled retrieves the enabled automations the pipeline evaluates
// per event, sorted by name for deterministic iteration.
func (r *Registry) ListEnabled(_ context.Context) []Automation {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	out := make([]Automation, 0, len(r.cache))
	for _, a := range r.cache {
		if a.Enabled {
			out = append(out, *a.DeepCopy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateAutomation validates and persists a new automation.
func (r *Registry) CreateAutomation(ctx context.Context, a *Automation) error {
	if a.ID == "" {
		a.ID = GenerateID()
	}
	if err := ValidateAutomation(a, r.catalog); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, a); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[a.ID] = a.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("automation created", "automation_id", a.ID, "name", a.Name)
	return nil
}

// UpdateAutomation validates and persists changes to an automation.
func (r *Registry) UpdateAutomation(ctx context.Context, a *Automation) error {
	if err := ValidateAutomation(a, r.catalog); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, a); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[a.ID] = a.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("automation updated", "automation_id", a.ID, "name", a.Name)
	return nil
}

// DeleteAutomation removes an automation.
func (r *Registry) DeleteAutomation(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("automation deleted", "automation_id", id)
	return nil
}

// SetEnabled toggles an automation without replacing its config.
func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) error {
	r.cacheMu.RLock()
	a, ok := r.cache[id]
	r.cacheMu.RUnlock()
	if !ok {
		return ErrAutomationNotFound
	}

	updated := a.DeepCopy()
	updated.Enabled = enabled
	if err := r.repo.Update(ctx, updated); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[id] = updated
	r.cacheMu.Unlock()
	return nil
}

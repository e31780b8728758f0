package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for location persistence operations.
// Locations and areas are owned and edited externally; the engine only
// reads them to resolve spatial scoping.
type Repository interface {
	GetLocation(ctx context.Context, id string) (*Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	CreateLocation(ctx context.Context, loc *Location) error

	GetArea(ctx context.Context, id string) (*Area, error)
	ListAreas(ctx context.Context) ([]Area, error)
	ListAreasByLocation(ctx context.Context, locationID string) ([]Area, error)
	CreateArea(ctx context.Context, area *Area) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed location repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetLocation retrieves a location by ID.
func (r *SQLiteRepository) GetLocation(ctx context.Context, id string) (*Location, error) {
	const query = `SELECT id, name, address, timezone, created_at, updated_at
		FROM locations WHERE id = ?`

	var loc Location
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&loc.ID, &loc.Name, &loc.Address, &loc.Timezone, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("querying location: %w", err)
	}
	if err := parseTimestamps(createdAt, updatedAt, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
		return nil, err
	}
	return &loc, nil
}

// ListLocations retrieves all locations.
func (r *SQLiteRepository) ListLocations(ctx context.Context) ([]Location, error) {
	const query = `SELECT id, name, address, timezone, created_at, updated_at
		FROM locations ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var loc Location
		var createdAt, updatedAt string
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.Timezone, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		if err := parseTimestamps(createdAt, updatedAt, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating locations: %w", err)
	}
	return locations, nil
}

// CreateLocation inserts a new location.
func (r *SQLiteRepository) CreateLocation(ctx context.Context, loc *Location) error {
	now := time.Now().UTC()
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = now
	}
	loc.UpdatedAt = now

	const query = `INSERT INTO locations (id, name, address, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		loc.ID, loc.Name, loc.Address, loc.Timezone,
		loc.CreatedAt.Format(time.RFC3339), loc.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting location %s: %w", loc.ID, err)
	}
	return nil
}

// GetArea retrieves an area by ID.
func (r *SQLiteRepository) GetArea(ctx context.Context, id string) (*Area, error) {
	const query = `SELECT id, location_id, name, sort_order, created_at, updated_at
		FROM areas WHERE id = ?`

	var area Area
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&area.ID, &area.LocationID, &area.Name, &area.SortOrder, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAreaNotFound
		}
		return nil, fmt.Errorf("querying area: %w", err)
	}
	if err := parseTimestamps(createdAt, updatedAt, &area.CreatedAt, &area.UpdatedAt); err != nil {
		return nil, err
	}
	return &area, nil
}

// ListAreas retrieves all areas.
func (r *SQLiteRepository) ListAreas(ctx context.Context) ([]Area, error) {
	const query = `SELECT id, location_id, name, sort_order, created_at, updated_at
		FROM areas ORDER BY sort_order, name`
	return r.queryAreas(ctx, query)
}

// ListAreasByLocation retrieves all areas within a location.
func (r *SQLiteRepository) ListAreasByLocation(ctx context.Context, locationID string) ([]Area, error) {
	const query = `SELECT id, location_id, name, sort_order, created_at, updated_at
		FROM areas WHERE location_id = ? ORDER BY sort_order, name`
	return r.queryAreas(ctx, query, locationID)
}

// CreateArea inserts a new area.
func (r *SQLiteRepository) CreateArea(ctx context.Context, area *Area) error {
	now := time.Now().UTC()
	if area.CreatedAt.IsZero() {
		area.CreatedAt = now
	}
	area.UpdatedAt = now

	const query = `INSERT INTO areas (id, location_id, name, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		area.ID, area.LocationID, area.Name, area.SortOrder,
		area.CreatedAt.Format(time.RFC3339), area.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting area %s: %w", area.ID, err)
	}
	return nil
}

// queryAreas executes a query and returns a slice of areas.
func (r *SQLiteRepository) queryAreas(ctx context.Context, query string, args ...any) ([]Area, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying areas: %w", err)
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		var area Area
		var createdAt, updatedAt string
		if err := rows.Scan(&area.ID, &area.LocationID, &area.Name, &area.SortOrder, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning area: %w", err)
		}
		if err := parseTimestamps(createdAt, updatedAt, &area.CreatedAt, &area.UpdatedAt); err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating areas: %w", err)
	}
	return areas, nil
}

// parseTimestamps parses the RFC3339 created/updated columns.
func parseTimestamps(created, updated string, createdOut, updatedOut *time.Time) error {
	var err error
	if *createdOut, err = time.Parse(time.RFC3339, created); err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	if *updatedOut, err = time.Parse(time.RFC3339, updated); err != nil {
		return fmt.Errorf("parsing updated_at: %w", err)
	}
	return nil
}

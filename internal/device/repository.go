package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its Fusion-assigned identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetByVendorID retrieves a device by connector and vendor identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByVendorID(ctx context.Context, connectorID, vendorDeviceID string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// ListByConnector retrieves all devices owned by a connector.
	ListByConnector(ctx context.Context, connectorID string) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if a device with the same ID already exists.
	Create(ctx context.Context, device *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// UpdateDisplayState records the latest translated display state.
	// This is the device-status sink the event parsers notify on every
	// successful state-change transformation.
	UpdateDisplayState(ctx context.Context, id string, displayState string, at time.Time) error

	// UpdateRawDeviceData replaces the vendor's last reported device
	// document. Handlers mine this for vendor preconditions.
	UpdateRawDeviceData(ctx context.Context, id string, raw map[string]any) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, connector_id, vendor_device_id, name, raw_vendor_type,
	type, subtype, area_id, location_id, display_state, state_updated_at,
	raw_device_data, created_at, updated_at`

// GetByID retrieves a device by its Fusion-assigned identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// GetByVendorID retrieves a device by connector and vendor identifier.
func (r *SQLiteRepository) GetByVendorID(ctx context.Context, connectorID, vendorDeviceID string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE connector_id = ? AND vendor_device_id = ?`

	row := r.db.QueryRowContext(ctx, query, connectorID, vendorDeviceID)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by vendor id: %w", err)
	}
	return d, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY name`
	return r.queryDevices(ctx, query)
}

// ListByConnector retrieves all devices owned by a connector.
func (r *SQLiteRepository) ListByConnector(ctx context.Context, connectorID string) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE connector_id = ? ORDER BY name`
	return r.queryDevices(ctx, query, connectorID)
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	rawJSON, err := json.Marshal(device.RawDeviceData)
	if err != nil {
		return fmt.Errorf("marshalling raw_device_data: %w", err)
	}

	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	var typ, subtype *string
	if device.Info != nil {
		t := string(device.Info.Type)
		typ = &t
		if device.Info.Subtype != nil {
			st := string(*device.Info.Subtype)
			subtype = &st
		}
	}

	query := `
		INSERT INTO devices (
			id, connector_id, vendor_device_id, name, raw_vendor_type,
			type, subtype, area_id, location_id, display_state, state_updated_at,
			raw_device_data, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		device.ID,
		device.ConnectorID,
		device.VendorDeviceID,
		device.Name,
		device.RawVendorType,
		nullableString(typ),
		nullableString(subtype),
		nullableString(device.AreaID),
		nullableString(device.LocationID),
		nullableString(device.DisplayState),
		nullableTime(device.StateUpdatedAt),
		string(rawJSON),
		device.CreatedAt.Format(time.RFC3339),
		device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	rawJSON, err := json.Marshal(device.RawDeviceData)
	if err != nil {
		return fmt.Errorf("marshalling raw_device_data: %w", err)
	}

	var typ, subtype *string
	if device.Info != nil {
		t := string(device.Info.Type)
		typ = &t
		if device.Info.Subtype != nil {
			st := string(*device.Info.Subtype)
			subtype = &st
		}
	}

	device.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE devices SET
			connector_id = ?, vendor_device_id = ?, name = ?, raw_vendor_type = ?,
			type = ?, subtype = ?, area_id = ?, location_id = ?,
			display_state = ?, state_updated_at = ?, raw_device_data = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		device.ConnectorID,
		device.VendorDeviceID,
		device.Name,
		device.RawVendorType,
		nullableString(typ),
		nullableString(subtype),
		nullableString(device.AreaID),
		nullableString(device.LocationID),
		nullableString(device.DisplayState),
		nullableTime(device.StateUpdatedAt),
		string(rawJSON),
		device.UpdatedAt.Format(time.RFC3339),
		device.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}
	return requireRowAffected(result, ErrDeviceNotFound)
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireRowAffected(result, ErrDeviceNotFound)
}

// UpdateDisplayState records the latest translated display state.
func (r *SQLiteRepository) UpdateDisplayState(ctx context.Context, id string, displayState string, at time.Time) error {
	query := `
		UPDATE devices
		SET display_state = ?, state_updated_at = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		displayState,
		at.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating display state: %w", err)
	}
	return requireRowAffected(result, ErrDeviceNotFound)
}

// UpdateRawDeviceData replaces the vendor's last reported device document.
func (r *SQLiteRepository) UpdateRawDeviceData(ctx context.Context, id string, raw map[string]any) error {
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshalling raw_device_data: %w", err)
	}

	query := `UPDATE devices SET raw_device_data = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		string(rawJSON),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating raw device data: %w", err)
	}
	return requireRowAffected(result, ErrDeviceNotFound)
}

// queryDevices executes a query and returns a slice of devices.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a row or rows result into a Device.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var typ, subtype, areaID, locationID, displayState sql.NullString
	var stateUpdatedAt sql.NullString
	var rawJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.ConnectorID,
		&d.VendorDeviceID,
		&d.Name,
		&d.RawVendorType,
		&typ,
		&subtype,
		&areaID,
		&locationID,
		&displayState,
		&stateUpdatedAt,
		&rawJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if typ.Valid {
		info := TypedDeviceInfo{Type: DeviceType(typ.String)}
		if subtype.Valid {
			st := Subtype(subtype.String)
			info.Subtype = &st
		}
		d.Info = &info
	}

	if areaID.Valid {
		d.AreaID = &areaID.String
	}
	if locationID.Valid {
		d.LocationID = &locationID.String
	}
	if displayState.Valid {
		d.DisplayState = &displayState.String
	}
	if stateUpdatedAt.Valid {
		if t, err := time.Parse(time.RFC3339, stateUpdatedAt.String); err == nil {
			d.StateUpdatedAt = &t
		}
	}

	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &d.RawDeviceData); err != nil {
			return nil, fmt.Errorf("unmarshalling raw_device_data: %w", err)
		}
	}

	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &d, nil
}

// requireRowAffected converts a zero-row update into the given sentinel.
func requireRowAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

// nullableString converts a *string to a driver-friendly value.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// nullableTime converts a *time.Time to a driver-friendly value.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// isUniqueConstraintError checks for SQLite unique constraint violations.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

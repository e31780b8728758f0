package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for automation persistence operations.
type Repository interface {
	// GetByID retrieves an automation by ID.
	// Returns ErrAutomationNotFound if the automation does not exist.
	GetByID(ctx context.Context, id string) (*Automation, error)

	// List retrieves all automations.
	List(ctx context.Context) ([]Automation, error)

	// Create inserts a new automation.
	// Returns ErrAutomationExists if the ID already exists.
	Create(ctx context.Context, a *Automation) error

	// Update modifies an existing automation.
	// Returns ErrAutomationNotFound if the automation does not exist.
	Update(ctx context.Context, a *Automation) error

	// Delete removes an automation.
	// Returns ErrAutomationNotFound if the automation does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed automation repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const automationColumns = `id, name, description, enabled, config, created_at, updated_at`

// GetByID retrieves an automation by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = ?`

	a, err := scanAutomation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAutomationNotFound
		}
		return nil, fmt.Errorf("querying automation: %w", err)
	}
	return a, nil
}

// List retrieves all automations.
func (r *SQLiteRepository) List(ctx context.Context) ([]Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying automations: %w", err)
	}
	defer rows.Close()

	var automations []Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning automation: %w", err)
		}
		automations = append(automations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating automations: %w", err)
	}
	return automations, nil
}

// Create inserts a new automation.
func (r *SQLiteRepository) Create(ctx context.Context, a *Automation) error {
	configJSON, err := json.Marshal(a.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `INSERT INTO automations (` + automationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Description, boolToInt(a.Enabled), string(configJSON),
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAutomationExists
		}
		return fmt.Errorf("inserting automation: %w", err)
	}
	return nil
}

// Update modifies an existing automation.
func (r *SQLiteRepository) Update(ctx context.Context, a *Automation) error {
	configJSON, err := json.Marshal(a.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	a.UpdatedAt = time.Now().UTC()

	const query = `UPDATE automations
		SET name = ?, description = ?, enabled = ?, config = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		a.Name, a.Description, boolToInt(a.Enabled), string(configJSON),
		a.UpdatedAt.Format(time.RFC3339), a.ID)
	if err != nil {
		return fmt.Errorf("updating automation: %w", err)
	}
	return requireRowAffected(result, ErrAutomationNotFound)
}

// Delete removes an automation.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM automations WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting automation: %w", err)
	}
	return requireRowAffected(result, ErrAutomationNotFound)
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAutomation scans a row or rows result into an Automation.
func scanAutomation(scanner rowScanner) (*Automation, error) {
	var a Automation
	var description sql.NullString
	var enabled int
	var configJSON, createdAt, updatedAt string

	if err := scanner.Scan(&a.ID, &a.Name, &description, &enabled, &configJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if description.Valid {
		a.Description = &description.String
	}
	a.Enabled = enabled != 0

	if err := json.Unmarshal([]byte(configJSON), &a.Config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	var err error
	if a.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &a, nil
}

// requireRowAffected maps a zero-row update or delete to notFound.
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

// boolToInt converts a bool to SQLite's integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

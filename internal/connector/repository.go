package connector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for connector persistence operations.
type Repository interface {
	// GetByID retrieves a connector by ID.
	// Returns ErrConnectorNotFound if the connector does not exist.
	GetByID(ctx context.Context, id string) (*Connector, error)

	// List retrieves all connectors.
	List(ctx context.Context) ([]Connector, error)

	// Create inserts a new connector.
	// Returns ErrConnectorExists if a connector with the same ID already exists.
	Create(ctx context.Context, c *Connector) error

	// Update modifies an existing connector.
	// Returns ErrConnectorNotFound if the connector does not exist.
	Update(ctx context.Context, c *Connector) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed connector repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a connector by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Connector, error) {
	const query = `SELECT id, name, category, config, enabled, created_at, updated_at
		FROM connectors WHERE id = ?`

	c, err := scanConnector(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConnectorNotFound
		}
		return nil, fmt.Errorf("querying connector: %w", err)
	}
	return c, nil
}

// List retrieves all connectors.
func (r *SQLiteRepository) List(ctx context.Context) ([]Connector, error) {
	const query = `SELECT id, name, category, config, enabled, created_at, updated_at
		FROM connectors ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying connectors: %w", err)
	}
	defer rows.Close()

	var connectors []Connector
	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connector: %w", err)
		}
		connectors = append(connectors, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connectors: %w", err)
	}
	return connectors, nil
}

// Create inserts a new connector.
func (r *SQLiteRepository) Create(ctx context.Context, c *Connector) error {
	configJSON, err := json.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	const query = `INSERT INTO connectors (id, name, category, config, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.Name, string(c.Category), string(configJSON), boolToInt(c.Enabled),
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrConnectorExists
		}
		return fmt.Errorf("inserting connector: %w", err)
	}
	return nil
}

// Update modifies an existing connector.
func (r *SQLiteRepository) Update(ctx context.Context, c *Connector) error {
	configJSON, err := json.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	c.UpdatedAt = time.Now().UTC()

	const query = `UPDATE connectors
		SET name = ?, category = ?, config = ?, enabled = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		c.Name, string(c.Category), string(configJSON), boolToInt(c.Enabled),
		c.UpdatedAt.Format(time.RFC3339), c.ID)
	if err != nil {
		return fmt.Errorf("updating connector: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrConnectorNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanConnector scans a row or rows result into a Connector.
func scanConnector(scanner rowScanner) (*Connector, error) {
	var c Connector
	var category, configJSON string
	var enabled int
	var createdAt, updatedAt string

	if err := scanner.Scan(&c.ID, &c.Name, &category, &configJSON, &enabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c.Category = Category(category)
	c.Enabled = enabled != 0

	if configJSON != "" {
		if err := json.Unmarshal([]byte(configJSON), &c.Config); err != nil {
			return nil, fmt.Errorf("unmarshalling config: %w", err)
		}
	}

	var err error
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &c, nil
}

// boolToInt converts a bool to SQLite's integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

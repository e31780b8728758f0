package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed event store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const eventColumns = `event_id, timestamp, connector_id, device_id,
	device_type, device_subtype, category, type, subtype,
	payload, original_event, area_id, location_id`

// timestampLayout pins the fractional seconds to nine digits so the
// TEXT column compares lexicographically in chronological order.
// RFC3339Nano trims trailing zeros, which makes whole-second values
// ('Z' follows the seconds) sort after fractional ones in the same
// second and corrupts window boundaries for mixed-precision vendors.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Append persists one standardized event with its spatial snapshot.
func (s *SQLiteStore) Append(ctx context.Context, ev *event.StandardizedEvent, areaID, locationID *string) error {
	payloadJSON, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}
	originalJSON, err := json.Marshal(ev.OriginalEvent)
	if err != nil {
		return fmt.Errorf("marshalling original event: %w", err)
	}

	var deviceType, deviceSubtype *string
	if ev.DeviceInfo != nil {
		t := string(ev.DeviceInfo.Type)
		deviceType = &t
		if ev.DeviceInfo.Subtype != nil {
			st := string(*ev.DeviceInfo.Subtype)
			deviceSubtype = &st
		}
	}
	var subtype *string
	if ev.Subtype != nil {
		st := string(*ev.Subtype)
		subtype = &st
	}

	query := `INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		ev.EventID, ev.Timestamp.UTC().Format(timestampLayout),
		ev.ConnectorID, ev.DeviceID,
		deviceType, deviceSubtype,
		string(ev.Category), string(ev.Type), subtype,
		string(payloadJSON), string(originalJSON),
		areaID, locationID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// Query retrieves events within the window, newest first.
func (s *SQLiteStore) Query(ctx context.Context, params QueryParams) ([]StoredEvent, error) {
	if params.To.Before(params.From) {
		return nil, ErrInvalidWindow
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + eventColumns + ` FROM events
		WHERE timestamp >= ? AND timestamp <= ?`)
	args := []any{
		params.From.UTC().Format(timestampLayout),
		params.To.UTC().Format(timestampLayout),
	}

	if params.AreaID != nil {
		sb.WriteString(" AND area_id = ?")
		args = append(args, *params.AreaID)
	}
	if params.LocationID != nil {
		sb.WriteString(" AND location_id = ?")
		args = append(args, *params.LocationID)
	}
	if params.ExcludeEventID != "" {
		sb.WriteString(" AND event_id != ?")
		args = append(args, params.ExcludeEventID)
	}
	appendInClause(&sb, &args, "category", toStrings(params.Categories))
	appendInClause(&sb, &args, "type", toStrings(params.Types))
	appendInClause(&sb, &args, "subtype", toStrings(params.Subtypes))
	appendInClause(&sb, &args, "device_id", params.DeviceIDs)

	sb.WriteString(" ORDER BY timestamp DESC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// DeleteOlderThan prunes events whose timestamp precedes cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM events WHERE timestamp < ?`
	result, err := s.db.ExecContext(ctx, query, cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return removed, nil
}

// appendInClause adds "AND col IN (?, ...)" for a non-empty value list.
func appendInClause(sb *strings.Builder, args *[]any, column string, values []string) {
	if len(values) == 0 {
		return
	}
	sb.WriteString(" AND " + column + " IN (" + placeholders(len(values)) + ")")
	for _, v := range values {
		*args = append(*args, v)
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toStrings[T ~string](values []T) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// scanEvent scans a row or rows result into a StoredEvent.
func scanEvent(scanner interface{ Scan(dest ...any) error }) (*StoredEvent, error) {
	var ev StoredEvent
	var timestamp, category, typ string
	var deviceType, deviceSubtype, subtype sql.NullString
	var payloadJSON, originalJSON string
	var areaID, locationID sql.NullString

	if err := scanner.Scan(&ev.EventID, &timestamp, &ev.ConnectorID, &ev.DeviceID,
		&deviceType, &deviceSubtype, &category, &typ, &subtype,
		&payloadJSON, &originalJSON, &areaID, &locationID); err != nil {
		return nil, err
	}

	var err error
	if ev.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}

	ev.Category = event.Category(category)
	ev.Type = event.Type(typ)
	if subtype.Valid {
		st := event.Subtype(subtype.String)
		ev.Subtype = &st
	}
	if deviceType.Valid {
		info := device.TypedDeviceInfo{Type: device.DeviceType(deviceType.String)}
		if deviceSubtype.Valid {
			st := device.Subtype(deviceSubtype.String)
			info.Subtype = &st
		}
		ev.DeviceInfo = &info
	}
	if areaID.Valid {
		ev.AreaID = &areaID.String
	}
	if locationID.Valid {
		ev.LocationID = &locationID.String
	}

	if err := json.Unmarshal([]byte(payloadJSON), &ev.Payload); err != nil {
		return nil, fmt.Errorf("unmarshalling payload: %w", err)
	}
	if err := json.Unmarshal([]byte(originalJSON), &ev.OriginalEvent); err != nil {
		return nil, fmt.Errorf("unmarshalling original event: %w", err)
	}
	return &ev, nil
}

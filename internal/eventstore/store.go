package eventstore

import (
	"context"
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
)

// StoredEvent is a StandardizedEvent as persisted, together with the
// area and location the device belonged to when the event was appended.
// Spatial scoping correlates against this snapshot, not the device's
// current assignment.
type StoredEvent struct {
	event.StandardizedEvent

	AreaID     *string `json:"area_id,omitempty"`
	LocationID *string `json:"location_id,omitempty"`
}

// QueryParams narrows a time-windowed event query. From and To are
// inclusive bounds; the remaining fields are optional filters combined
// with AND. Slice filters match any listed value.
type QueryParams struct {
	From time.Time
	To   time.Time

	AreaID     *string
	LocationID *string

	Categories []event.Category
	Types      []event.Type
	Subtypes   []event.Subtype
	DeviceIDs  []string

	// ExcludeEventID omits one event, so a window anchored on a
	// triggering event does not count the trigger itself.
	ExcludeEventID string
}

// Store defines the interface for event persistence operations.
type Store interface {
	// Append persists one standardized event with its spatial snapshot.
	Append(ctx context.Context, ev *event.StandardizedEvent, areaID, locationID *string) error

	// Query retrieves events within the window, newest first.
	Query(ctx context.Context, params QueryParams) ([]StoredEvent, error)

	// DeleteOlderThan prunes events whose timestamp precedes cutoff,
	// returning the number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
	"github.com/austin-smith/fusion-bridge-sub003/internal/eventstore"
)

// defaultEventWindow bounds an unqualified event query to the last day.
const defaultEventWindow = 24 * time.Hour

// handleQueryEvents returns stored events within a time window, newest
// first.
//
// Query parameters:
//   - from, to: RFC3339 bounds (default: last 24 hours)
//   - area_id, location_id: spatial filters (append-time snapshot)
//   - category, type, subtype: hierarchy filters, repeatable
//   - device_id: internal device filter, repeatable
func (s *Server) handleQueryEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event store not configured")
		return
	}

	q := r.URL.Query()

	now := time.Now().UTC()
	params := eventstore.QueryParams{
		From: now.Add(-defaultEventWindow),
		To:   now,
	}

	if fromStr := q.Get("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			writeBadRequest(w, "from must be RFC3339")
			return
		}
		params.From = from
	}
	if toStr := q.Get("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			writeBadRequest(w, "to must be RFC3339")
			return
		}
		params.To = to
	}

	if areaID := q.Get("area_id"); areaID != "" {
		params.AreaID = &areaID
	}
	if locationID := q.Get("location_id"); locationID != "" {
		params.LocationID = &locationID
	}
	for _, c := range q["category"] {
		params.Categories = append(params.Categories, event.Category(c))
	}
	for _, t := range q["type"] {
		params.Types = append(params.Types, event.Type(t))
	}
	for _, st := range q["subtype"] {
		params.Subtypes = append(params.Subtypes, event.Subtype(st))
	}
	params.DeviceIDs = q["device_id"]

	events, err := s.events.Query(r.Context(), params)
	if err != nil {
		if errors.Is(err, eventstore.ErrInvalidWindow) {
			writeBadRequest(w, "from must not be after to")
			return
		}
		writeInternalError(w, "failed to query events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/austin-smith/fusion-bridge-sub003/internal/location"
)

// handleListLocations returns all locations.
func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	if s.locations == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "location repository not configured")
		return
	}

	locations, err := s.locations.ListLocations(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list locations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locations, "count": len(locations)})
}

// handleGetLocation returns a single location by ID.
func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	if s.locations == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "location repository not configured")
		return
	}

	id := chi.URLParam(r, "id")
	loc, err := s.locations.GetLocation(r.Context(), id)
	if err != nil {
		if errors.Is(err, location.ErrLocationNotFound) {
			writeNotFound(w, "location not found")
			return
		}
		writeInternalError(w, "failed to get location")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// handleCreateLocation creates a new location.
func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	if s.locations == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "location repository not configured")
		return
	}

	var loc location.Location
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if loc.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if loc.Timezone == "" {
		loc.Timezone = "UTC"
	}
	if loc.ID == "" {
		loc.ID = "loc-" + uuid.NewString()[:16]
	}

	if err := s.locations.CreateLocation(r.Context(), &loc); err != nil {
		writeInternalError(w, "failed to create location")
		return
	}
	writeJSON(w, http.StatusCreated, loc)
}

// handleListLocationAreas returns the areas within a location.
func (s *Server) handleListLocationAreas(w http.ResponseWriter, r *http.Request) {
	if s.locations == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "location repository not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.locations.GetLocation(r.Context(), id); err != nil {
		if errors.Is(err, location.ErrLocationNotFound) {
			writeNotFound(w, "location not found")
			return
		}
		writeInternalError(w, "failed to get location")
		return
	}

	areas, err := s.locations.ListAreasByLocation(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to list areas")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": areas, "count": len(areas)})
}

// handleListAreas returns all areas across locations.
func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	if s.locations == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "location repository not configured")
		return
	}

	areas, err := s.locations.ListAreas(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list areas")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": areas, "count": len(areas)})
}

// handleGetArea returns a single area by ID.
func (s *Server) handleGetArea(w http.ResponseWriter, r *http.Request) {
	if s.locations == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "location repository not configured")
		return
	}

	id := chi.URLParam(r, "id")
	area, err := s.locations.GetArea(r.Context(), id)
	if err != nil {
		if errors.Is(err, location.ErrAreaNotFound) {
			writeNotFound(w, "area not found")
			return
		}
		writeInternalError(w, "failed to get area")
		return
	}
	writeJSON(w, http.StatusOK, area)
}

// handleCreateArea creates a new area inside an existing location.
func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	if s.locations == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "location repository not configured")
		return
	}

	var area location.Area
	if err := json.NewDecoder(r.Body).Decode(&area); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if area.Name == "" || area.LocationID == "" {
		writeBadRequest(w, "name and location_id are required")
		return
	}
	if _, err := s.locations.GetLocation(r.Context(), area.LocationID); err != nil {
		if errors.Is(err, location.ErrLocationNotFound) {
			writeBadRequest(w, "location_id does not exist")
			return
		}
		writeInternalError(w, "failed to get location")
		return
	}
	if area.ID == "" {
		area.ID = "area-" + uuid.NewString()[:16]
	}

	if err := s.locations.CreateArea(r.Context(), &area); err != nil {
		writeInternalError(w, "failed to create area")
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
)

// handleListConnectors returns all registered connectors.
func (s *Server) handleListConnectors(w http.ResponseWriter, r *http.Request) {
	connectors, err := s.connectors.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list connectors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connectors": connectors, "count": len(connectors)})
}

// handleGetConnector returns a single connector by ID.
func (s *Server) handleGetConnector(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.connectors.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, connector.ErrConnectorNotFound) {
			writeNotFound(w, "connector not found")
			return
		}
		writeInternalError(w, "failed to get connector")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleCreateConnector registers a new vendor connector.
func (s *Server) handleCreateConnector(w http.ResponseWriter, r *http.Request) {
	var c connector.Connector
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if c.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if !connector.ValidCategory(c.Category) {
		writeBadRequest(w, "unknown connector category: "+string(c.Category))
		return
	}
	if c.ID == "" {
		c.ID = "con-" + uuid.NewString()[:16]
	}

	if err := s.connectors.Create(r.Context(), &c); err != nil {
		if errors.Is(err, connector.ErrConnectorExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "connector already exists")
			return
		}
		writeInternalError(w, "failed to create connector")
		return
	}

	s.logger.Info("connector created", "connector_id", c.ID, "category", c.Category)
	writeJSON(w, http.StatusCreated, c)
}

// handleUpdateConnector partially updates a connector (name, config,
// enabled flag). Category is immutable after creation; parsers are
// keyed on it.
func (s *Server) handleUpdateConnector(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.connectors.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, connector.ErrConnectorNotFound) {
			writeNotFound(w, "connector not found")
			return
		}
		writeInternalError(w, "failed to get connector")
		return
	}

	category := existing.Category
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id
	existing.Category = category

	if err := s.connectors.Update(r.Context(), existing); err != nil {
		if errors.Is(err, connector.ErrConnectorNotFound) {
			writeNotFound(w, "connector not found")
			return
		}
		writeInternalError(w, "failed to update connector")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleListConnectorDevices returns the devices owned by a connector.
func (s *Server) handleListConnectorDevices(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.connectors.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, connector.ErrConnectorNotFound) {
			writeNotFound(w, "connector not found")
			return
		}
		writeInternalError(w, "failed to get connector")
		return
	}

	devices, err := s.deviceRepo.ListByConnector(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

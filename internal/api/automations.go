package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/austin-smith/fusion-bridge-sub003/internal/automation"
)

// handleListAutomations returns all automations, sorted by name.
//
// Query parameters:
//   - enabled: "true" restricts the list to enabled automations
func (s *Server) handleListAutomations(w http.ResponseWriter, r *http.Request) {
	var automations []automation.Automation
	if r.URL.Query().Get("enabled") == "true" {
		automations = s.automations.ListEnabled(r.Context())
	} else {
		automations = s.automations.ListAutomations(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{"automations": automations, "count": len(automations)})
}

// handleGetAutomation returns a single automation by ID.
func (s *Server) handleGetAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := s.automations.GetAutomation(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrAutomationNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to get automation")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleCreateAutomation validates and persists a new automation.
// Validation runs against the fact catalog, so unknown fact names and
// disallowed operators are rejected here rather than at evaluation time.
func (s *Server) handleCreateAutomation(w http.ResponseWriter, r *http.Request) {
	var a automation.Automation
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.automations.CreateAutomation(r.Context(), &a); err != nil {
		if errors.Is(err, automation.ErrAutomationExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "automation already exists")
			return
		}
		if isAutomationValidationError(err) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		writeInternalError(w, "failed to create automation")
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// handleUpdateAutomation replaces an automation's full definition.
// Rule configs are interdependent (conditions reference facts that
// actions template against), so updates are whole-document rather
// than field-level patches.
func (s *Server) handleUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var a automation.Automation
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	a.ID = id

	if err := s.automations.UpdateAutomation(r.Context(), &a); err != nil {
		if errors.Is(err, automation.ErrAutomationNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		if isAutomationValidationError(err) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		writeInternalError(w, "failed to update automation")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleDeleteAutomation removes an automation by ID.
func (s *Server) handleDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.automations.DeleteAutomation(r.Context(), id); err != nil {
		if errors.Is(err, automation.ErrAutomationNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to delete automation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EnabledRequest is the body for PATCH /automations/{id}/enabled.
type EnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleSetAutomationEnabled toggles an automation without touching
// its rule config.
func (s *Server) handleSetAutomationEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled field is required")
		return
	}

	if err := s.automations.SetEnabled(r.Context(), id, *req.Enabled); err != nil {
		if errors.Is(err, automation.ErrAutomationNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to update automation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "enabled": *req.Enabled})
}

// isAutomationValidationError checks whether an error came from rule
// validation. The validator wraps several sentinels depending on which
// part of the config was rejected.
func isAutomationValidationError(err error) bool {
	return errors.Is(err, automation.ErrInvalidAutomation) ||
		errors.Is(err, automation.ErrInvalidName) ||
		errors.Is(err, automation.ErrInvalidGroup) ||
		errors.Is(err, automation.ErrUnknownFact) ||
		errors.Is(err, automation.ErrOperatorNotAllowed) ||
		errors.Is(err, automation.ErrInvalidTemporal) ||
		errors.Is(err, automation.ErrInvalidAction)
}

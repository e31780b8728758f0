package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
	"github.com/austin-smith/fusion-bridge-sub003/internal/deviceactions"
)

// handleListDevices returns all devices, with optional query filters.
//
// Query parameters:
//   - connector_id: filter by owning connector
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if connectorID := r.URL.Query().Get("connector_id"); connectorID != "" {
		devices, err := s.deviceRepo.ListByConnector(ctx, connectorID)
		if err != nil {
			writeInternalError(w, "failed to list devices")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	devices, err := s.deviceRepo.List(ctx)
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice registers a device manually. Most devices arrive
// via connector sync; this endpoint covers vendors without discovery.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var dev device.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if dev.ConnectorID == "" || dev.VendorDeviceID == "" || dev.Name == "" {
		writeBadRequest(w, "connector_id, vendor_device_id and name are required")
		return
	}
	if dev.Info != nil {
		info, err := device.NewTypedDeviceInfo(dev.Info.Type, dev.Info.Subtype)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		dev.Info = &info
	}
	if dev.ID == "" {
		dev.ID = "dev-" + uuid.NewString()[:16]
	}

	if err := s.deviceRepo.Create(r.Context(), &dev); err != nil {
		if errors.Is(err, device.ErrDeviceExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "device already exists")
			return
		}
		writeInternalError(w, "failed to create device")
		return
	}
	s.refreshDeviceCache(r)

	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice partially updates a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Get existing device
	existing, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	// Decode partial update onto existing device
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if existing.Info != nil {
		info, infoErr := device.NewTypedDeviceInfo(existing.Info.Type, existing.Info.Subtype)
		if infoErr != nil {
			writeBadRequest(w, infoErr.Error())
			return
		}
		existing.Info = &info
	}

	if err := s.deviceRepo.Update(r.Context(), existing); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to update device")
		return
	}
	s.refreshDeviceCache(r)

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteDevice removes a device by ID.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.deviceRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to delete device")
		return
	}
	s.refreshDeviceCache(r)

	w.WriteHeader(http.StatusNoContent)
}

// handleGetDeviceState returns the last translated state of a device.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":        dev.ID,
		"display_state":    dev.DisplayState,
		"state_updated_at": dev.StateUpdatedAt,
	})
}

// StateChangeRequest is the body for PUT /devices/{id}/state.
type StateChangeRequest struct {
	State string `json:"state"`
}

// handleSetDeviceState requests a physical state change through the
// device action handler chain. The vendor round-trip happens inline,
// so a 200 means the vendor accepted the command; the translated state
// confirmation still arrives later as a standardized event.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.deviceActions == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "device actions not configured")
		return
	}

	var req StateChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.State == "" {
		writeBadRequest(w, "state field is required")
		return
	}

	err := s.deviceActions.RequestDeviceStateChange(r.Context(), id, req.State)
	switch {
	case err == nil:
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
		return
	case errors.Is(err, connector.ErrConnectorDisabled):
		writeError(w, http.StatusConflict, ErrCodeConflict, "owning connector is disabled")
		return
	case errors.Is(err, deviceactions.ErrActionUnsupported):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeUnsupported, "device does not support this state change")
		return
	case errors.Is(err, deviceactions.ErrMissingToken):
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "vendor credentials unavailable for device")
		return
	default:
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "vendor rejected state change")
		return
	}

	s.logger.Info("device state change accepted", "device_id", id, "state", req.State)
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"state":     req.State,
		"status":    "accepted",
	})
}

// refreshDeviceCache reloads the device registry cache after a
// repository mutation so reads and the event pipeline see it.
func (s *Server) refreshDeviceCache(r *http.Request) {
	if err := s.devices.RefreshCache(r.Context()); err != nil {
		s.logger.Warn("device cache refresh failed", "error", err)
	}
}

package handlers

import (
	"net/http"
	"time"

	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/pkg/validate"
	pgrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/postgres"
	authsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/auth"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/dto"
	httperrors "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/errors"
)

type DeviceHandler struct {
	registry *pgrepo.DeviceTokenRepo
}

func NewDeviceHandler(registry *pgrepo.DeviceTokenRepo) *DeviceHandler {
	return &DeviceHandler{registry: registry}
}

func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.registry == nil {
		writeInternal(w, "DEVICES_UNAVAILABLE", "device registry is unavailable")
		return
	}

	var req dto.DeviceRegisterRequest
	if err := decodeJSON(r, &req); err != nil || !validate.Required(req.Token) {
		writeBadRequest(w, "VALIDATION_ERROR", "a device token is required")
		return
	}

	if err := h.registry.Register(r.Context(), identity.UserID, req.Token, time.Now().UTC()); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to register device token")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.DeviceRegisterResponse{OK: true})
}

func (h *DeviceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.registry == nil {
		writeInternal(w, "DEVICES_UNAVAILABLE", "device registry is unavailable")
		return
	}

	var req dto.DeviceRegisterRequest
	if err := decodeJSON(r, &req); err != nil || !validate.Required(req.Token) {
		writeBadRequest(w, "VALIDATION_ERROR", "a device token is required")
		return
	}

	if err := h.registry.Remove(r.Context(), identity.UserID, []string{req.Token}); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to remove device token")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.DeviceRegisterResponse{OK: true})
}

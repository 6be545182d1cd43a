package handler

import (
	"net/http"
	"time"

	"github.com/sandeepkv93/edupro-device-guard/internal/http/middleware"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/response"
	"github.com/sandeepkv93/edupro-device-guard/internal/service"
)

type DeviceHandler struct {
	devices service.DeviceServiceInterface
}

func NewDeviceHandler(devices service.DeviceServiceInterface) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

type courseAccessResponse struct {
	CourseID     string    `json:"course_id"`
	Access       string    `json:"access"`
	DeviceID     string    `json:"device_id"`
	LastActivity time.Time `json:"last_activity"`
}

// CourseAccess runs behind DeviceGuard; reaching it means the device check passed.
func (h *DeviceHandler) CourseAccess(w http.ResponseWriter, r *http.Request) {
	rec, ok := middleware.DeviceFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "device context missing", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, courseAccessResponse{
		CourseID:     rec.CourseID,
		Access:       "granted",
		DeviceID:     rec.DeviceID,
		LastActivity: rec.LastActivity,
	})
}

func (h *DeviceHandler) MyDevices(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	views, err := h.devices.GetUserDevices(r.Context(), userID)
	if err != nil {
		internalError(w, r, "list devices failed", err)
		return
	}
	response.JSON(w, r, http.StatusOK, views)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/sandeepkv93/edupro-device-guard/internal/http/middleware"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/response"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"
	"github.com/sandeepkv93/edupro-device-guard/internal/service"
)

type CleanupHandler struct {
	runner service.CleanupRunner
}

func NewCleanupHandler(runner service.CleanupRunner) *CleanupHandler {
	return &CleanupHandler{runner: runner}
}

func (h *CleanupHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	n, err := h.runner.RunCleanup(r.Context())
	switch {
	case errors.Is(err, service.ErrCleanupInProgress):
		response.Error(w, r, http.StatusConflict, "CLEANUP_IN_PROGRESS", "device cleanup already running", nil)
		return
	case errors.Is(err, service.ErrCleanupLeaseHeld):
		response.Error(w, r, http.StatusConflict, "CLEANUP_LEASE_HELD", "device cleanup running on another instance", nil)
		return
	case err != nil:
		internalError(w, r, "manual device cleanup failed", err)
		return
	}
	adminID, _ := middleware.UserIDFromContext(r.Context())
	observability.Audit(r, adminID, "devices.cleanup", "deactivated", n)
	response.JSON(w, r, http.StatusOK, map[string]int64{"deactivated": n})
}

func (h *CleanupHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.runner.Status())
}

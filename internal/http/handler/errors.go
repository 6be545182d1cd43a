package handler

import (
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/edupro-device-guard/internal/http/response"
)

func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}

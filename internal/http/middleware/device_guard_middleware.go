package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/response"
	"github.com/sandeepkv93/edupro-device-guard/internal/service"

	"github.com/go-chi/chi/v5"
)

const deviceContextKey contextKey = "device_record"

type DeviceRegistrar interface {
	RegisterDevice(ctx context.Context, userID, courseID string, rc service.RequestContext) (*domain.DeviceRecord, error)
}

func RequestContextFromHTTP(r *http.Request) service.RequestContext {
	return service.RequestContext{
		UserAgent:      r.Header.Get("User-Agent"),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		IPAddress:      ClientIP(r),
	}
}

// DeviceGuard registers the caller's device for the course named by the course_id route
// parameter and rejects the request when the device is shared with other accounts.
func DeviceGuard(registrar DeviceRegistrar) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			courseID := chi.URLParam(r, "course_id")
			if courseID == "" {
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "course id is required", nil)
				return
			}

			rec, err := registrar.RegisterDevice(r.Context(), userID, courseID, RequestContextFromHTTP(r))
			if err != nil {
				var sharing *service.DeviceSharingError
				if errors.As(err, &sharing) {
					response.Error(w, r, http.StatusForbidden, "DEVICE_SHARING_DETECTED",
						"access blocked due to suspected device sharing",
						map[string]int{"conflicting_accounts": sharing.ConflictingAccounts})
					return
				}
				slog.ErrorContext(r.Context(), "device registration failed",
					"user_id", userID,
					"course_id", courseID,
					"error", err,
				)
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "device verification failed", nil)
				return
			}
			ctx := context.WithValue(r.Context(), deviceContextKey, rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func DeviceFromContext(ctx context.Context) (*domain.DeviceRecord, bool) {
	rec, ok := ctx.Value(deviceContextKey).(*domain.DeviceRecord)
	return rec, ok
}

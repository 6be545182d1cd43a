package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/edupro-device-guard/internal/health"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/handler"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/middleware"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/response"
	"github.com/sandeepkv93/edupro-device-guard/internal/security"
)

type Dependencies struct {
	DeviceHandler            *handler.DeviceHandler
	ViolationHandler         *handler.ViolationHandler
	CleanupHandler           *handler.CleanupHandler
	DeviceRegistrar          middleware.DeviceRegistrar
	JWTManager               *security.JWTManager
	Readiness                *health.ProbeRunner
	Logger                   *slog.Logger
	CourseAccessRateLimitRPM int
	EnableOTelHTTP           bool
}

func NewRouter(dep Dependencies) http.Handler {
	logger := dep.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	courseLimiter := middleware.NewPerMinuteRateLimiter(dep.CourseAccessRateLimitRPM, "course_access").Middleware()
	authn := middleware.AuthMiddleware(dep.JWTManager)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(courseLimiter, authn, middleware.DeviceGuard(dep.DeviceRegistrar)).
			Get("/courses/{course_id}/access", dep.DeviceHandler.CourseAccess)
		r.With(authn).Get("/me/devices", dep.DeviceHandler.MyDevices)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authn)
			r.Use(middleware.RequireRole(security.RoleAdmin))
			r.Get("/violations", dep.ViolationHandler.List)
			r.Get("/violations/stats", dep.ViolationHandler.Stats)
			r.Get("/violations/{id}", dep.ViolationHandler.Get)
			r.Post("/violations/{id}/review", dep.ViolationHandler.Review)
			r.Post("/devices/cleanup", dep.CleanupHandler.Trigger)
			r.Get("/devices/cleanup/status", dep.CleanupHandler.Status)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/middleware"
	"github.com/sandeepkv93/edupro-device-guard/internal/http/response"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"
	"github.com/sandeepkv93/edupro-device-guard/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type ViolationHandler struct {
	violations service.ViolationServiceInterface
	validate   *validator.Validate
}

func NewViolationHandler(violations service.ViolationServiceInterface, validate *validator.Validate) *ViolationHandler {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &ViolationHandler{violations: violations, validate: validate}
}

type listViolationsQuery struct {
	Status   string `validate:"omitempty,oneof=pending resolved dismissed"`
	Severity string `validate:"omitempty,oneof=medium high"`
	Limit    int    `validate:"gte=0"`
}

type reviewViolationRequest struct {
	Action string `json:"action" validate:"required,oneof=block_users dismiss"`
	Notes  string `json:"notes" validate:"max=2000"`
}

func (h *ViolationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listViolationsQuery{
		Status:   r.URL.Query().Get("status"),
		Severity: r.URL.Query().Get("severity"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.ValidationError(w, r, errors.New("limit must be an integer"))
			return
		}
		q.Limit = limit
	}
	if err := h.validate.Struct(q); err != nil {
		response.ValidationError(w, r, err)
		return
	}

	cases, err := h.violations.GetViolations(r.Context(), service.ViolationFilter{
		Status:   domain.ViolationStatus(q.Status),
		Severity: domain.ViolationSeverity(q.Severity),
		Limit:    q.Limit,
	})
	if err != nil {
		internalError(w, r, "list violations failed", err)
		return
	}
	response.JSON(w, r, http.StatusOK, cases)
}

func (h *ViolationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.violations.GetViolationStats(r.Context())
	if err != nil {
		internalError(w, r, "violation stats failed", err)
		return
	}
	response.JSON(w, r, http.StatusOK, stats)
}

func (h *ViolationHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.violations.GetViolation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrViolationNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "violation case not found", nil)
			return
		}
		internalError(w, r, "get violation failed", err)
		return
	}
	response.JSON(w, r, http.StatusOK, c)
}

func (h *ViolationHandler) Review(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var req reviewViolationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationError(w, r, err)
		return
	}

	caseID := chi.URLParam(r, "id")
	updated, err := h.violations.HandleViolation(r.Context(), caseID, claims.Subject, service.ReviewAction(req.Action), req.Notes)
	if err != nil {
		if errors.Is(err, service.ErrViolationNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "violation case not found", nil)
			return
		}
		internalError(w, r, "review violation failed", err)
		return
	}
	observability.Audit(r, claims.Subject, "violation.reviewed",
		"case_id", caseID,
		"action", req.Action,
		"status", updated.Status,
	)
	response.JSON(w, r, http.StatusOK, updated)
}

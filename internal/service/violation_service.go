package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"
	"github.com/sandeepkv93/edupro-device-guard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ReviewAction string

const (
	ReviewActionBlockUsers ReviewAction = "block_users"
	ReviewActionDismiss    ReviewAction = "dismiss"
)

type ViolationFilter struct {
	Status   domain.ViolationStatus
	Severity domain.ViolationSeverity
	Limit    int
}

type ViolationStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Resolved  int64 `json:"resolved"`
	Dismissed int64 `json:"dismissed"`
}

type ViolationService struct {
	violations repository.ViolationRepository
	users      repository.UserRepository
	devices    repository.DeviceRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewViolationService(
	violations repository.ViolationRepository,
	users repository.UserRepository,
	devices repository.DeviceRepository,
	logger *slog.Logger,
) *ViolationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViolationService{
		violations: violations,
		users:      users,
		devices:    devices,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ViolationService) GetViolations(ctx context.Context, filter ViolationFilter) ([]domain.ViolationCase, error) {
	cases, err := s.violations.List(ctx, repository.ViolationListQuery{
		Status:   filter.Status,
		Severity: filter.Severity,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	return cases, nil
}

func (s *ViolationService) GetViolation(ctx context.Context, id string) (*domain.ViolationCase, error) {
	c, err := s.violations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrViolationNotFound) {
			return nil, ErrViolationNotFound
		}
		return nil, fmt.Errorf("get violation: %w", err)
	}
	return c, nil
}

func (s *ViolationService) GetViolationStats(ctx context.Context) (ViolationStats, error) {
	counts, err := s.violations.CountByStatus(ctx)
	if err != nil {
		return ViolationStats{}, fmt.Errorf("count violations: %w", err)
	}
	stats := ViolationStats{
		Pending:   counts[domain.ViolationStatusPending],
		Resolved:  counts[domain.ViolationStatusResolved],
		Dismissed: counts[domain.ViolationStatusDismissed],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// HandleViolation applies an administrator's decision. block_users blocks every implicated
// account and deactivates all of their device records, then resolves the case; any other
// action dismisses it. The case is written last so a failed side effect can be retried.
func (s *ViolationService) HandleViolation(ctx context.Context, caseID, adminID string, action ReviewAction, notes string) (*domain.ViolationCase, error) {
	ctx, span := observability.Tracer().Start(ctx, "violation.review")
	defer span.End()
	span.SetAttributes(attribute.String("violation.id", caseID), attribute.String("violation.action", string(action)))

	c, err := s.GetViolation(ctx, caseID)
	if err != nil {
		if !errors.Is(err, ErrViolationNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	status := domain.ViolationStatusDismissed
	if action == ReviewActionBlockUsers {
		status = domain.ViolationStatusResolved
		blocked, err := s.users.BlockUsers(ctx, c.UserIDs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("block users: %w", err)
		}
		deactivated, err := s.devices.DeactivateByUserIDs(ctx, c.UserIDs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("deactivate user devices: %w", err)
		}
		s.logger.InfoContext(ctx, "violation users blocked",
			"case_id", c.ID,
			"users_blocked", blocked,
			"devices_deactivated", deactivated,
		)
	}

	updated, err := s.violations.MarkReviewed(ctx, c.ID, repository.ViolationReview{
		Status:     status,
		ReviewedBy: adminID,
		Notes:      notes,
		ReviewedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrViolationNotFound) {
			return nil, ErrViolationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("mark violation reviewed: %w", err)
	}

	observability.RecordViolationReview(ctx, string(action), string(status))
	s.logger.InfoContext(ctx, "violation reviewed",
		"case_id", c.ID,
		"admin_id", adminID,
		"action", action,
		"status", status,
	)
	return updated, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/fingerprint"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"
	"github.com/sandeepkv93/edupro-device-guard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultDeviceRetention = 30 * 24 * time.Hour

// RequestContext carries the client signals observed on the request being authorized.
type RequestContext struct {
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
	IPAddress      string
}

func (rc RequestContext) DeviceInfo() domain.DeviceInfo {
	return domain.DeviceInfo{
		UserAgent:      rc.UserAgent,
		AcceptLanguage: rc.AcceptLanguage,
		AcceptEncoding: rc.AcceptEncoding,
	}
}

type DeviceView struct {
	ID           uint                 `json:"id"`
	DeviceID     string               `json:"device_id"`
	Course       domain.CourseSummary `json:"course"`
	DeviceInfo   domain.DeviceInfo    `json:"device_info"`
	IPAddress    string               `json:"ip_address"`
	LastActivity time.Time            `json:"last_activity"`
	IsActive     bool                 `json:"is_active"`
	RegisteredAt time.Time            `json:"registered_at"`
}

type DeviceService struct {
	devices   repository.DeviceRepository
	courses   repository.CourseRepository
	detector  *ViolationDetector
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewDeviceService(
	devices repository.DeviceRepository,
	courses repository.CourseRepository,
	detector *ViolationDetector,
	retention time.Duration,
	logger *slog.Logger,
) *DeviceService {
	if retention <= 0 {
		retention = DefaultDeviceRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceService{
		devices:   devices,
		courses:   courses,
		detector:  detector,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterDevice binds the caller's device to (userID, courseID). A known triple is refreshed
// without any violation check; an unknown one is checked first and rejected with a
// *DeviceSharingError when other accounts already use the device in the course.
func (s *DeviceService) RegisterDevice(ctx context.Context, userID, courseID string, rc RequestContext) (*domain.DeviceRecord, error) {
	ctx, span := observability.Tracer().Start(ctx, "device.register")
	defer span.End()

	info := rc.DeviceInfo()
	deviceID := fingerprint.FromInfo(info)
	span.SetAttributes(
		attribute.String("device.id", deviceID),
		attribute.String("course.id", courseID),
	)

	existing, err := s.devices.FindByTriple(ctx, userID, courseID, deviceID)
	if err == nil {
		return s.refresh(ctx, existing)
	}
	if !errors.Is(err, repository.ErrDeviceNotFound) {
		return nil, s.fail(ctx, span, fmt.Errorf("lookup device: %w", err))
	}

	if err := s.detector.CheckForViolations(ctx, deviceID, userID, courseID, rc); err != nil {
		if errors.Is(err, ErrDeviceSharingDetected) {
			observability.RecordDeviceRegistration(ctx, "blocked")
			span.SetAttributes(attribute.Bool("device.sharing_detected", true))
			return nil, err
		}
		return nil, s.fail(ctx, span, err)
	}

	now := s.now().UTC()
	rec := &domain.DeviceRecord{
		UserID:       userID,
		CourseID:     courseID,
		DeviceID:     deviceID,
		DeviceInfo:   info,
		UserAgent:    rc.UserAgent,
		IPAddress:    rc.IPAddress,
		LastActivity: now,
		IsActive:     true,
		RegisteredAt: now,
	}
	err = s.devices.Create(ctx, rec)
	if errors.Is(err, repository.ErrDeviceAlreadyRegistered) {
		// a concurrent request registered the same triple first
		winner, findErr := s.devices.FindByTriple(ctx, userID, courseID, deviceID)
		if findErr != nil {
			return nil, s.fail(ctx, span, fmt.Errorf("load concurrently registered device: %w", findErr))
		}
		return s.refresh(ctx, winner)
	}
	if err != nil {
		return nil, s.fail(ctx, span, fmt.Errorf("create device record: %w", err))
	}

	observability.RecordDeviceRegistration(ctx, "new")
	s.logger.InfoContext(ctx, "device registered",
		"user_id", userID,
		"course_id", courseID,
		"device_id", deviceID,
	)
	return rec, nil
}

func (s *DeviceService) refresh(ctx context.Context, rec *domain.DeviceRecord) (*domain.DeviceRecord, error) {
	now := s.now().UTC()
	if err := s.devices.Touch(ctx, rec.ID, now); err != nil {
		observability.RecordDeviceRegistration(ctx, "error")
		return nil, fmt.Errorf("refresh device record: %w", err)
	}
	rec.LastActivity = now
	rec.IsActive = true
	observability.RecordDeviceRegistration(ctx, "refreshed")
	return rec, nil
}

func (s *DeviceService) fail(ctx context.Context, span trace.Span, err error) error {
	observability.RecordDeviceRegistration(ctx, "error")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *DeviceService) GetUserDevices(ctx context.Context, userID string) ([]DeviceView, error) {
	recs, err := s.devices.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user devices: %w", err)
	}
	courseIDs := make([]string, 0, len(recs))
	for _, rec := range recs {
		courseIDs = append(courseIDs, rec.CourseID)
	}
	courses, err := s.courses.FindByIDs(ctx, domain.UnionIDs(nil, courseIDs...))
	if err != nil {
		return nil, fmt.Errorf("resolve courses: %w", err)
	}

	views := make([]DeviceView, 0, len(recs))
	for _, rec := range recs {
		summary := domain.CourseSummary{ID: rec.CourseID}
		if c, ok := courses[rec.CourseID]; ok {
			summary.Title = c.Title
		}
		views = append(views, DeviceView{
			ID:           rec.ID,
			DeviceID:     rec.DeviceID,
			Course:       summary,
			DeviceInfo:   rec.DeviceInfo,
			IPAddress:    rec.IPAddress,
			LastActivity: rec.LastActivity,
			IsActive:     rec.IsActive,
			RegisteredAt: rec.RegisteredAt,
		})
	}
	return views, nil
}

// CleanupInactiveDevices deactivates every active record idle for longer than the retention
// window and returns how many records changed.
func (s *DeviceService) CleanupInactiveDevices(ctx context.Context) (int64, error) {
	ctx, span := observability.Tracer().Start(ctx, "device.cleanup")
	defer span.End()

	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.devices.DeactivateStale(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("deactivate stale devices: %w", err)
	}
	span.SetAttributes(attribute.Int64("device.deactivated", n))
	s.logger.InfoContext(ctx, "inactive devices cleaned up", "deactivated", n, "cutoff", cutoff)
	return n, nil
}

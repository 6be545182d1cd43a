package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sandeepkv93/edupro-device-guard/internal/observability"
	"github.com/sandeepkv93/edupro-device-guard/internal/repository"
)

type ViolationDetector struct {
	devices    repository.DeviceRepository
	violations repository.ViolationRepository
	logger     *slog.Logger
}

func NewViolationDetector(devices repository.DeviceRepository, violations repository.ViolationRepository, logger *slog.Logger) *ViolationDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViolationDetector{devices: devices, violations: violations, logger: logger}
}

// CheckForViolations returns nil when no other account has the device active in the course.
// Otherwise it records the evidence in the device's pending case and returns a
// *DeviceSharingError.
func (d *ViolationDetector) CheckForViolations(ctx context.Context, deviceID, userID, courseID string, rc RequestContext) error {
	others, err := d.devices.ListActiveConflicts(ctx, deviceID, courseID, userID)
	if err != nil {
		return fmt.Errorf("list conflicting devices: %w", err)
	}
	if len(others) == 0 {
		return nil
	}

	implicated := make([]string, 0, len(others)+1)
	implicated = append(implicated, userID)
	for _, rec := range others {
		implicated = append(implicated, rec.UserID)
	}

	c, created, err := d.violations.UpsertPending(ctx, repository.PendingViolation{
		DeviceID:   deviceID,
		UserIDs:    implicated,
		CourseIDs:  []string{courseID},
		DeviceInfo: rc.DeviceInfo(),
		IPAddress:  rc.IPAddress,
	})
	if err != nil {
		return fmt.Errorf("record violation case: %w", err)
	}

	event := "merged"
	if created {
		event = "created"
	}
	observability.RecordViolationEvent(ctx, event, string(c.Severity))
	d.logger.WarnContext(ctx, "device sharing detected",
		"case_id", c.ID,
		"case_event", event,
		"device_id", deviceID,
		"course_id", courseID,
		"user_id", userID,
		"conflicting_accounts", len(others),
		"severity", c.Severity,
	)

	return &DeviceSharingError{
		DeviceID:            deviceID,
		CourseID:            courseID,
		ConflictingAccounts: len(others),
		CaseID:              c.ID,
	}
}

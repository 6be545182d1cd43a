package service

import (
	"context"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
)

type DeviceServiceInterface interface {
	RegisterDevice(ctx context.Context, userID, courseID string, rc RequestContext) (*domain.DeviceRecord, error)
	GetUserDevices(ctx context.Context, userID string) ([]DeviceView, error)
	CleanupInactiveDevices(ctx context.Context) (int64, error)
}

type ViolationServiceInterface interface {
	GetViolations(ctx context.Context, filter ViolationFilter) ([]domain.ViolationCase, error)
	GetViolation(ctx context.Context, id string) (*domain.ViolationCase, error)
	GetViolationStats(ctx context.Context) (ViolationStats, error)
	HandleViolation(ctx context.Context, caseID, adminID string, action ReviewAction, notes string) (*domain.ViolationCase, error)
}

type CleanupRunner interface {
	RunCleanup(ctx context.Context) (int64, error)
	Status() SchedulerStatus
}

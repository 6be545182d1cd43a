package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrDeviceNotFound          = errors.New("device record not found")
	ErrDeviceAlreadyRegistered = errors.New("device already registered for user and course")
)

type DeviceRepository interface {
	FindByTriple(ctx context.Context, userID, courseID, deviceID string) (*domain.DeviceRecord, error)
	Create(ctx context.Context, rec *domain.DeviceRecord) error
	Touch(ctx context.Context, id uint, at time.Time) error
	ListActiveConflicts(ctx context.Context, deviceID, courseID, excludeUserID string) ([]domain.DeviceRecord, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.DeviceRecord, error)
	DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error)
	DeactivateByUserIDs(ctx context.Context, userIDs []string) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

type GormDeviceRepository struct{ db *gorm.DB }

func NewDeviceRepository(db *gorm.DB) DeviceRepository { return &GormDeviceRepository{db: db} }

func (r *GormDeviceRepository) FindByTriple(ctx context.Context, userID, courseID, deviceID string) (*domain.DeviceRecord, error) {
	var rec domain.DeviceRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND device_id = ?", userID, courseID, deviceID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrDeviceNotFound
	}
	observability.RecordRepositoryOperation(ctx, "device", "find_by_triple", outcomeFor(err, ErrDeviceNotFound))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create returns ErrDeviceAlreadyRegistered when the (user, course, device) triple already exists.
func (r *GormDeviceRepository) Create(ctx context.Context, rec *domain.DeviceRecord) error {
	err := r.db.WithContext(ctx).Create(rec).Error
	if isDuplicateKey(err) {
		observability.RecordRepositoryOperation(ctx, "device", "create", "conflict")
		return ErrDeviceAlreadyRegistered
	}
	observability.RecordRepositoryOperation(ctx, "device", "create", outcomeFor(err, nil))
	return err
}

// Touch marks the record active and moves its last activity to at.
func (r *GormDeviceRepository) Touch(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.DeviceRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_activity": at.UTC(), "is_active": true})
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrDeviceNotFound
	}
	observability.RecordRepositoryOperation(ctx, "device", "touch", outcomeFor(err, ErrDeviceNotFound))
	return err
}

func (r *GormDeviceRepository) ListActiveConflicts(ctx context.Context, deviceID, courseID, excludeUserID string) ([]domain.DeviceRecord, error) {
	var recs []domain.DeviceRecord
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND course_id = ? AND user_id <> ? AND is_active = ?", deviceID, courseID, excludeUserID, true).
		Order("id ASC").
		Find(&recs).Error
	observability.RecordRepositoryOperation(ctx, "device", "list_active_conflicts", outcomeFor(err, nil))
	return recs, err
}

func (r *GormDeviceRepository) ListByUserID(ctx context.Context, userID string) ([]domain.DeviceRecord, error) {
	var recs []domain.DeviceRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("registered_at DESC").
		Order("id DESC").
		Find(&recs).Error
	observability.RecordRepositoryOperation(ctx, "device", "list_by_user_id", outcomeFor(err, nil))
	return recs, err
}

// DeactivateStale flips active records whose last activity is strictly before cutoff.
func (r *GormDeviceRepository) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.DeviceRecord{}).
		Where("is_active = ? AND last_activity < ?", true, cutoff.UTC()).
		Update("is_active", false)
	observability.RecordRepositoryOperation(ctx, "device", "deactivate_stale", outcomeFor(res.Error, nil))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *GormDeviceRepository) DeactivateByUserIDs(ctx context.Context, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&domain.DeviceRecord{}).
		Where("user_id IN ? AND is_active = ?", userIDs, true).
		Update("is_active", false)
	observability.RecordRepositoryOperation(ctx, "device", "deactivate_by_user_ids", outcomeFor(res.Error, nil))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *GormDeviceRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.DeviceRecord{}).Where("is_active = ?", true).Count(&n).Error
	observability.RecordRepositoryOperation(ctx, "device", "count_active", outcomeFor(err, nil))
	return n, err
}

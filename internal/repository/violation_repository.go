package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrViolationNotFound = errors.New("violation case not found")

type ViolationListQuery struct {
	Status   domain.ViolationStatus
	Severity domain.ViolationSeverity
	Limit    int
}

// PendingViolation is the evidence a detector gathered for one device in one course.
type PendingViolation struct {
	DeviceID   string
	UserIDs    []string
	CourseIDs  []string
	DeviceInfo domain.DeviceInfo
	IPAddress  string
}

type ViolationReview struct {
	Status     domain.ViolationStatus
	ReviewedBy string
	Notes      string
	ReviewedAt time.Time
}

type ViolationRepository interface {
	FindByID(ctx context.Context, id string) (*domain.ViolationCase, error)
	List(ctx context.Context, query ViolationListQuery) ([]domain.ViolationCase, error)
	CountByStatus(ctx context.Context) (map[domain.ViolationStatus]int64, error)
	// UpsertPending merges into the device's pending case or opens a new one. The bool is true
	// when a case was created.
	UpsertPending(ctx context.Context, in PendingViolation) (*domain.ViolationCase, bool, error)
	MarkReviewed(ctx context.Context, id string, review ViolationReview) (*domain.ViolationCase, error)
}

type GormViolationRepository struct{ db *gorm.DB }

func NewViolationRepository(db *gorm.DB) ViolationRepository {
	return &GormViolationRepository{db: db}
}

func (r *GormViolationRepository) FindByID(ctx context.Context, id string) (*domain.ViolationCase, error) {
	var c domain.ViolationCase
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrViolationNotFound
	}
	observability.RecordRepositoryOperation(ctx, "violation", "find_by_id", outcomeFor(err, ErrViolationNotFound))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormViolationRepository) List(ctx context.Context, query ViolationListQuery) ([]domain.ViolationCase, error) {
	q := r.db.WithContext(ctx).Model(&domain.ViolationCase{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.Severity != "" {
		q = q.Where("severity = ?", query.Severity)
	}
	var cases []domain.ViolationCase
	err := q.Order("created_at DESC").Limit(normalizeLimit(query.Limit)).Find(&cases).Error
	observability.RecordRepositoryOperation(ctx, "violation", "list", outcomeFor(err, nil))
	return cases, err
}

func (r *GormViolationRepository) CountByStatus(ctx context.Context) (map[domain.ViolationStatus]int64, error) {
	var rows []struct {
		Status domain.ViolationStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&domain.ViolationCase{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	observability.RecordRepositoryOperation(ctx, "violation", "count_by_status", outcomeFor(err, nil))
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.ViolationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *GormViolationRepository) UpsertPending(ctx context.Context, in PendingViolation) (*domain.ViolationCase, bool, error) {
	var (
		out     *domain.ViolationCase
		created bool
		err     error
	)
	// A duplicate key on the first attempt means another request opened the pending case
	// between our read and insert; the second attempt finds it and merges.
	for attempt := 0; attempt < 2; attempt++ {
		out, created, err = r.upsertPendingOnce(ctx, in)
		if err == nil || !isDuplicateKey(err) {
			break
		}
	}
	switch {
	case err != nil:
		observability.RecordRepositoryOperation(ctx, "violation", "upsert_pending", "error")
		return nil, false, err
	case created:
		observability.RecordRepositoryOperation(ctx, "violation", "upsert_pending", "created")
	default:
		observability.RecordRepositoryOperation(ctx, "violation", "upsert_pending", "merged")
	}
	return out, created, nil
}

func (r *GormViolationRepository) upsertPendingOnce(ctx context.Context, in PendingViolation) (*domain.ViolationCase, bool, error) {
	var (
		out     *domain.ViolationCase
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.ViolationCase
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("device_id = ? AND status = ?", in.DeviceID, domain.ViolationStatusPending).
			First(&existing).Error
		switch {
		case err == nil:
			existing.Merge(in.UserIDs, in.CourseIDs)
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			out = &existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			userIDs := domain.UnionIDs(nil, in.UserIDs...)
			c := &domain.ViolationCase{
				ID:            uuid.NewString(),
				DeviceID:      in.DeviceID,
				ViolationType: domain.ViolationTypeMultipleAccounts,
				UserIDs:       userIDs,
				CourseIDs:     domain.UnionIDs(nil, in.CourseIDs...),
				DeviceInfo:    in.DeviceInfo,
				IPAddress:     in.IPAddress,
				Severity:      domain.SeverityForUserCount(len(userIDs)),
				Status:        domain.ViolationStatusPending,
			}
			if err := tx.Create(c).Error; err != nil {
				return err
			}
			out = c
			created = true
			return nil
		default:
			return err
		}
	})
	return out, created, err
}

func (r *GormViolationRepository) MarkReviewed(ctx context.Context, id string, review ViolationReview) (*domain.ViolationCase, error) {
	var out domain.ViolationCase
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&out).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrViolationNotFound
			}
			return err
		}
		reviewedAt := review.ReviewedAt.UTC()
		out.Status = review.Status
		out.AdminNotes = review.Notes
		out.ReviewedBy = review.ReviewedBy
		out.ReviewedAt = &reviewedAt
		return tx.Save(&out).Error
	})
	observability.RecordRepositoryOperation(ctx, "violation", "mark_reviewed", outcomeFor(err, ErrViolationNotFound))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

package repository

import (
	"context"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"

	"gorm.io/gorm"
)

type CourseRepository interface {
	// FindByIDs returns the known courses keyed by id; unknown ids are simply absent.
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.Course, error)
	Create(ctx context.Context, course *domain.Course) error
}

type GormCourseRepository struct{ db *gorm.DB }

func NewCourseRepository(db *gorm.DB) CourseRepository { return &GormCourseRepository{db: db} }

func (r *GormCourseRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Course, error) {
	out := make(map[string]domain.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var courses []domain.Course
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&courses).Error
	observability.RecordRepositoryOperation(ctx, "course", "find_by_ids", outcomeFor(err, nil))
	if err != nil {
		return nil, err
	}
	for _, c := range courses {
		out[c.ID] = c
	}
	return out, nil
}

func (r *GormCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	err := r.db.WithContext(ctx).Create(course).Error
	observability.RecordRepositoryOperation(ctx, "course", "create", outcomeFor(err, nil))
	return err
}

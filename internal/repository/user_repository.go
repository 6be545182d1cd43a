package repository

import (
	"context"
	"errors"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the narrow view of the external account store this service needs.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	// BlockUsers sets every listed account to blocked and returns how many rows changed.
	BlockUsers(ctx context.Context, ids []string) (int64, error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", "find_by_id", outcomeFor(err, ErrUserNotFound))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.Status == "" {
		user.Status = domain.UserStatusActive
	}
	err := r.db.WithContext(ctx).Create(user).Error
	observability.RecordRepositoryOperation(ctx, "user", "create", outcomeFor(err, nil))
	return err
}

func (r *GormUserRepository) BlockUsers(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id IN ? AND status <> ?", ids, domain.UserStatusBlocked).
		Update("status", domain.UserStatusBlocked)
	observability.RecordRepositoryOperation(ctx, "user", "block_users", outcomeFor(res.Error, nil))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

package repository

import (
	"context" // Context for blocking calls

	"group_fund/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, u *domain.User) error {
	return translate("create user", r.db.WithContext(ctx).Omit("Wallet").Create(u).Error, "username")
}

func (r *UserRepository) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate("get user", err, "user")
	}
	return &u, nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate("get user", err, "user")
	}
	return &u, nil
}

// ListUsers returns a page of users, newest first.
func (r *UserRepository) ListUsers(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	err := r.db.WithContext(ctx).Order("id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error
	return users, total, err
}

package repository

import (
	"context" // Context for blocking calls

	"group_fund/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// CreateGroup stores the group and makes its creator the first member.
func (r *GroupRepository) CreateGroup(ctx context.Context, g *domain.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		return tx.Create(&domain.GroupMember{GroupID: g.ID, UserID: g.CreatedBy}).Error
	})
}

func (r *GroupRepository) GetGroup(ctx context.Context, id uint) (*domain.Group, error) {
	var g domain.Group
	if err := r.db.WithContext(ctx).First(&g, id).Error; err != nil {
		return nil, translate("get group", err, "group")
	}
	return &g, nil
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID uint) error {
	if _, err := r.GetGroup(ctx, groupID); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Create(&domain.GroupMember{GroupID: groupID, UserID: userID}).Error
	return translate("add member", err, "membership")
}

func (r *GroupRepository) ListMembers(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&domain.GroupMember{}).
		Where("group_id = ?", groupID).Order("id").Pluck("user_id", &ids).Error
	return ids, err
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).Count(&n).Error
	return n > 0, err
}

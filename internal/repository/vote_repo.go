package repository

import (
	"context" // Context for blocking calls

	"group_fund/internal/domain" // Importing domain models

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Upsert clauses
)

type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

func (r *VoteRepository) CreateVote(ctx context.Context, v *domain.Vote) error {
	return translate("create vote", r.db.WithContext(ctx).Create(v).Error, "vote")
}

func (r *VoteRepository) GetVote(ctx context.Context, id string) (*domain.Vote, error) {
	var v domain.Vote
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, translate("get vote", err, "vote")
	}
	return &v, nil
}

func (r *VoteRepository) ListVotesByGroup(ctx context.Context, groupID uint) ([]domain.Vote, error) {
	var list []domain.Vote
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// UpsertResponse relies on the (vote_id, user_id) unique index: a second
// write from the same user updates choice and timestamp in place.
func (r *VoteRepository) UpsertResponse(ctx context.Context, resp *domain.VoteResponse) (*domain.VoteResponse, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vote_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"choice", "timestamp"}),
	}).Create(resp).Error
	if err != nil {
		return nil, translate("submit vote", err, "vote response")
	}
	var stored domain.VoteResponse
	if err := r.db.WithContext(ctx).
		Where("vote_id = ? AND user_id = ?", resp.VoteID, resp.UserID).
		First(&stored).Error; err != nil {
		return nil, translate("submit vote", err, "vote response")
	}
	return &stored, nil
}

func (r *VoteRepository) ListResponses(ctx context.Context, voteID string) ([]domain.VoteResponse, error) {
	var list []domain.VoteResponse
	err := r.db.WithContext(ctx).Where("vote_id = ?", voteID).Order("timestamp").Find(&list).Error
	return list, err
}

package repository

import (
	"context" // Context for blocking calls
	"time"    // Time handling

	"group_fund/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// CreatePayout inserts the payout and advances the campaign in one
// transaction. The unique index on contribution_id rejects a second payout.
func (r *PayoutRepository) CreatePayout(ctx context.Context, p *domain.ContributionPayout, from domain.ContributionStatus) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return advance(tx, p.ContributionID, from, domain.ContributionPayoutPending)
	})
	return translate("create payout", err, "payout")
}

func (r *PayoutRepository) GetPayout(ctx context.Context, id string) (*domain.ContributionPayout, error) {
	var p domain.ContributionPayout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate("get payout", err, "payout")
	}
	return &p, nil
}

func (r *PayoutRepository) GetPayoutByContribution(ctx context.Context, contributionID string) (*domain.ContributionPayout, error) {
	var p domain.ContributionPayout
	if err := r.db.WithContext(ctx).Where("contribution_id = ?", contributionID).First(&p).Error; err != nil {
		return nil, translate("get payout", err, "payout")
	}
	return &p, nil
}

func (r *PayoutRepository) FinishPayout(ctx context.Context, id string, status domain.PayoutStatus, reason string, at time.Time) error {
	const op = "finish payout"
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": status, "failure_reason": reason, "updated_at": at}
		if status == domain.PayoutCompleted {
			updates["processed_at"] = at
		}
		res := tx.Model(&domain.ContributionPayout{}).
			Where("id = ? AND status = ?", id, domain.PayoutProcessing).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.InvalidState(op, "payout is not processing")
		}
		if status != domain.PayoutCompleted {
			return nil
		}
		var p domain.ContributionPayout
		if err := tx.Select("contribution_id").Where("id = ?", id).First(&p).Error; err != nil {
			return translate(op, err, "payout")
		}
		return advance(tx, p.ContributionID, domain.ContributionPayoutPending, domain.ContributionCompleted)
	})
}

func (r *PayoutRepository) ListPayoutsByStatus(ctx context.Context, status domain.PayoutStatus, limit int) ([]domain.ContributionPayout, error) {
	q := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []domain.ContributionPayout
	err := q.Find(&list).Error
	return list, err
}

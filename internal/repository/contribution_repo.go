package repository

import (
	"context" // Context for blocking calls
	"time"    // Time handling

	"group_fund/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

type ContributionRepository struct {
	db *gorm.DB
}

func NewContributionRepository(db *gorm.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

func (r *ContributionRepository) CreateContribution(ctx context.Context, c *domain.Contribution) error {
	return translate("create contribution", r.db.WithContext(ctx).Create(c).Error, "contribution")
}

func (r *ContributionRepository) GetContribution(ctx context.Context, id string) (*domain.Contribution, error) {
	var c domain.Contribution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate("get contribution", err, "contribution")
	}
	return &c, nil
}

func (r *ContributionRepository) ListContributionsByGroup(ctx context.Context, groupID uint) ([]domain.Contribution, error) {
	var list []domain.Contribution
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *ContributionRepository) ListDueContributions(ctx context.Context, now time.Time) ([]domain.Contribution, error) {
	var list []domain.Contribution
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date IS NOT NULL AND end_date <= ?", domain.ContributionActive, now).
		Order("end_date").Find(&list).Error
	return list, err
}

func (r *ContributionRepository) AdvanceContribution(ctx context.Context, id string, from, to domain.ContributionStatus) error {
	return advance(r.db.WithContext(ctx), id, from, to)
}

// advance is a compare-and-set on status, shared with the payout transaction.
func advance(tx *gorm.DB, id string, from, to domain.ContributionStatus) error {
	const op = "advance contribution"
	if !from.CanAdvanceTo(to) {
		return domain.InvalidState(op, "cannot move from %s to %s", from, to)
	}
	res := tx.Model(&domain.Contribution{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var c domain.Contribution
		if err := tx.Select("status").Where("id = ?", id).First(&c).Error; err != nil {
			return translate(op, err, "contribution")
		}
		return domain.InvalidState(op, "contribution is %s", c.Status)
	}
	return nil
}

// AddContributor inserts the entry and bumps the running total in one transaction.
func (r *ContributionRepository) AddContributor(ctx context.Context, e *domain.Contributor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(e).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Contribution{}).Where("id = ?", e.ContributionID).
			Update("total_contributed", gorm.Expr("total_contributed + ?", e.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("add contributor", "contribution not found")
		}
		return nil
	})
}

func (r *ContributionRepository) ListContributors(ctx context.Context, contributionID string) ([]domain.Contributor, error) {
	var list []domain.Contributor
	err := r.db.WithContext(ctx).Where("contribution_id = ?", contributionID).Order("created_at").Find(&list).Error
	return list, err
}

func (r *ContributionRepository) ListUserContributors(ctx context.Context, contributionID string, userID uint) ([]domain.Contributor, error) {
	var list []domain.Contributor
	err := r.db.WithContext(ctx).
		Where("contribution_id = ? AND user_id = ?", contributionID, userID).
		Order("created_at").Find(&list).Error
	return list, err
}

// MarkSettled only writes when wallet_tx_id is still NULL, so a settled entry never changes.
func (r *ContributionRepository) MarkSettled(ctx context.Context, entryID, walletTxID string) error {
	res := r.db.WithContext(ctx).Model(&domain.Contributor{}).
		Where("id = ? AND wallet_tx_id IS NULL", entryID).
		Updates(map[string]any{"wallet_tx_id": walletTxID, "last_settle_error": ""})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.InvalidState("mark settled", "entry missing or already settled")
	}
	return nil
}

func (r *ContributionRepository) RecordSettleFailure(ctx context.Context, entryID, reason string) error {
	if len(reason) > 512 {
		reason = reason[:512]
	}
	return r.db.WithContext(ctx).Model(&domain.Contributor{}).Where("id = ?", entryID).
		Updates(map[string]any{
			"settle_attempts":   gorm.Expr("settle_attempts + 1"),
			"last_settle_error": reason,
		}).Error
}

func (r *ContributionRepository) ListUnsettled(ctx context.Context, maxAttempts, limit int) ([]domain.Contributor, error) {
	q := r.db.WithContext(ctx).
		Where("payment_method = ? AND wallet_tx_id IS NULL", domain.PaymentWallet)
	if maxAttempts > 0 {
		q = q.Where("settle_attempts < ?", maxAttempts)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []domain.Contributor
	err := q.Order("created_at").Find(&list).Error
	return list, err
}

package service

import (
	"context" // Context for blocking calls
	"time"    // Time handling

	"group_fund/internal/domain" // Importing domain models
)

// ContributionStore persists campaigns and their contributor ledger.
// Missing rows are reported as domain NotFound errors.
type ContributionStore interface {
	CreateContribution(ctx context.Context, c *domain.Contribution) error
	GetContribution(ctx context.Context, id string) (*domain.Contribution, error)
	ListContributionsByGroup(ctx context.Context, groupID uint) ([]domain.Contribution, error)
	// ListDueContributions returns active campaigns whose end date is at or before now.
	ListDueContributions(ctx context.Context, now time.Time) ([]domain.Contribution, error)
	// AdvanceContribution moves status from `from` to `to` only if the row is still in `from`.
	AdvanceContribution(ctx context.Context, id string, from, to domain.ContributionStatus) error

	// AddContributor appends an entry and bumps the campaign's running total.
	AddContributor(ctx context.Context, e *domain.Contributor) error
	ListContributors(ctx context.Context, contributionID string) ([]domain.Contributor, error)
	ListUserContributors(ctx context.Context, contributionID string, userID uint) ([]domain.Contributor, error)
	// MarkSettled attaches a wallet transaction id to an entry that has none.
	MarkSettled(ctx context.Context, entryID, walletTxID string) error
	RecordSettleFailure(ctx context.Context, entryID, reason string) error
	// ListUnsettled returns wallet entries without a transaction id that were
	// attempted fewer than maxAttempts times, oldest first.
	ListUnsettled(ctx context.Context, maxAttempts, limit int) ([]domain.Contributor, error)
}

// PayoutStore persists payouts. CreatePayout inserts the payout and advances
// the campaign to payout_pending in one transaction; a second payout for the
// same campaign fails with a domain AlreadyExists error.
type PayoutStore interface {
	CreatePayout(ctx context.Context, p *domain.ContributionPayout, from domain.ContributionStatus) error
	GetPayout(ctx context.Context, id string) (*domain.ContributionPayout, error)
	GetPayoutByContribution(ctx context.Context, contributionID string) (*domain.ContributionPayout, error)
	// FinishPayout moves a processing payout to completed or failed. Completing
	// also moves the campaign from payout_pending to completed.
	FinishPayout(ctx context.Context, id string, status domain.PayoutStatus, reason string, at time.Time) error
	ListPayoutsByStatus(ctx context.Context, status domain.PayoutStatus, limit int) ([]domain.ContributionPayout, error)
}

// VoteStore persists votes and responses.
type VoteStore interface {
	CreateVote(ctx context.Context, v *domain.Vote) error
	GetVote(ctx context.Context, id string) (*domain.Vote, error)
	ListVotesByGroup(ctx context.Context, groupID uint) ([]domain.Vote, error)
	// UpsertResponse keeps one row per (vote, user); a later write replaces
	// choice and timestamp. It returns the stored row.
	UpsertResponse(ctx context.Context, r *domain.VoteResponse) (*domain.VoteResponse, error)
	ListResponses(ctx context.Context, voteID string) ([]domain.VoteResponse, error)
}

// Notifier delivers messages out of band. Implementations must not block
// the caller on delivery; errors are for logging only.
type Notifier interface {
	NotifyGroup(ctx context.Context, groupID uint, msg domain.NotificationMessage) error
	NotifyUser(ctx context.Context, userID uint, msg domain.NotificationMessage) error
}

type nopNotifier struct{}

func (nopNotifier) NotifyGroup(context.Context, uint, domain.NotificationMessage) error { return nil }
func (nopNotifier) NotifyUser(context.Context, uint, domain.NotificationMessage) error  { return nil }

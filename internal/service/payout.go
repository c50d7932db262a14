package service

import (
	"context" // Context for blocking calls
	"errors"  // Sentinel errors
	"fmt"     // Error formatting
	"strings" // String helpers

	"group_fund/internal/domain" // Importing domain models
	"group_fund/internal/events" // Domain events

	"github.com/sirupsen/logrus" // Structured logging
)

// PayoutService turns closed campaigns into payouts and records settlement.
type PayoutService struct {
	deps Deps
}

func NewPayoutService(deps Deps) *PayoutService {
	return &PayoutService{deps: deps.withDefaults()}
}

// TriggerPayout computes and stores the one payout of a campaign.
// The campaign must have passed its end date or have been closed explicitly.
// Concurrent triggers race on the payout insert; exactly one succeeds and
// the rest get an AlreadyExists error.
func (s *PayoutService) TriggerPayout(ctx context.Context, contributionID string) (*domain.ContributionPayout, error) {
	const op = "trigger payout"

	c, err := s.deps.Contributions.GetContribution(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case domain.ContributionCancelled:
		return nil, domain.InvalidState(op, "contribution is cancelled")
	case domain.ContributionPayoutPending, domain.ContributionCompleted:
		return nil, domain.AlreadyExists(op, "payout already processed")
	case domain.ContributionActive:
		if !c.IsEnded(s.deps.Now()) {
			return nil, domain.InvalidState(op, "contribution is still active")
		}
	}
	if existing, err := s.deps.Payouts.GetPayoutByContribution(ctx, contributionID); err == nil && existing != nil {
		return nil, domain.AlreadyExists(op, "payout already processed")
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	entries, err := s.deps.Contributions.ListContributors(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	total := domain.SumContributors(entries)
	fee, net := domain.ComputePayout(total, c.PlatformFee)

	p := &domain.ContributionPayout{
		ContributionID: c.ID,
		TotalAmount:    total,
		PlatformFee:    fee,
		NetAmount:      net,
		Currency:       c.Currency,
		Status:         domain.PayoutProcessing,
	}
	if err := s.deps.Payouts.CreatePayout(ctx, p, c.Status); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.AlreadyExists(op, "payout already processed")
		}
		return nil, err
	}

	s.deps.Logger.WithFields(logrus.Fields{
		"contribution_id": c.ID,
		"payout_id":       p.ID,
		"total":           total.String(),
		"fee":             fee.String(),
		"net":             net.String(),
	}).Info("Payout processing")

	s.deps.notifyGroup(ctx, c.GroupID, domain.NotificationMessage{
		Title:     "Contribution Payout Processing",
		Message:   fmt.Sprintf("Payout of %s %s for %q is being processed", net, c.Currency, c.Title),
		Severity:  domain.SeverityInfo,
		RelatedID: c.ID,
	})
	s.deps.publish(ctx, events.PayoutProcessing, c.ID, p)
	return p, nil
}

// GetPayout returns the payout of a campaign.
func (s *PayoutService) GetPayout(ctx context.Context, contributionID string) (*domain.ContributionPayout, error) {
	return s.deps.Payouts.GetPayoutByContribution(ctx, contributionID)
}

// CompleteSettlement marks a processing payout as paid and closes its campaign.
func (s *PayoutService) CompleteSettlement(ctx context.Context, payoutID string) (*domain.ContributionPayout, error) {
	return s.finish(ctx, payoutID, domain.PayoutCompleted, "")
}

// FailSettlement marks a processing payout as failed with reason.
func (s *PayoutService) FailSettlement(ctx context.Context, payoutID, reason string) (*domain.ContributionPayout, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "settlement failed"
	}
	return s.finish(ctx, payoutID, domain.PayoutFailed, reason)
}

func (s *PayoutService) finish(ctx context.Context, payoutID string, status domain.PayoutStatus, reason string) (*domain.ContributionPayout, error) {
	const op = "finish payout"

	p, err := s.deps.Payouts.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PayoutProcessing {
		return nil, domain.InvalidState(op, "payout is %s", p.Status)
	}
	if err := s.deps.Payouts.FinishPayout(ctx, payoutID, status, reason, s.deps.Now()); err != nil {
		return nil, err
	}
	p, err = s.deps.Payouts.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	log := s.deps.Logger.WithFields(logrus.Fields{
		"payout_id":       p.ID,
		"contribution_id": p.ContributionID,
		"status":          p.Status,
	})
	msg := domain.NotificationMessage{RelatedID: p.ContributionID}
	evType := events.PayoutCompleted
	if status == domain.PayoutCompleted {
		log.Info("Payout completed")
		msg.Title = "Contribution Payout Completed"
		msg.Message = fmt.Sprintf("Payout of %s %s has been completed", p.NetAmount, p.Currency)
		msg.Severity = domain.SeveritySuccess
	} else {
		log.WithField("reason", reason).Error("Payout failed")
		msg.Title = "Contribution Payout Failed"
		msg.Message = fmt.Sprintf("Payout of %s %s failed: %s", p.NetAmount, p.Currency, reason)
		msg.Severity = domain.SeverityError
		evType = events.PayoutFailed
	}
	if c, err := s.deps.Contributions.GetContribution(ctx, p.ContributionID); err == nil {
		s.deps.notifyGroup(ctx, c.GroupID, msg)
	}
	s.deps.publish(ctx, evType, p.ContributionID, p)
	return p, nil
}

// DueResult summarizes one pass over due campaigns.
type DueResult struct {
	Triggered int
	Skipped   int
	Failed    int
}

// TriggerDue routes every active campaign past its end date through
// TriggerPayout. Campaigns that already have a payout are counted as skipped.
func (s *PayoutService) TriggerDue(ctx context.Context) (DueResult, error) {
	var res DueResult
	due, err := s.deps.Contributions.ListDueContributions(ctx, s.deps.Now())
	if err != nil {
		return res, err
	}
	for _, c := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		_, err := s.TriggerPayout(ctx, c.ID)
		switch {
		case err == nil:
			res.Triggered++
		case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrInvalidState):
			res.Skipped++
		default:
			res.Failed++
			s.deps.Logger.WithFields(logrus.Fields{
				"contribution_id": c.ID,
				"error":           err.Error(),
			}).Error("Scheduled payout failed")
		}
	}
	return res, nil
}

// ListProcessing returns payouts awaiting settlement.
func (s *PayoutService) ListProcessing(ctx context.Context, limit int) ([]domain.ContributionPayout, error) {
	return s.deps.Payouts.ListPayoutsByStatus(ctx, domain.PayoutProcessing, limit)
}

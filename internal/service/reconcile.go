package service

import (
	"context" // Context for blocking calls
	"errors"  // Sentinel errors

	"group_fund/internal/domain" // Importing domain models
	"group_fund/internal/events" // Domain events
	"group_fund/internal/wallet" // Wallet transfer gateway

	"github.com/sirupsen/logrus" // Structured logging
)

// DefaultMaxSettleAttempts bounds automatic retries of one entry.
const DefaultMaxSettleAttempts = 5

// ReconcileService retries wallet transfers of entries that were recorded
// without a transaction id. A retry reuses the entry's transfer reference,
// so a transfer that went through before is found instead of repeated.
type ReconcileService struct {
	deps        Deps
	maxAttempts int
}

func NewReconcileService(deps Deps, maxAttempts int) *ReconcileService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxSettleAttempts
	}
	return &ReconcileService{deps: deps.withDefaults(), maxAttempts: maxAttempts}
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Settled int
	Failed  int
}

// Unsettled lists entries still waiting for a wallet transaction.
func (s *ReconcileService) Unsettled(ctx context.Context, limit int) ([]domain.Contributor, error) {
	return s.deps.Contributions.ListUnsettled(ctx, s.maxAttempts, limit)
}

// Run retries up to batch unsettled entries.
func (s *ReconcileService) Run(ctx context.Context, batch int) (ReconcileResult, error) {
	var res ReconcileResult
	if s.deps.Wallet == nil {
		return res, errors.New("wallet gateway not configured")
	}
	entries, err := s.deps.Contributions.ListUnsettled(ctx, s.maxAttempts, batch)
	if err != nil {
		return res, err
	}
	for i := range entries {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		e := &entries[i]
		log := s.deps.Logger.WithFields(logrus.Fields{
			"entry_id":        e.ID,
			"contribution_id": e.ContributionID,
			"attempt":         e.SettleAttempts + 1,
		})
		c, err := s.deps.Contributions.GetContribution(ctx, e.ContributionID)
		if err != nil {
			res.Failed++
			log.WithField("error", err.Error()).Error("Reconcile lookup failed")
			continue
		}
		out, err := s.deps.Wallet.Transfer(ctx, wallet.TransferRequest{
			FromUserID: e.UserID,
			ToUserID:   c.CreatedBy,
			Amount:     e.Amount,
			Currency:   e.Currency,
			Memo:       "Contribution to " + c.Title,
			Reference:  e.TransferReference(),
		})
		if err == nil && (!out.Success || out.TransactionID == "") {
			err = errors.New("wallet transfer was not confirmed")
		}
		if err != nil {
			res.Failed++
			if recErr := s.deps.Contributions.RecordSettleFailure(ctx, e.ID, err.Error()); recErr != nil {
				log.WithField("error", recErr.Error()).Error("Recording settlement failure failed")
			}
			if e.SettleAttempts+1 >= s.maxAttempts {
				log.WithField("error", err.Error()).Error("Entry exhausted settlement attempts")
			} else {
				log.WithField("error", err.Error()).Warn("Settlement retry failed")
			}
			continue
		}
		if err := s.deps.Contributions.MarkSettled(ctx, e.ID, out.TransactionID); err != nil {
			res.Failed++
			log.WithField("error", err.Error()).Error("Attaching wallet transaction failed")
			continue
		}
		res.Settled++
		log.WithFields(logrus.Fields{
			"transaction_id": out.TransactionID,
			"replayed":       out.Replayed,
		}).Info("Contribution settled")
		s.deps.publish(ctx, events.ContributionSettled, e.ContributionID, e)
	}
	return res, nil
}

package worker

import (
	"context" // Context for blocking calls
	"errors"  // Sentinel errors
	"time"    // Time handling

	"group_fund/internal/domain"     // Importing domain models
	"group_fund/internal/service"    // Store ports
	"group_fund/internal/settlement" // Payout settlement endpoint

	"github.com/sirupsen/logrus" // Structured logging
)

// DueTrigger turns due campaigns into payouts.
type DueTrigger interface {
	TriggerDue(ctx context.Context) (service.DueResult, error)
}

// PayoutRunner picks up campaigns whose end date has passed.
type PayoutRunner struct {
	payouts  DueTrigger
	interval time.Duration
	log      logrus.FieldLogger
}

func NewPayoutRunner(payouts DueTrigger, interval time.Duration, log logrus.FieldLogger) *PayoutRunner {
	return &PayoutRunner{payouts: payouts, interval: orDefault(interval, time.Minute), log: log}
}

func (w *PayoutRunner) RunOnce(ctx context.Context) error {
	res, err := w.payouts.TriggerDue(ctx)
	if err != nil {
		return err
	}
	if res.Triggered+res.Failed > 0 {
		w.log.WithFields(logrus.Fields{
			"triggered": res.Triggered,
			"skipped":   res.Skipped,
			"failed":    res.Failed,
		}).Info("Due contributions processed")
	}
	return nil
}

func (w *PayoutRunner) Run(ctx context.Context) error {
	return every(ctx, w.interval, w.log, "payout_runner", w.RunOnce)
}

// SettlementTracker is the part of the payout service settlement needs.
type SettlementTracker interface {
	ListProcessing(ctx context.Context, limit int) ([]domain.ContributionPayout, error)
	CompleteSettlement(ctx context.Context, payoutID string) (*domain.ContributionPayout, error)
	FailSettlement(ctx context.Context, payoutID, reason string) (*domain.ContributionPayout, error)
}

// SettlementWorker sends processing payouts to the payout endpoint.
// A rejection fails the payout; a transport error leaves it processing for
// the next pass, and the endpoint dedups on payout_id.
type SettlementWorker struct {
	payouts  SettlementTracker
	settler  settlement.Settler
	batch    int
	interval time.Duration
	log      logrus.FieldLogger
}

func NewSettlementWorker(payouts SettlementTracker, settler settlement.Settler, batch int, interval time.Duration, log logrus.FieldLogger) *SettlementWorker {
	if batch <= 0 {
		batch = 50
	}
	return &SettlementWorker{payouts: payouts, settler: settler, batch: batch, interval: orDefault(interval, time.Minute), log: log}
}

func (w *SettlementWorker) configured() bool {
	if w.settler == nil {
		return false
	}
	if c, ok := w.settler.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

func (w *SettlementWorker) RunOnce(ctx context.Context) error {
	if !w.configured() {
		return nil
	}
	pending, err := w.payouts.ListProcessing(ctx, w.batch)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log := w.log.WithFields(logrus.Fields{"payout_id": p.ID, "contribution_id": p.ContributionID})
		err := w.settler.Settle(ctx, settlement.RequestFor(p))
		var rejected *settlement.RejectedError
		switch {
		case err == nil:
			if _, err := w.payouts.CompleteSettlement(ctx, p.ID); err != nil {
				log.WithField("error", err.Error()).Error("Recording completed payout failed")
			}
		case errors.As(err, &rejected):
			if _, ferr := w.payouts.FailSettlement(ctx, p.ID, err.Error()); ferr != nil {
				log.WithField("error", ferr.Error()).Error("Recording failed payout failed")
			}
		default:
			log.WithField("error", err.Error()).Warn("Payout endpoint unreachable, will retry")
		}
	}
	return nil
}

func (w *SettlementWorker) Run(ctx context.Context) error {
	return every(ctx, w.interval, w.log, "settlement", w.RunOnce)
}

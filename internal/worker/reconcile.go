package worker

import (
	"context" // Context for blocking calls
	"time"    // Time handling

	"group_fund/internal/service" // Store ports

	"github.com/sirupsen/logrus" // Structured logging
)

// Reconciler retries unsettled wallet pledges.
type Reconciler interface {
	Run(ctx context.Context, batch int) (service.ReconcileResult, error)
}

type ReconcileWorker struct {
	reconciler Reconciler
	batch      int
	interval   time.Duration
	log        logrus.FieldLogger
}

func NewReconcileWorker(r Reconciler, batch int, interval time.Duration, log logrus.FieldLogger) *ReconcileWorker {
	if batch <= 0 {
		batch = 50
	}
	return &ReconcileWorker{reconciler: r, batch: batch, interval: orDefault(interval, 5*time.Minute), log: log}
}

func (w *ReconcileWorker) RunOnce(ctx context.Context) error {
	res, err := w.reconciler.Run(ctx, w.batch)
	if err != nil {
		return err
	}
	if res.Settled+res.Failed > 0 {
		w.log.WithFields(logrus.Fields{"settled": res.Settled, "failed": res.Failed}).Info("Reconciliation pass")
	}
	return nil
}

func (w *ReconcileWorker) Run(ctx context.Context) error {
	return every(ctx, w.interval, w.log, "reconcile", w.RunOnce)
}

package main

import (
	"context"   // Worker lifetime
	"errors"    // Cancellation check
	"os"        // Signals
	"os/signal" // Signal handling
	"sync"      // Wait for workers
	"syscall"   // SIGTERM

	"group_fund/internal/app"        // Shared infrastructure
	"group_fund/internal/config"     // Application configuration
	"group_fund/internal/service"    // Domain workflows
	"group_fund/internal/settlement" // Payout settlement endpoint
	"group_fund/internal/utils"      // Logger setup
	"group_fund/internal/worker"     // Background loops

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Runs the payout, settlement, reconcile and notification loops until signalled
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log := utils.NewLogger(cfg.LogLevel, cfg.IsProd)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.GetLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer infra.Close()
	if !cfg.RedisEnabled() {
		log.Warn("REDIS_ADDR not set: notifications from the API server will not reach this worker")
	}

	deps := infra.ServiceDeps()
	payouts := service.NewPayoutService(deps)
	reconcile := service.NewReconcileService(deps, cfg.ReconcileMaxAttempts)
	settler := settlement.NewHTTPSettler(cfg.PayoutEndpoint, cfg.PayoutTimeout)
	dispatcher, err := infra.Dispatcher()
	if err != nil {
		log.Fatalf("failed to build dispatcher: %v", err)
	}

	loops := map[string]func(context.Context) error{
		"payout":       worker.NewPayoutRunner(payouts, cfg.PayoutInterval, log).Run,
		"settlement":   worker.NewSettlementWorker(payouts, settler, cfg.WorkerBatchSize, cfg.SettlementInterval, log).Run,
		"reconcile":    worker.NewReconcileWorker(reconcile, cfg.WorkerBatchSize, cfg.ReconcileInterval, log).Run,
		"notification": dispatcher.Run,
	}
	var wg sync.WaitGroup
	for name, run := range loops {
		name, run := name, run
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithFields(logrus.Fields{"worker": name, "error": err.Error()}).Error("Worker stopped")
			}
		}()
	}
	wg.Wait()
	log.Info("Workers stopped")
}

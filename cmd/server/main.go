package main

import (
	"context"   // Shutdown deadline
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Exit codes
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"group_fund/internal/api"     // Custom package for API handlers
	"group_fund/internal/app"     // Shared infrastructure
	"group_fund/internal/config"  // Custom package for configuration
	"group_fund/internal/service" // Domain workflows
	"group_fund/internal/utils"   // Logger setup

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// Setup logger
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

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := infra.ServiceDeps()
	router, err := api.NewRouter(api.RouterDeps{
		Users:          infra.Users,
		Groups:         infra.Groups,
		Notifications:  infra.Notifications,
		Ledger:         infra.Ledger,
		Members:        infra.Members,
		Cache:          infra.Cache,
		Contributions:  service.NewContributionService(deps),
		Votes:          service.NewVoteService(deps),
		Payouts:        service.NewPayoutService(deps),
		Reconcile:      service.NewReconcileService(deps, cfg.ReconcileMaxAttempts),
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTTTL,
		TrustedProxies: []string{"127.0.0.1"},
		Logger:         log,
	})
	if err != nil {
		log.Fatalf("failed to build router: %v", err)
	}

	// Without Redis the queue lives in this process, so deliver here too
	if !cfg.RedisEnabled() {
		dispatcher, err := infra.Dispatcher()
		if err != nil {
			log.Fatalf("failed to build dispatcher: %v", err)
		}
		go func() { _ = dispatcher.Run(ctx) }()
	}

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: router}
	go func() {
		log.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithField("error", err.Error()).Error("Graceful shutdown failed")
	}
}

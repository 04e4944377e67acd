/**
 * @description
 * Worker Service Entry Point.
 * Responsible for background tasks:
 * 1. Sweeping the catalog on a schedule so expired listings are retired even when nobody browses.
 * 2. Sending low-stock notices to farmers.
 * 3. Pruning old notifications.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/cron
 * - backend/internal/lifecycle
 * - backend/internal/services
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farm2consumer/backend/internal/config"
	cronrunner "github.com/farm2consumer/backend/internal/cron"
	"github.com/farm2consumer/backend/internal/db"
	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/farm2consumer/backend/internal/services"
)

const (
	lowStockSchedule      = "0 */15 * * * *"
	notificationCleanup   = "0 30 3 * * *"
	notificationRetention = 30 * 24 * time.Hour
)

func main() {
	defer logger.Sync()
	logger.Info("Starting Farm2Consumer Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}
	defer redisClient.Close()

	// 3. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Initialize Services
	calc := pricing.NewCalculator(pricing.Standard, time.Now)
	notifications := services.NewNotificationService(pgDB)
	recommendations := services.NewRecommendationService(pgDB, redisClient, calc)
	store := services.NewListingStore(pgDB, notifications, recommendations)

	retirer := lifecycle.NewRetirer(store, calc, lifecycle.RetirerConfig{
		Workers:     cfg.Retirement.Workers,
		QueueSize:   cfg.Retirement.QueueSize,
		CallTimeout: cfg.Retirement.CallTimeout,
	}, services.NewRetirementPublisher(redisClient))
	retirer.Start(ctx)

	catalog := services.NewCatalogService(store, lifecycle.NewGate(calc, retirer))

	// 5. Schedules
	runner := cronrunner.New(logger.Zap(), ctx)

	if _, err := runner.Add("sweep", cfg.Retirement.SweepSchedule, func(ctx context.Context) {
		catalog.Sweep(ctx)
	}); err != nil {
		logger.Fatal("Invalid SWEEP_SCHEDULE %q: %v", cfg.Retirement.SweepSchedule, err)
	}

	if _, err := runner.Add("low-stock", lowStockSchedule, func(ctx context.Context) {
		if _, err := notifications.NotifyLowStock(ctx); err != nil {
			logger.Error("Low stock sweep failed: %v", err)
		}
	}); err != nil {
		logger.Fatal("Failed to schedule low stock sweep: %v", err)
	}

	if _, err := runner.Add("notification-cleanup", notificationCleanup, func(ctx context.Context) {
		if err := notifications.DeleteOldNotifications(ctx, notificationRetention); err != nil {
			logger.Error("Notification cleanup failed: %v", err)
		}
	}); err != nil {
		logger.Fatal("Failed to schedule notification cleanup: %v", err)
	}

	// Initial sweep so a restart does not wait for the first tick
	catalog.Sweep(ctx)
	runner.Start()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	runner.Stop()
	retirer.Stop()
	cancel()
	logger.Info("Worker exited.")
}

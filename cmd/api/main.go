/**
 * @description
 * Main entry point for the Farm2Consumer Backend API.
 * Initializes the Fiber web server, loads configuration, wires the lifecycle gate
 * and its retirement workers, and sets up routes.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: Web framework
 * - github.com/farm2consumer/backend/internal/config: Config loader
 * - github.com/farm2consumer/backend/internal/db: Database connections
 * - github.com/farm2consumer/backend/internal/lifecycle: Gate and retirer
 *
 * @notes
 * - Connects to Postgres and Redis on startup and migrates the schema.
 * - Expired listings found while serving requests are retired in the background.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farm2consumer/backend/internal/api"
	"github.com/farm2consumer/backend/internal/api/middleware"
	"github.com/farm2consumer/backend/internal/config"
	"github.com/farm2consumer/backend/internal/db"
	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/farm2consumer/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	defer logger.Sync()

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Initialize Database Connections
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres: %v", err)
	}
	if err := db.Migrate(pgDB); err != nil {
		logger.Fatal("Failed to migrate schema: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Services
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
	hub := services.NewRetirementStreamHub(ctx, redisClient, services.RetirementChannel)

	auth, err := middleware.NewAuthenticator(cfg)
	if err != nil {
		// Keep serving public routes; protected ones answer 500
		logger.Error("Failed to init auth middleware: %v", err)
	}
	defer auth.Close()

	// 4. Initialize Fiber App
	app := fiber.New(fiber.Config{
		AppName:       "Farm2Consumer Backend",
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// 5. Routes
	api.SetupRoutes(app, api.Dependencies{
		Auth:          auth,
		Calc:          calc,
		Catalog:       catalog,
		Searches:      recommendations,
		Notifications: notifications,
		Profiles:      services.NewUserService(pgDB),
		Hub:           hub,
		RetirerStats:  retirer.Stats,
	})

	// 6. Start Server
	go func() {
		logger.Info("Starting Farm2Consumer Backend on port %s", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Error shutting down server: %v", err)
	}
	hub.Close()
	retirer.Stop()
	cancel()
	logger.Info("API exited.")
}

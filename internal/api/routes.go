/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 */

package api

import (
	"github.com/farm2consumer/backend/internal/api/handlers"
	"github.com/farm2consumer/backend/internal/api/middleware"
	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/farm2consumer/backend/internal/services"
	"github.com/farm2consumer/backend/internal/session"
	"github.com/gofiber/fiber/v2"
)

// Dependencies are the services the HTTP surface is built on
type Dependencies struct {
	Auth          *middleware.Authenticator
	Calc          *pricing.Calculator
	Catalog       *services.CatalogService
	Searches      handlers.SearchRecorder
	Notifications handlers.NotificationStore
	Profiles      handlers.ProfileStore
	// Hub may be nil; the retirement stream then answers 503.
	Hub          *services.RetirementStreamHub
	RetirerStats func() lifecycle.RetirerStats
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.RetirerStats)
	listingHandler := handlers.NewListingHandler(deps.Catalog, deps.Calc)
	recommendationHandler := handlers.NewRecommendationHandler(deps.Catalog, deps.Searches, deps.Calc)
	farmerHandler := handlers.NewFarmerHandler(deps.Catalog, deps.Hub, deps.Calc)
	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
	userHandler := handlers.NewUserHandler(deps.Profiles)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Public Routes
	v1.Get("/health", healthHandler.GetHealth)

	listings := v1.Group("/listings")
	listings.Get("/", listingHandler.GetListings)
	listings.Get("/:id/quote", listingHandler.GetQuote)

	// Consumer Routes (Protected)
	protected := deps.Auth.Protected()
	v1.Get("/recommendations", protected, recommendationHandler.GetRecommendations)
	v1.Post("/search-history", protected, recommendationHandler.RecordSearch)

	notifications := v1.Group("/notifications", protected)
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Get("/unread-count", notificationHandler.GetUnreadCount)
	notifications.Put("/:id/read", notificationHandler.MarkAsRead)

	user := v1.Group("/user", protected)
	user.Post("/sync", userHandler.SyncUser)
	user.Get("/me", userHandler.GetMe)

	// Farmer Routes (Protected)
	farmer := v1.Group("/farmer", protected, middleware.RequireRole(session.RoleFarmer))
	farmer.Get("/listings", farmerHandler.GetMyListings)
	farmer.Get("/retirements/stream", farmerHandler.StreamRetirements)
}

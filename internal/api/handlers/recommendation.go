/**
 * @description
 * Recommendation API Handlers.
 * Personalized listings and the search history that feeds them.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"context"
	"strings"

	"github.com/farm2consumer/backend/internal/api/middleware"
	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/farm2consumer/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// SearchRecorder stores consumer search terms
type SearchRecorder interface {
	RecordSearch(ctx context.Context, userID, term string) error
}

type RecommendationHandler struct {
	Catalog  *services.CatalogService
	Searches SearchRecorder
	Calc     *pricing.Calculator
}

func NewRecommendationHandler(catalog *services.CatalogService, searches SearchRecorder, calc *pricing.Calculator) *RecommendationHandler {
	return &RecommendationHandler{Catalog: catalog, Searches: searches, Calc: calc}
}

// GetRecommendations returns the caller's live recommended listings
// GET /api/v1/recommendations
func (h *RecommendationHandler) GetRecommendations(c *fiber.Ctx) error {
	listings := h.Catalog.ListRecommended(c.UserContext(), middleware.GetSession(c))
	return c.JSON(fiber.Map{
		"recommendations": newListingResponses(h.Calc, listings),
		"count":           len(listings),
	})
}

type searchRequest struct {
	Term string `json:"term"`
}

// RecordSearch stores a search term for the caller
// POST /api/v1/search-history
func (h *RecommendationHandler) RecordSearch(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	term := strings.TrimSpace(req.Term)
	if term == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Search term is required"})
	}
	if len(term) > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Search term is too long"})
	}

	sess := middleware.GetSession(c)
	if err := h.Searches.RecordSearch(c.UserContext(), sess.UserID, term); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record search"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}

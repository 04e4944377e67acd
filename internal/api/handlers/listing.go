/**
 * @description
 * Listing API Handlers.
 * Serves the public catalog and per-listing quotes. Every listing returned here
 * has passed the lifecycle gate and carries its current effective price.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 * - backend/internal/pricing
 */

package handlers

import (
	"errors"
	"time"

	"github.com/farm2consumer/backend/internal/api/middleware"
	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/farm2consumer/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ListingResponse is the JSON shape of a live listing
type ListingResponse struct {
	ID                string          `json:"id"`
	FarmerID          string          `json:"farmer_id"`
	CropName          string          `json:"crop_name"`
	CropCategory      string          `json:"crop_category"`
	BasePrice         decimal.Decimal `json:"base_price_per_unit"`
	ConsumerPrice     decimal.Decimal `json:"consumer_price_per_unit"`
	EffectivePrice    int64           `json:"effective_price"`
	DecayIntervals    int64           `json:"decay_intervals"`
	AvailableQuantity int             `json:"available_quantity"`
	CreatedAt         *time.Time      `json:"created_at,omitempty"`
}

func newListingResponse(calc *pricing.Calculator, l lifecycle.Listing) ListingResponse {
	resp := ListingResponse{
		ID:                l.ID,
		FarmerID:          l.OwnerID,
		CropName:          l.CropName,
		CropCategory:      l.CropCategory,
		BasePrice:         l.BasePrice,
		ConsumerPrice:     calc.ConsumerPrice(l.BasePrice),
		EffectivePrice:    l.Quote.EffectivePrice,
		DecayIntervals:    l.Quote.Intervals,
		AvailableQuantity: l.AvailableQuantity,
	}
	if !l.CreatedAt.IsZero() {
		created := l.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

func newListingResponses(calc *pricing.Calculator, listings []lifecycle.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, newListingResponse(calc, l))
	}
	return out
}

type ListingHandler struct {
	Catalog *services.CatalogService
	Calc    *pricing.Calculator
}

func NewListingHandler(catalog *services.CatalogService, calc *pricing.Calculator) *ListingHandler {
	return &ListingHandler{Catalog: catalog, Calc: calc}
}

// GetListings returns the live catalog. Backend failures yield an empty list, never a 5xx.
// GET /api/v1/listings
func (h *ListingHandler) GetListings(c *fiber.Ctx) error {
	listings := h.Catalog.ListListings(c.UserContext(), middleware.GetSession(c))
	return c.JSON(fiber.Map{
		"listings": newListingResponses(h.Calc, listings),
		"count":    len(listings),
	})
}

// GetQuote returns the current price of one listing
// GET /api/v1/listings/:id/quote
func (h *ListingHandler) GetQuote(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Listing ID is required"})
	}

	listing, err := h.Catalog.QuoteListing(c.UserContext(), middleware.GetSession(c), id)
	if errors.Is(err, services.ErrListingNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to quote listing"})
	}

	return c.JSON(newListingResponse(h.Calc, listing))
}

/**
 * @description
 * Farmer dashboard API Handlers.
 * The farmer's own live listings and a live feed of their retired listings.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/farm2consumer/backend/internal/api/middleware"
	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/farm2consumer/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const streamKeepAlive = 15 * time.Second

type FarmerHandler struct {
	Catalog *services.CatalogService
	Hub     *services.RetirementStreamHub
	Calc    *pricing.Calculator
}

func NewFarmerHandler(catalog *services.CatalogService, hub *services.RetirementStreamHub, calc *pricing.Calculator) *FarmerHandler {
	return &FarmerHandler{Catalog: catalog, Hub: hub, Calc: calc}
}

// GetMyListings returns the caller's live listings. Admins may pass ?farmer_id=.
// GET /api/v1/farmer/listings
func (h *FarmerHandler) GetMyListings(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	farmerID := c.Query("farmer_id", sess.UserID)

	listings, err := h.Catalog.ListFarmerListings(c.UserContext(), sess, farmerID)
	if errors.Is(err, services.ErrForbidden) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch listings"})
	}

	return c.JSON(fiber.Map{
		"listings": newListingResponses(h.Calc, listings),
		"count":    len(listings),
	})
}

// StreamRetirements streams the caller's retired listings over SSE
// GET /api/v1/farmer/retirements/stream
func (h *FarmerHandler) StreamRetirements(c *fiber.Ctx) error {
	if h.Hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Retirement stream unavailable"})
	}

	sess := middleware.GetSession(c)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()
	events, unsubscribe := h.Hub.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()

		// Headers go out right away so clients see the stream open
		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-requestCtx.Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			case ev, ok := <-events:
				if !ok {
					return
				}
				if !sess.CanActFor(ev.OwnerID) {
					continue
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: retired\ndata: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}

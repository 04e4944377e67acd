package handlers

import (
	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	// Stats is nil when this process runs no retirement workers.
	Stats func() lifecycle.RetirerStats
}

func NewHealthHandler(stats func() lifecycle.RetirerStats) *HealthHandler {
	return &HealthHandler{Stats: stats}
}

// GET /api/v1/health
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	body := fiber.Map{"status": "ok"}
	if h.Stats != nil {
		body["retirement"] = h.Stats()
	}
	return c.JSON(body)
}

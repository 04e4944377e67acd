/**
 * @description
 * User API Handlers.
 * Handles profile synchronization and retrieval.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"context"
	"errors"

	"github.com/farm2consumer/backend/internal/api/middleware"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/models"
	"github.com/farm2consumer/backend/internal/services"
	"github.com/farm2consumer/backend/internal/session"
	"github.com/gofiber/fiber/v2"
)

// ProfileStore stores user profiles
type ProfileStore interface {
	Sync(ctx context.Context, sess session.Session, update services.ProfileUpdate) (models.User, error)
	Get(ctx context.Context, userID string) (models.User, error)
}

type UserHandler struct {
	Profiles ProfileStore
}

func NewUserHandler(profiles ProfileStore) *UserHandler {
	return &UserHandler{Profiles: profiles}
}

// SyncUser ensures the caller's profile exists and is current
// POST /api/v1/user/sync
func (h *UserHandler) SyncUser(c *fiber.Ctx) error {
	var req services.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		logger.Error("SyncUser: Failed to parse request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.Profiles.Sync(c.UserContext(), middleware.GetSession(c), req)
	if errors.Is(err, services.ErrUnauthenticated) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sync user"})
	}

	return c.Status(fiber.StatusOK).JSON(user)
}

// GetMe returns the current authenticated user
// GET /api/v1/user/me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)

	user, err := h.Profiles.Get(c.UserContext(), sess.UserID)
	if errors.Is(err, services.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	return c.Status(fiber.StatusOK).JSON(user)
}

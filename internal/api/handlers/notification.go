/**
 * @description
 * Notification API Handlers.
 * The signed-in user's inbox: retirement and low-stock notices.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - github.com/google/uuid
 * - backend/internal/services
 */

package handlers

import (
	"context"
	"errors"

	"github.com/farm2consumer/backend/internal/api/middleware"
	"github.com/farm2consumer/backend/internal/models"
	"github.com/farm2consumer/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// NotificationStore is the part of the notification service the inbox needs
type NotificationStore interface {
	GetNotifications(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID string, notificationID uuid.UUID) error
}

type NotificationHandler struct {
	Service NotificationStore
}

func NewNotificationHandler(service NotificationStore) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// GetNotifications returns the caller's notifications, newest first
// GET /api/v1/notifications
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	sess := middleware.GetSession(c)
	notifications, err := h.Service.GetNotifications(c.UserContext(), sess.UserID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch notifications"})
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}

// GetUnreadCount returns how many notifications are unread
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	count, err := h.Service.GetUnreadCount(c.UserContext(), sess.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count notifications"})
	}
	return c.JSON(fiber.Map{"unread": count})
}

// MarkAsRead marks one of the caller's notifications as read
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification ID"})
	}

	sess := middleware.GetSession(c)
	err = h.Service.MarkAsRead(c.UserContext(), sess.UserID, id)
	if errors.Is(err, services.ErrNotificationNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notification"})
	}

	return c.JSON(fiber.Map{"success": true})
}

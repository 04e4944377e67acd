/**
 * @description
 * Notification Service for farmer and consumer notices.
 * Creates notices for retired listings and low stock, and serves the dashboards' inbox.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 */

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LowStockWindow is the minimum gap between two low-stock notices for one listing
const LowStockWindow = 24 * time.Hour

// NotificationService handles notification operations
type NotificationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		db:  db,
		now: time.Now,
	}
}

// Create stores a notice addressed to its owner
func (s *NotificationService) Create(ctx context.Context, notice lifecycle.Notice) error {
	n := newNotification(notice, s.now())

	result := s.db.WithContext(ctx).Create(&n)
	if result.Error != nil {
		logger.Error("NotificationService: Failed to create notification for %s: %v", notice.OwnerID, result.Error)
		return result.Error
	}
	return nil
}

func newNotification(notice lifecycle.Notice, now time.Time) models.Notification {
	n := models.Notification{
		ID:        uuid.New(),
		UserID:    notice.OwnerID,
		Type:      notificationType(notice.Severity),
		Title:     notice.Title,
		Message:   notice.Message,
		CreatedAt: now,
	}
	if notice.ListingID != "" {
		id := notice.ListingID
		n.ListingID = &id
	}
	return n
}

func notificationType(sev lifecycle.Severity) models.NotificationType {
	switch sev {
	case lifecycle.SeveritySuccess:
		return models.NotificationTypeSuccess
	case lifecycle.SeverityWarning:
		return models.NotificationTypeWarning
	case lifecycle.SeverityError:
		return models.NotificationTypeError
	default:
		return models.NotificationTypeInfo
	}
}

// GetNotifications returns notifications for a user
func (s *NotificationService) GetNotifications(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	var notifications []models.Notification

	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications)

	if result.Error != nil {
		return nil, result.Error
	}

	return notifications, nil
}

// GetUnreadCount returns the count of unread notifications
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count)

	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// MarkAsRead marks a specific notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, userID string, notificationID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// DeleteOldNotifications deletes notifications older than the specified duration
func (s *NotificationService) DeleteOldNotifications(ctx context.Context, olderThan time.Duration) error {
	cutoff := s.now().Add(-olderThan)

	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Notification{})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		logger.Info("NotificationService: Deleted %d old notifications", result.RowsAffected)
	}

	return nil
}

// NotifyLowStock warns farmers whose listings are nearly sold out.
// Each listing is notified at most once per LowStockWindow.
func (s *NotificationService) NotifyLowStock(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-LowStockWindow)

	var listings []models.Listing
	result := s.db.WithContext(ctx).
		Where("available_quantity > ? AND available_quantity <= ?", 0, models.LowStockThreshold).
		Where("low_stock_notified_at IS NULL OR low_stock_notified_at < ?", cutoff).
		Find(&listings)
	if result.Error != nil {
		return 0, result.Error
	}

	sent := 0
	for _, l := range listings {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			n := newNotification(lowStockNotice(l), now)
			if err := tx.Create(&n).Error; err != nil {
				return err
			}
			return tx.Model(&models.Listing{}).
				Where("id = ?", l.ID).
				Update("low_stock_notified_at", now).Error
		})
		if err != nil {
			logger.Error("NotificationService: low stock notice for listing %s failed: %v", l.ID, err)
			continue
		}
		sent++
	}

	if sent > 0 {
		logger.Info("NotificationService: Sent %d low stock notices", sent)
	}
	return sent, nil
}

func lowStockNotice(l models.Listing) lifecycle.Notice {
	return lifecycle.Notice{
		OwnerID:   l.FarmerID,
		ListingID: l.ID,
		Title:     "Low stock",
		Message: fmt.Sprintf("Low stock alert! You only have %d units of %s remaining. Update your stock if more is available.",
			l.AvailableQuantity, l.CropName),
		Severity: lifecycle.SeverityWarning,
	}
}

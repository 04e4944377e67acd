/**
 * @description
 * Notification and search history models.
 * Maps to the notifications and search_history tables.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType mirrors the severities shown by the dashboards
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// Notification stores user notifications (listing retirement, low stock, ...)
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	UserID    string           `gorm:"size:64;not null;index" json:"user_id"`
	ListingID *string          `gorm:"size:64" json:"listing_id,omitempty"`
	Type      NotificationType `gorm:"size:16;default:'info'" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Message   string           `gorm:"not null" json:"message"`
	Read      bool             `gorm:"default:false" json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

// SearchHistory records consumer search terms used for recommendations
type SearchHistory struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Term      string    `gorm:"size:255;not null" json:"term"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (SearchHistory) TableName() string {
	return "search_history"
}

func (s *SearchHistory) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

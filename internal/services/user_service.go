/**
 * @description
 * User Service.
 * Keeps the local profile of a signed-in farmer or consumer in sync with their token.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 */

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/models"
	"github.com/farm2consumer/backend/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileUpdate is the editable part of a profile
type ProfileUpdate struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// UserService handles user profiles
type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, now: time.Now}
}

// Sync upserts the caller's profile. The role always comes from the session.
func (s *UserService) Sync(ctx context.Context, sess session.Session, update ProfileUpdate) (models.User, error) {
	if sess.IsAnonymous() {
		return models.User{}, ErrUnauthenticated
	}

	now := s.now()
	user := newUser(sess, update, now)

	updates := map[string]interface{}{
		"role":       user.Role,
		"updated_at": now,
	}
	for column, value := range map[string]string{
		"name":    user.Name,
		"email":   user.Email,
		"phone":   user.Phone,
		"address": user.Address,
	} {
		// Empty fields keep what is stored
		if value != "" {
			updates[column] = value
		}
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&user)
	if result.Error != nil {
		logger.Error("UserService: upsert for %s failed: %v", sess.UserID, result.Error)
		return models.User{}, result.Error
	}

	return s.Get(ctx, sess.UserID)
}

// Get returns a stored profile
func (s *UserService) Get(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func newUser(sess session.Session, update ProfileUpdate, now time.Time) models.User {
	return models.User{
		ID:        sess.UserID,
		Name:      strings.TrimSpace(update.Name),
		Email:     strings.ToLower(strings.TrimSpace(update.Email)),
		Phone:     strings.TrimSpace(update.Phone),
		Address:   strings.TrimSpace(update.Address),
		Role:      models.UserRole(sess.Role),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

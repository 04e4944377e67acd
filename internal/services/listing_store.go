/**
 * @description
 * Listing store backed by PostgreSQL and Redis.
 * Implements the lifecycle backend contract so the gate can read listings and
 * retire expired ones directly against the database.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgx/v5/pgconn: SQLSTATE inspection
 * - backend/internal/lifecycle
 */

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/models"
	"github.com/farm2consumer/backend/internal/session"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE raised when a listing is still referenced by order rows.
const pgForeignKeyViolation = "23503"

var _ lifecycle.Backend = (*ListingStore)(nil)

// ListingStore reads and retires listings in Postgres
type ListingStore struct {
	DB              *gorm.DB
	Notifications   *NotificationService
	Recommendations *RecommendationService
}

// NewListingStore creates a new ListingStore
func NewListingStore(db *gorm.DB, notifications *NotificationService, recommendations *RecommendationService) *ListingStore {
	return &ListingStore{
		DB:              db,
		Notifications:   notifications,
		Recommendations: recommendations,
	}
}

// FetchListings returns every listing that still has stock, newest first.
func (s *ListingStore) FetchListings(ctx context.Context, sess session.Session) ([]lifecycle.Listing, error) {
	var rows []models.Listing
	result := s.DB.WithContext(ctx).
		Where("available_quantity > ?", 0).
		Order("created_at DESC").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query listings: %w", result.Error)
	}
	return toSnapshots(rows), nil
}

// FetchRecommendedListings returns the caller's personalized listings.
func (s *ListingStore) FetchRecommendedListings(ctx context.Context, sess session.Session) ([]lifecycle.Listing, error) {
	if sess.IsAnonymous() {
		return nil, ErrUnauthenticated
	}
	return s.Recommendations.ForUser(ctx, sess.UserID)
}

// DeleteListing removes a listing. Listings still referenced by orders cannot be
// deleted, so they are retired in place by zeroing their stock, which hides them
// from every read.
func (s *ListingStore) DeleteListing(ctx context.Context, listingID string) error {
	result := s.DB.WithContext(ctx).
		Where("id = ?", listingID).
		Delete(&models.Listing{})

	if result.Error != nil {
		var pgErr *pgconn.PgError
		if errors.As(result.Error, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			logger.Info("ListingStore: listing %s is referenced by orders, retiring in place", listingID)
			return s.retireInPlace(ctx, listingID)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}

func (s *ListingStore) retireInPlace(ctx context.Context, listingID string) error {
	result := s.DB.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND available_quantity > ?", listingID, 0).
		Update("available_quantity", 0)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}

// CreateNotification stores a notice for the listing owner.
func (s *ListingStore) CreateNotification(ctx context.Context, notice lifecycle.Notice) error {
	return s.Notifications.Create(ctx, notice)
}

// RemoveFromRecommendationCache drops the listing from every cached recommendation set.
func (s *ListingStore) RemoveFromRecommendationCache(ctx context.Context, listingID string) error {
	return s.Recommendations.RemoveListing(ctx, listingID)
}

func toSnapshot(row models.Listing) lifecycle.Listing {
	return lifecycle.Listing{
		ID:                row.ID,
		OwnerID:           row.FarmerID,
		CropName:          row.CropName,
		CropCategory:      row.CropCategory,
		BasePrice:         row.PricePerUnit,
		AvailableQuantity: row.AvailableQuantity,
		CreatedAt:         row.CreatedAt,
	}
}

func toSnapshots(rows []models.Listing) []lifecycle.Listing {
	out := make([]lifecycle.Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSnapshot(row))
	}
	return out
}

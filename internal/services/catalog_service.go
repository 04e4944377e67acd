/**
 * @description
 * Catalog Service.
 * The read paths that show listings: the public catalog, personalized
 * recommendations and the farmer dashboard. All of them go through the same
 * lifecycle gate so an expired listing never shows up on any surface.
 *
 * @dependencies
 * - backend/internal/lifecycle
 * - backend/internal/session
 */

package services

import (
	"context"

	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/session"
)

// CatalogService serves gated listing reads
type CatalogService struct {
	backend lifecycle.Backend
	gate    *lifecycle.Gate
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(backend lifecycle.Backend, gate *lifecycle.Gate) *CatalogService {
	return &CatalogService{
		backend: backend,
		gate:    gate,
	}
}

// ListListings returns every live listing. Backend failures yield an empty list.
func (s *CatalogService) ListListings(ctx context.Context, sess session.Session) []lifecycle.Listing {
	return s.gate.Read(ctx, "catalog", func(ctx context.Context) ([]lifecycle.Listing, error) {
		return s.backend.FetchListings(ctx, sess)
	})
}

// ListRecommended returns the caller's live recommended listings.
func (s *CatalogService) ListRecommended(ctx context.Context, sess session.Session) []lifecycle.Listing {
	return s.gate.Read(ctx, "recommendations", func(ctx context.Context) ([]lifecycle.Listing, error) {
		return s.backend.FetchRecommendedListings(ctx, sess)
	})
}

// ListFarmerListings returns the live listings owned by farmerID.
func (s *CatalogService) ListFarmerListings(ctx context.Context, sess session.Session, farmerID string) ([]lifecycle.Listing, error) {
	if !sess.CanActFor(farmerID) {
		return nil, ErrForbidden
	}

	all := s.ListListings(ctx, sess)
	own := make([]lifecycle.Listing, 0, len(all))
	for _, l := range all {
		if l.OwnerID == farmerID {
			own = append(own, l)
		}
	}
	return own, nil
}

// QuoteListing returns one live listing with its current quote.
func (s *CatalogService) QuoteListing(ctx context.Context, sess session.Session, listingID string) (lifecycle.Listing, error) {
	for _, l := range s.ListListings(ctx, sess) {
		if l.ID == listingID {
			return l, nil
		}
	}
	return lifecycle.Listing{}, ErrListingNotFound
}

// Sweep runs one catalog read so expired listings get retired even when nobody is
// browsing. It returns the number of live listings.
func (s *CatalogService) Sweep(ctx context.Context) int {
	live := s.ListListings(ctx, session.Anonymous)
	logger.Info("CatalogService: sweep finished, %d live listings", len(live))
	return len(live)
}

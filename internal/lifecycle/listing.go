/**
 * @description
 * Listing snapshots and the marketplace backend contract used by the lifecycle gate.
 *
 * @dependencies
 * - github.com/shopspring/decimal
 * - backend/internal/pricing
 * - backend/internal/session
 */

package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/farm2consumer/backend/internal/session"
	"github.com/shopspring/decimal"
)

// Listing is a read-only snapshot of a farmer's offer as returned by the backend.
type Listing struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"owner_id"`
	CropName          string          `json:"crop_name"`
	CropCategory      string          `json:"crop_category"`
	BasePrice         decimal.Decimal `json:"base_price_per_unit"`
	AvailableQuantity int             `json:"available_quantity"`
	// CreatedAt is zero when the backend sent no usable timestamp.
	CreatedAt time.Time `json:"created_at"`

	// Quote is filled in by the gate at read time.
	Quote pricing.Quote `json:"quote"`
}

// PricingInput extracts what the calculator needs.
func (l Listing) PricingInput() pricing.Input {
	return pricing.Input{BasePrice: l.BasePrice, CreatedAt: l.CreatedAt}
}

// Severity of an owner notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is a notification addressed to a listing owner.
type Notice struct {
	OwnerID   string
	ListingID string
	Title     string
	Message   string
	Severity  Severity
}

// RemovalTitle is the title of the notice sent when a listing is retired.
const RemovalTitle = "Listing automatically removed"

// RemovalMessage builds the body of the retirement notice.
func RemovalMessage(cropName string, hours int64) string {
	subject := "listing"
	if name := strings.TrimSpace(cropName); name != "" {
		subject = name + " listing"
	}
	return fmt.Sprintf("Your %s was automatically removed because its price reached zero after %d hours. Please add a new listing if you still have stock available.", subject, hours)
}

// Backend is the marketplace store that owns listings, notifications and the
// recommendation cache. Every mutation this package performs goes through it.
type Backend interface {
	FetchListings(ctx context.Context, sess session.Session) ([]Listing, error)
	FetchRecommendedListings(ctx context.Context, sess session.Session) ([]Listing, error)
	// DeleteListing fails when the listing no longer exists.
	DeleteListing(ctx context.Context, listingID string) error
	CreateNotification(ctx context.Context, notice Notice) error
	RemoveFromRecommendationCache(ctx context.Context, listingID string) error
}

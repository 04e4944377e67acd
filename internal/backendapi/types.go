package backendapi

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/pricing"
)

// Product is a listing as the marketplace API serializes it. Numeric fields arrive
// as numbers or strings depending on the endpoint, so they are decoded loosely.
type Product struct {
	ID                json.RawMessage `json:"id"`
	FarmerID          json.RawMessage `json:"farmerId"`
	FarmerName        string          `json:"farmerName"`
	CropCategory      string          `json:"cropCategory"`
	CropName          string          `json:"cropName"`
	PricePerKg        any             `json:"pricePerKg"`
	AvailableQuantity any             `json:"availableQuantity"`
	CreatedAt         string          `json:"createdAt"`
}

type productsResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Products []Product `json:"products"`
}

type recommendationsResponse struct {
	Success         bool      `json:"success"`
	Message         string    `json:"message"`
	Recommendations []Product `json:"recommendations"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type notificationRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

// Snapshot converts p into the lifecycle view. Malformed prices become zero and
// malformed timestamps become the zero time.
func (p Product) Snapshot() lifecycle.Listing {
	return lifecycle.Listing{
		ID:                rawID(p.ID),
		OwnerID:           rawID(p.FarmerID),
		CropName:          p.CropName,
		CropCategory:      p.CropCategory,
		BasePrice:         pricing.ParsePrice(p.PricePerKg),
		AvailableQuantity: int(pricing.ParsePrice(p.AvailableQuantity).IntPart()),
		CreatedAt:         pricing.ParseTimestamp(p.CreatedAt),
	}
}

func snapshots(products []Product) []lifecycle.Listing {
	out := make([]lifecycle.Listing, 0, len(products))
	for _, p := range products {
		out = append(out, p.Snapshot())
	}
	return out
}

// rawID accepts both "abc" and 123.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		return unquoted
	}
	return s
}

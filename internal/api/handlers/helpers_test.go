package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farm2consumer/backend/internal/api/middleware"
	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/farm2consumer/backend/internal/services"
	"github.com/farm2consumer/backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	handlerNow = time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	testSecret = []byte("handler-secret")
)

type stubBackend struct {
	listings    []lifecycle.Listing
	recommended []lifecycle.Listing
	err         error
}

func (b *stubBackend) FetchListings(ctx context.Context, sess session.Session) ([]lifecycle.Listing, error) {
	return b.listings, b.err
}

func (b *stubBackend) FetchRecommendedListings(ctx context.Context, sess session.Session) ([]lifecycle.Listing, error) {
	return b.recommended, b.err
}

func (b *stubBackend) DeleteListing(ctx context.Context, listingID string) error { return nil }

func (b *stubBackend) CreateNotification(ctx context.Context, notice lifecycle.Notice) error {
	return nil
}

func (b *stubBackend) RemoveFromRecommendationCache(ctx context.Context, listingID string) error {
	return nil
}

func testCalc() *pricing.Calculator {
	return pricing.NewCalculator(pricing.Standard, func() time.Time { return handlerNow })
}

func testCatalog(b *stubBackend) (*services.CatalogService, *lifecycle.Collector) {
	collector := &lifecycle.Collector{}
	return services.NewCatalogService(b, lifecycle.NewGate(testCalc(), collector)), collector
}

func testListing(id, owner string, price string, age time.Duration) lifecycle.Listing {
	return lifecycle.Listing{
		ID:                id,
		OwnerID:           owner,
		CropName:          "Spinach",
		CropCategory:      "greens",
		BasePrice:         decimal.RequireFromString(price),
		AvailableQuantity: 5,
		CreatedAt:         handlerNow.Add(-age),
	}
}

func bearer(t *testing.T, userID string, role session.Role) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + signed
}

func testAuth() *middleware.Authenticator {
	return middleware.NewSecretAuthenticator(testSecret)
}

func call(t *testing.T, app *fiber.App, method, path, auth string, body io.Reader) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

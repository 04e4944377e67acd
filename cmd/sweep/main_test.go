package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/farm2consumer/backend/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sweepNow = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

type memoryBackend struct {
	mu       sync.Mutex
	listings []lifecycle.Listing
	fetchErr error
	failFor  map[string]bool

	deleted  []string
	notified []string
	uncached []string
}

func (m *memoryBackend) FetchListings(ctx context.Context, sess session.Session) ([]lifecycle.Listing, error) {
	return m.listings, m.fetchErr
}

func (m *memoryBackend) FetchRecommendedListings(ctx context.Context, sess session.Session) ([]lifecycle.Listing, error) {
	return nil, nil
}

func (m *memoryBackend) DeleteListing(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[id] {
		return errors.New("delete refused")
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryBackend) CreateNotification(ctx context.Context, n lifecycle.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, n.OwnerID)
	return nil
}

func (m *memoryBackend) RemoveFromRecommendationCache(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uncached = append(m.uncached, id)
	return nil
}

func fixture(id string, price int64, age time.Duration) lifecycle.Listing {
	return lifecycle.Listing{
		ID:        id,
		OwnerID:   "owner-" + id,
		CropName:  "Beans",
		BasePrice: decimal.NewFromInt(price),
		CreatedAt: sweepNow.Add(-age),
	}
}

func sweepCalc() *pricing.Calculator {
	return pricing.NewCalculator(pricing.Standard, func() time.Time { return sweepNow })
}

func TestRunSweepRetiresExpiredListings(t *testing.T) {
	backend := &memoryBackend{
		listings: []lifecycle.Listing{
			fixture("live", 100, time.Hour),
			fixture("zero", 0, 0),
			fixture("decayed", 5, 300*time.Hour),
			fixture("broken", 0, time.Hour),
		},
		failFor: map[string]bool{"broken": true},
	}

	report, err := runSweep(context.Background(), backend, sweepCalc(), sweepOptions{Concurrency: 2, CallTimeout: time.Second})
	require.NoError(t, err)

	assert.Equal(t, sweepReport{Live: 1, Expired: 3, Retired: 2, Failed: 1}, report)
	assert.ElementsMatch(t, []string{"zero", "decayed"}, backend.deleted)
	assert.ElementsMatch(t, []string{"owner-zero", "owner-decayed", "owner-broken"}, backend.notified)
	assert.ElementsMatch(t, []string{"zero", "decayed", "broken"}, backend.uncached)
}

func TestRunSweepDryRunHasNoSideEffects(t *testing.T) {
	backend := &memoryBackend{listings: []lifecycle.Listing{fixture("zero", 0, 0)}}

	report, err := runSweep(context.Background(), backend, sweepCalc(), sweepOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Expired)
	assert.Zero(t, report.Retired)
	assert.Empty(t, backend.deleted)
	assert.Empty(t, backend.notified)
}

func TestRunSweepReportsCatalogFailure(t *testing.T) {
	backend := &memoryBackend{fetchErr: errors.New("unreachable")}

	_, err := runSweep(context.Background(), backend, sweepCalc(), sweepOptions{})
	require.Error(t, err)
}

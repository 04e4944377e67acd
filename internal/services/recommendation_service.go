/**
 * @description
 * Recommendation Service.
 * Ranks live listings per consumer and caches the ranking in Redis sorted sets.
 * A reverse index per listing lets a retired listing be removed from every cached set.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/redis/go-redis/v9
 * - backend/internal/models
 * - backend/internal/pricing: expired listings never enter a ranking
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/models"
	"github.com/farm2consumer/backend/internal/pricing"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	CacheKeyRecommendationsPrefix = "recommendations:user:"
	CacheKeyRecommendedByPrefix   = "recommendations:listing:"
	RecommendationTTL             = 10 * time.Minute

	recommendationLimit = 12
	searchTermWindow    = 10
)

// RecommendationService ranks and caches personalized listings
type RecommendationService struct {
	DB    *gorm.DB
	Redis *redis.Client
	// Pricing drops listings whose price has decayed to zero. Nil keeps them all.
	Pricing *pricing.Calculator
	now     func() time.Time
}

// NewRecommendationService creates a new RecommendationService
func NewRecommendationService(db *gorm.DB, redis *redis.Client, calc *pricing.Calculator) *RecommendationService {
	return &RecommendationService{
		DB:      db,
		Redis:   redis,
		Pricing: calc,
		now:     time.Now,
	}
}

// ScoredListing is a listing ID with its recommendation score
type ScoredListing struct {
	ListingID string
	Score     float64
}

// ForUser returns the user's recommended listings, best first. The ranking comes
// from cache when present and is recomputed otherwise.
func (s *RecommendationService) ForUser(ctx context.Context, userID string) ([]lifecycle.Listing, error) {
	ids, err := s.cachedRanking(ctx, userID)
	if err != nil {
		logger.Error("RecommendationService: cache read for %s failed: %v", userID, err)
	}

	if len(ids) == 0 {
		ranking, err := s.Refresh(ctx, userID)
		if err != nil {
			return nil, err
		}
		ids = make([]string, 0, len(ranking))
		for _, r := range ranking {
			ids = append(ids, r.ListingID)
		}
	}

	if len(ids) == 0 {
		return []lifecycle.Listing{}, nil
	}

	var rows []models.Listing
	if err := s.DB.WithContext(ctx).
		Where("id IN ? AND available_quantity > ?", ids, 0).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load recommended listings: %w", err)
	}

	byID := make(map[string]models.Listing, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]lifecycle.Listing, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, toSnapshot(row))
		}
	}
	return out, nil
}

// Refresh recomputes and caches the user's ranking
func (s *RecommendationService) Refresh(ctx context.Context, userID string) ([]ScoredListing, error) {
	var terms []string
	if err := s.DB.WithContext(ctx).
		Model(&models.SearchHistory{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(searchTermWindow).
		Pluck("term", &terms).Error; err != nil {
		return nil, fmt.Errorf("failed to load search history: %w", err)
	}

	var listings []models.Listing
	if err := s.DB.WithContext(ctx).
		Where("available_quantity > ?", 0).
		Order("created_at DESC").
		Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}

	now := s.now()
	ranking := RankListings(liveListings(s.Pricing, listings, now), terms, now, recommendationLimit)

	if err := s.storeRanking(ctx, userID, ranking); err != nil {
		// Serving an uncached ranking is fine
		logger.Error("RecommendationService: failed to cache ranking for %s: %v", userID, err)
	}
	return ranking, nil
}

// RecordSearch stores a search term and invalidates the user's cached ranking
func (s *RecommendationService) RecordSearch(ctx context.Context, userID, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	entry := models.SearchHistory{UserID: userID, Term: term, CreatedAt: s.now()}
	if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return err
	}

	if err := s.Redis.Del(ctx, recommendationKey(userID)).Err(); err != nil {
		logger.Error("RecommendationService: failed to invalidate ranking for %s: %v", userID, err)
	}
	return nil
}

// RemoveListing drops a listing from every cached ranking that contains it
func (s *RecommendationService) RemoveListing(ctx context.Context, listingID string) error {
	indexKey := recommendedByKey(listingID)

	userIDs, err := s.Redis.SMembers(ctx, indexKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.Redis.TxPipeline()
	for _, userID := range userIDs {
		pipe.ZRem(ctx, recommendationKey(userID), listingID)
	}
	pipe.Del(ctx, indexKey)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RecommendationService) cachedRanking(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.Redis.ZRevRange(ctx, recommendationKey(userID), 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return ids, err
}

func (s *RecommendationService) storeRanking(ctx context.Context, userID string, ranking []ScoredListing) error {
	key := recommendationKey(userID)

	pipe := s.Redis.TxPipeline()
	pipe.Del(ctx, key)
	if len(ranking) > 0 {
		members := make([]redis.Z, 0, len(ranking))
		for _, r := range ranking {
			members = append(members, redis.Z{Score: r.Score, Member: r.ListingID})
			indexKey := recommendedByKey(r.ListingID)
			pipe.SAdd(ctx, indexKey, userID)
			pipe.Expire(ctx, indexKey, RecommendationTTL)
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, RecommendationTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// liveListings keeps the listings still priced above zero at now.
func liveListings(calc *pricing.Calculator, listings []models.Listing, now time.Time) []models.Listing {
	if calc == nil {
		return listings
	}
	live := listings[:0:0]
	for _, l := range listings {
		in := pricing.Input{BasePrice: l.PricePerUnit, CreatedAt: l.CreatedAt}
		if calc.QuoteAt(in, now).Live() {
			live = append(live, l)
		}
	}
	return live
}

// RankListings scores listings for a consumer and returns the best limit of them.
// Ties keep the input order.
func RankListings(listings []models.Listing, terms []string, now time.Time, limit int) []ScoredListing {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}

	scored := make([]ScoredListing, 0, len(listings))
	for _, l := range listings {
		scored = append(scored, ScoredListing{ListingID: l.ID, Score: scoreListing(l, lowered, now)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func scoreListing(l models.Listing, terms []string, now time.Time) float64 {
	score := 1.0

	crop := strings.ToLower(l.CropName)
	category := strings.ToLower(l.CropCategory)
	for _, term := range terms {
		if strings.Contains(crop, term) || strings.Contains(category, term) {
			score *= 2.0
			break
		}
	}

	score *= seasonalBoost(l, now.Month())

	daysOld := math.Floor(now.Sub(l.CreatedAt).Hours() / 24)
	if daysOld < 0 {
		daysOld = 0
	}
	score *= math.Max(0.8, 1.0-daysOld/365.0)

	score *= math.Min(1.2, 1.0+float64(l.AvailableQuantity)/100.0)

	return score
}

func seasonalBoost(l models.Listing, month time.Month) float64 {
	if !l.IsSeasonal {
		return 1.0
	}
	if l.InSeason(month) {
		return 1.5
	}
	return 0.3
}

func recommendationKey(userID string) string {
	return CacheKeyRecommendationsPrefix + userID
}

func recommendedByKey(listingID string) string {
	return CacheKeyRecommendedByPrefix + listingID
}

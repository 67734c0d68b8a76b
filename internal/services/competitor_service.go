package services

import (
	"context"
	"fmt"

	"tablefare/internal/config"
	"tablefare/internal/models"
	"tablefare/internal/repositories/interfaces"
	"tablefare/internal/utils"
	"tablefare/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompetitorService positions a restaurant against nearby same-cuisine
// competitors. With zero competitors the analysis is a neutral no-op signal,
// never an error.
type CompetitorService interface {
	Analyze(ctx context.Context, restaurantID primitive.ObjectID) (*models.CompetitorPricing, error)
}

type competitorService struct {
	restaurantRepo interfaces.RestaurantRepository
	cache          CacheService
	config         *config.PricingConfig
	logger         *logger.Logger
	clock          utils.Clock
}

func NewCompetitorService(
	restaurantRepo interfaces.RestaurantRepository,
	cache CacheService,
	cfg *config.PricingConfig,
	log *logger.Logger,
	clock utils.Clock,
) CompetitorService {
	return &competitorService{
		restaurantRepo: restaurantRepo,
		cache:          cache,
		config:         cfg,
		logger:         log,
		clock:          clock,
	}
}

func (s *competitorService) Analyze(ctx context.Context, restaurantID primitive.ObjectID) (*models.CompetitorPricing, error) {
	cacheKey := utils.CacheCompetitorsPrefix + restaurantID.Hex()

	var cached models.CompetitorPricing
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	restaurant, err := s.restaurantRepo.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant for competitor analysis: %w", err)
	}

	nearby, err := s.restaurantRepo.GetNearbyByCuisine(
		ctx,
		restaurant.Location,
		restaurant.Cuisine,
		s.config.CompetitorRadiusKM,
		restaurant.ID,
		s.config.MaxCompetitors,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query competitors: %w", err)
	}

	analysis := s.buildAnalysis(restaurant, nearby)

	if err := s.cache.Set(ctx, cacheKey, analysis, s.config.CompetitorCacheTTL); err != nil {
		s.logger.WithError(err).WithRestaurantID(restaurantID).Warn("Failed to cache competitor analysis")
	}

	return analysis, nil
}

func (s *competitorService) buildAnalysis(restaurant *models.Restaurant, nearby []*models.Restaurant) *models.CompetitorPricing {
	analysis := &models.CompetitorPricing{
		RestaurantID: restaurant.ID,
		AnalyzedAt:   s.clock.Now(),
	}

	if len(nearby) == 0 {
		// Neutral signal: no market to compare against.
		analysis.MarketAverage = restaurant.AveragePrice
		analysis.MarketPosition = models.MarketPositionAt
		analysis.RecommendedAdjustment = 0
		return analysis
	}

	var priceSum float64
	for _, competitor := range nearby {
		distance := utils.CalculateDistance(
			restaurant.Location.Latitude(), restaurant.Location.Longitude(),
			competitor.Location.Latitude(), competitor.Location.Longitude(),
		)

		analysis.Competitors = append(analysis.Competitors, models.CompetitorInfo{
			RestaurantID: competitor.ID,
			Name:         competitor.Name,
			DistanceKM:   distance,
			Cuisine:      competitor.Cuisine,
			PricePoint:   competitor.AveragePrice,
		})

		priceSum += competitor.AveragePrice
	}

	analysis.MarketAverage = priceSum / float64(len(nearby))
	analysis.MarketPosition = marketPosition(restaurant.AveragePrice, analysis.MarketAverage)

	if restaurant.AveragePrice > 0 {
		analysis.RecommendedAdjustment = (analysis.MarketAverage - restaurant.AveragePrice) / restaurant.AveragePrice
	}

	return analysis
}

func marketPosition(ownPrice, marketAverage float64) models.MarketPosition {
	switch {
	case ownPrice < marketAverage*utils.MarketBelowThreshold:
		return models.MarketPositionBelow
	case ownPrice > marketAverage*utils.MarketAboveThreshold:
		return models.MarketPositionAbove
	default:
		return models.MarketPositionAt
	}
}

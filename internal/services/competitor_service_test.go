package services

import (
	"context"
	"testing"
	"time"

	"tablefare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func bistro(name string, avgPrice float64) *models.Restaurant {
	return &models.Restaurant{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Cuisine:      "french",
		AveragePrice: avgPrice,
		Location:     models.NewGeoPoint(48.8566, 2.3522),
		IsActive:     true,
	}
}

func newCompetitorServiceForTest(own *models.Restaurant, nearby ...*models.Restaurant) (CompetitorService, *fakeCache) {
	repo := newFakeRestaurantRepo(own)
	repo.nearby = nearby
	cache := newFakeCache()
	clock := &testClock{}
	svc := NewCompetitorService(repo, cache, testPricingConfig(), testLogger(), clock)
	return svc, cache
}

type testClock struct{}

func (testClock) Now() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

func TestAnalyze_ZeroCompetitorsIsNeutral(t *testing.T) {
	own := bistro("Chez Nous", 60)
	svc, _ := newCompetitorServiceForTest(own)

	analysis, err := svc.Analyze(context.Background(), own.ID)
	require.NoError(t, err)

	assert.Equal(t, models.MarketPositionAt, analysis.MarketPosition)
	assert.Equal(t, 60.0, analysis.MarketAverage)
	assert.Zero(t, analysis.RecommendedAdjustment)
	assert.Empty(t, analysis.Competitors)
}

func TestAnalyze_MarketPositionThresholds(t *testing.T) {
	tests := []struct {
		name      string
		ownPrice  float64
		avgNearby float64
		want      models.MarketPosition
	}{
		{"well_below_market", 40, 60, models.MarketPositionBelow},
		{"at_market", 58, 60, models.MarketPositionAt},
		{"just_inside_lower_band", 54, 60, models.MarketPositionAt},
		{"well_above_market", 80, 60, models.MarketPositionAbove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			own := bistro("Chez Nous", tt.ownPrice)
			svc, _ := newCompetitorServiceForTest(own,
				bistro("Rival A", tt.avgNearby),
				bistro("Rival B", tt.avgNearby),
			)

			analysis, err := svc.Analyze(context.Background(), own.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, analysis.MarketPosition)
			assert.Equal(t, tt.avgNearby, analysis.MarketAverage)
		})
	}
}

func TestAnalyze_RecommendedAdjustment(t *testing.T) {
	own := bistro("Chez Nous", 50)
	svc, _ := newCompetitorServiceForTest(own, bistro("Rival A", 70), bistro("Rival B", 50))

	analysis, err := svc.Analyze(context.Background(), own.ID)
	require.NoError(t, err)

	// Market average 60, own 50: suggests pricing up by 20%.
	assert.InDelta(t, 0.2, analysis.RecommendedAdjustment, 0.001)
	assert.Len(t, analysis.Competitors, 2)
}

func TestAnalyze_ServedFromCacheOnRepeat(t *testing.T) {
	own := bistro("Chez Nous", 50)
	repo := newFakeRestaurantRepo(own)
	repo.nearby = []*models.Restaurant{bistro("Rival", 70)}
	cache := newFakeCache()
	svc := NewCompetitorService(repo, cache, testPricingConfig(), testLogger(), testClock{})

	first, err := svc.Analyze(context.Background(), own.ID)
	require.NoError(t, err)

	// Market shifts; the cached analysis keeps serving until its TTL passes.
	repo.nearby = []*models.Restaurant{bistro("Rival", 200)}

	second, err := svc.Analyze(context.Background(), own.ID)
	require.NoError(t, err)
	assert.Equal(t, first.MarketAverage, second.MarketAverage)
}

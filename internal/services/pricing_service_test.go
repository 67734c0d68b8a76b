package services

import (
	"context"
	"testing"
	"time"

	"tablefare/internal/models"
	"tablefare/internal/signals"
	"tablefare/internal/utils"
	"tablefare/pkg/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pricingFixture struct {
	restaurantID primitive.ObjectID
	restaurant   *models.Restaurant
	restaurants  *fakeRestaurantRepo
	reservations *fakeReservationRepo
	tables       *fakeTableRepo
	rules        *fakeRuleRepo
	cache        *fakeCache
	clock        *utils.FixedClock
	forecaster   *ml.DemandForecaster
	service      PricingService
}

// newPricingFixture wires a pricing service over in-memory collaborators:
// ten tables, nine overlapping reservations (occupancy 0.9), 24 reservations
// created in the last day (velocity 1.0/h).
func newPricingFixture(t *testing.T, rules ...*models.PricingRule) *pricingFixture {
	t.Helper()

	restaurantID := primitive.NewObjectID()
	restaurant := &models.Restaurant{
		ID:           restaurantID,
		Name:         "Tavola",
		Cuisine:      "italian",
		AveragePrice: 50,
		IsActive:     true,
	}

	f := &pricingFixture{
		restaurantID: restaurantID,
		restaurant:   restaurant,
		restaurants:  newFakeRestaurantRepo(restaurant),
		reservations: &fakeReservationRepo{overlapping: 9, created: 24, avgPartySize: 2.5},
		tables:       &fakeTableRepo{count: 10},
		rules:        &fakeRuleRepo{rules: rules},
		cache:        newFakeCache(),
		clock:        &utils.FixedClock{Instant: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)},
		forecaster:   ml.NewDemandForecaster(false),
	}

	log := testLogger()
	cfg := testPricingConfig()

	metricsService := NewMetricsService(f.reservations, f.tables, f.cache, cfg, log)
	competitorService := NewCompetitorService(f.restaurants, f.cache, cfg, log, f.clock)
	ruleService := NewRuleService(f.rules, f.cache, cfg, log)

	f.service = NewPricingService(
		f.restaurants,
		metricsService,
		competitorService,
		ruleService,
		f.forecaster,
		signals.NeutralWeather{},
		signals.NeutralEvents{},
		f.cache,
		nil,
		cfg,
		log,
		f.clock,
	)

	return f
}

// Saturday evening slot used across tests.
var saturdayDinner = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

func surgeRule(restaurantID primitive.ObjectID) *models.PricingRule {
	cap := 50.0
	return &models.PricingRule{
		ID:           primitive.NewObjectID(),
		RestaurantID: restaurantID,
		Name:         "Peak Hours Surge",
		Category:     models.RuleCategorySurge,
		Priority:     100,
		Conditions: []models.PricingCondition{
			{Type: models.ConditionTypeOccupancy, Operator: models.OperatorGreater, Value: 0.8},
			{Type: models.ConditionTypeDemand, Operator: models.OperatorGreater, Value: 0.7},
		},
		Adjustment: models.PricingAdjustment{Type: models.AdjustmentPercentage, Value: 25, Max: &cap},
		IsActive:   true,
	}
}

func TestCalculatePrice_SaturdayDinnerSurge(t *testing.T) {
	f := newPricingFixture(t)
	require.NoError(t, f.rules.Create(context.Background(), surgeRule(f.restaurantID)))

	point, err := f.service.CalculatePrice(context.Background(), f.restaurantID, saturdayDinner, 2)
	require.NoError(t, err)

	// 50 base, dinner x1.2, weekend x1.15, surge +25%
	assert.Equal(t, 50.0, point.BasePrice)
	assert.InDelta(t, 86.25, point.AdjustedPrice, 0.001)
	assert.Equal(t, []string{"Peak Hours Surge"}, point.AppliedRules)
	assert.Equal(t, 1.0, point.DemandScore)
	assert.Equal(t, utils.DinnerMultiplier, point.Factors.TimeOfDay)
	assert.Equal(t, utils.WeekendMultiplier, point.Factors.DayOfWeek)
	assert.Empty(t, point.Factors.Degraded)
}

func TestCalculatePrice_DefaultBasePriceWhenUnset(t *testing.T) {
	f := newPricingFixture(t)
	f.restaurant.AveragePrice = 0

	weekdayLunchOff := time.Date(2026, 3, 17, 15, 0, 0, 0, time.UTC) // Tuesday 15:00
	point, err := f.service.CalculatePrice(context.Background(), f.restaurantID, weekdayLunchOff, 2)
	require.NoError(t, err)

	assert.Equal(t, 50.0, point.BasePrice)
	assert.Equal(t, 50.0, point.AdjustedPrice)
}

func TestCalculatePrice_CeilingClamp(t *testing.T) {
	f := newPricingFixture(t)

	// Stack a x3 multiplier so the pre-clamp price far exceeds 2x base.
	f.rules.Create(context.Background(), &models.PricingRule{
		ID:           primitive.NewObjectID(),
		RestaurantID: f.restaurantID,
		Name:         "Runaway Surge",
		Category:     models.RuleCategorySurge,
		Priority:     10,
		Conditions: []models.PricingCondition{
			{Type: models.ConditionTypeOccupancy, Operator: models.OperatorGreater, Value: 0},
		},
		Adjustment: models.PricingAdjustment{Type: models.AdjustmentMultiplier, Value: 3},
		IsActive:   true,
	})

	point, err := f.service.CalculatePrice(context.Background(), f.restaurantID, saturdayDinner, 2)
	require.NoError(t, err)

	assert.Equal(t, 100.0, point.AdjustedPrice, "price must clamp at 2x base")
}

func TestCalculatePrice_FloorClamp(t *testing.T) {
	f := newPricingFixture(t)

	f.rules.Create(context.Background(), &models.PricingRule{
		ID:           primitive.NewObjectID(),
		RestaurantID: f.restaurantID,
		Name:         "Deep Discount",
		Category:     models.RuleCategoryDiscount,
		Priority:     10,
		Conditions: []models.PricingCondition{
			{Type: models.ConditionTypeOccupancy, Operator: models.OperatorGreater, Value: 0},
		},
		Adjustment: models.PricingAdjustment{Type: models.AdjustmentPercentage, Value: -90},
		IsActive:   true,
	})

	weekdayAfternoon := time.Date(2026, 3, 17, 15, 0, 0, 0, time.UTC)
	point, err := f.service.CalculatePrice(context.Background(), f.restaurantID, weekdayAfternoon, 2)
	require.NoError(t, err)

	assert.Equal(t, 25.0, point.AdjustedPrice, "price must clamp at 0.5x base")
}

func TestCalculatePrice_CachedQuoteIsStable(t *testing.T) {
	f := newPricingFixture(t)

	first, err := f.service.CalculatePrice(context.Background(), f.restaurantID, saturdayDinner, 2)
	require.NoError(t, err)

	// Underlying demand shifts, but the cached quote must hold for the slot.
	f.reservations.overlapping = 0
	f.reservations.created = 0

	second, err := f.service.CalculatePrice(context.Background(), f.restaurantID, saturdayDinner, 2)
	require.NoError(t, err)

	assert.Equal(t, first.AdjustedPrice, second.AdjustedPrice)
	assert.Equal(t, first.CalculatedAt.Unix(), second.CalculatedAt.Unix())
}

func TestCalculatePrice_PartySizeGetsOwnCacheEntry(t *testing.T) {
	f := newPricingFixture(t)

	solo, err := f.service.CalculatePrice(context.Background(), f.restaurantID, saturdayDinner, 1)
	require.NoError(t, err)

	banquet, err := f.service.CalculatePrice(context.Background(), f.restaurantID, saturdayDinner, 8)
	require.NoError(t, err)

	assert.Less(t, solo.AdjustedPrice, banquet.AdjustedPrice)
}

func TestCalculatePrice_RestaurantNotFound(t *testing.T) {
	f := newPricingFixture(t)

	_, err := f.service.CalculatePrice(context.Background(), primitive.NewObjectID(), saturdayDinner, 2)
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
}

func TestCalculatePrice_RuleOrderIsNotCommutative(t *testing.T) {
	// Fixed +10 then +50% differs from +50% then +10. Priorities decide.
	fixedThenPct := func(fixedPriority, pctPriority int) float64 {
		f := newPricingFixture(t)
		anyMatch := []models.PricingCondition{
			{Type: models.ConditionTypeOccupancy, Operator: models.OperatorGreater, Value: 0},
		}
		f.rules.Create(context.Background(), &models.PricingRule{
			ID: primitive.NewObjectID(), RestaurantID: f.restaurantID,
			Name: "Fixed Bump", Category: models.RuleCategoryDynamic, Priority: fixedPriority,
			Conditions: anyMatch,
			Adjustment: models.PricingAdjustment{Type: models.AdjustmentFixed, Value: 10},
			IsActive:   true,
		})
		f.rules.Create(context.Background(), &models.PricingRule{
			ID: primitive.NewObjectID(), RestaurantID: f.restaurantID,
			Name: "Percent Bump", Category: models.RuleCategoryDynamic, Priority: pctPriority,
			Conditions: anyMatch,
			Adjustment: models.PricingAdjustment{Type: models.AdjustmentPercentage, Value: 50},
			IsActive:   true,
		})

		weekdayAfternoon := time.Date(2026, 3, 17, 15, 0, 0, 0, time.UTC)
		point, err := f.service.CalculatePrice(context.Background(), f.restaurantID, weekdayAfternoon, 2)
		require.NoError(t, err)
		return point.AdjustedPrice
	}

	fixedFirst := fixedThenPct(100, 50) // (50+10)*1.5 = 90
	pctFirst := fixedThenPct(50, 100)   // 50*1.5+10 = 85

	assert.InDelta(t, 90.0, fixedFirst, 0.001)
	assert.InDelta(t, 85.0, pctFirst, 0.001)
	assert.NotEqual(t, fixedFirst, pctFirst)
}

func TestCalculatePrice_DegradedMetricsStillQuotes(t *testing.T) {
	f := newPricingFixture(t)
	f.reservations.countErr = assert.AnError
	f.tables.countErr = assert.AnError

	point, err := f.service.CalculatePrice(context.Background(), f.restaurantID, saturdayDinner, 2)
	require.NoError(t, err)

	// Saturday dinner calendar still applies; demand signals are neutral.
	assert.InDelta(t, 69.0, point.AdjustedPrice, 0.001)
	assert.Empty(t, point.AppliedRules)
}

func TestCalculatePrice_AppendsDecisionLog(t *testing.T) {
	f := newPricingFixture(t)

	_, err := f.service.CalculatePrice(context.Background(), f.restaurantID, saturdayDinner, 2)
	require.NoError(t, err)

	points, err := f.service.DecisionLog(context.Background(), f.restaurantID, 10)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, f.restaurantID, points[0].RestaurantID)
	assert.InDelta(t, 69.0, points[0].AdjustedPrice, 0.001)
}

func TestCalculatePrice_NeutralDemandWithoutModel(t *testing.T) {
	f := newPricingFixture(t)

	point, err := f.service.CalculatePrice(context.Background(), f.restaurantID, saturdayDinner, 2)
	require.NoError(t, err)

	assert.Equal(t, 1.0, point.DemandScore, "no trained model means exactly neutral demand")
}

func TestGetDemandForecast_CoversServiceHours(t *testing.T) {
	f := newPricingFixture(t)

	forecast, err := f.service.GetDemandForecast(context.Background(), f.restaurantID, saturdayDinner)
	require.NoError(t, err)

	require.NotEmpty(t, forecast.Entries)
	assert.Equal(t, utils.LunchStartHour, forecast.Entries[0].Hour)
	for _, entry := range forecast.Entries {
		assert.Equal(t, 1.0, entry.Multiplier)
		assert.NotEmpty(t, entry.Level)
	}
	assert.Equal(t, "none", forecast.ModelVersion)
}

func TestGetCompetitorAnalysis_NoCompetitorsIsNeutral(t *testing.T) {
	f := newPricingFixture(t)

	analysis, err := f.service.GetCompetitorAnalysis(context.Background(), f.restaurantID)
	require.NoError(t, err)

	assert.Equal(t, models.MarketPositionAt, analysis.MarketPosition)
	assert.Equal(t, f.restaurant.AveragePrice, analysis.MarketAverage)
	assert.Zero(t, analysis.RecommendedAdjustment)
	assert.Empty(t, analysis.Competitors)
}

func TestCalculatePrice_EarlyBirdSpecialFromDefaultRules(t *testing.T) {
	f := newPricingFixture(t)
	for _, rule := range DefaultRules(f.restaurantID) {
		require.NoError(t, f.rules.Create(context.Background(), rule))
	}
	f.reservations.overlapping = 2 // 20% occupancy

	earlyEvening := time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC)
	point, err := f.service.CalculatePrice(context.Background(), f.restaurantID, earlyEvening, 2)
	require.NoError(t, err)

	// 50 base, dinner x1.2, weekend x1.15, early bird -15%
	assert.Equal(t, []string{"Early Bird Special"}, point.AppliedRules)
	assert.InDelta(t, 58.65, point.AdjustedPrice, 0.001)
}

func TestCalculatePrice_LastMinuteDealFromDefaultRules(t *testing.T) {
	f := newPricingFixture(t)
	for _, rule := range DefaultRules(f.restaurantID) {
		require.NoError(t, f.rules.Create(context.Background(), rule))
	}
	f.reservations.overlapping = 5 // 50% occupancy

	// 90 minutes of lead time against the fixture clock.
	lastMinute := time.Date(2026, 3, 14, 13, 30, 0, 0, time.UTC)
	point, err := f.service.CalculatePrice(context.Background(), f.restaurantID, lastMinute, 2)
	require.NoError(t, err)

	// 50 base, lunch x0.9, weekend x1.15, last minute -20%
	assert.Equal(t, []string{"Last Minute Deal"}, point.AppliedRules)
	assert.InDelta(t, 41.40, point.AdjustedPrice, 0.001)
	assert.Less(t, point.AdjustedPrice, point.BasePrice)
}

func TestCalculatePrice_SeasonalityFollowsMonth(t *testing.T) {
	f := newPricingFixture(t)

	// All Saturdays at 19:00 so the calendar multipliers are identical.
	holiday := time.Date(2026, 12, 12, 19, 0, 0, 0, time.UTC)
	summer := time.Date(2026, 7, 11, 19, 0, 0, 0, time.UTC)
	winter := time.Date(2026, 2, 7, 19, 0, 0, 0, time.UTC)

	decPoint, err := f.service.CalculatePrice(context.Background(), f.restaurantID, holiday, 2)
	require.NoError(t, err)
	julPoint, err := f.service.CalculatePrice(context.Background(), f.restaurantID, summer, 2)
	require.NoError(t, err)
	febPoint, err := f.service.CalculatePrice(context.Background(), f.restaurantID, winter, 2)
	require.NoError(t, err)

	assert.Equal(t, utils.HolidaySeasonMultiplier, decPoint.Factors.Seasonality)
	assert.Equal(t, utils.SummerSeasonMultiplier, julPoint.Factors.Seasonality)
	assert.Equal(t, utils.LowSeasonMultiplier, febPoint.Factors.Seasonality)

	// Seasonality is explanatory; seasonal pricing itself comes from rules.
	assert.Equal(t, decPoint.AdjustedPrice, julPoint.AdjustedPrice)
	assert.Equal(t, decPoint.AdjustedPrice, febPoint.AdjustedPrice)
}

func TestCalculatePrice_OccupancyFactorTracksRate(t *testing.T) {
	busy := newPricingFixture(t) // 9 of 10 tables booked

	point, err := busy.service.CalculatePrice(context.Background(), busy.restaurantID, saturdayDinner, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.16, point.Factors.Occupancy, 0.001)

	quiet := newPricingFixture(t)
	quiet.reservations.overlapping = 0

	point, err = quiet.service.CalculatePrice(context.Background(), quiet.restaurantID, saturdayDinner, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, point.Factors.Occupancy, 0.001)
}

func TestCalculatePrice_CompetitionFactorIsBounded(t *testing.T) {
	f := newPricingFixture(t)
	f.restaurants.nearby = []*models.Restaurant{
		{ID: primitive.NewObjectID(), Name: "Trattoria Cara", Cuisine: "italian", AveragePrice: 150, IsActive: true},
	}

	point, err := f.service.CalculatePrice(context.Background(), f.restaurantID, saturdayDinner, 2)
	require.NoError(t, err)

	// The market reads 3x our price; the recorded factor stays inside the band.
	assert.Equal(t, utils.MaxFactorBound, point.Factors.Competition)
}

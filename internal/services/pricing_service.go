package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"tablefare/internal/config"
	"tablefare/internal/models"
	"tablefare/internal/repositories/interfaces"
	"tablefare/internal/signals"
	"tablefare/internal/utils"
	"tablefare/pkg/logger"
	"tablefare/pkg/ml"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrRestaurantNotFound = errors.New("restaurant not found")

// PriceBroadcaster pushes freshly calculated prices to subscribed clients.
// The websocket hub implements it; a nil broadcaster disables streaming.
type PriceBroadcaster interface {
	BroadcastPrice(point *models.PricePoint)
}

// PricingService is the calculation pipeline: base price, calendar
// multipliers, rule adjustments, demand multiplier, final clamp. Results are
// cached so repeated quotes for the same slot are served without recomputing.
type PricingService interface {
	CalculatePrice(ctx context.Context, restaurantID primitive.ObjectID, targetTime time.Time, partySize int) (*models.PricePoint, error)
	GetDemandForecast(ctx context.Context, restaurantID primitive.ObjectID, date time.Time) (*models.DemandForecast, error)
	GetCompetitorAnalysis(ctx context.Context, restaurantID primitive.ObjectID) (*models.CompetitorPricing, error)
	DecisionLog(ctx context.Context, restaurantID primitive.ObjectID, limit int64) ([]*models.PricePoint, error)
}

type pricingService struct {
	restaurantRepo interfaces.RestaurantRepository
	metricsService MetricsService
	competitorSvc  CompetitorService
	ruleService    RuleService
	forecaster     *ml.DemandForecaster
	weather        signals.WeatherProvider
	events         signals.EventProvider
	cache          CacheService
	broadcaster    PriceBroadcaster
	config         *config.PricingConfig
	logger         *logger.Logger
	clock          utils.Clock
}

func NewPricingService(
	restaurantRepo interfaces.RestaurantRepository,
	metricsService MetricsService,
	competitorSvc CompetitorService,
	ruleService RuleService,
	forecaster *ml.DemandForecaster,
	weather signals.WeatherProvider,
	events signals.EventProvider,
	cache CacheService,
	broadcaster PriceBroadcaster,
	cfg *config.PricingConfig,
	log *logger.Logger,
	clock utils.Clock,
) PricingService {
	if weather == nil {
		weather = signals.NeutralWeather{}
	}
	if events == nil {
		events = signals.NeutralEvents{}
	}

	return &pricingService{
		restaurantRepo: restaurantRepo,
		metricsService: metricsService,
		competitorSvc:  competitorSvc,
		ruleService:    ruleService,
		forecaster:     forecaster,
		weather:        weather,
		events:         events,
		cache:          cache,
		broadcaster:    broadcaster,
		config:         cfg,
		logger:         log,
		clock:          clock,
	}
}

// demandSnapshot is everything CalculatePrice gathers concurrently before the
// sequential pricing steps run.
type demandSnapshot struct {
	metrics      *models.DemandMetrics
	competitors  *models.CompetitorPricing
	temperatureC float64
	factors      models.PricingFactors
}

func (s *pricingService) CalculatePrice(ctx context.Context, restaurantID primitive.ObjectID, targetTime time.Time, partySize int) (*models.PricePoint, error) {
	now := s.clock.Now()
	cacheKey := priceCacheKey(restaurantID, targetTime, partySize)

	var cached models.PricePoint
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	restaurant, err := s.restaurantRepo.GetByID(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("failed to load restaurant: %w", err)
	}

	basePrice := restaurant.AveragePrice
	if basePrice <= 0 {
		basePrice = s.config.DefaultBasePrice
	}

	snapshot := s.gatherSignals(ctx, restaurant, targetTime)
	price, factors := s.applyCalendar(basePrice, targetTime, partySize, snapshot)

	price, appliedRules := s.applyRules(ctx, restaurantID, price, targetTime, now, snapshot, &factors)

	demandScore := s.demandMultiplier(targetTime, snapshot)
	price *= demandScore

	price = clampPrice(price, basePrice, s.config.FloorRatio, s.config.CeilingRatio)
	price = roundPrice(price)

	point := &models.PricePoint{
		RestaurantID:  restaurantID,
		DateTime:      targetTime,
		PartySize:     partySize,
		BasePrice:     basePrice,
		AdjustedPrice: price,
		DemandScore:   demandScore,
		AppliedRules:  appliedRules,
		Factors:       factors,
		CalculatedAt:  now,
	}

	s.persistDecision(ctx, cacheKey, point)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastPrice(point)
	}

	s.logger.LogPricingDecision(restaurantID, basePrice, price, appliedRules)

	return point, nil
}

// gatherSignals collects the demand metrics, competitor analysis, and external
// signals concurrently. A failed or timed-out sub-query degrades to its
// neutral value and is recorded in the factors, never failing the quote.
func (s *pricingService) gatherSignals(ctx context.Context, restaurant *models.Restaurant, targetTime time.Time) *demandSnapshot {
	snapshot := &demandSnapshot{
		temperatureC: 20.0,
		factors:      models.NeutralFactors(),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	degrade := func(signal string, err error) {
		mu.Lock()
		snapshot.factors.Degraded = append(snapshot.factors.Degraded, signal)
		mu.Unlock()
		s.logger.WithError(err).WithRestaurantID(restaurant.ID).WithField("signal", signal).
			Warn("Pricing signal degraded to neutral")
	}

	gather := func(signal string, fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subCtx, cancel := context.WithTimeout(ctx, s.config.SubQueryTimeout)
			defer cancel()
			if err := fn(subCtx); err != nil {
				degrade(signal, err)
			}
		}()
	}

	gather("metrics", func(ctx context.Context) error {
		metrics, err := s.metricsService.Collect(ctx, restaurant.ID, targetTime)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.metrics = metrics
		snapshot.factors.Occupancy = occupancyFactor(metrics.OccupancyRate)
		mu.Unlock()
		return nil
	})

	gather("competitors", func(ctx context.Context) error {
		analysis, err := s.competitorSvc.Analyze(ctx, restaurant.ID)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.competitors = analysis
		snapshot.factors.Competition = boundFactor(1 + analysis.RecommendedAdjustment)
		mu.Unlock()
		return nil
	})

	gather("weather", func(ctx context.Context) error {
		factor, err := s.weather.Factor(ctx, restaurant.Location, targetTime)
		if err != nil {
			return err
		}
		temp, err := s.weather.TemperatureC(ctx, restaurant.Location, targetTime)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.factors.Weather = factor
		snapshot.temperatureC = temp
		mu.Unlock()
		return nil
	})

	gather("events", func(ctx context.Context) error {
		factor, err := s.events.Factor(ctx, restaurant.Location, targetTime)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.factors.Events = factor
		mu.Unlock()
		return nil
	})

	wg.Wait()

	if snapshot.metrics == nil {
		snapshot.metrics = &models.DemandMetrics{
			RestaurantID:       restaurant.ID,
			Timestamp:          targetTime,
			PeakHourMultiplier: 1.0,
		}
	}

	return snapshot
}

// applyCalendar applies the deterministic time-of-day, day-of-week, and party
// size multipliers to the base price and records them as factors. The
// seasonality factor is derived from the month here too; it is recorded for
// explainability but only moves the price through seasonal rules.
func (s *pricingService) applyCalendar(basePrice float64, targetTime time.Time, partySize int, snapshot *demandSnapshot) (float64, models.PricingFactors) {
	factors := snapshot.factors
	factors.Seasonality = utils.SeasonalMultiplier(targetTime)
	price := basePrice

	switch {
	case utils.IsDinnerHour(targetTime):
		factors.TimeOfDay = utils.DinnerMultiplier
	case utils.IsLunchHour(targetTime):
		factors.TimeOfDay = utils.LunchMultiplier
	}
	price *= factors.TimeOfDay

	if utils.IsWeekend(targetTime) {
		factors.DayOfWeek = utils.WeekendMultiplier
	}
	price *= factors.DayOfWeek

	switch {
	case partySize >= utils.LargePartySize:
		price *= utils.LargePartyMultiplier
	case partySize == 1:
		price *= utils.SoloDinerMultiplier
	}

	return price, factors
}

// applyRules walks the applicable rules highest priority first and applies
// every matching adjustment cumulatively to the running price.
func (s *pricingService) applyRules(ctx context.Context, restaurantID primitive.ObjectID, price float64, targetTime, now time.Time, snapshot *demandSnapshot, factors *models.PricingFactors) (float64, []string) {
	appliedRules := []string{}

	rules, err := s.ruleService.ApplicableRules(ctx, restaurantID, now)
	if err != nil {
		s.logger.WithError(err).WithRestaurantID(restaurantID).Warn("Rule lookup failed, pricing without rules")
		factors.Degraded = append(factors.Degraded, "rules")
		return price, appliedRules
	}

	input := &EvaluationInput{
		Metrics:    snapshot.metrics,
		Factors:    factors,
		TargetTime: targetTime,
		Now:        now,
	}

	for _, rule := range rules {
		if !s.ruleService.Evaluate(rule, input) {
			continue
		}
		price = rule.Adjustment.Apply(price)
		appliedRules = append(appliedRules, rule.Name)
	}

	return price, appliedRules
}

func (s *pricingService) demandMultiplier(targetTime time.Time, snapshot *demandSnapshot) float64 {
	if s.forecaster == nil {
		return 1.0
	}

	return s.forecaster.PredictMultiplier(ml.Features{
		Hour:          targetTime.Hour(),
		DayOfWeek:     int(targetTime.Weekday()),
		OccupancyRate: snapshot.metrics.OccupancyRate,
		SearchVolume:  float64(snapshot.metrics.SearchVolume),
		TemperatureC:  snapshot.temperatureC,
		IsHoliday:     utils.IsHoliday(targetTime),
	})
}

// persistDecision writes the quote cache entry and appends the point to the
// bounded per-restaurant decision log. Neither failure blocks the quote.
func (s *pricingService) persistDecision(ctx context.Context, cacheKey string, point *models.PricePoint) {
	if err := s.cache.Set(ctx, cacheKey, point, s.config.PriceCacheTTL); err != nil {
		s.logger.WithError(err).WithRestaurantID(point.RestaurantID).Warn("Failed to cache price point")
	}

	logKey := utils.CachePriceLogPrefix + point.RestaurantID.Hex()
	if err := s.cache.PushBounded(ctx, logKey, point, int64(s.config.DecisionLogLimit)); err != nil {
		s.logger.WithError(err).WithRestaurantID(point.RestaurantID).Warn("Failed to append decision log")
	}
}

// GetDemandForecast predicts the demand multiplier for every service hour of
// the given date using the current metrics snapshot.
func (s *pricingService) GetDemandForecast(ctx context.Context, restaurantID primitive.ObjectID, date time.Time) (*models.DemandForecast, error) {
	restaurant, err := s.restaurantRepo.GetByID(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("failed to load restaurant: %w", err)
	}

	day := utils.StartOfDay(date)
	snapshot := s.gatherSignals(ctx, restaurant, day)

	forecast := &models.DemandForecast{
		RestaurantID: restaurantID,
		Date:         day,
		ModelVersion: "none",
		GeneratedAt:  s.clock.Now(),
	}
	if s.forecaster != nil {
		forecast.ModelVersion = s.forecaster.ModelVersion()
	}

	for hour := utils.LunchStartHour; hour <= utils.DinnerEndHour+1; hour++ {
		slot := day.Add(time.Duration(hour) * time.Hour)
		multiplier := s.demandMultiplier(slot, snapshot)
		forecast.Entries = append(forecast.Entries, models.ForecastEntry{
			Hour:       hour,
			Multiplier: multiplier,
			Level:      ml.CategorizeDemand(multiplier),
		})
	}

	return forecast, nil
}

func (s *pricingService) GetCompetitorAnalysis(ctx context.Context, restaurantID primitive.ObjectID) (*models.CompetitorPricing, error) {
	if _, err := s.restaurantRepo.GetByID(ctx, restaurantID); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}

	return s.competitorSvc.Analyze(ctx, restaurantID)
}

// DecisionLog returns the most recent calculated prices, newest first.
func (s *pricingService) DecisionLog(ctx context.Context, restaurantID primitive.ObjectID, limit int64) ([]*models.PricePoint, error) {
	if limit <= 0 || limit > int64(s.config.DecisionLogLimit) {
		limit = int64(s.config.DecisionLogLimit)
	}

	raw, err := s.cache.ListRange(ctx, utils.CachePriceLogPrefix+restaurantID.Hex(), 0, limit-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read decision log: %w", err)
	}

	points := make([]*models.PricePoint, 0, len(raw))
	for _, entry := range raw {
		var point models.PricePoint
		if err := json.Unmarshal([]byte(entry), &point); err != nil {
			s.logger.WithError(err).WithRestaurantID(restaurantID).Warn("Skipping malformed decision log entry")
			continue
		}
		points = append(points, &point)
	}

	return points, nil
}

func priceCacheKey(restaurantID primitive.ObjectID, targetTime time.Time, partySize int) string {
	party := "any"
	if partySize > 0 {
		party = strconv.Itoa(partySize)
	}
	return utils.CachePricePrefix + restaurantID.Hex() + ":" + targetTime.Format("200601021504") + ":" + party
}

func clampPrice(price, basePrice, floorRatio, ceilingRatio float64) float64 {
	floor := basePrice * floorRatio
	ceiling := basePrice * ceilingRatio
	if price < floor {
		return floor
	}
	if price > ceiling {
		return ceiling
	}
	return price
}

func roundPrice(price float64) float64 {
	return math.Round(price*100) / 100
}

// occupancyFactor maps the 0..1 occupancy rate onto a multiplier centered on
// 1.0 at half-full, so an empty room reads 0.8 and a full one 1.2.
func occupancyFactor(rate float64) float64 {
	return boundFactor(1 + (rate-0.5)*0.4)
}

func boundFactor(v float64) float64 {
	if v < utils.MinFactorBound {
		return utils.MinFactorBound
	}
	if v > utils.MaxFactorBound {
		return utils.MaxFactorBound
	}
	return v
}

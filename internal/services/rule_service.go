package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"tablefare/internal/config"
	"tablefare/internal/models"
	"tablefare/internal/repositories/interfaces"
	"tablefare/internal/utils"
	"tablefare/internal/validators"
	"tablefare/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrRuleNotFound = errors.New("pricing rule not found")
	ErrInvalidRule  = errors.New("invalid pricing rule")
)

// EvaluationInput is the read-only snapshot a rule is judged against.
// Condition checks are pure functions of this struct.
type EvaluationInput struct {
	Metrics    *models.DemandMetrics
	Factors    *models.PricingFactors
	TargetTime time.Time
	Now        time.Time
}

// RuleService owns the per-restaurant rule set: loading it (with a one-hour
// cache), evaluating rules against a demand snapshot, and the admin CRUD
// surface that invalidates the cache.
type RuleService interface {
	ApplicableRules(ctx context.Context, restaurantID primitive.ObjectID, now time.Time) ([]*models.PricingRule, error)
	Evaluate(rule *models.PricingRule, input *EvaluationInput) bool

	CreateRule(ctx context.Context, rule *models.PricingRule) error
	UpdateRule(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	DeleteRule(ctx context.Context, restaurantID, id primitive.ObjectID) error
	GetRule(ctx context.Context, id primitive.ObjectID) (*models.PricingRule, error)
	ListRules(ctx context.Context, restaurantID primitive.ObjectID) ([]*models.PricingRule, error)

	SeedDefaultRules(ctx context.Context, restaurantID primitive.ObjectID) error
	InvalidateRuleCache(ctx context.Context, restaurantID primitive.ObjectID) error
}

type ruleService struct {
	ruleRepo interfaces.PricingRuleRepository
	cache    CacheService
	config   *config.PricingConfig
	logger   *logger.Logger
}

func NewRuleService(
	ruleRepo interfaces.PricingRuleRepository,
	cache CacheService,
	cfg *config.PricingConfig,
	log *logger.Logger,
) RuleService {
	return &ruleService{
		ruleRepo: ruleRepo,
		cache:    cache,
		config:   cfg,
		logger:   log,
	}
}

// ApplicableRules returns the restaurant's rules filtered to those effective
// at the given instant, highest priority first. Priority ties keep their
// stored order (stable sort).
func (s *ruleService) ApplicableRules(ctx context.Context, restaurantID primitive.ObjectID, now time.Time) ([]*models.PricingRule, error) {
	rules, err := s.loadRules(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	applicable := make([]*models.PricingRule, 0, len(rules))
	for _, rule := range rules {
		if rule.IsEffective(now) {
			applicable = append(applicable, rule)
		}
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].Priority > applicable[j].Priority
	})

	return applicable, nil
}

// Evaluate reports whether every condition of the rule holds for the input.
// Conditions are ANDed and short-circuit on the first failure. A malformed
// condition disqualifies the whole rule: it is logged and never matches.
func (s *ruleService) Evaluate(rule *models.PricingRule, input *EvaluationInput) bool {
	for i := range rule.Conditions {
		condition := &rule.Conditions[i]

		if err := condition.Validate(); err != nil {
			s.logger.WithError(err).WithRuleID(rule.ID).WithField("rule_name", rule.Name).
				Warn("Skipping rule with malformed condition")
			return false
		}

		if !evaluateCondition(condition, input) {
			return false
		}
	}

	return len(rule.Conditions) > 0
}

func (s *ruleService) loadRules(ctx context.Context, restaurantID primitive.ObjectID) ([]*models.PricingRule, error) {
	cacheKey := utils.CacheRulesPrefix + restaurantID.Hex()

	var cached []*models.PricingRule
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	rules, err := s.ruleRepo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing rules: %w", err)
	}

	if err := s.cache.Set(ctx, cacheKey, rules, s.config.RuleCacheTTL); err != nil {
		s.logger.WithError(err).WithRestaurantID(restaurantID).Warn("Failed to cache rule set")
	}

	return rules, nil
}

// CRUD pass-through for restaurant-admin tooling. Every mutation invalidates
// the cached rule set so the next calculation sees the change.
func (s *ruleService) CreateRule(ctx context.Context, rule *models.PricingRule) error {
	if err := validators.ValidatePricingRule(rule); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return err
	}

	s.logger.LogRuleEvent(rule.ID, "created", map[string]interface{}{
		"restaurant_id": rule.RestaurantID.Hex(),
		"name":          rule.Name,
		"priority":      rule.Priority,
	})

	return s.InvalidateRuleCache(ctx, rule.RestaurantID)
}

func (s *ruleService) UpdateRule(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	existing, err := s.GetRule(ctx, id)
	if err != nil {
		return err
	}

	if err := s.ruleRepo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrRuleNotFound
		}
		return err
	}

	s.logger.LogRuleEvent(id, "updated", map[string]interface{}{
		"restaurant_id": existing.RestaurantID.Hex(),
	})

	return s.InvalidateRuleCache(ctx, existing.RestaurantID)
}

func (s *ruleService) DeleteRule(ctx context.Context, restaurantID, id primitive.ObjectID) error {
	if err := s.ruleRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrRuleNotFound
		}
		return err
	}

	s.logger.LogRuleEvent(id, "deleted", map[string]interface{}{
		"restaurant_id": restaurantID.Hex(),
	})

	return s.InvalidateRuleCache(ctx, restaurantID)
}

func (s *ruleService) GetRule(ctx context.Context, id primitive.ObjectID) (*models.PricingRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	return rule, nil
}

func (s *ruleService) ListRules(ctx context.Context, restaurantID primitive.ObjectID) ([]*models.PricingRule, error) {
	return s.ruleRepo.ListByRestaurant(ctx, restaurantID)
}

func (s *ruleService) InvalidateRuleCache(ctx context.Context, restaurantID primitive.ObjectID) error {
	return s.cache.Delete(ctx, utils.CacheRulesPrefix+restaurantID.Hex())
}

// SeedDefaultRules installs the baseline rule set for a restaurant that has
// not configured its own: a peak-hours surge, an early-bird discount, and a
// last-minute discount.
func (s *ruleService) SeedDefaultRules(ctx context.Context, restaurantID primitive.ObjectID) error {
	for _, rule := range DefaultRules(restaurantID) {
		if err := s.CreateRule(ctx, rule); err != nil {
			return fmt.Errorf("failed to seed default rule %q: %w", rule.Name, err)
		}
	}

	return nil
}

// DefaultRules is the baseline, restaurant-configurable rule set.
func DefaultRules(restaurantID primitive.ObjectID) []*models.PricingRule {
	surgeCap := 50.0

	return []*models.PricingRule{
		{
			RestaurantID: restaurantID,
			Name:         "Peak Hours Surge",
			Category:     models.RuleCategorySurge,
			Priority:     100,
			Conditions: []models.PricingCondition{
				{Type: models.ConditionTypeOccupancy, Operator: models.OperatorGreater, Value: 0.8},
				{Type: models.ConditionTypeDemand, Operator: models.OperatorGreater, Value: 0.7},
			},
			Adjustment: models.PricingAdjustment{
				Type:  models.AdjustmentPercentage,
				Value: 25,
				Max:   &surgeCap,
			},
			IsActive: true,
		},
		{
			RestaurantID: restaurantID,
			Name:         "Early Bird Special",
			Category:     models.RuleCategoryDiscount,
			Priority:     50,
			Conditions: []models.PricingCondition{
				{Type: models.ConditionTypeTime, Operator: models.OperatorBetween, Range: []float64{17, 18}},
				{Type: models.ConditionTypeOccupancy, Operator: models.OperatorLess, Value: 0.4},
			},
			Adjustment: models.PricingAdjustment{
				Type:  models.AdjustmentPercentage,
				Value: -15,
			},
			IsActive: true,
		},
		{
			RestaurantID: restaurantID,
			Name:         "Last Minute Deal",
			Category:     models.RuleCategoryDiscount,
			Priority:     40,
			Conditions: []models.PricingCondition{
				{Type: models.ConditionTypeTime, Field: models.TimeFieldLeadHours, Operator: models.OperatorLess, Value: 2},
				{Type: models.ConditionTypeOccupancy, Operator: models.OperatorLess, Value: 0.6},
			},
			Adjustment: models.PricingAdjustment{
				Type:  models.AdjustmentPercentage,
				Value: -20,
			},
			IsActive: true,
		},
	}
}

// evaluateCondition resolves the condition's subject from the snapshot and
// applies its operator. Numeric operators compare the numeric reading; the
// in operator matches the categorical reading against the condition set.
func evaluateCondition(condition *models.PricingCondition, input *EvaluationInput) bool {
	numeric, categorical := resolveSubject(condition, input)

	switch condition.Operator {
	case models.OperatorEquals:
		if len(condition.Set) > 0 {
			return containsFold(condition.Set, categorical)
		}
		return numeric == condition.Value
	case models.OperatorGreater:
		return numeric > condition.Value
	case models.OperatorLess:
		return numeric < condition.Value
	case models.OperatorBetween:
		return numeric >= condition.Range[0] && numeric <= condition.Range[1]
	case models.OperatorIn:
		return containsFold(condition.Set, categorical)
	default:
		return false
	}
}

func resolveSubject(condition *models.PricingCondition, input *EvaluationInput) (float64, string) {
	switch condition.Type {
	case models.ConditionTypeTime:
		if condition.Field == models.TimeFieldLeadHours {
			lead := input.TargetTime.Sub(input.Now).Hours()
			return lead, ""
		}
		hour := float64(input.TargetTime.Hour()) + float64(input.TargetTime.Minute())/60
		return hour, ""
	case models.ConditionTypeOccupancy:
		return input.Metrics.OccupancyRate, ""
	case models.ConditionTypeDemand:
		return input.Metrics.ReservationVelocity, ""
	case models.ConditionTypeWeather:
		return input.Factors.Weather, ""
	case models.ConditionTypeEvent:
		return input.Factors.Events, ""
	case models.ConditionTypeDay:
		weekday := input.TargetTime.Weekday()
		return float64(weekday), strings.ToLower(weekday.String())
	case models.ConditionTypeSeason:
		return float64(input.TargetTime.Month()), utils.SeasonOf(input.TargetTime)
	default:
		return math.NaN(), ""
	}
}

func containsFold(set []string, value string) bool {
	for _, member := range set {
		if strings.EqualFold(member, value) {
			return true
		}
	}
	return false
}

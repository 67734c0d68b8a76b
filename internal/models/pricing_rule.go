package models

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RuleCategory string

const (
	RuleCategorySurge    RuleCategory = "surge"
	RuleCategoryDiscount RuleCategory = "discount"
	RuleCategoryDynamic  RuleCategory = "dynamic"
	RuleCategorySeasonal RuleCategory = "seasonal"
	RuleCategoryEvent    RuleCategory = "event"
)

func (c RuleCategory) IsValid() bool {
	switch c {
	case RuleCategorySurge, RuleCategoryDiscount, RuleCategoryDynamic, RuleCategorySeasonal, RuleCategoryEvent:
		return true
	}
	return false
}

type ConditionType string

const (
	ConditionTypeTime      ConditionType = "time"
	ConditionTypeOccupancy ConditionType = "occupancy"
	ConditionTypeDemand    ConditionType = "demand"
	ConditionTypeWeather   ConditionType = "weather"
	ConditionTypeEvent     ConditionType = "event"
	ConditionTypeDay       ConditionType = "day"
	ConditionTypeSeason    ConditionType = "season"
)

type ConditionOperator string

const (
	OperatorEquals  ConditionOperator = "equals"
	OperatorGreater ConditionOperator = "greater"
	OperatorLess    ConditionOperator = "less"
	OperatorBetween ConditionOperator = "between"
	OperatorIn      ConditionOperator = "in"
)

type AdjustmentType string

const (
	AdjustmentPercentage AdjustmentType = "percentage"
	AdjustmentFixed      AdjustmentType = "fixed"
	AdjustmentMultiplier AdjustmentType = "multiplier"
)

// Fields a time condition can target. Hour is the default.
const (
	TimeFieldHour      = "hour"
	TimeFieldLeadHours = "lead_hours"
)

// PricingCondition is a single predicate over the demand snapshot. The value
// shape depends on the operator: Value for equals/greater/less, Range for
// between, Set for in. Weight is parsed and stored but not used in hard
// pass/fail evaluation.
type PricingCondition struct {
	Type     ConditionType     `json:"type" bson:"type" validate:"required"`
	Field    string            `json:"field,omitempty" bson:"field,omitempty"`
	Operator ConditionOperator `json:"operator" bson:"operator" validate:"required"`
	Value    float64           `json:"value,omitempty" bson:"value,omitempty"`
	Range    []float64         `json:"range,omitempty" bson:"range,omitempty"`
	Set      []string          `json:"set,omitempty" bson:"set,omitempty"`
	Weight   float64           `json:"weight,omitempty" bson:"weight,omitempty"`
}

// Validate checks the condition carries a value of the shape its operator
// expects. Unknown types or operators are rejected so malformed rules get
// skipped instead of silently matching.
func (c *PricingCondition) Validate() error {
	switch c.Type {
	case ConditionTypeTime, ConditionTypeOccupancy, ConditionTypeDemand,
		ConditionTypeWeather, ConditionTypeEvent, ConditionTypeDay, ConditionTypeSeason:
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}

	switch c.Operator {
	case OperatorEquals, OperatorGreater, OperatorLess:
		// scalar Value, zero is a legal comparison target
	case OperatorBetween:
		if len(c.Range) != 2 {
			return fmt.Errorf("between condition requires a [low, high] range, got %d values", len(c.Range))
		}
		if c.Range[0] > c.Range[1] {
			return fmt.Errorf("between condition range is inverted: [%v, %v]", c.Range[0], c.Range[1])
		}
	case OperatorIn:
		if len(c.Set) == 0 {
			return fmt.Errorf("in condition requires a non-empty set")
		}
	default:
		return fmt.Errorf("unknown condition operator %q", c.Operator)
	}

	if c.Type == ConditionTypeTime && c.Field != "" && c.Field != TimeFieldHour && c.Field != TimeFieldLeadHours {
		return fmt.Errorf("unknown time condition field %q", c.Field)
	}

	return nil
}

// PricingAdjustment transforms a running price. Min/Max clamp the adjustment
// magnitude (percentage points, absolute price, or multiplier, depending on
// Type), RoundTo snaps the result to a price granularity.
type PricingAdjustment struct {
	Type    AdjustmentType `json:"type" bson:"type" validate:"required"`
	Value   float64        `json:"value" bson:"value"`
	Min     *float64       `json:"min,omitempty" bson:"min,omitempty"`
	Max     *float64       `json:"max,omitempty" bson:"max,omitempty"`
	RoundTo float64        `json:"round_to,omitempty" bson:"round_to,omitempty"`
}

func (a *PricingAdjustment) Validate() error {
	switch a.Type {
	case AdjustmentPercentage:
		if a.Value < -100 {
			return fmt.Errorf("percentage adjustment below -100%% would produce a negative price")
		}
	case AdjustmentFixed:
	case AdjustmentMultiplier:
		if a.Value <= 0 {
			return fmt.Errorf("multiplier adjustment must be positive, got %v", a.Value)
		}
	default:
		return fmt.Errorf("unknown adjustment type %q", a.Type)
	}

	if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
		return fmt.Errorf("adjustment min %v exceeds max %v", *a.Min, *a.Max)
	}
	if a.RoundTo < 0 {
		return fmt.Errorf("round_to must be non-negative")
	}

	return nil
}

// Apply is a pure function price -> price'.
func (a *PricingAdjustment) Apply(price float64) float64 {
	var adjusted float64

	switch a.Type {
	case AdjustmentPercentage:
		pct := a.clampMagnitude(a.Value)
		adjusted = price * (1 + pct/100)
	case AdjustmentFixed:
		adjusted = price + a.Value
		adjusted = a.clampMagnitude(adjusted)
	case AdjustmentMultiplier:
		adjusted = price * a.clampMagnitude(a.Value)
	default:
		adjusted = price
	}

	if a.RoundTo > 0 {
		adjusted = math.Round(adjusted/a.RoundTo) * a.RoundTo
	}

	return adjusted
}

func (a *PricingAdjustment) clampMagnitude(v float64) float64 {
	if a.Max != nil && v > *a.Max {
		v = *a.Max
	}
	if a.Min != nil && v < *a.Min {
		v = *a.Min
	}
	return v
}

type PricingRule struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RestaurantID primitive.ObjectID `json:"restaurant_id" bson:"restaurant_id" validate:"required"`
	Name         string             `json:"name" bson:"name" validate:"required"`
	Category     RuleCategory       `json:"category" bson:"category" validate:"required"`
	Priority     int                `json:"priority" bson:"priority"`
	Conditions   []PricingCondition `json:"conditions" bson:"conditions" validate:"required,min=1"`
	Adjustment   PricingAdjustment  `json:"adjustment" bson:"adjustment" validate:"required"`
	IsActive     bool               `json:"is_active" bson:"is_active" default:"true"`
	ValidFrom    *time.Time         `json:"valid_from,omitempty" bson:"valid_from,omitempty"`
	ValidUntil   *time.Time         `json:"valid_until,omitempty" bson:"valid_until,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// IsEffective reports whether the rule may be evaluated at the given instant.
// Expired or not-yet-started rules never reach evaluation.
func (r *PricingRule) IsEffective(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return false
	}
	return true
}

package validators

import (
	"fmt"

	"tablefare/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RuleCreateRequest struct {
	RestaurantID primitive.ObjectID        `json:"restaurant_id" validate:"required,object_id"`
	Name         string                    `json:"name" validate:"required,min=3,max=100"`
	Category     string                    `json:"category" validate:"required,oneof=surge discount dynamic seasonal event"`
	Priority     int                       `json:"priority" validate:"min=0,max=1000"`
	Conditions   []models.PricingCondition `json:"conditions" validate:"required,min=1,max=10"`
	Adjustment   models.PricingAdjustment  `json:"adjustment" validate:"required"`
	IsActive     bool                      `json:"is_active"`
}

type RuleUpdateRequest struct {
	Name       *string                   `json:"name" validate:"omitempty,min=3,max=100"`
	Priority   *int                      `json:"priority" validate:"omitempty,min=0,max=1000"`
	Conditions []models.PricingCondition `json:"conditions" validate:"omitempty,min=1,max=10"`
	Adjustment *models.PricingAdjustment `json:"adjustment" validate:"omitempty"`
	IsActive   *bool                     `json:"is_active"`
}

func ValidateRuleCreate(req *RuleCreateRequest) ValidationErrors {
	errors := ValidateStruct(req)

	for i := range req.Conditions {
		if err := req.Conditions[i].Validate(); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("conditions[%d]", i),
				Tag:     "condition",
				Message: err.Error(),
			})
		}
	}

	if err := req.Adjustment.Validate(); err != nil {
		errors = append(errors, ValidationError{
			Field:   "adjustment",
			Tag:     "adjustment",
			Message: err.Error(),
		})
	}

	return errors
}

func ValidateRuleUpdate(req *RuleUpdateRequest) ValidationErrors {
	errors := ValidateStruct(req)

	for i := range req.Conditions {
		if err := req.Conditions[i].Validate(); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("conditions[%d]", i),
				Tag:     "condition",
				Message: err.Error(),
			})
		}
	}

	if req.Adjustment != nil {
		if err := req.Adjustment.Validate(); err != nil {
			errors = append(errors, ValidationError{
				Field:   "adjustment",
				Tag:     "adjustment",
				Message: err.Error(),
			})
		}
	}

	return errors
}

// ValidatePricingRule checks a fully assembled rule before it is persisted.
func ValidatePricingRule(rule *models.PricingRule) error {
	if rule.RestaurantID.IsZero() {
		return fmt.Errorf("restaurant_id is required")
	}
	if rule.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if !rule.Category.IsValid() {
		return fmt.Errorf("unknown rule category %q", rule.Category)
	}
	if rule.Priority < 0 {
		return fmt.Errorf("priority must not be negative")
	}
	if len(rule.Conditions) == 0 {
		return fmt.Errorf("rule needs at least one condition")
	}
	for i := range rule.Conditions {
		if err := rule.Conditions[i].Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	if err := rule.Adjustment.Validate(); err != nil {
		return err
	}
	if rule.ValidFrom != nil && rule.ValidUntil != nil && rule.ValidUntil.Before(*rule.ValidFrom) {
		return fmt.Errorf("valid_until precedes valid_from")
	}
	return nil
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"tablefare/internal/models"
	"tablefare/internal/services"
	"tablefare/internal/utils"
	"tablefare/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RuleHandler struct {
	ruleService services.RuleService
}

func NewRuleHandler(ruleService services.RuleService) *RuleHandler {
	return &RuleHandler{
		ruleService: ruleService,
	}
}

// CreateRule adds a pricing rule for a restaurant
func (h *RuleHandler) CreateRule(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	var request validators.RuleCreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	request.RestaurantID = restaurantID

	if validationErrors := validators.ValidateRuleCreate(&request); len(validationErrors) > 0 {
		details := make(map[string]string, len(validationErrors))
		for _, ve := range validationErrors {
			details[ve.Field] = ve.Message
		}
		utils.ValidationErrorResponse(c, details)
		return
	}

	rule := &models.PricingRule{
		RestaurantID: restaurantID,
		Name:         request.Name,
		Category:     models.RuleCategory(request.Category),
		Priority:     request.Priority,
		Conditions:   request.Conditions,
		Adjustment:   request.Adjustment,
		IsActive:     request.IsActive,
	}

	if err := h.ruleService.CreateRule(c.Request.Context(), rule); err != nil {
		if errors.Is(err, services.ErrInvalidRule) {
			utils.BadRequestResponse(c, err.Error())
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "RULE_CREATE_FAILED", "Failed to create rule: "+err.Error())
		return
	}

	utils.CreatedResponse(c, "Pricing rule created successfully", rule)
}

// ListRules returns every rule configured for a restaurant
func (h *RuleHandler) ListRules(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	rules, err := h.ruleService.ListRules(c.Request.Context(), restaurantID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "RULE_LIST_FAILED", "Failed to list rules: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Pricing rules retrieved successfully", rules)
}

// GetRule returns a single pricing rule
func (h *RuleHandler) GetRule(c *gin.Context) {
	ruleID, err := primitive.ObjectIDFromHex(c.Param("rule_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid rule ID")
		return
	}

	rule, err := h.ruleService.GetRule(c.Request.Context(), ruleID)
	if err != nil {
		if errors.Is(err, services.ErrRuleNotFound) {
			utils.NotFoundResponse(c, "Pricing rule")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "RULE_FETCH_FAILED", "Failed to get rule: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Pricing rule retrieved successfully", rule)
}

// UpdateRule applies a partial update to a pricing rule
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	ruleID, err := primitive.ObjectIDFromHex(c.Param("rule_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid rule ID")
		return
	}

	var request validators.RuleUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if validationErrors := validators.ValidateRuleUpdate(&request); len(validationErrors) > 0 {
		details := make(map[string]string, len(validationErrors))
		for _, ve := range validationErrors {
			details[ve.Field] = ve.Message
		}
		utils.ValidationErrorResponse(c, details)
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if request.Name != nil {
		updates["name"] = *request.Name
	}
	if request.Priority != nil {
		updates["priority"] = *request.Priority
	}
	if request.Conditions != nil {
		updates["conditions"] = request.Conditions
	}
	if request.Adjustment != nil {
		updates["adjustment"] = *request.Adjustment
	}
	if request.IsActive != nil {
		updates["is_active"] = *request.IsActive
	}

	if err := h.ruleService.UpdateRule(c.Request.Context(), ruleID, updates); err != nil {
		if errors.Is(err, services.ErrRuleNotFound) {
			utils.NotFoundResponse(c, "Pricing rule")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "RULE_UPDATE_FAILED", "Failed to update rule: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Pricing rule updated successfully", nil)
}

// DeleteRule removes a pricing rule
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	ruleID, err := primitive.ObjectIDFromHex(c.Param("rule_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid rule ID")
		return
	}

	if err := h.ruleService.DeleteRule(c.Request.Context(), restaurantID, ruleID); err != nil {
		if errors.Is(err, services.ErrRuleNotFound) {
			utils.NotFoundResponse(c, "Pricing rule")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "RULE_DELETE_FAILED", "Failed to delete rule: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Pricing rule deleted successfully", nil)
}

// SeedDefaultRules installs the baseline rule set for a restaurant
func (h *RuleHandler) SeedDefaultRules(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	if err := h.ruleService.SeedDefaultRules(c.Request.Context(), restaurantID); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "RULE_SEED_FAILED", "Failed to seed default rules: "+err.Error())
		return
	}

	utils.CreatedResponse(c, "Default pricing rules installed successfully", nil)
}

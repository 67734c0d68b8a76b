package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"tablefare/internal/services"
	"tablefare/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PricingHandler struct {
	pricingService  services.PricingService
	metricsService  services.MetricsService
	trainingService services.TrainingService
	clock           utils.Clock
}

func NewPricingHandler(pricingService services.PricingService, metricsService services.MetricsService, trainingService services.TrainingService, clock utils.Clock) *PricingHandler {
	return &PricingHandler{
		pricingService:  pricingService,
		metricsService:  metricsService,
		trainingService: trainingService,
		clock:           clock,
	}
}

// GetPrice quotes the current dynamic price for a reservation slot
func (h *PricingHandler) GetPrice(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	targetTime := h.clock.Now()
	if raw := c.Query("date_time"); raw != "" {
		targetTime, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.BadRequestResponse(c, "date_time must be RFC 3339")
			return
		}
	}

	partySize := 0
	if raw := c.Query("party_size"); raw != "" {
		partySize, err = strconv.Atoi(raw)
		if err != nil || partySize < 1 {
			utils.BadRequestResponse(c, "party_size must be a positive integer")
			return
		}
	}

	point, err := h.pricingService.CalculatePrice(c.Request.Context(), restaurantID, targetTime, partySize)
	if err != nil {
		if errors.Is(err, services.ErrRestaurantNotFound) {
			utils.NotFoundResponse(c, "Restaurant")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "PRICE_CALCULATION_FAILED", "Failed to calculate price: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Price calculated successfully", point)
}

// GetDemandForecast returns the hour-by-hour demand outlook for a date
func (h *PricingHandler) GetDemandForecast(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	date := h.clock.Now()
	if raw := c.Query("date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			utils.BadRequestResponse(c, "date must be YYYY-MM-DD")
			return
		}
	}

	forecast, err := h.pricingService.GetDemandForecast(c.Request.Context(), restaurantID, date)
	if err != nil {
		if errors.Is(err, services.ErrRestaurantNotFound) {
			utils.NotFoundResponse(c, "Restaurant")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "FORECAST_FAILED", "Failed to build forecast: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Demand forecast generated successfully", forecast)
}

// GetCompetitorAnalysis returns the market position among nearby competitors
func (h *PricingHandler) GetCompetitorAnalysis(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	analysis, err := h.pricingService.GetCompetitorAnalysis(c.Request.Context(), restaurantID)
	if err != nil {
		if errors.Is(err, services.ErrRestaurantNotFound) {
			utils.NotFoundResponse(c, "Restaurant")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "COMPETITOR_ANALYSIS_FAILED", "Failed to analyze competitors: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Competitor analysis retrieved successfully", analysis)
}

// GetDecisionLog returns the most recent price calculations, newest first
func (h *PricingHandler) GetDecisionLog(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 {
			utils.BadRequestResponse(c, "limit must be a positive integer")
			return
		}
	}

	points, err := h.pricingService.DecisionLog(c.Request.Context(), restaurantID, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "DECISION_LOG_FAILED", "Failed to read decision log: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Decision log retrieved successfully", points)
}

// RecordSearch increments the search-volume counter that feeds the demand
// signal. Called by the marketplace search frontend on each impression.
func (h *PricingHandler) RecordSearch(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	if err := h.metricsService.RecordSearch(c.Request.Context(), restaurantID); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "SEARCH_RECORD_FAILED", "Failed to record search: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Search recorded successfully", nil)
}

// TrainDemandModel refits the demand model from reservation history. Admin
// only; the fitted model takes effect immediately and is persisted when a
// model path is configured.
func (h *PricingHandler) TrainDemandModel(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	days := 90
	if raw := c.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 1 {
			utils.BadRequestResponse(c, "days must be a positive integer")
			return
		}
	}

	model, err := h.trainingService.TrainDemandModel(c.Request.Context(), restaurantID, days)
	if err != nil {
		if errors.Is(err, services.ErrNotEnoughHistory) {
			utils.ErrorResponse(c, http.StatusUnprocessableEntity, "INSUFFICIENT_HISTORY", err.Error())
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "MODEL_TRAINING_FAILED", "Failed to train demand model: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Demand model trained successfully", gin.H{
		"model_version": model.Version,
		"sample_count":  model.SampleCount,
		"trained_at":    model.TrainedAt,
	})
}

// GetSearchVolume returns the rolling search count for a restaurant
func (h *PricingHandler) GetSearchVolume(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid restaurant ID")
		return
	}

	volume, err := h.metricsService.SearchVolume(c.Request.Context(), restaurantID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "SEARCH_VOLUME_FAILED", "Failed to read search volume: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Search volume retrieved successfully", gin.H{
		"restaurant_id": restaurantID.Hex(),
		"search_volume": volume,
	})
}

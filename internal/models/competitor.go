package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MarketPosition string

const (
	MarketPositionBelow MarketPosition = "below"
	MarketPositionAt    MarketPosition = "at"
	MarketPositionAbove MarketPosition = "above"
)

type CompetitorInfo struct {
	RestaurantID      primitive.ObjectID `json:"restaurant_id" bson:"restaurant_id"`
	Name              string             `json:"name" bson:"name"`
	DistanceKM        float64            `json:"distance_km" bson:"distance_km"`
	Cuisine           string             `json:"cuisine" bson:"cuisine"`
	PricePoint        float64            `json:"price_point" bson:"price_point"`
	OccupancyEstimate float64            `json:"occupancy_estimate" bson:"occupancy_estimate"`
}

// CompetitorPricing summarises the market around one restaurant. With zero
// competitors the analysis is neutral: position "at", average equal to the
// restaurant's own price, zero recommended adjustment.
type CompetitorPricing struct {
	RestaurantID          primitive.ObjectID `json:"restaurant_id" bson:"restaurant_id"`
	Competitors           []CompetitorInfo   `json:"competitors" bson:"competitors"`
	MarketAverage         float64            `json:"market_average" bson:"market_average"`
	MarketPosition        MarketPosition     `json:"market_position" bson:"market_position"`
	RecommendedAdjustment float64            `json:"recommended_adjustment" bson:"recommended_adjustment"`
	AnalyzedAt            time.Time          `json:"analyzed_at" bson:"analyzed_at"`
}

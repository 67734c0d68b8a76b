package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DemandMetrics is a point-in-time snapshot of demand signals for one
// restaurant. It is recomputed per calculation and never persisted beyond
// the price cache.
type DemandMetrics struct {
	RestaurantID        primitive.ObjectID `json:"restaurant_id" bson:"restaurant_id"`
	Timestamp           time.Time          `json:"timestamp" bson:"timestamp"`
	OccupancyRate       float64            `json:"occupancy_rate" bson:"occupancy_rate"`
	ReservationVelocity float64            `json:"reservation_velocity" bson:"reservation_velocity"`
	SearchVolume        int64              `json:"search_volume" bson:"search_volume"`
	CancellationRate    float64            `json:"cancellation_rate" bson:"cancellation_rate"`
	WalkInRate          float64            `json:"walk_in_rate" bson:"walk_in_rate"`
	AveragePartySize    float64            `json:"average_party_size" bson:"average_party_size"`
	PeakHourMultiplier  float64            `json:"peak_hour_multiplier" bson:"peak_hour_multiplier"`
}

// PricingFactors are the derived multipliers recorded alongside a price for
// explainability. Each stays within roughly [0.7, 1.5]. Degraded lists the
// signals that fell back to their neutral default during collection.
type PricingFactors struct {
	TimeOfDay   float64  `json:"time_of_day" bson:"time_of_day"`
	DayOfWeek   float64  `json:"day_of_week" bson:"day_of_week"`
	Occupancy   float64  `json:"occupancy" bson:"occupancy"`
	Seasonality float64  `json:"seasonality" bson:"seasonality"`
	Competition float64  `json:"competition" bson:"competition"`
	Weather     float64  `json:"weather" bson:"weather"`
	Events      float64  `json:"events" bson:"events"`
	Degraded    []string `json:"degraded,omitempty" bson:"degraded,omitempty"`
}

// NeutralFactors returns a snapshot with every multiplier at 1.0.
func NeutralFactors() PricingFactors {
	return PricingFactors{
		TimeOfDay:   1.0,
		DayOfWeek:   1.0,
		Occupancy:   1.0,
		Seasonality: 1.0,
		Competition: 1.0,
		Weather:     1.0,
		Events:      1.0,
	}
}

// PricePoint is the final, immutable result of one price calculation.
type PricePoint struct {
	RestaurantID  primitive.ObjectID `json:"restaurant_id" bson:"restaurant_id"`
	DateTime      time.Time          `json:"date_time" bson:"date_time"`
	PartySize     int                `json:"party_size,omitempty" bson:"party_size,omitempty"`
	BasePrice     float64            `json:"base_price" bson:"base_price"`
	AdjustedPrice float64            `json:"adjusted_price" bson:"adjusted_price"`
	DemandScore   float64            `json:"demand_score" bson:"demand_score"`
	AppliedRules  []string           `json:"applied_rules" bson:"applied_rules"`
	Factors       PricingFactors     `json:"factors" bson:"factors"`
	CalculatedAt  time.Time          `json:"calculated_at" bson:"calculated_at"`
}

// DemandForecast is the hour-by-hour summary served to restaurant analytics.
type DemandForecast struct {
	RestaurantID primitive.ObjectID `json:"restaurant_id"`
	Date         time.Time          `json:"date"`
	Entries      []ForecastEntry    `json:"entries"`
	ModelVersion string             `json:"model_version"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

type ForecastEntry struct {
	Hour       int     `json:"hour"`
	Multiplier float64 `json:"multiplier"`
	Level      string  `json:"level"`
}

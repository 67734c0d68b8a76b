package utils

import "time"

// Pricing Constants
const (
	// Geo
	EarthRadiusKM = 6371.0

	// Base-price calendar multipliers
	DinnerMultiplier     = 1.2
	LunchMultiplier      = 0.9
	WeekendMultiplier    = 1.15
	LargePartyMultiplier = 1.1
	SoloDinerMultiplier  = 0.95
	LargePartySize       = 6

	// Seasonality by month, recorded in the factor snapshot
	HolidaySeasonMultiplier = 1.15
	SummerSeasonMultiplier  = 1.05
	LowSeasonMultiplier     = 0.9

	// Bounds on any single recorded pricing factor
	MinFactorBound = 0.7
	MaxFactorBound = 1.5

	// Service windows (hour of day, inclusive start, exclusive end)
	LunchStartHour  = 11
	LunchEndHour    = 14
	DinnerStartHour = 17
	DinnerEndHour   = 21

	// Demand metrics
	OccupancyWindow   = 2 * time.Hour
	VelocityWindow    = 24 * time.Hour
	PeakHourBoost     = 1.3
	ShoulderHourBoost = 1.15

	// Competitor analysis
	MarketBelowThreshold = 0.9
	MarketAboveThreshold = 1.1
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrValidationFailed = "validation failed"
)

// Cache Keys
const (
	CachePricePrefix        = "price:"
	CacheRulesPrefix        = "rules:"
	CacheCompetitorsPrefix  = "competitors:"
	CacheSearchVolumePrefix = "search_volume:"
	CachePriceLogPrefix     = "price_log:"
)

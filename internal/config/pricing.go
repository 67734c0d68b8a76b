package config

import (
	"time"
)

type PricingConfig struct {
	DefaultBasePrice   float64       `yaml:"default_base_price"`
	FloorRatio         float64       `yaml:"floor_ratio"`
	CeilingRatio       float64       `yaml:"ceiling_ratio"`
	PriceCacheTTL      time.Duration `yaml:"price_cache_ttl"`
	RuleCacheTTL       time.Duration `yaml:"rule_cache_ttl"`
	CompetitorCacheTTL time.Duration `yaml:"competitor_cache_ttl"`
	CompetitorRadiusKM float64       `yaml:"competitor_radius_km"`
	MaxCompetitors     int           `yaml:"max_competitors"`
	RefreshInterval    time.Duration `yaml:"refresh_interval"`
	SchedulerWorkers   int           `yaml:"scheduler_workers"`
	DecisionLogLimit   int           `yaml:"decision_log_limit"`
	SearchVolumeWindow time.Duration `yaml:"search_volume_window"`
	SubQueryTimeout    time.Duration `yaml:"sub_query_timeout"`
}

func loadPricingConfig() *PricingConfig {
	return &PricingConfig{
		DefaultBasePrice:   getEnvAsFloat64("PRICING_DEFAULT_BASE_PRICE", 50.0),
		FloorRatio:         getEnvAsFloat64("PRICING_FLOOR_RATIO", 0.5),
		CeilingRatio:       getEnvAsFloat64("PRICING_CEILING_RATIO", 2.0),
		PriceCacheTTL:      getEnvAsDuration("PRICING_CACHE_TTL", 15*time.Minute),
		RuleCacheTTL:       getEnvAsDuration("PRICING_RULE_CACHE_TTL", 1*time.Hour),
		CompetitorCacheTTL: getEnvAsDuration("PRICING_COMPETITOR_CACHE_TTL", 30*time.Minute),
		CompetitorRadiusKM: getEnvAsFloat64("PRICING_COMPETITOR_RADIUS_KM", 5.0),
		MaxCompetitors:     getEnvAsInt("PRICING_MAX_COMPETITORS", 10),
		RefreshInterval:    getEnvAsDuration("PRICING_REFRESH_INTERVAL", 15*time.Minute),
		SchedulerWorkers:   getEnvAsInt("PRICING_SCHEDULER_WORKERS", 4),
		DecisionLogLimit:   getEnvAsInt("PRICING_DECISION_LOG_LIMIT", 1000),
		SearchVolumeWindow: getEnvAsDuration("PRICING_SEARCH_VOLUME_WINDOW", 1*time.Hour),
		SubQueryTimeout:    getEnvAsDuration("PRICING_SUB_QUERY_TIMEOUT", 3*time.Second),
	}
}

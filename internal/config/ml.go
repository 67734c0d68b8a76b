package config

import (
	"time"
)

type MLConfig struct {
	DemandModel    *MLModelConfig `yaml:"demand_model"`
	UpdateInterval time.Duration  `yaml:"update_interval"`
}

type MLModelConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ModelPath string `yaml:"model_path"`
	Version   string `yaml:"version"`
}

func loadMLConfig() *MLConfig {
	return &MLConfig{
		DemandModel: &MLModelConfig{
			Enabled:   getEnvAsBool("ML_DEMAND_ENABLED", false),
			ModelPath: getEnv("ML_DEMAND_MODEL_PATH", ""),
			Version:   getEnv("ML_DEMAND_VERSION", "1.0"),
		},
		UpdateInterval: getEnvAsDuration("ML_UPDATE_INTERVAL", 24*time.Hour),
	}
}

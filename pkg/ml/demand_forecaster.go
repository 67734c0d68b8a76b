package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"
)

const (
	featureCount = 6

	// Hard bounds on the multiplier the engine will accept from the model,
	// independent of model behavior.
	MinMultiplier = 0.8
	MaxMultiplier = 1.5

	// Minimum history required before a model may be fitted.
	MinTrainingSamples = 30
)

var ErrInsufficientSamples = errors.New("ml: not enough training samples")

// Features is the fixed-order input vector of the demand model.
type Features struct {
	Hour          int     `json:"hour"`
	DayOfWeek     int     `json:"day_of_week"`
	OccupancyRate float64 `json:"occupancy_rate"`
	SearchVolume  float64 `json:"search_volume"`
	TemperatureC  float64 `json:"temperature_c"`
	IsHoliday     bool    `json:"is_holiday"`
}

// Vector returns the features in model order:
// [hour, dayOfWeek, occupancyRate, searchVolume, temperature, isHoliday].
func (f Features) Vector() [featureCount]float64 {
	holiday := 0.0
	if f.IsHoliday {
		holiday = 1.0
	}
	return [featureCount]float64{
		float64(f.Hour),
		float64(f.DayOfWeek),
		f.OccupancyRate,
		f.SearchVolume,
		f.TemperatureC,
		holiday,
	}
}

// DemandModel holds fitted regression coefficients over standardized features.
type DemandModel struct {
	Weights     [featureCount]float64 `json:"weights"`
	Intercept   float64               `json:"intercept"`
	Means       [featureCount]float64 `json:"means"`
	Scales      [featureCount]float64 `json:"scales"`
	SampleCount int                   `json:"sample_count"`
	Version     string                `json:"version"`
	TrainedAt   time.Time             `json:"trained_at"`
}

type TrainingSample struct {
	Features   Features `json:"features"`
	Multiplier float64  `json:"multiplier"`
}

// DemandForecaster predicts a demand multiplier for a pricing calculation.
// It is optional: without a trained model every prediction is the neutral 1.0.
type DemandForecaster struct {
	mu      sync.RWMutex
	model   *DemandModel
	enabled bool
}

func NewDemandForecaster(enabled bool) *DemandForecaster {
	return &DemandForecaster{enabled: enabled}
}

// LoadModel reads a previously trained model from disk. A missing file is not
// an error: the forecaster simply stays neutral.
func (d *DemandForecaster) LoadModel(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read demand model: %w", err)
	}

	var model DemandModel
	if err := json.Unmarshal(data, &model); err != nil {
		return fmt.Errorf("failed to parse demand model: %w", err)
	}

	d.SetModel(&model)
	return nil
}

func (d *DemandForecaster) SetModel(model *DemandModel) {
	d.mu.Lock()
	d.model = model
	d.mu.Unlock()
}

func (d *DemandForecaster) ModelVersion() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.model == nil {
		return "none"
	}
	return d.model.Version
}

func (d *DemandForecaster) HasModel() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled && d.model != nil
}

// PredictMultiplier maps a feature vector to a demand multiplier. The raw
// model output is always clamped to [MinMultiplier, MaxMultiplier]; with no
// model available the prediction is exactly 1.0.
func (d *DemandForecaster) PredictMultiplier(f Features) float64 {
	d.mu.RLock()
	model := d.model
	enabled := d.enabled
	d.mu.RUnlock()

	if !enabled || model == nil {
		return 1.0
	}

	x := f.Vector()
	prediction := model.Intercept
	for i := 0; i < featureCount; i++ {
		scale := model.Scales[i]
		if scale == 0 {
			continue
		}
		prediction += model.Weights[i] * (x[i] - model.Means[i]) / scale
	}

	return clampMultiplier(prediction)
}

// CategorizeDemand classifies a multiplier for analytics summaries.
func CategorizeDemand(multiplier float64) string {
	switch {
	case multiplier >= 1.3:
		return "high"
	case multiplier >= 1.1:
		return "elevated"
	case multiplier >= 0.95:
		return "normal"
	default:
		return "low"
	}
}

// Train fits a linear model from historical samples using gradient descent on
// standardized features. It is an offline concern: callers run it from a
// background job, never inside a price calculation.
func (d *DemandForecaster) Train(samples []TrainingSample) (*DemandModel, error) {
	if len(samples) < MinTrainingSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(samples), MinTrainingSamples)
	}

	n := len(samples)
	vectors := make([][featureCount]float64, n)
	targets := make([]float64, n)
	for i, s := range samples {
		vectors[i] = s.Features.Vector()
		targets[i] = s.Multiplier
	}

	means, scales := standardize(vectors)

	model := &DemandModel{
		Means:       means,
		Scales:      scales,
		SampleCount: n,
		Version:     time.Now().UTC().Format("20060102150405"),
		TrainedAt:   time.Now().UTC(),
	}

	// Start from the neutral multiplier so an uninformative fit stays near 1.0.
	model.Intercept = 1.0

	const (
		epochs       = 2000
		learningRate = 0.01
	)

	for epoch := 0; epoch < epochs; epoch++ {
		var gradIntercept float64
		var gradWeights [featureCount]float64

		for i := 0; i < n; i++ {
			predicted := model.Intercept
			for j := 0; j < featureCount; j++ {
				if scales[j] == 0 {
					continue
				}
				predicted += model.Weights[j] * (vectors[i][j] - means[j]) / scales[j]
			}

			residual := predicted - targets[i]
			gradIntercept += residual
			for j := 0; j < featureCount; j++ {
				if scales[j] == 0 {
					continue
				}
				gradWeights[j] += residual * (vectors[i][j] - means[j]) / scales[j]
			}
		}

		model.Intercept -= learningRate * gradIntercept / float64(n)
		for j := 0; j < featureCount; j++ {
			model.Weights[j] -= learningRate * gradWeights[j] / float64(n)
		}
	}

	d.SetModel(model)
	return model, nil
}

// SaveModel persists the current model as JSON.
func (d *DemandForecaster) SaveModel(path string) error {
	d.mu.RLock()
	model := d.model
	d.mu.RUnlock()

	if model == nil {
		return errors.New("ml: no model to save")
	}

	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal demand model: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func standardize(vectors [][featureCount]float64) (means, scales [featureCount]float64) {
	n := float64(len(vectors))

	for j := 0; j < featureCount; j++ {
		sum := 0.0
		for i := range vectors {
			sum += vectors[i][j]
		}
		means[j] = sum / n
	}

	for j := 0; j < featureCount; j++ {
		variance := 0.0
		for i := range vectors {
			diff := vectors[i][j] - means[j]
			variance += diff * diff
		}
		scales[j] = math.Sqrt(variance / n)
	}

	return means, scales
}

func clampMultiplier(v float64) float64 {
	if math.IsNaN(v) {
		return 1.0
	}
	if v < MinMultiplier {
		return MinMultiplier
	}
	if v > MaxMultiplier {
		return MaxMultiplier
	}
	return v
}

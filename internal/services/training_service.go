package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"tablefare/internal/models"
	"tablefare/internal/repositories/interfaces"
	"tablefare/internal/utils"
	"tablefare/pkg/logger"
	"tablefare/pkg/ml"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotEnoughHistory = errors.New("not enough reservation history to train")

// TrainingService fits the demand model from reservation history. Training is
// an offline admin operation; the request path only ever reads the fitted
// model through the forecaster.
type TrainingService interface {
	TrainDemandModel(ctx context.Context, restaurantID primitive.ObjectID, days int) (*ml.DemandModel, error)
}

type trainingService struct {
	reservationRepo interfaces.ReservationRepository
	tableRepo       interfaces.TableRepository
	forecaster      *ml.DemandForecaster
	modelPath       string
	logger          *logger.Logger
	clock           utils.Clock
}

func NewTrainingService(
	reservationRepo interfaces.ReservationRepository,
	tableRepo interfaces.TableRepository,
	forecaster *ml.DemandForecaster,
	modelPath string,
	log *logger.Logger,
	clock utils.Clock,
) TrainingService {
	return &trainingService{
		reservationRepo: reservationRepo,
		tableRepo:       tableRepo,
		forecaster:      forecaster,
		modelPath:       modelPath,
		logger:          log,
		clock:           clock,
	}
}

// TrainDemandModel aggregates daily reservation counts over the trailing
// window, converts them to demand-multiplier targets relative to the mean day,
// and fits the model. The fitted model is installed on the forecaster and, when
// a model path is configured, persisted for the next restart.
func (s *trainingService) TrainDemandModel(ctx context.Context, restaurantID primitive.ObjectID, days int) (*ml.DemandModel, error) {
	if days < 1 {
		days = 90
	}

	now := s.clock.Now()
	from := utils.StartOfDay(now.AddDate(0, 0, -days))

	counts, err := s.reservationRepo.DailyCounts(ctx, restaurantID, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reservation history: %w", err)
	}
	if len(counts) < ml.MinTrainingSamples {
		return nil, fmt.Errorf("%w: have %d days, need %d", ErrNotEnoughHistory, len(counts), ml.MinTrainingSamples)
	}

	capacity, err := s.tableRepo.CountByRestaurant(ctx, restaurantID)
	if err != nil || capacity < 1 {
		capacity = 1
	}

	samples := buildTrainingSamples(counts, capacity)

	model, err := s.forecaster.Train(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to fit demand model: %w", err)
	}

	if s.modelPath != "" {
		if err := s.forecaster.SaveModel(s.modelPath); err != nil {
			s.logger.WithRestaurantID(restaurantID).WithError(err).Warn("Trained demand model could not be persisted")
		}
	}

	s.logger.WithRestaurantID(restaurantID).WithFields(map[string]interface{}{
		"samples":       len(samples),
		"model_version": model.Version,
	}).Info("Demand model trained")

	return model, nil
}

// buildTrainingSamples maps daily counts to feature/target pairs. The target
// multiplier is the day's volume relative to the window mean, clamped to the
// bounds the forecaster enforces at prediction time anyway.
func buildTrainingSamples(counts []models.DailyReservationCount, capacity int64) []ml.TrainingSample {
	var total float64
	for _, c := range counts {
		total += float64(c.Count)
	}
	mean := total / float64(len(counts))
	if mean <= 0 {
		mean = 1
	}

	samples := make([]ml.TrainingSample, 0, len(counts))
	for _, c := range counts {
		target := float64(c.Count) / mean
		target = math.Max(ml.MinMultiplier, math.Min(ml.MaxMultiplier, target))

		// Daily aggregates carry no intra-day signal, so each sample is
		// attributed to the dinner peak the count is dominated by.
		samples = append(samples, ml.TrainingSample{
			Features: ml.Features{
				Hour:          utils.DinnerStartHour,
				DayOfWeek:     int(c.Date.Weekday()),
				OccupancyRate: math.Min(1.0, float64(c.Count)/float64(capacity)),
				IsHoliday:     utils.IsHoliday(c.Date),
			},
			Multiplier: target,
		})
	}
	return samples
}

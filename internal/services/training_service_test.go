package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tablefare/internal/models"
	"tablefare/internal/utils"
	"tablefare/pkg/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func historyDays(n int, countFor func(day int) int64) []models.DailyReservationCount {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	counts := make([]models.DailyReservationCount, 0, n)
	for i := 0; i < n; i++ {
		counts = append(counts, models.DailyReservationCount{
			Date:  start.AddDate(0, 0, i),
			Count: countFor(i),
		})
	}
	return counts
}

func TestTrainDemandModel_FitsAndInstallsModel(t *testing.T) {
	// Weekends run well above the weekday mean so the fitted model has a real
	// day-of-week signal to pick up.
	counts := historyDays(60, func(day int) int64 {
		date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
		if utils.IsWeekend(date) {
			return 40
		}
		return 20
	})

	reservationRepo := &fakeReservationRepo{daily: counts}
	tableRepo := &fakeTableRepo{count: 30}
	forecaster := ml.NewDemandForecaster(true)
	clock := utils.FixedClock{Instant: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}

	svc := NewTrainingService(reservationRepo, tableRepo, forecaster, "", testLogger(), clock)

	model, err := svc.TrainDemandModel(context.Background(), primitive.NewObjectID(), 90)
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, 60, model.SampleCount)
	assert.NotEqual(t, "none", forecaster.ModelVersion())

	// A busy Saturday evening must now price above a quiet Tuesday.
	busy := forecaster.PredictMultiplier(ml.Features{Hour: 19, DayOfWeek: 6, OccupancyRate: 0.9})
	quiet := forecaster.PredictMultiplier(ml.Features{Hour: 19, DayOfWeek: 2, OccupancyRate: 0.4})
	assert.Greater(t, busy, quiet)
}

func TestTrainDemandModel_PersistsWhenPathConfigured(t *testing.T) {
	counts := historyDays(45, func(day int) int64 { return 25 })
	modelPath := filepath.Join(t.TempDir(), "demand_model.json")

	svc := NewTrainingService(
		&fakeReservationRepo{daily: counts},
		&fakeTableRepo{count: 30},
		ml.NewDemandForecaster(true),
		modelPath,
		testLogger(),
		utils.FixedClock{Instant: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)},
	)

	_, err := svc.TrainDemandModel(context.Background(), primitive.NewObjectID(), 60)
	require.NoError(t, err)

	reloaded := ml.NewDemandForecaster(true)
	require.NoError(t, reloaded.LoadModel(modelPath))
	assert.True(t, reloaded.HasModel())
}

func TestTrainDemandModel_RejectsThinHistory(t *testing.T) {
	counts := historyDays(10, func(day int) int64 { return 25 })

	svc := NewTrainingService(
		&fakeReservationRepo{daily: counts},
		&fakeTableRepo{count: 30},
		ml.NewDemandForecaster(true),
		"",
		testLogger(),
		utils.FixedClock{Instant: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)},
	)

	_, err := svc.TrainDemandModel(context.Background(), primitive.NewObjectID(), 90)
	assert.ErrorIs(t, err, ErrNotEnoughHistory)
}

func TestTrainDemandModel_HistoryQueryFailure(t *testing.T) {
	svc := NewTrainingService(
		&fakeReservationRepo{countErr: errors.New("aggregation timed out")},
		&fakeTableRepo{count: 30},
		ml.NewDemandForecaster(true),
		"",
		testLogger(),
		utils.FixedClock{Instant: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)},
	)

	_, err := svc.TrainDemandModel(context.Background(), primitive.NewObjectID(), 90)
	assert.Error(t, err)
}

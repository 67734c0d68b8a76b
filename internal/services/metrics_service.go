package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tablefare/internal/config"
	"tablefare/internal/models"
	"tablefare/internal/repositories/interfaces"
	"tablefare/internal/utils"
	"tablefare/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MetricsService derives the real-time demand snapshot a price calculation
// consumes. All reads are independent and issued concurrently; a failed or
// zero-denominator signal resolves to 0 rather than an error.
type MetricsService interface {
	Collect(ctx context.Context, restaurantID primitive.ObjectID, asOf time.Time) (*models.DemandMetrics, error)
	RecordSearch(ctx context.Context, restaurantID primitive.ObjectID) error
	SearchVolume(ctx context.Context, restaurantID primitive.ObjectID) (int64, error)
}

type metricsService struct {
	reservationRepo interfaces.ReservationRepository
	tableRepo       interfaces.TableRepository
	cache           CacheService
	config          *config.PricingConfig
	logger          *logger.Logger
}

func NewMetricsService(
	reservationRepo interfaces.ReservationRepository,
	tableRepo interfaces.TableRepository,
	cache CacheService,
	cfg *config.PricingConfig,
	log *logger.Logger,
) MetricsService {
	return &metricsService{
		reservationRepo: reservationRepo,
		tableRepo:       tableRepo,
		cache:           cache,
		config:          cfg,
		logger:          log,
	}
}

func (s *metricsService) Collect(ctx context.Context, restaurantID primitive.ObjectID, asOf time.Time) (*models.DemandMetrics, error) {
	occupancyFrom := asOf.Add(-utils.OccupancyWindow)
	occupancyTo := asOf.Add(utils.OccupancyWindow)
	velocityFrom := asOf.Add(-utils.VelocityWindow)

	var (
		wg sync.WaitGroup

		tableCount   int64
		overlapping  int64
		created      int64
		cancelled    int64
		walkIns      int64
		avgPartySize float64
		searchVolume int64
	)

	collect := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				s.logger.WithError(err).WithFields(map[string]interface{}{
					"restaurant_id": restaurantID.Hex(),
					"signal":        name,
				}).Warn("Demand signal degraded to zero")
			}
		}()
	}

	collect("table_count", func() (err error) {
		tableCount, err = s.tableRepo.CountByRestaurant(ctx, restaurantID)
		return err
	})
	collect("occupancy", func() (err error) {
		overlapping, err = s.reservationRepo.CountOverlapping(ctx, restaurantID, occupancyFrom, occupancyTo)
		return err
	})
	collect("velocity", func() (err error) {
		created, err = s.reservationRepo.CountCreatedBetween(ctx, restaurantID, velocityFrom, asOf)
		return err
	})
	collect("cancellations", func() (err error) {
		cancelled, err = s.reservationRepo.CountCancelledBetween(ctx, restaurantID, velocityFrom, asOf)
		return err
	})
	collect("walk_ins", func() (err error) {
		walkIns, err = s.reservationRepo.CountWalkInsBetween(ctx, restaurantID, velocityFrom, asOf)
		return err
	})
	collect("party_size", func() (err error) {
		avgPartySize, err = s.reservationRepo.AveragePartySize(ctx, restaurantID, velocityFrom, asOf)
		return err
	})
	collect("search_volume", func() (err error) {
		searchVolume, err = s.SearchVolume(ctx, restaurantID)
		return err
	})

	wg.Wait()

	metrics := &models.DemandMetrics{
		RestaurantID:       restaurantID,
		Timestamp:          asOf,
		SearchVolume:       searchVolume,
		AveragePartySize:   avgPartySize,
		PeakHourMultiplier: peakHourMultiplier(asOf),
	}

	if tableCount > 0 {
		metrics.OccupancyRate = clampRate(float64(overlapping) / float64(tableCount))
	}

	metrics.ReservationVelocity = float64(created) / utils.VelocityWindow.Hours()

	if created > 0 {
		metrics.CancellationRate = clampRate(float64(cancelled) / float64(created))
		metrics.WalkInRate = clampRate(float64(walkIns) / float64(created))
	}

	return metrics, nil
}

func (s *metricsService) RecordSearch(ctx context.Context, restaurantID primitive.ObjectID) error {
	key := searchVolumeKey(restaurantID)

	if _, err := s.cache.Increment(ctx, key, 1, s.config.SearchVolumeWindow); err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}

	return nil
}

func (s *metricsService) SearchVolume(ctx context.Context, restaurantID primitive.ObjectID) (int64, error) {
	return s.cache.GetCounter(ctx, searchVolumeKey(restaurantID))
}

func searchVolumeKey(restaurantID primitive.ObjectID) string {
	return utils.CacheSearchVolumePrefix + restaurantID.Hex()
}

func peakHourMultiplier(t time.Time) float64 {
	switch {
	case utils.IsDinnerHour(t):
		return utils.PeakHourBoost
	case utils.IsLunchHour(t):
		return utils.ShoulderHourBoost
	default:
		return 1.0
	}
}

func clampRate(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

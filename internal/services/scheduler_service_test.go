package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"tablefare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// countingPricingService records which restaurants were priced.
type countingPricingService struct {
	mu     sync.Mutex
	priced map[primitive.ObjectID]int
	target time.Time
	err    error
}

func newCountingPricingService() *countingPricingService {
	return &countingPricingService{priced: make(map[primitive.ObjectID]int)}
}

func (s *countingPricingService) CalculatePrice(ctx context.Context, restaurantID primitive.ObjectID, targetTime time.Time, partySize int) (*models.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.priced[restaurantID]++
	s.target = targetTime
	return &models.PricePoint{RestaurantID: restaurantID, DateTime: targetTime}, nil
}

func (s *countingPricingService) GetDemandForecast(ctx context.Context, restaurantID primitive.ObjectID, date time.Time) (*models.DemandForecast, error) {
	return nil, nil
}

func (s *countingPricingService) GetCompetitorAnalysis(ctx context.Context, restaurantID primitive.ObjectID) (*models.CompetitorPricing, error) {
	return nil, nil
}

func (s *countingPricingService) DecisionLog(ctx context.Context, restaurantID primitive.ObjectID, limit int64) ([]*models.PricePoint, error) {
	return nil, nil
}

func TestRunOnce_PricesEveryActiveRestaurant(t *testing.T) {
	active1 := &models.Restaurant{ID: primitive.NewObjectID(), AveragePrice: 40, IsActive: true}
	active2 := &models.Restaurant{ID: primitive.NewObjectID(), AveragePrice: 60, IsActive: true}
	closed := &models.Restaurant{ID: primitive.NewObjectID(), AveragePrice: 30, IsActive: false}

	repo := newFakeRestaurantRepo(active1, active2, closed)
	pricing := newCountingPricingService()
	clock := &testClock{}

	scheduler := NewSchedulerService(repo, pricing, testPricingConfig(), testLogger(), clock)

	refreshed := scheduler.RunOnce(context.Background())
	assert.Equal(t, 2, refreshed)

	assert.Equal(t, 1, pricing.priced[active1.ID])
	assert.Equal(t, 1, pricing.priced[active2.ID])
	assert.Zero(t, pricing.priced[closed.ID], "inactive restaurants are skipped")

	// Target slot is the next quarter-hour boundary after the clock time.
	assert.Equal(t, time.Date(2026, 3, 14, 12, 15, 0, 0, time.UTC), pricing.target)
}

func TestRunOnce_SurvivesPricingFailures(t *testing.T) {
	repo := newFakeRestaurantRepo(
		&models.Restaurant{ID: primitive.NewObjectID(), IsActive: true},
		&models.Restaurant{ID: primitive.NewObjectID(), IsActive: true},
	)
	pricing := newCountingPricingService()
	pricing.err = assert.AnError

	scheduler := NewSchedulerService(repo, pricing, testPricingConfig(), testLogger(), &testClock{})

	refreshed := scheduler.RunOnce(context.Background())
	assert.Zero(t, refreshed)
}

func TestRunOnce_EmptyListing(t *testing.T) {
	scheduler := NewSchedulerService(newFakeRestaurantRepo(), newCountingPricingService(), testPricingConfig(), testLogger(), &testClock{})
	assert.Zero(t, scheduler.RunOnce(context.Background()))
}

func TestSchedulerStartStop(t *testing.T) {
	repo := newFakeRestaurantRepo()
	cfg := testPricingConfig()
	cfg.RefreshInterval = 50 * time.Millisecond

	scheduler := NewSchedulerService(repo, newCountingPricingService(), cfg, testLogger(), &testClock{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Start(ctx)

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "scheduler did not stop")
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	scheduler := NewSchedulerService(newFakeRestaurantRepo(), newCountingPricingService(), testPricingConfig(), testLogger(), &testClock{})

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		scheduler.Stop() // idempotent
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "stop blocked without a running loop")
	}
}

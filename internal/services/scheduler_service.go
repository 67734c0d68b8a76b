package services

import (
	"context"
	"sync"
	"time"

	"tablefare/internal/config"
	"tablefare/internal/repositories/interfaces"
	"tablefare/internal/utils"
	"tablefare/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SchedulerService recalculates prices for every active restaurant on a fixed
// interval so quotes are warm before diners ask for them. Runs use the same
// cache as on-demand quotes, so a slot priced recently is skipped.
type SchedulerService interface {
	Start(ctx context.Context)
	Stop()
	RunOnce(ctx context.Context) int
}

type schedulerService struct {
	restaurantRepo interfaces.RestaurantRepository
	pricingService PricingService
	config         *config.PricingConfig
	logger         *logger.Logger
	clock          utils.Clock

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewSchedulerService(
	restaurantRepo interfaces.RestaurantRepository,
	pricingService PricingService,
	cfg *config.PricingConfig,
	log *logger.Logger,
	clock utils.Clock,
) SchedulerService {
	return &schedulerService{
		restaurantRepo: restaurantRepo,
		pricingService: pricingService,
		config:         cfg,
		logger:         log,
		clock:          clock,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start launches the refresh loop. It returns immediately; the loop runs
// until Stop is called or the context is cancelled. Repeated Starts are
// no-ops.
func (s *schedulerService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.doneCh)

		ticker := time.NewTicker(s.config.RefreshInterval)
		defer ticker.Stop()

		s.logger.WithFields(map[string]interface{}{
			"interval": s.config.RefreshInterval.String(),
			"workers":  s.config.SchedulerWorkers,
		}).Info("Price refresh scheduler started")

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				refreshed := s.RunOnce(ctx)
				s.logger.WithField("restaurants", refreshed).Debug("Price refresh cycle complete")
			}
		}
	}()
}

// Stop signals the loop and waits for it to drain. Safe to call without a
// prior Start and safe to call more than once.
func (s *schedulerService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.doneCh
		}

		s.logger.Info("Price refresh scheduler stopped")
	})
}

// RunOnce prices the next upcoming slot for every active restaurant using a
// bounded worker pool. Returns the number of restaurants refreshed.
func (s *schedulerService) RunOnce(ctx context.Context) int {
	restaurants, err := s.restaurantRepo.ListActive(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduler failed to list active restaurants")
		return 0
	}
	if len(restaurants) == 0 {
		return 0
	}

	targetTime := s.nextSlot()

	jobs := make(chan primitive.ObjectID, len(restaurants))
	for _, restaurant := range restaurants {
		jobs <- restaurant.ID
	}
	close(jobs)

	workers := s.config.SchedulerWorkers
	if workers < 1 {
		workers = 1
	}

	var (
		wg        sync.WaitGroup
		refreshed int64
		mu        sync.Mutex
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for restaurantID := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				if _, err := s.pricingService.CalculatePrice(ctx, restaurantID, targetTime, 0); err != nil {
					s.logger.WithError(err).WithRestaurantID(restaurantID).Warn("Scheduled price refresh failed")
					continue
				}

				mu.Lock()
				refreshed++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return int(refreshed)
}

// nextSlot is the upcoming quarter-hour boundary, the slot diners are most
// likely to ask about next.
func (s *schedulerService) nextSlot() time.Time {
	now := s.clock.Now()
	return now.Truncate(15 * time.Minute).Add(15 * time.Minute)
}

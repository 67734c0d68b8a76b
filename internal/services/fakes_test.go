package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tablefare/internal/config"
	"tablefare/internal/models"
	"tablefare/internal/repositories/interfaces"
	"tablefare/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *logger.Logger {
	log, _ := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text", Output: "stdout"})
	return log
}

func testPricingConfig() *config.PricingConfig {
	return &config.PricingConfig{
		DefaultBasePrice:   50,
		FloorRatio:         0.5,
		CeilingRatio:       2.0,
		PriceCacheTTL:      15 * time.Minute,
		RuleCacheTTL:       time.Hour,
		CompetitorCacheTTL: 30 * time.Minute,
		CompetitorRadiusKM: 5,
		MaxCompetitors:     10,
		RefreshInterval:    15 * time.Minute,
		SchedulerWorkers:   2,
		DecisionLogLimit:   1000,
		SearchVolumeWindow: time.Hour,
		SubQueryTimeout:    2 * time.Second,
	}
}

// fakeCache is an in-memory CacheService for tests.
type fakeCache struct {
	mu             sync.Mutex
	store          map[string][]byte
	counters       map[string]int64
	lists          map[string][]string
	lastIncrExpiry time.Duration
	getErr         error
	setErr         error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		store:    make(map[string][]byte),
		counters: make(map[string]int64),
		lists:    make(map[string][]string),
	}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return c.getErr
	}
	data, ok := c.store[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = data
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.store, key)
	}
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok, nil
}

func (c *fakeCache) Increment(ctx context.Context, key string, delta int64, expiration time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key] += delta
	c.lastIncrExpiry = expiration
	return c.counters[key], nil
}

func (c *fakeCache) GetCounter(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[key], nil
}

func (c *fakeCache) PushBounded(ctx context.Context, key string, value interface{}, limit int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.lists[key] = append([]string{string(data)}, c.lists[key]...)
	if int64(len(c.lists[key])) > limit {
		c.lists[key] = c.lists[key][:limit]
	}
	return nil
}

func (c *fakeCache) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.lists[key]
	if start >= int64(len(list)) {
		return nil, nil
	}
	if stop < 0 || stop >= int64(len(list)) {
		stop = int64(len(list)) - 1
	}
	return list[start : stop+1], nil
}

func (c *fakeCache) Ping(ctx context.Context) error { return nil }

// fakeRestaurantRepo serves a fixed set of restaurants.
type fakeRestaurantRepo struct {
	restaurants map[primitive.ObjectID]*models.Restaurant
	nearby      []*models.Restaurant
	listErr     error
}

func newFakeRestaurantRepo(restaurants ...*models.Restaurant) *fakeRestaurantRepo {
	repo := &fakeRestaurantRepo{restaurants: make(map[primitive.ObjectID]*models.Restaurant)}
	for _, r := range restaurants {
		repo.restaurants[r.ID] = r
	}
	return repo
}

func (r *fakeRestaurantRepo) Create(ctx context.Context, restaurant *models.Restaurant) error {
	r.restaurants[restaurant.ID] = restaurant
	return nil
}

func (r *fakeRestaurantRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error) {
	restaurant, ok := r.restaurants[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return restaurant, nil
}

func (r *fakeRestaurantRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return nil
}

func (r *fakeRestaurantRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(r.restaurants, id)
	return nil
}

func (r *fakeRestaurantRepo) GetBasePrice(ctx context.Context, id primitive.ObjectID) (float64, error) {
	restaurant, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return restaurant.AveragePrice, nil
}

func (r *fakeRestaurantRepo) ListActive(ctx context.Context) ([]*models.Restaurant, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var active []*models.Restaurant
	for _, restaurant := range r.restaurants {
		if restaurant.IsActive {
			active = append(active, restaurant)
		}
	}
	return active, nil
}

func (r *fakeRestaurantRepo) GetNearbyByCuisine(ctx context.Context, center models.GeoPoint, cuisine string, radiusKM float64, exclude primitive.ObjectID, limit int) ([]*models.Restaurant, error) {
	return r.nearby, nil
}

// fakeReservationRepo returns preset aggregate counts.
type fakeReservationRepo struct {
	overlapping  int64
	created      int64
	cancelled    int64
	walkIns      int64
	avgPartySize float64
	daily        []models.DailyReservationCount
	countErr     error
}

func (r *fakeReservationRepo) Create(ctx context.Context, reservation *models.Reservation) error {
	return nil
}

func (r *fakeReservationRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Reservation, error) {
	return nil, interfaces.ErrNotFound
}

func (r *fakeReservationRepo) CountOverlapping(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error) {
	return r.overlapping, r.countErr
}

func (r *fakeReservationRepo) CountCreatedBetween(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error) {
	return r.created, r.countErr
}

func (r *fakeReservationRepo) CountCancelledBetween(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error) {
	return r.cancelled, r.countErr
}

func (r *fakeReservationRepo) CountWalkInsBetween(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error) {
	return r.walkIns, r.countErr
}

func (r *fakeReservationRepo) AveragePartySize(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (float64, error) {
	return r.avgPartySize, r.countErr
}

func (r *fakeReservationRepo) DailyCounts(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) ([]models.DailyReservationCount, error) {
	return r.daily, r.countErr
}

type fakeTableRepo struct {
	count    int64
	countErr error
}

func (r *fakeTableRepo) Create(ctx context.Context, table *models.Table) error { return nil }

func (r *fakeTableRepo) GetByRestaurant(ctx context.Context, restaurantID primitive.ObjectID) ([]*models.Table, error) {
	return nil, nil
}

func (r *fakeTableRepo) CountByRestaurant(ctx context.Context, restaurantID primitive.ObjectID) (int64, error) {
	return r.count, r.countErr
}

// fakeRuleRepo serves a fixed rule list.
type fakeRuleRepo struct {
	mu      sync.Mutex
	rules   []*models.PricingRule
	listErr error
}

func (r *fakeRuleRepo) Create(ctx context.Context, rule *models.PricingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID.IsZero() {
		rule.ID = primitive.NewObjectID()
	}
	r.rules = append(r.rules, rule)
	return nil
}

func (r *fakeRuleRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.PricingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeRuleRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	_, err := r.GetByID(ctx, id)
	return err
}

func (r *fakeRuleRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rule := range r.rules {
		if rule.ID == id {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (r *fakeRuleRepo) ListByRestaurant(ctx context.Context, restaurantID primitive.ObjectID) ([]*models.PricingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*models.PricingRule
	for _, rule := range r.rules {
		if rule.RestaurantID == restaurantID {
			out = append(out, rule)
		}
	}
	return out, nil
}

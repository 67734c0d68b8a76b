package services

import (
	"context"
	"testing"
	"time"

	"tablefare/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCollect_ComputesRates(t *testing.T) {
	reservations := &fakeReservationRepo{
		overlapping:  6,
		created:      48,
		cancelled:    12,
		walkIns:      6,
		avgPartySize: 3.2,
	}
	tables := &fakeTableRepo{count: 8}
	cache := newFakeCache()

	svc := NewMetricsService(reservations, tables, cache, testPricingConfig(), testLogger())

	asOf := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC) // dinner hour
	metrics, err := svc.Collect(context.Background(), primitive.NewObjectID(), asOf)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, metrics.OccupancyRate, 0.001)
	assert.InDelta(t, 2.0, metrics.ReservationVelocity, 0.001) // 48 over 24h
	assert.InDelta(t, 0.25, metrics.CancellationRate, 0.001)
	assert.InDelta(t, 0.125, metrics.WalkInRate, 0.001)
	assert.InDelta(t, 3.2, metrics.AveragePartySize, 0.001)
	assert.Equal(t, utils.PeakHourBoost, metrics.PeakHourMultiplier)
}

func TestCollect_ZeroDenominators(t *testing.T) {
	// No tables and no reservations must not divide by zero.
	reservations := &fakeReservationRepo{}
	tables := &fakeTableRepo{}
	cache := newFakeCache()

	svc := NewMetricsService(reservations, tables, cache, testPricingConfig(), testLogger())

	metrics, err := svc.Collect(context.Background(), primitive.NewObjectID(), time.Now())
	require.NoError(t, err)

	assert.Zero(t, metrics.OccupancyRate)
	assert.Zero(t, metrics.ReservationVelocity)
	assert.Zero(t, metrics.CancellationRate)
	assert.Zero(t, metrics.WalkInRate)
}

func TestCollect_OccupancyClampedToOne(t *testing.T) {
	// Overbooking beyond table count caps the rate at 1.0.
	reservations := &fakeReservationRepo{overlapping: 30}
	tables := &fakeTableRepo{count: 10}

	svc := NewMetricsService(reservations, tables, newFakeCache(), testPricingConfig(), testLogger())

	metrics, err := svc.Collect(context.Background(), primitive.NewObjectID(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1.0, metrics.OccupancyRate)
}

func TestCollect_FailedSignalDegradesToZero(t *testing.T) {
	reservations := &fakeReservationRepo{countErr: assert.AnError}
	tables := &fakeTableRepo{count: 10}

	svc := NewMetricsService(reservations, tables, newFakeCache(), testPricingConfig(), testLogger())

	metrics, err := svc.Collect(context.Background(), primitive.NewObjectID(), time.Now())
	require.NoError(t, err, "a degraded signal never fails the collection")

	assert.Zero(t, metrics.OccupancyRate)
	assert.Zero(t, metrics.ReservationVelocity)
}

func TestRecordSearch_AccumulatesVolume(t *testing.T) {
	restaurantID := primitive.NewObjectID()
	svc := NewMetricsService(&fakeReservationRepo{}, &fakeTableRepo{}, newFakeCache(), testPricingConfig(), testLogger())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.RecordSearch(ctx, restaurantID))
	}

	volume, err := svc.SearchVolume(ctx, restaurantID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), volume)

	// Other restaurants keep independent counters.
	other, err := svc.SearchVolume(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestRecordSearch_UsesConfiguredWindow(t *testing.T) {
	cache := newFakeCache()
	cfg := testPricingConfig()
	cfg.SearchVolumeWindow = 42 * time.Minute

	svc := NewMetricsService(&fakeReservationRepo{}, &fakeTableRepo{}, cache, cfg, testLogger())
	require.NoError(t, svc.RecordSearch(context.Background(), primitive.NewObjectID()))

	assert.Equal(t, 42*time.Minute, cache.lastIncrExpiry)
}

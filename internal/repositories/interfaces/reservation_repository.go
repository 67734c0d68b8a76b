package interfaces

import (
	"context"
	"time"

	"tablefare/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReservationRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, reservation *models.Reservation) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Reservation, error)

	// Demand-metric aggregates
	CountOverlapping(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error)
	CountCreatedBetween(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error)
	CountCancelledBetween(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error)
	CountWalkInsBetween(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error)
	AveragePartySize(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (float64, error)

	// Forecaster training feed
	DailyCounts(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) ([]models.DailyReservationCount, error)
}

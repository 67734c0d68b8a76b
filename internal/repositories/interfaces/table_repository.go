package interfaces

import (
	"context"

	"tablefare/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TableRepository interface {
	Create(ctx context.Context, table *models.Table) error
	GetByRestaurant(ctx context.Context, restaurantID primitive.ObjectID) ([]*models.Table, error)
	CountByRestaurant(ctx context.Context, restaurantID primitive.ObjectID) (int64, error)
}

package interfaces

import (
	"context"

	"tablefare/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RestaurantRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, restaurant *models.Restaurant) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Pricing collaborator reads
	GetBasePrice(ctx context.Context, id primitive.ObjectID) (float64, error)
	ListActive(ctx context.Context) ([]*models.Restaurant, error)

	// Location-based queries
	GetNearbyByCuisine(ctx context.Context, center models.GeoPoint, cuisine string, radiusKM float64, exclude primitive.ObjectID, limit int) ([]*models.Restaurant, error)
}

package interfaces

import (
	"context"

	"tablefare/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PricingRuleRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, rule *models.PricingRule) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.PricingRule, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Rule loading for evaluation, sorted by priority descending
	ListByRestaurant(ctx context.Context, restaurantID primitive.ObjectID) ([]*models.PricingRule, error)
}

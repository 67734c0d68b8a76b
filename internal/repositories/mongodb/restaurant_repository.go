package mongodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tablefare/internal/models"
	"tablefare/internal/repositories/interfaces"
	"tablefare/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type restaurantRepository struct {
	collection *mongo.Collection
}

func NewRestaurantRepository(db *mongo.Database) interfaces.RestaurantRepository {
	return &restaurantRepository{
		collection: db.Collection("restaurants"),
	}
}

// Basic CRUD operations
func (r *restaurantRepository) Create(ctx context.Context, restaurant *models.Restaurant) error {
	restaurant.ID = primitive.NewObjectID()
	restaurant.CreatedAt = time.Now()
	restaurant.UpdatedAt = restaurant.CreatedAt
	if restaurant.Location.Type == "" {
		restaurant.Location.Type = "Point"
	}

	_, err := r.collection.InsertOne(ctx, restaurant)
	if err != nil {
		return fmt.Errorf("failed to create restaurant: %w", err)
	}

	return nil
}

func (r *restaurantRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&restaurant)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}

	return &restaurant, nil
}

func (r *restaurantRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update restaurant: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	return nil
}

func (r *restaurantRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete restaurant: %w", err)
	}
	if result.DeletedCount == 0 {
		return interfaces.ErrNotFound
	}

	return nil
}

// Pricing collaborator reads
func (r *restaurantRepository) GetBasePrice(ctx context.Context, id primitive.ObjectID) (float64, error) {
	restaurant, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	return restaurant.AveragePrice, nil
}

func (r *restaurantRepository) ListActive(ctx context.Context) ([]*models.Restaurant, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list active restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	var restaurants []*models.Restaurant
	if err := cursor.All(ctx, &restaurants); err != nil {
		return nil, fmt.Errorf("failed to decode restaurants: %w", err)
	}

	return restaurants, nil
}

// GetNearbyByCuisine returns same-cuisine restaurants within radiusKM of the
// center, closest first, capped at limit. Mongo's $nearSphere pre-filters by
// the 2dsphere index; distances are recomputed with haversine so the sort
// matches the analyzer's own distance figures.
func (r *restaurantRepository) GetNearbyByCuisine(ctx context.Context, center models.GeoPoint, cuisine string, radiusKM float64, exclude primitive.ObjectID, limit int) ([]*models.Restaurant, error) {
	filter := bson.M{
		"_id":       bson.M{"$ne": exclude},
		"cuisine":   cuisine,
		"is_active": true,
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": center.Coordinates,
				},
				"$maxDistance": radiusKM * 1000, // meters
			},
		},
	}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	var restaurants []*models.Restaurant
	if err := cursor.All(ctx, &restaurants); err != nil {
		return nil, fmt.Errorf("failed to decode nearby restaurants: %w", err)
	}

	sort.SliceStable(restaurants, func(i, j int) bool {
		di := utils.CalculateDistance(center.Latitude(), center.Longitude(),
			restaurants[i].Location.Latitude(), restaurants[i].Location.Longitude())
		dj := utils.CalculateDistance(center.Latitude(), center.Longitude(),
			restaurants[j].Location.Latitude(), restaurants[j].Location.Longitude())
		return di < dj
	})

	return restaurants, nil
}

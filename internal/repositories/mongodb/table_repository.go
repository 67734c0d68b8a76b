package mongodb

import (
	"context"
	"fmt"
	"time"

	"tablefare/internal/models"
	"tablefare/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type tableRepository struct {
	collection *mongo.Collection
}

func NewTableRepository(db *mongo.Database) interfaces.TableRepository {
	return &tableRepository{
		collection: db.Collection("tables"),
	}
}

func (r *tableRepository) Create(ctx context.Context, table *models.Table) error {
	table.ID = primitive.NewObjectID()
	table.CreatedAt = time.Now()
	table.UpdatedAt = table.CreatedAt

	_, err := r.collection.InsertOne(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

func (r *tableRepository) GetByRestaurant(ctx context.Context, restaurantID primitive.ObjectID) ([]*models.Table, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"restaurant_id": restaurantID,
		"is_active":     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer cursor.Close(ctx)

	var tables []*models.Table
	if err := cursor.All(ctx, &tables); err != nil {
		return nil, fmt.Errorf("failed to decode tables: %w", err)
	}

	return tables, nil
}

func (r *tableRepository) CountByRestaurant(ctx context.Context, restaurantID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"restaurant_id": restaurantID,
		"is_active":     true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count tables: %w", err)
	}

	return count, nil
}

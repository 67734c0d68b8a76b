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

type reservationRepository struct {
	collection *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) interfaces.ReservationRepository {
	return &reservationRepository{
		collection: db.Collection("reservations"),
	}
}

func (r *reservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	reservation.ID = primitive.NewObjectID()
	reservation.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return &reservation, nil
}

// CountOverlapping counts reservations holding a table at any point inside
// [from, to], i.e. starting before the window ends and ending after it opens.
func (r *reservationRepository) CountOverlapping(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error) {
	filter := bson.M{
		"restaurant_id": restaurantID,
		"status": bson.M{"$in": []models.ReservationStatus{
			models.ReservationStatusConfirmed,
			models.ReservationStatusSeated,
		}},
		"start_time": bson.M{"$lte": to},
		"end_time":   bson.M{"$gte": from},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping reservations: %w", err)
	}

	return count, nil
}

func (r *reservationRepository) CountCreatedBetween(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error) {
	filter := bson.M{
		"restaurant_id": restaurantID,
		"created_at":    bson.M{"$gte": from, "$lte": to},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count created reservations: %w", err)
	}

	return count, nil
}

func (r *reservationRepository) CountCancelledBetween(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error) {
	filter := bson.M{
		"restaurant_id": restaurantID,
		"status":        models.ReservationStatusCancelled,
		"cancelled_at":  bson.M{"$gte": from, "$lte": to},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count cancelled reservations: %w", err)
	}

	return count, nil
}

func (r *reservationRepository) CountWalkInsBetween(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (int64, error) {
	filter := bson.M{
		"restaurant_id": restaurantID,
		"is_walk_in":    true,
		"created_at":    bson.M{"$gte": from, "$lte": to},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count walk-ins: %w", err)
	}

	return count, nil
}

func (r *reservationRepository) AveragePartySize(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) (float64, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"restaurant_id": restaurantID,
				"created_at":    bson.M{"$gte": from, "$lte": to},
			},
		},
		{
			"$group": bson.M{
				"_id":     nil,
				"average": bson.M{"$avg": "$party_size"},
			},
		},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate party size: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Average float64 `bson:"average"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode party size aggregate: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}

	return results[0].Average, nil
}

func (r *reservationRepository) DailyCounts(ctx context.Context, restaurantID primitive.ObjectID, from, to time.Time) ([]models.DailyReservationCount, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"restaurant_id": restaurantID,
				"created_at":    bson.M{"$gte": from, "$lte": to},
			},
		},
		{
			"$group": bson.M{
				"_id": bson.M{
					"$dateTrunc": bson.M{"date": "$created_at", "unit": "day"},
				},
				"count": bson.M{"$sum": 1},
			},
		},
		{
			"$sort": bson.M{"_id": 1},
		},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily counts: %w", err)
	}
	defer cursor.Close(ctx)

	var counts []models.DailyReservationCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode daily counts: %w", err)
	}

	return counts, nil
}

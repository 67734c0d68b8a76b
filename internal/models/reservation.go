package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusSeated    ReservationStatus = "seated"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusNoShow    ReservationStatus = "no_show"
)

type Reservation struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RestaurantID primitive.ObjectID `json:"restaurant_id" bson:"restaurant_id" validate:"required"`
	TableID      primitive.ObjectID `json:"table_id" bson:"table_id"`
	GuestName    string             `json:"guest_name" bson:"guest_name"`
	PartySize    int                `json:"party_size" bson:"party_size" validate:"required,min=1"`
	Status       ReservationStatus  `json:"status" bson:"status"`
	StartTime    time.Time          `json:"start_time" bson:"start_time" validate:"required"`
	EndTime      time.Time          `json:"end_time" bson:"end_time"`
	IsWalkIn     bool               `json:"is_walk_in" bson:"is_walk_in"`
	QuotedPrice  float64            `json:"quoted_price" bson:"quoted_price"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

// DailyReservationCount is an aggregation row used to feed forecaster training.
type DailyReservationCount struct {
	Date  time.Time `json:"date" bson:"_id"`
	Count int64     `json:"count" bson:"count"`
}

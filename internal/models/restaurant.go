package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoPoint is a GeoJSON point, coordinates ordered [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type" bson:"type" default:"Point"`
	Coordinates [2]float64 `json:"coordinates" bson:"coordinates"`
}

func NewGeoPoint(latitude, longitude float64) GeoPoint {
	return GeoPoint{
		Type:        "Point",
		Coordinates: [2]float64{longitude, latitude},
	}
}

func (p GeoPoint) Latitude() float64 {
	return p.Coordinates[1]
}

func (p GeoPoint) Longitude() float64 {
	return p.Coordinates[0]
}

type Restaurant struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name" validate:"required"`
	Cuisine      string             `json:"cuisine" bson:"cuisine" validate:"required"`
	Location     GeoPoint           `json:"location" bson:"location"`
	Address      string             `json:"address" bson:"address"`
	City         string             `json:"city" bson:"city"`
	AveragePrice float64            `json:"average_price" bson:"average_price" validate:"required,min=0"`
	Currency     string             `json:"currency" bson:"currency" default:"USD"`
	Rating       float64            `json:"rating" bson:"rating"`
	IsActive     bool               `json:"is_active" bson:"is_active" default:"true"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

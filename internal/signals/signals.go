package signals

import (
	"context"
	"time"

	"tablefare/internal/models"
)

// WeatherProvider supplies the weather contribution to pricing factors.
// Implementations wrap an external feed; the engine only ever sees a bounded
// multiplier and a temperature reading.
type WeatherProvider interface {
	Factor(ctx context.Context, location models.GeoPoint, at time.Time) (float64, error)
	TemperatureC(ctx context.Context, location models.GeoPoint, at time.Time) (float64, error)
}

// EventProvider supplies the local-events contribution to pricing factors.
type EventProvider interface {
	Factor(ctx context.Context, location models.GeoPoint, at time.Time) (float64, error)
}

// NeutralWeather is the default when no weather feed is attached.
type NeutralWeather struct{}

func (NeutralWeather) Factor(ctx context.Context, location models.GeoPoint, at time.Time) (float64, error) {
	return 1.0, nil
}

func (NeutralWeather) TemperatureC(ctx context.Context, location models.GeoPoint, at time.Time) (float64, error) {
	return 20.0, nil
}

// NeutralEvents is the default when no events feed is attached.
type NeutralEvents struct{}

func (NeutralEvents) Factor(ctx context.Context, location models.GeoPoint, at time.Time) (float64, error) {
	return 1.0, nil
}

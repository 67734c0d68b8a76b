package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDistance(t *testing.T) {
	// Notre-Dame to the Eiffel Tower, roughly 4.1 km.
	distance := CalculateDistance(48.8530, 2.3499, 48.8584, 2.2945)
	assert.InDelta(t, 4.1, distance, 0.2)

	assert.Zero(t, CalculateDistance(48.8530, 2.3499, 48.8530, 2.3499))
}

func TestIsWithinRadius(t *testing.T) {
	assert.True(t, IsWithinRadius(48.8530, 2.3499, 48.8584, 2.2945, 5))
	assert.False(t, IsWithinRadius(48.8530, 2.3499, 48.8584, 2.2945, 2))
}

package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"appraisal/server/internal/models"
)

func located(lat, lon float64) models.PropertySnapshot {
	return models.PropertySnapshot{Latitude: &lat, Longitude: &lon}
}

func TestProximityKm(t *testing.T) {
	// Montreal city hall to Olympic stadium, roughly 5.5 km
	km, ok := ProximityKm(located(45.5088, -73.5540), located(45.5580, -73.5519))
	assert.True(t, ok)
	assert.InDelta(t, 5.47, km, 0.1)

	km, ok = ProximityKm(located(45.5, -73.5), located(45.5, -73.5))
	assert.True(t, ok)
	assert.Equal(t, 0.0, km)
}

func TestProximityKm_MissingCoordinates(t *testing.T) {
	_, ok := ProximityKm(models.PropertySnapshot{}, located(45.5, -73.5))
	assert.False(t, ok)

	_, ok = ProximityKm(located(45.5, -73.5), located(120, -73.5))
	assert.False(t, ok)
}

func TestBound(t *testing.T) {
	payload := models.ComparisonPayload{
		Subject:     located(45.5, -73.6),
		Comparables: []models.PropertySnapshot{located(45.6, -73.5), {}},
	}

	b, ok := Bound(payload)
	assert.True(t, ok)
	assert.Equal(t, -73.6, b.Min[0])
	assert.Equal(t, 45.6, b.Max[1])

	_, ok = Bound(models.ComparisonPayload{})
	assert.False(t, ok)
}

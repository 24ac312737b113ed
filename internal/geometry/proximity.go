package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"appraisal/server/internal/models"
)

// PointOf returns the snapshot's location as an orb.Point (lon, lat)
func PointOf(p models.PropertySnapshot) (orb.Point, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return orb.Point{}, false
	}
	lat, lon := *p.Latitude, *p.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

// ProximityKm returns the great-circle distance between subject and comparable in kilometres,
// rounded to two decimals. ok is false when either side has no usable coordinates.
func ProximityKm(subject, comparable models.PropertySnapshot) (km float64, ok bool) {
	from, ok := PointOf(subject)
	if !ok {
		return 0, false
	}
	to, ok := PointOf(comparable)
	if !ok {
		return 0, false
	}
	meters := geo.Distance(from, to)
	return math.Round(meters/10) / 100, true
}

// Bound returns the bounding box around the subject and all comparables with coordinates
func Bound(payload models.ComparisonPayload) (orb.Bound, bool) {
	var points orb.MultiPoint
	if p, ok := PointOf(payload.Subject); ok {
		points = append(points, p)
	}
	for _, c := range payload.Comparables {
		if p, ok := PointOf(c); ok {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return orb.Bound{}, false
	}
	return points.Bound(), true
}

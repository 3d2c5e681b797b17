package geospatial

import (
	"math"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm calculates the great-circle distance in kilometres between two points.
func HaversineKm(a, b domain.GeoPoint) float64 {
	phi1 := toRad(a.Lat)
	phi2 := toRad(b.Lat)
	dPhi := toRad(b.Lat - a.Lat)
	dLambda := toRad(b.Lon - a.Lon)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// rounding can push h a hair above 1 for antipodal points
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(math.Min(1, h)))
}

// Within reports whether b lies within radiusKm of a. The bound is inclusive.
func Within(a, b domain.GeoPoint, radiusKm float64) bool {
	return HaversineKm(a, b) <= radiusKm
}

// Box is a latitude/longitude rectangle.
type Box struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// BoundingBox returns a box enclosing every point within radiusKm of p, so
// points outside it can be rejected without a haversine. The box spans all
// longitudes when the circle reaches a pole or crosses the antimeridian.
func BoundingBox(p domain.GeoPoint, radiusKm float64) Box {
	// pad for rounding so the box never cuts the inclusive radius
	d := radiusKm / earthRadiusKm * (1 + 1e-9)
	latDelta := toDeg(d)

	b := Box{MinLat: p.Lat - latDelta, MaxLat: p.Lat + latDelta, MinLon: -180, MaxLon: 180}
	if b.MinLat <= -90 || b.MaxLat >= 90 {
		b.MinLat, b.MaxLat = math.Max(b.MinLat, -90), math.Min(b.MaxLat, 90)
		return b
	}

	s := math.Sin(d) / math.Cos(toRad(p.Lat))
	if s >= 1 {
		return b
	}
	lonDelta := toDeg(math.Asin(s))
	if p.Lon-lonDelta < -180 || p.Lon+lonDelta > 180 {
		return b
	}
	b.MinLon, b.MaxLon = p.Lon-lonDelta, p.Lon+lonDelta
	return b
}

// Contains reports whether p lies in b, edges included.
func (b Box) Contains(p domain.GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

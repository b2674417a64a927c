package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// earthRadiusInMeters represents the mean radius of the Earth in meters.
//
// This value (6,371,000 meters) is defined as the Earth's volumetric mean radius,
// which is commonly used for general geospatial calculations and spherical approximations.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusInMeters = 6371000

// feetPerMeter is the international foot conversion factor used for all
// user-facing distances.
const feetPerMeter = 3.28084

// Distance returns the great-circle distance between a and b in meters.
//
// Inputs must be finite. NaN or infinite coordinates produce NaN, which callers
// are expected to filter at their ingestion boundary (see IsFinite).
func Distance(a, b Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * earthRadiusInMeters
}

// MetersToFeet converts meters to feet.
func MetersToFeet(m float64) float64 {
	return m * feetPerMeter
}

// FeetToMeters converts feet to meters.
func FeetToMeters(ft float64) float64 {
	return ft / feetPerMeter
}

// IsFinite reports whether both components of c are finite numbers.
func IsFinite(c Coordinate) bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lon) && !math.IsInf(c.Lon, 0)
}

// IsValidLatLon returns true if the coordinate is finite and falls within the
// valid geographic bounds: latitude in [-90, 90], longitude in [-180, 180].
//
// Unlike vehicle feeds, a rider can legitimately stand at (0,0), so the origin is
// not treated as a placeholder here.
func IsValidLatLon(c Coordinate) bool {
	if !IsFinite(c) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// BoundingBox defines the corners of a lat/lon box
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains checks whether the given coordinate is within the bounding box
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// ComputeBoundingBox computes the bounding box of the given coordinates.
// The second return value is false when no finite coordinate was supplied.
func ComputeBoundingBox(coords []Coordinate) (BoundingBox, bool) {
	box := BoundingBox{
		MinLat: math.MaxFloat64,
		MaxLat: -math.MaxFloat64,
		MinLon: math.MaxFloat64,
		MaxLon: -math.MaxFloat64,
	}
	found := false
	for _, c := range coords {
		if !IsFinite(c) {
			continue
		}
		found = true
		box.MinLat = math.Min(box.MinLat, c.Lat)
		box.MaxLat = math.Max(box.MaxLat, c.Lat)
		box.MinLon = math.Min(box.MinLon, c.Lon)
		box.MaxLon = math.Max(box.MaxLon, c.Lon)
	}
	if !found {
		return BoundingBox{}, false
	}
	return box, true
}

// MetersPerPixel approximates the ground resolution of a web mercator map at the
// given zoom level and latitude (256 px tiles).
func MetersPerPixel(zoom, lat float64) float64 {
	const earthCircumference = 40075016.686
	latRad := lat * math.Pi / 180
	return math.Cos(latRad) * earthCircumference / math.Pow(2, zoom+8)
}

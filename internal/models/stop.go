package models

import (
	"time"

	"rider.badgertransit.org/internal/geo"
)

// Stop is a catalog entry. ID is kept as a string so that leading zeros in
// ids such as "0626" survive every round trip.
type Stop struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Coordinate returns the stop position.
func (s Stop) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: s.Lat, Lon: s.Lon}
}

// RankedStop is a Stop annotated for one ranking pass. It is never persisted.
type RankedStop struct {
	Stop
	DistanceMeters float64 `json:"distanceMeters"`
	DistanceFeet   float64 `json:"distanceFeet"`
	VisitCount     uint32  `json:"visitCount"`
}

// VisitRecord is one entry of the recent stops list. The JSON field names
// follow the shape already stored on riders' devices.
type VisitRecord struct {
	StopID        string    `json:"stopId"`
	Name          string    `json:"name,omitempty"`
	LastVisitedAt time.Time `json:"lastVisited"`
	VisitCount    uint32    `json:"visit_count"`
}

// StopDetails is the live enrichment fetched from the backend for a stop.
type StopDetails struct {
	Routes      []string `json:"routes"`
	Description string   `json:"description"`
}

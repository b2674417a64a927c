package catalog

import (
	"sync"
	"time"

	"rider.badgertransit.org/internal/geo"
	"rider.badgertransit.org/internal/models"
)

// Store is a thread-safe in-memory snapshot of the stop catalog. Each Set
// replaces the whole snapshot, including its spatial index.
type Store struct {
	mu       sync.RWMutex
	stops    []models.Stop
	byID     map[string]int
	index    *geo.PointIndex
	bbox     geo.BoundingBox
	hasBox   bool
	loadedAt time.Time
	source   string
}

func NewStore() *Store {
	return &Store{index: geo.NewPointIndex(nil)}
}

// Set replaces the catalog. source describes where it came from (url, file
// or cache) and is only used for reporting.
func (s *Store) Set(stops []models.Stop, source string, at time.Time) {
	coords := make([]geo.Coordinate, len(stops))
	byID := make(map[string]int, len(stops))
	for i, stop := range stops {
		coords[i] = stop.Coordinate()
		byID[stop.ID] = i
	}
	index := geo.NewPointIndex(coords)
	bbox, hasBox := geo.ComputeBoundingBox(coords)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops = stops
	s.byID = byID
	s.index = index
	s.bbox = bbox
	s.hasBox = hasBox
	s.loadedAt = at
	s.source = source
}

// Stops returns the current snapshot. Callers must not modify it.
func (s *Store) Stops() []models.Stop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stops
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stops)
}

func (s *Store) Get(id string) (models.Stop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return models.Stop{}, false
	}
	return s.stops[i], true
}

// Nearby returns the stops whose index cell intersects the circle. The
// result may include stops slightly outside the radius.
func (s *Store) Nearby(center geo.Coordinate, radiusMeters float64) []models.Stop {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := s.index.Within(center, radiusMeters)
	out := make([]models.Stop, 0, len(positions))
	for _, pos := range positions {
		out = append(out, s.stops[pos])
	}
	return out
}

// BoundingBox returns the area covered by the catalog, if any.
func (s *Store) BoundingBox() (geo.BoundingBox, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bbox, s.hasBox
}

// Info describes the loaded snapshot.
type Info struct {
	Stops    int       `json:"stops"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loadedAt"`
}

func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{Stops: len(s.stops), Source: s.source, LoadedAt: s.loadedAt}
}

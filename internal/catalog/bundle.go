package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamespfennell/gtfs"
	"rider.badgertransit.org/internal/geo"
	"rider.badgertransit.org/internal/models"
)

var ErrNoStops = errors.New("GTFS bundle contains no usable stops")

// ParseBundle extracts the boarding stops of a GTFS static bundle. Stations,
// entrances and other location types are skipped, as are stops without a
// valid position. The parsed feed is returned for further inspection.
func ParseBundle(data []byte) ([]models.Stop, *gtfs.Static, error) {
	static, err := gtfs.ParseStatic(data, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse GTFS static data: %w", err)
	}

	stops := make([]models.Stop, 0, len(static.Stops))
	for _, s := range static.Stops {
		// Location type 0 is a stop or platform riders can board at.
		if s.Type != 0 || s.Latitude == nil || s.Longitude == nil {
			continue
		}
		stop := models.Stop{
			ID:   s.Id,
			Name: stopName(s),
			Lat:  *s.Latitude,
			Lon:  *s.Longitude,
		}
		if stop.ID == "" || !geo.IsValidLatLon(stop.Coordinate()) {
			continue
		}
		stops = append(stops, stop)
	}

	if len(stops) == 0 {
		return nil, static, ErrNoStops
	}
	return stops, static, nil
}

// stopName falls back to the parent station's name, then to the stop id.
func stopName(s gtfs.Stop) string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	if s.Parent != nil {
		if root := s.Root(); root.Type == 1 && strings.TrimSpace(root.Name) != "" {
			return strings.TrimSpace(root.Name)
		}
	}
	return "Stop " + s.Id
}

package suggest

import (
	"sort"

	"rider.badgertransit.org/internal/geo"
	"rider.badgertransit.org/internal/models"
)

const (
	// MaxDistanceFeet is the farthest a suggested stop can be.
	MaxDistanceFeet = 2000
	// CloseThresholdFeet is the width of a close group measured from its
	// nearest stop.
	CloseThresholdFeet = 500
	DefaultLimit       = 3
)

// VisitCounter looks up how often the rider visited a stop. Unknown stops
// count as zero.
type VisitCounter interface {
	VisitCount(stopID string) uint32
}

// VisitCountFunc adapts a function to VisitCounter.
type VisitCountFunc func(stopID string) uint32

func (f VisitCountFunc) VisitCount(stopID string) uint32 { return f(stopID) }

// Rank orders the catalog stops near user. Stops farther than
// MaxDistanceFeet are dropped and the rest sorted by distance. The sorted list
// is then cut into close groups, each holding its first stop and every
// following stop within CloseThresholdFeet of that first stop, and each group
// is reordered by visit count, highest first. At most limit stops are
// returned; a limit of zero or less means DefaultLimit.
func Rank(user geo.Coordinate, catalog []models.Stop, visits VisitCounter, limit int) []models.RankedStop {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if !geo.IsFinite(user) {
		return []models.RankedStop{}
	}

	ranked := make([]models.RankedStop, 0, len(catalog))
	for _, stop := range catalog {
		c := stop.Coordinate()
		if !geo.IsFinite(c) {
			continue
		}
		meters := geo.Distance(user, c)
		feet := geo.MetersToFeet(meters)
		if !(feet <= MaxDistanceFeet) {
			continue
		}
		var count uint32
		if visits != nil {
			count = visits.VisitCount(stop.ID)
		}
		ranked = append(ranked, models.RankedStop{
			Stop:           stop,
			DistanceMeters: meters,
			DistanceFeet:   feet,
			VisitCount:     count,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceFeet < ranked[j].DistanceFeet
	})

	for start := 0; start < len(ranked) && start < limit; {
		anchor := ranked[start].DistanceFeet
		end := start + 1
		for end < len(ranked) && ranked[end].DistanceFeet-anchor <= CloseThresholdFeet {
			end++
		}
		group := ranked[start:end]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].VisitCount > group[j].VisitCount
		})
		start = end
	}

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

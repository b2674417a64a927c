package smartlaunch

import (
	"math"
	"time"

	"rider.badgertransit.org/internal/geo"
	"rider.badgertransit.org/internal/models"
)

// FindMatch returns the first enabled rule, in list order, that is active at
// now and whose circle contains loc. Rules with an unusable radius or center
// are never matched.
func FindMatch(loc geo.Coordinate, rules []models.GeofenceRule, now time.Time) (models.GeofenceRule, bool) {
	if !geo.IsValidLatLon(loc) {
		return models.GeofenceRule{}, false
	}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !(rule.RadiusMeters > 0) || math.IsInf(rule.RadiusMeters, 0) || !geo.IsValidLatLon(rule.Center) {
			continue
		}
		if !IsActive(rule, now) {
			continue
		}
		if geo.Distance(loc, rule.Center) <= rule.RadiusMeters {
			return rule, true
		}
	}
	return models.GeofenceRule{}, false
}

// hasEnabled reports whether any rule could ever match.
func hasEnabled(rules []models.GeofenceRule) bool {
	for _, r := range rules {
		if r.Enabled {
			return true
		}
	}
	return false
}

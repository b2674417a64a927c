package metrics

import (
	"errors"
	"time"

	"github.com/jamespfennell/gtfs"
)

var ErrNoServices = errors.New("no services found in GTFS bundle")

// CheckCatalogExpiration returns the number of days until the latest service
// end date in the bundle and publishes it.
func CheckCatalogExpiration(static *gtfs.Static, now time.Time) (int, error) {
	if static == nil || len(static.Services) == 0 {
		return 0, ErrNoServices
	}

	// The GTFS library does not expose feed_info.txt, so services are used instead.
	latest := static.Services[0].EndDate
	for _, service := range static.Services {
		if service.EndDate.After(latest) {
			latest = service.EndDate
		}
	}

	days := int(latest.Sub(now).Hours() / 24)
	CatalogDaysUntilExpiration.Set(float64(days))
	return days, nil
}

package metrics

import (
	"github.com/golang/geo/s2"
	"rider.badgertransit.org/internal/models"
)

const coverageLevel = 10 // ~600m spatial resolution

// coverageCell returns the S2 cell at coverageLevel containing the stop.
func coverageCell(stop models.Stop) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(stop.Lat, stop.Lon)).Parent(coverageLevel)
}

// ReportCatalogCoverage publishes the size of the active catalog and the number
// of distinct cells it covers. It returns the cell count.
func ReportCatalogCoverage(stops []models.Stop) int {
	cells := make(map[s2.CellID]struct{})
	for _, stop := range stops {
		cells[coverageCell(stop)] = struct{}{}
	}

	CatalogStopsLoaded.Set(float64(len(stops)))
	CatalogCoverageCells.Set(float64(len(cells)))
	return len(cells)
}

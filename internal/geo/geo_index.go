package geo

import (
	"sort"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// coverMaxLevel caps the S2 covering at roughly 150 m cells, fine enough for
// walking-distance queries without producing huge coverings.
const coverMaxLevel = 16

type indexEntry struct {
	cell s2.CellID
	pos  int
}

// PointIndex is an immutable spatial index over a slice of coordinates.
// Entries are keyed by their S2 leaf cell so that a cap covering can be
// resolved with a binary search per covering cell.
type PointIndex struct {
	entries []indexEntry
}

// NewPointIndex indexes coords. Non-finite coordinates are skipped.
// Positions returned by Within refer to the index in coords.
func NewPointIndex(coords []Coordinate) *PointIndex {
	entries := make([]indexEntry, 0, len(coords))
	for i, c := range coords {
		if !IsValidLatLon(c) {
			continue
		}
		entries = append(entries, indexEntry{
			cell: s2.CellIDFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon)),
			pos:  i,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].cell < entries[j].cell })
	return &PointIndex{entries: entries}
}

// Len returns the number of indexed points.
func (idx *PointIndex) Len() int {
	return len(idx.entries)
}

// Within returns the positions of all indexed points that may lie within
// radiusMeters of center. The result is a superset: callers still apply an
// exact distance check. Positions are returned in ascending order.
func (idx *PointIndex) Within(center Coordinate, radiusMeters float64) []int {
	if len(idx.entries) == 0 || !IsValidLatLon(center) || radiusMeters < 0 {
		return nil
	}

	capRegion := s2.CapFromCenterAngle(
		s2.PointFromLatLng(s2.LatLngFromDegrees(center.Lat, center.Lon)),
		s1.Angle(radiusMeters/earthRadiusInMeters),
	)
	coverer := &s2.RegionCoverer{MaxLevel: coverMaxLevel, MaxCells: 8}
	covering := coverer.Covering(capRegion)

	seen := make(map[int]struct{})
	var out []int
	for _, cell := range covering {
		lo, hi := cell.RangeMin(), cell.RangeMax()
		start := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].cell >= lo })
		for i := start; i < len(idx.entries) && idx.entries[i].cell <= hi; i++ {
			pos := idx.entries[i].pos
			if _, ok := seen[pos]; ok {
				continue
			}
			seen[pos] = struct{}{}
			out = append(out, pos)
		}
	}
	sort.Ints(out)
	return out
}

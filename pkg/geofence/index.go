// Package geofence maintains a best-effort spatial index of circular
// regions, keyed by H3 cell for fast point-in-region queries.
package geofence

import (
	"fmt"
	"sync"

	h3 "github.com/uber/h3-go/v4"

	"geoguidego/pkg/geo"
)

// Resolution 9 cells have an edge length around 175 m, a good fit for
// pedestrian-scale region radii.
const cellResolution = 9

// DefaultMaxRegions caps the index size.
const DefaultMaxRegions = 90

// Region is a circular area of interest around a point.
type Region struct {
	ID      string
	Name    string
	Lat     float64
	Lon     float64
	RadiusM float64
}

// Index answers point-in-region queries. The index is rebuilt wholesale
// on refresh; lookups hit the cell of the query point plus its first
// neighbor ring, then confirm with an exact distance check.
type Index struct {
	maxRegions int

	mu      sync.RWMutex
	regions map[string]Region    // by id
	byCell  map[h3.Cell][]string // cell -> region ids
}

// NewIndex creates an empty index. maxRegions <= 0 uses the default cap.
func NewIndex(maxRegions int) *Index {
	if maxRegions <= 0 {
		maxRegions = DefaultMaxRegions
	}
	return &Index{
		maxRegions: maxRegions,
		regions:    make(map[string]Region),
		byCell:     make(map[h3.Cell][]string),
	}
}

// Refresh replaces the indexed region set. Regions beyond the cap are
// dropped in input order. Returns an error only when cell computation
// fails; callers treat the index as best effort.
func (x *Index) Refresh(regions []Region) error {
	if len(regions) > x.maxRegions {
		regions = regions[:x.maxRegions]
	}

	next := make(map[string]Region, len(regions))
	byCell := make(map[h3.Cell][]string)

	for _, r := range regions {
		cell, err := h3.LatLngToCell(h3.NewLatLng(r.Lat, r.Lon), cellResolution)
		if err != nil {
			return fmt.Errorf("cell for region %s: %w", r.ID, err)
		}
		next[r.ID] = r

		// Register in every cell the radius can reach so a query from a
		// neighboring cell still finds the region.
		cells, err := h3.GridDisk(cell, ringsForRadius(r.RadiusM))
		if err != nil {
			return fmt.Errorf("grid disk for region %s: %w", r.ID, err)
		}
		for _, c := range cells {
			byCell[c] = append(byCell[c], r.ID)
		}
	}

	x.mu.Lock()
	x.regions = next
	x.byCell = byCell
	x.mu.Unlock()
	return nil
}

// ringsForRadius returns how many neighbor rings a region of the given
// radius can span at the index resolution.
func ringsForRadius(radiusM float64) int {
	const edgeM = 175.0
	rings := int(radiusM/edgeM) + 1
	if rings > 5 {
		rings = 5
	}
	return rings
}

// Query returns all regions containing the point.
func (x *Index) Query(lat, lon float64) []Region {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), cellResolution)
	if err != nil {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	ids := x.byCell[cell]
	if len(ids) == 0 {
		return nil
	}

	pt := geo.Point{Lat: lat, Lon: lon}
	var hits []Region
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		r, ok := x.regions[id]
		if !ok {
			continue
		}
		if geo.Distance(pt, geo.Point{Lat: r.Lat, Lon: r.Lon}) <= r.RadiusM {
			hits = append(hits, r)
		}
	}
	return hits
}

// Len returns the number of indexed regions.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.regions)
}

package geofence

import (
	"fmt"
	"testing"
)

func TestQueryContainment(t *testing.T) {
	x := NewIndex(0)
	err := x.Refresh([]Region{
		{ID: "red-square", Name: "Красная площадь", Lat: 55.7539, Lon: 37.6208, RadiusM: 300},
		{ID: "gorky-park", Name: "Парк Горького", Lat: 55.7298, Lon: 37.6019, RadiusM: 500},
	})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// Inside red square radius
	hits := x.Query(55.7540, 37.6210)
	if len(hits) != 1 || hits[0].ID != "red-square" {
		t.Errorf("Query inside = %v, want red-square", hits)
	}

	// Between the two, outside both radii
	hits = x.Query(55.7420, 37.6100)
	if len(hits) != 0 {
		t.Errorf("Query outside = %v, want none", hits)
	}

	// Far away
	hits = x.Query(59.9343, 30.3351)
	if len(hits) != 0 {
		t.Errorf("Query far = %v, want none", hits)
	}
}

func TestQueryAcrossCellBoundary(t *testing.T) {
	x := NewIndex(0)
	// Large radius reaching well beyond the home cell
	if err := x.Refresh([]Region{
		{ID: "big", Lat: 55.7539, Lon: 37.6208, RadiusM: 600},
	}); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// ~500 m north of center, in a different cell but within radius
	hits := x.Query(55.7584, 37.6208)
	if len(hits) != 1 {
		t.Errorf("expected hit across cell boundary, got %v", hits)
	}
}

func TestRefreshCapsRegions(t *testing.T) {
	x := NewIndex(0)
	regions := make([]Region, 120)
	for i := range regions {
		regions[i] = Region{
			ID:      fmt.Sprintf("r%d", i),
			Lat:     55.0 + float64(i)*0.01,
			Lon:     37.0,
			RadiusM: 100,
		}
	}
	if err := x.Refresh(regions); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if x.Len() != DefaultMaxRegions {
		t.Errorf("Len = %d, want cap %d", x.Len(), DefaultMaxRegions)
	}
}

func TestRefreshReplacesIndex(t *testing.T) {
	x := NewIndex(0)
	_ = x.Refresh([]Region{{ID: "a", Lat: 55.75, Lon: 37.62, RadiusM: 200}})
	_ = x.Refresh([]Region{{ID: "b", Lat: 55.75, Lon: 37.62, RadiusM: 200}})

	hits := x.Query(55.75, 37.62)
	if len(hits) != 1 || hits[0].ID != "b" {
		t.Errorf("stale regions survived refresh: %v", hits)
	}
}

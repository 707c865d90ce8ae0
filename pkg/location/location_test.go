package location

import (
	"context"
	"testing"
	"time"

	"geoguidego/pkg/config"
	"geoguidego/pkg/geo"
	"geoguidego/pkg/model"
)

func TestTrackerLatest(t *testing.T) {
	tr := NewTracker()

	if _, err := tr.Latest(); err != ErrNoFix {
		t.Errorf("expected ErrNoFix before first update, got %v", err)
	}

	tr.Update(model.Fix{Lat: 55.75, Lon: 37.61})
	fix, err := tr.Latest()
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if fix.Lat != 55.75 {
		t.Errorf("Lat = %v, want 55.75", fix.Lat)
	}

	// Only the newest fix is retained
	tr.Update(model.Fix{Lat: 55.76, Lon: 37.62})
	fix, _ = tr.Latest()
	if fix.Lat != 55.76 {
		t.Errorf("Lat = %v, want latest 55.76", fix.Lat)
	}
}

func TestMockWalkMoves(t *testing.T) {
	m := NewMockWalk(config.MockWalkConfig{
		StartLat: 55.7558,
		StartLon: 37.6173,
		SpeedMS:  10, // fast so displacement is measurable quickly
		Interval: config.Duration(10 * time.Millisecond),
	})
	tr := NewTracker()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = m.Run(ctx, tr)

	fix, err := tr.Latest()
	if err != nil {
		t.Fatalf("no fix produced: %v", err)
	}

	start := geo.Point{Lat: 55.7558, Lon: 37.6173}
	moved := geo.Distance(start, geo.Point{Lat: fix.Lat, Lon: fix.Lon})
	if moved <= 0 {
		t.Errorf("walker did not move: %v m", moved)
	}
	// 10 m/s for ~0.2s should stay well under 10 m
	if moved > 50 {
		t.Errorf("walker moved implausibly far: %v m", moved)
	}
}

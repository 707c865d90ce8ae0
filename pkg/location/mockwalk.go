package location

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"geoguidego/pkg/config"
	"geoguidego/pkg/geo"
	"geoguidego/pkg/model"
)

// MockWalk simulates a pedestrian walking from a start point, drifting
// its heading a little every step. Useful for development without a GPS
// source.
type MockWalk struct {
	cfg config.MockWalkConfig
	rng *rand.Rand
}

// NewMockWalk creates a simulated walk provider.
func NewMockWalk(cfg config.MockWalkConfig) *MockWalk {
	if cfg.SpeedMS <= 0 {
		cfg.SpeedMS = 1.4 // average walking pace
	}
	if cfg.Interval <= 0 {
		cfg.Interval = config.Duration(time.Second)
	}
	return &MockWalk{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockWalk) Name() string { return "mock" }

// Run pushes one fix per interval until the context is cancelled.
func (m *MockWalk) Run(ctx context.Context, sink *Tracker) error {
	pos := geo.Point{Lat: m.cfg.StartLat, Lon: m.cfg.StartLon}
	heading := m.cfg.StartHeading
	interval := time.Duration(m.cfg.Interval)
	stepM := m.cfg.SpeedMS * interval.Seconds()

	slog.Info("Mock walk started",
		"lat", pos.Lat, "lon", pos.Lon, "speed_ms", m.cfg.SpeedMS)

	sink.Update(model.Fix{Lat: pos.Lat, Lon: pos.Lon, Accuracy: 5, Timestamp: time.Now()})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Wander: heading drifts up to ±15 degrees per step
			heading += (m.rng.Float64() - 0.5) * 30
			pos = geo.DestinationPoint(pos, stepM, heading)
			sink.Update(model.Fix{
				Lat:       pos.Lat,
				Lon:       pos.Lon,
				Accuracy:  5,
				Timestamp: time.Now(),
			})
		}
	}
}

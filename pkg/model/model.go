package model

import (
	"strconv"
	"time"
)

// Fix represents a single location sample from a provider.
type Fix struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Accuracy  float64   `json:"accuracy"` // meters, 0 = unknown
	Timestamp time.Time `json:"timestamp"`
}

// POI represents a Point of Interest from OpenStreetMap.
type POI struct {
	OSMID   int64  `json:"osm_id"`   // OSM element id (primary key together with OSMType)
	OSMType string `json:"osm_type"` // "node" or "way"

	Title       string `json:"title"`
	Description string `json:"description"`

	// Coordinates: node position, or way center / geometry centroid.
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// Category is the single announced category id.
	Category string `json:"category"`
	// MatchedCategories are all category ids whose tags matched, in
	// declared category order.
	MatchedCategories []string `json:"matched_categories"`

	// Distance from the current fix in meters. Derived, not persisted.
	Distance float64 `json:"distance"`

	CreatedAt time.Time `json:"created_at"`
}

// Key returns the store identity of the POI, e.g. "node/123".
func (p *POI) Key() string {
	return p.OSMType + "/" + strconv.FormatInt(p.OSMID, 10)
}

// HistoryEntry records one announced POI.
type HistoryEntry struct {
	ID                string    `json:"id"` // uuid
	POIKey            string    `json:"poi_key"`
	Name              string    `json:"name"`
	Lat               float64   `json:"lat"`
	Lon               float64   `json:"lon"`
	Distance          float64   `json:"distance"` // meters from fix at announcement time
	Category          string    `json:"category"`
	MatchedCategories []string  `json:"matched_categories"`
	AnnouncedAt       time.Time `json:"announced_at"`
}

// SpeechItem is one unit of work for the speech queue.
type SpeechItem struct {
	ID         string        `json:"id"` // uuid
	POIKey     string        `json:"poi_key"`
	Text       string        `json:"text"`
	Speed      float64       `json:"speed"`
	Pitch      float64       `json:"pitch"`
	Pause      time.Duration `json:"pause"` // silence after playback
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

// Settings is the user-tunable snapshot driving the engine.
type Settings struct {
	RadiusM           float64  `json:"radius_m" yaml:"radius_m" validate:"gt=0,lte=20000"`
	MinDisplacementM  float64  `json:"min_displacement_m" yaml:"min_displacement_m" validate:"gte=0"`
	MaxObjects        int      `json:"max_objects" yaml:"max_objects" validate:"gte=1,lte=50"`
	PauseMS           int      `json:"pause_ms" yaml:"pause_ms" validate:"gte=0,lte=60000"`
	Speed             float64  `json:"speed" yaml:"speed" validate:"gte=0.25,lte=4"`
	Pitch             float64  `json:"pitch" yaml:"pitch" validate:"gte=0.25,lte=4"`
	Language          string   `json:"language" yaml:"language" validate:"required,len=2"`
	EnabledCategories []string `json:"enabled_categories" yaml:"enabled_categories"`
}

// Pause returns the inter-announcement pause as a duration.
func (s Settings) Pause() time.Duration {
	return time.Duration(s.PauseMS) * time.Millisecond
}

// CategoryEnabled reports whether the category id is in the enabled set.
// An empty set disables every category.
func (s Settings) CategoryEnabled(id string) bool {
	for _, c := range s.EnabledCategories {
		if c == id {
			return true
		}
	}
	return false
}

// DefaultSettings mirrors the defaults the service ships with. Every
// built-in category is enabled explicitly; the list must stay in sync
// with the shipped category set.
func DefaultSettings() Settings {
	return Settings{
		RadiusM:          500,
		MinDisplacementM: 50,
		MaxObjects:       5,
		PauseMS:          2000,
		Speed:            0.9,
		Pitch:            1.0,
		Language:         "ru",
		EnabledCategories: []string{
			"historical", "religious_buildings", "religion", "denomination", "tourism",
		},
	}
}

// EngineStatus is a point-in-time snapshot of the announcement engine,
// served by the status API.
type EngineStatus struct {
	Running        bool      `json:"running"`
	StatusText     string    `json:"status_text"`
	LastFix        *Fix      `json:"last_fix,omitempty"`
	AnchorLat      float64   `json:"anchor_lat"`
	AnchorLon      float64   `json:"anchor_lon"`
	ActiveRegions  []string  `json:"active_regions,omitempty"`
	AnnouncedCount int       `json:"announced_count"`
	QueueDepth     int       `json:"queue_depth"`
	CooldownUntil  time.Time `json:"cooldown_until,omitempty"`
	LastFetchError string    `json:"last_fetch_error,omitempty"`
	LastCycleAt    time.Time `json:"last_cycle_at,omitempty"`
}

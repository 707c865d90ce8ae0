package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request   RequestConfig   `yaml:"request"`
	Overpass  OverpassConfig  `yaml:"overpass"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	TTS       TTSConfig       `yaml:"tts"`
	Speech    SpeechConfig    `yaml:"speech"`
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Location  LocationConfig  `yaml:"location"`
	History   HistoryConfig   `yaml:"history"`
	Geofence  GeofenceConfig  `yaml:"geofence"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// OverpassConfig holds settings for the Overpass API.
type OverpassConfig struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"` // server-side [timeout:] and client deadline
}

// WikipediaConfig holds settings for article extract enrichment.
type WikipediaConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EdgeTTSConfig holds settings for Edge TTS.
type EdgeTTSConfig struct {
	VoiceID string `yaml:"voice"` // e.g. "ru-RU-DmitryNeural"
}

// TTSConfig holds Text-To-Speech settings.
type TTSConfig struct {
	Engine  string        `yaml:"engine"`
	EdgeTTS EdgeTTSConfig `yaml:"edge_tts"`
}

// SpeechConfig holds speech queue settings.
type SpeechConfig struct {
	RenderTimeout Duration `yaml:"render_timeout"` // hard cap per utterance
	RetryDelay    Duration `yaml:"retry_delay"`    // requeue delay while channel not ready
}

// EngineConfig holds announcement engine settings.
type EngineConfig struct {
	Tick Duration `yaml:"tick"`
}

// LocationConfig holds location provider settings.
type LocationConfig struct {
	Provider string         `yaml:"provider"` // "mock" (gpsd etc. would slot in here)
	Mock     MockWalkConfig `yaml:"mock"`
}

// MockWalkConfig holds settings for the simulated walk provider.
type MockWalkConfig struct {
	StartLat     float64  `yaml:"start_lat"`
	StartLon     float64  `yaml:"start_lon"`
	StartHeading float64  `yaml:"start_heading"`
	SpeedMS      float64  `yaml:"speed_ms"` // walking speed, meters per second
	Interval     Duration `yaml:"interval"`
}

// HistoryConfig holds announcement history settings.
type HistoryConfig struct {
	Retention       Duration `yaml:"retention"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// GeofenceConfig holds region index settings.
type GeofenceConfig struct {
	MaxRegions int `yaml:"max_regions"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	TTS      LogSettings `yaml:"tts"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Timeout: Duration(30 * time.Second),
		},
		Overpass: OverpassConfig{
			URL:     "https://overpass-api.de/api/interpreter",
			Timeout: Duration(30 * time.Second),
		},
		Wikipedia: WikipediaConfig{
			Enabled: true,
		},
		TTS: TTSConfig{
			Engine: "edge-tts",
			EdgeTTS: EdgeTTSConfig{
				VoiceID: "ru-RU-DmitryNeural",
			},
		},
		Speech: SpeechConfig{
			RenderTimeout: Duration(30 * time.Second),
			RetryDelay:    Duration(1 * time.Second),
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			TTS: LogSettings{
				Path:  "./logs/tts.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/geoguide.db",
		},
		Server: ServerConfig{
			Address: "localhost:1921",
		},
		Engine: EngineConfig{
			Tick: Duration(1 * time.Second),
		},
		Location: LocationConfig{
			Provider: "mock",
			Mock: MockWalkConfig{
				StartLat:     55.7558,
				StartLon:     37.6173,
				StartHeading: 45.0,
				SpeedMS:      1.4,
				Interval:     Duration(1 * time.Second),
			},
		},
		History: HistoryConfig{
			Retention:       Duration(7 * Day),
			CleanupInterval: Duration(6 * time.Hour),
		},
		Geofence: GeofenceConfig{
			MaxRegions: 90,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Env fallback for the Overpass endpoint (not saved back to disk)
		if url := os.Getenv("OVERPASS_URL"); url != "" {
			cfg.Overpass.URL = url
		}

		return cfg, nil
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# GeoGuideGo Configuration
# ------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles)

`)
	data = append(header, data...)

	// Inject comments for Enum fields
	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: edge-tts, mock\n${1}engine:"))

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: mock\n${1}provider:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}

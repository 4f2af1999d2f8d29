package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/sandtable/internal/terrain"
)

// TuningConfig represents the root configuration for terrain tuning
// parameters. The schema matches the /api/terrain/params endpoint so the
// same JSON can be used for startup configuration and for inspecting a
// running instance.
//
// All fields are pointers so a partial config file only overrides what it
// names; the Get* methods supply defaults for everything else.
type TuningConfig struct {
	// Pipeline cadence and depth window
	UpdateInterval *string  `json:"update_interval,omitempty"` // duration string like "50ms"
	MinDistance    *float64 `json:"min_distance,omitempty"`    // metres
	MaxDistance    *float64 `json:"max_distance,omitempty"`    // metres

	// Terrain shaping
	SmoothingFactor *float64 `json:"smoothing_factor,omitempty"`
	BlendRange      *float64 `json:"blend_range,omitempty"`

	// Grid resolutions
	HeightmapResolution *int `json:"heightmap_resolution,omitempty"`
	AlphamapResolution  *int `json:"alphamap_resolution,omitempty"`

	// Texture layers, ordered by height threshold
	Layers []terrain.Layer `json:"layers,omitempty"`

	// Persistence and diagnostics cadence
	SnapshotInterval *string `json:"snapshot_interval,omitempty"` // duration string like "5m"
	StatsInterval    *string `json:"stats_interval,omitempty"`    // duration string, "0" disables
}

// EmptyTuningConfig returns a TuningConfig with all fields unset, so every
// Get* method returns its default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and be under the max file size. Fields omitted from the
// JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.UpdateInterval != nil && *c.UpdateInterval != "" {
		d, err := time.ParseDuration(*c.UpdateInterval)
		if err != nil {
			return fmt.Errorf("invalid update_interval '%s': %w", *c.UpdateInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("update_interval must be positive, got %s", d)
		}
	}

	if c.MinDistance != nil && *c.MinDistance < 0 {
		return fmt.Errorf("min_distance must be non-negative, got %f", *c.MinDistance)
	}
	if c.MinDistance != nil && c.MaxDistance != nil && *c.MaxDistance <= *c.MinDistance {
		return fmt.Errorf("max_distance (%f) must exceed min_distance (%f)", *c.MaxDistance, *c.MinDistance)
	}

	if c.SmoothingFactor != nil {
		if *c.SmoothingFactor < 0 || *c.SmoothingFactor > 1 {
			return fmt.Errorf("smoothing_factor must be between 0 and 1, got %f", *c.SmoothingFactor)
		}
	}
	if c.BlendRange != nil {
		if *c.BlendRange < 0 || *c.BlendRange > 1 {
			return fmt.Errorf("blend_range must be between 0 and 1, got %f", *c.BlendRange)
		}
	}

	if c.HeightmapResolution != nil && *c.HeightmapResolution < 2 {
		return fmt.Errorf("heightmap_resolution must be at least 2, got %d", *c.HeightmapResolution)
	}
	if c.AlphamapResolution != nil && *c.AlphamapResolution < 2 {
		return fmt.Errorf("alphamap_resolution must be at least 2, got %d", *c.AlphamapResolution)
	}

	for i, l := range c.Layers {
		if l.Height < 0 || l.Height > 1 {
			return fmt.Errorf("layer %d (%s) height %f outside [0,1]", i, l.Name, l.Height)
		}
	}

	if c.SnapshotInterval != nil && *c.SnapshotInterval != "" {
		if _, err := time.ParseDuration(*c.SnapshotInterval); err != nil {
			return fmt.Errorf("invalid snapshot_interval '%s': %w", *c.SnapshotInterval, err)
		}
	}
	if c.StatsInterval != nil && *c.StatsInterval != "" {
		if _, err := time.ParseDuration(*c.StatsInterval); err != nil {
			return fmt.Errorf("invalid stats_interval '%s': %w", *c.StatsInterval, err)
		}
	}

	return nil
}

// GetUpdateInterval parses and returns the UpdateInterval as a time.Duration.
func (c *TuningConfig) GetUpdateInterval() time.Duration {
	if c.UpdateInterval == nil || *c.UpdateInterval == "" {
		return 50 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.UpdateInterval)
	if err != nil {
		return 50 * time.Millisecond // default on parse error
	}
	return d
}

// GetMinDistance returns the min_distance value in metres or the default.
func (c *TuningConfig) GetMinDistance() float64 {
	if c.MinDistance == nil {
		return 0.5 // default
	}
	return *c.MinDistance
}

// GetMaxDistance returns the max_distance value in metres or the default.
func (c *TuningConfig) GetMaxDistance() float64 {
	if c.MaxDistance == nil {
		return 1.5 // default
	}
	return *c.MaxDistance
}

// GetSmoothingFactor returns the smoothing_factor value or the default.
func (c *TuningConfig) GetSmoothingFactor() float64 {
	if c.SmoothingFactor == nil {
		return 0.85
	}
	return *c.SmoothingFactor
}

// GetBlendRange returns the blend_range value or the default.
func (c *TuningConfig) GetBlendRange() float64 {
	if c.BlendRange == nil {
		return 0.1
	}
	return *c.BlendRange
}

// GetHeightmapResolution returns the heightmap_resolution value or the default.
func (c *TuningConfig) GetHeightmapResolution() int {
	if c.HeightmapResolution == nil {
		return 129
	}
	return *c.HeightmapResolution
}

// GetAlphamapResolution returns the alphamap_resolution value, falling back
// to the heightmap resolution.
func (c *TuningConfig) GetAlphamapResolution() int {
	if c.AlphamapResolution == nil {
		return c.GetHeightmapResolution()
	}
	return *c.AlphamapResolution
}

// GetLayers returns the configured texture layers or the default sand,
// grass, rock stack.
func (c *TuningConfig) GetLayers() []terrain.Layer {
	if len(c.Layers) == 0 {
		return []terrain.Layer{
			{Name: "sand", Height: 0.0},
			{Name: "grass", Height: 0.45},
			{Name: "rock", Height: 0.8},
		}
	}
	return c.Layers
}

// GetSnapshotInterval parses and returns the SnapshotInterval as a
// time.Duration.
func (c *TuningConfig) GetSnapshotInterval() time.Duration {
	if c.SnapshotInterval == nil || *c.SnapshotInterval == "" {
		return 5 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.SnapshotInterval)
	if err != nil {
		return 5 * time.Minute // default on parse error
	}
	return d
}

// GetStatsInterval parses and returns the StatsInterval as a time.Duration.
// A configured "0" disables the stats log line.
func (c *TuningConfig) GetStatsInterval() time.Duration {
	if c.StatsInterval == nil || *c.StatsInterval == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.StatsInterval)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	if d == 0 {
		return -1 // negative disables
	}
	return d
}

// EngineConfig builds a terrain.Config from the tuning values. The sink,
// queue and store are wired by the caller.
func (c *TuningConfig) EngineConfig() terrain.Config {
	return terrain.Config{
		UpdateInterval:      c.GetUpdateInterval(),
		MinDistance:         c.GetMinDistance(),
		MaxDistance:         c.GetMaxDistance(),
		SmoothingFactor:     c.GetSmoothingFactor(),
		BlendRange:          c.GetBlendRange(),
		HeightmapResolution: c.GetHeightmapResolution(),
		AlphamapResolution:  c.GetAlphamapResolution(),
		Layers:              c.GetLayers(),
		SnapshotInterval:    c.GetSnapshotInterval(),
		StatsInterval:       c.GetStatsInterval(),
	}
}

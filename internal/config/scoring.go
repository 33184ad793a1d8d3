// Package config loads the vehicle consumption model from JSON. Fields
// omitted from the file keep their built-in defaults, so partial override
// files are safe to ship.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/route.report/internal/track"
)

// ScoringConfig is the JSON schema for consumption model overrides. Every
// field is optional; map entries override only the codes they name.
type ScoringConfig struct {
	// BaseConsumption is litres of fuel per 100 km under neutral conditions.
	BaseConsumption *float64 `json:"base_consumption,omitempty"`
	// CO2PerLitre is kilograms of CO2 per litre of fuel burned.
	CO2PerLitre *float64 `json:"co2_per_litre,omitempty"`

	// Keyed by single-character road code (r, l, m).
	RoadFactors map[string]float64 `json:"road_factors,omitempty"`
	RoadSpeeds  map[string]float64 `json:"road_speeds,omitempty"`

	// Keyed by single-character terrain code (d, g, p).
	TerrainFactors map[string]float64 `json:"terrain_factors,omitempty"`

	// Keyed by slope band percentage ("-8", "-4", "0", "4", "8", "12").
	SlopeFactors map[string]float64 `json:"slope_factors,omitempty"`
}

// LoadScoringConfig loads a ScoringConfig from a JSON file. The file must
// have a .json extension and stay under the max file size.
func LoadScoringConfig(path string) (*ScoringConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ScoringConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return cfg, nil
}

// Apply merges the overrides onto base and validates the result. The
// returned params are independent of base, which is left untouched.
func (c *ScoringConfig) Apply(base track.ScoringParams) (track.ScoringParams, error) {
	p := track.ScoringParams{
		BaseConsumption: base.BaseConsumption,
		CO2PerLitre:     base.CO2PerLitre,
		RoadFactors:     make(map[track.Road]float64, len(base.RoadFactors)),
		RoadSpeeds:      make(map[track.Road]float64, len(base.RoadSpeeds)),
		TerrainFactors:  make(map[track.Terrain]float64, len(base.TerrainFactors)),
		SlopeFactors:    make(map[int]float64, len(base.SlopeFactors)),
	}
	for k, v := range base.RoadFactors {
		p.RoadFactors[k] = v
	}
	for k, v := range base.RoadSpeeds {
		p.RoadSpeeds[k] = v
	}
	for k, v := range base.TerrainFactors {
		p.TerrainFactors[k] = v
	}
	for k, v := range base.SlopeFactors {
		p.SlopeFactors[k] = v
	}

	if c.BaseConsumption != nil {
		p.BaseConsumption = *c.BaseConsumption
	}
	if c.CO2PerLitre != nil {
		p.CO2PerLitre = *c.CO2PerLitre
	}
	for code, v := range c.RoadFactors {
		r, err := roadCode(code)
		if err != nil {
			return track.ScoringParams{}, fmt.Errorf("road_factors: %w", err)
		}
		p.RoadFactors[r] = v
	}
	for code, v := range c.RoadSpeeds {
		r, err := roadCode(code)
		if err != nil {
			return track.ScoringParams{}, fmt.Errorf("road_speeds: %w", err)
		}
		p.RoadSpeeds[r] = v
	}
	for code, v := range c.TerrainFactors {
		t, err := terrainCode(code)
		if err != nil {
			return track.ScoringParams{}, fmt.Errorf("terrain_factors: %w", err)
		}
		p.TerrainFactors[t] = v
	}
	for code, v := range c.SlopeFactors {
		band, err := strconv.Atoi(code)
		if err != nil {
			return track.ScoringParams{}, fmt.Errorf("slope_factors: band %q is not an integer", code)
		}
		p.SlopeFactors[band] = v
	}

	if err := p.Validate(); err != nil {
		return track.ScoringParams{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return p, nil
}

// LoadScoringParams is the common caller path: defaults when path is
// empty, otherwise defaults with the file's overrides applied.
func LoadScoringParams(path string) (track.ScoringParams, error) {
	base := track.DefaultScoringParams()
	if path == "" {
		return base, nil
	}
	cfg, err := LoadScoringConfig(path)
	if err != nil {
		return track.ScoringParams{}, err
	}
	return cfg.Apply(base)
}

func roadCode(s string) (track.Road, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("road code %q must be a single character", s)
	}
	for _, r := range track.Roads {
		if track.Road(s[0]) == r {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown road code %q", s)
}

func terrainCode(s string) (track.Terrain, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("terrain code %q must be a single character", s)
	}
	for _, t := range track.Terrains {
		if track.Terrain(s[0]) == t {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown terrain code %q", s)
}

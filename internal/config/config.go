// Package config holds the pipeline defaults read from the YAML config file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-terrain/internal/border"
	"github.com/joeblew999/plat-terrain/internal/contour"
	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
)

// Config is the top-level config file.
type Config struct {
	Pipeline Pipeline `yaml:"pipeline" json:"pipeline"`
	Borders  Borders  `yaml:"borders" json:"borders"`
}

// Pipeline holds the defaults applied when a region is loaded.
type Pipeline struct {
	BucketSize      int            `yaml:"bucketSize" json:"bucketSize"`
	Reducer         raster.Reducer `yaml:"reducer" json:"reducer"`
	Layout          layout.Mode    `yaml:"layout" json:"layout"`
	PointScale      float64        `yaml:"pointScale" json:"pointScale"`
	ContourInterval float64        `yaml:"contourInterval" json:"contourInterval"`
	Exaggeration    float64        `yaml:"exaggeration" json:"exaggeration"`
	ContourLift     float64        `yaml:"contourLift" json:"contourLift"`
}

// Borders configures border segmentation and indexing.
type Borders struct {
	CellSizeDeg       float64 `yaml:"cellSizeDeg" json:"cellSizeDeg"`
	SimplifyTolerance float64 `yaml:"simplifyTolerance" json:"simplifyTolerance"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			BucketSize:      1,
			Reducer:         raster.ReduceMax,
			Layout:          layout.Bars,
			ContourInterval: 100,
			Exaggeration:    1,
			ContourLift:     contour.DefaultLift,
		},
		Borders: Borders{
			CellSizeDeg: border.DefaultCellSizeDeg,
		},
	}
}

// Load reads path over the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	p := c.Pipeline
	if p.BucketSize < 1 {
		return fmt.Errorf("%w: bucketSize %d", raster.ErrInvalidBucketSize, p.BucketSize)
	}
	if !p.Reducer.Valid() {
		return fmt.Errorf("%w: %d", raster.ErrUnknownReducer, int(p.Reducer))
	}
	if !p.Layout.Valid() {
		return fmt.Errorf("%w: %d", layout.ErrUnknownMode, int(p.Layout))
	}
	if p.PointScale < 0 {
		return fmt.Errorf("pointScale must not be negative: %v", p.PointScale)
	}
	if !(p.ContourInterval > 0) {
		return fmt.Errorf("contourInterval must be positive: %v", p.ContourInterval)
	}
	if c.Borders.CellSizeDeg < 0 || c.Borders.SimplifyTolerance < 0 {
		return fmt.Errorf("border cell size and simplify tolerance must not be negative")
	}
	if cs := c.Borders.CellSizeDeg; cs != 0 && !(cs >= border.MinCellSizeDeg && cs <= 360) {
		return fmt.Errorf("cellSizeDeg %v is outside %v..360 degrees", cs, border.MinCellSizeDeg)
	}
	return nil
}

// ContourOptions returns the contour options the pipeline defaults describe.
func (p Pipeline) ContourOptions() contour.Options {
	return contour.Options{
		Interval:     p.ContourInterval,
		Exaggeration: p.Exaggeration,
		Lift:         p.ContourLift,
	}
}

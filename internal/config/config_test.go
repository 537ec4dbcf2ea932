package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if cfg != Default() {
			t.Fatalf("Load(%q) = %+v, want defaults", path, cfg)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  bucketSize: 4
  reducer: median
  layout: surface
  contourInterval: 25
borders:
  simplifyTolerance: 0.01
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	p := cfg.Pipeline
	if p.BucketSize != 4 || p.Reducer != raster.ReduceMedian || p.Layout != layout.Surface || p.ContourInterval != 25 {
		t.Fatalf("pipeline = %+v", p)
	}
	if p.Exaggeration != 1 {
		t.Fatalf("exaggeration = %v, want default kept", p.Exaggeration)
	}
	if cfg.Borders.SimplifyTolerance != 0.01 || cfg.Borders.CellSizeDeg != Default().Borders.CellSizeDeg {
		t.Fatalf("borders = %+v", cfg.Borders)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"bucket size", "pipeline:\n  bucketSize: 0\n", raster.ErrInvalidBucketSize},
		{"reducer", "pipeline:\n  reducer: mode\n", raster.ErrUnknownReducer},
		{"layout", "pipeline:\n  layout: voxels\n", layout.ErrUnknownMode},
		{"interval", "pipeline:\n  contourInterval: -5\n", nil},
		{"tiny cell size", "borders:\n  cellSizeDeg: 1e-9\n", nil},
		{"negative cell size", "borders:\n  cellSizeDeg: -1\n", nil},
		{"huge cell size", "borders:\n  cellSizeDeg: 400\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/joeblew999/plat-terrain/internal/config"
	"github.com/joeblew999/plat-terrain/internal/contour"
	"github.com/joeblew999/plat-terrain/internal/db"
	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
)

// writeRegion writes an 8x4 ramp raster rising by one per column.
func writeRegion(t *testing.T, dataDir, name string) {
	t.Helper()
	var cells []string
	for row := 0; row < 4; row++ {
		for col := 0; col < 8; col++ {
			cells = append(cells, fmt.Sprint(col*10+row))
		}
	}
	body := fmt.Sprintf(`{"width": 8, "height": 4, "elevation": [%s],
		"bounds": {"left": 0, "right": 8, "top": 4, "bottom": 0}}`, strings.Join(cells, ","))
	writeFile(t, filepath.Join(dataDir, "regions", name), body)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestService(t *testing.T) (*TerrainService, string) {
	t.Helper()
	dir := t.TempDir()
	writeRegion(t, dir, "ramp.json")
	writeFile(t, filepath.Join(dir, "borders", "line.json"),
		`{"countries": [{"name": "A", "segments": [{"lon": [2, 2], "lat": [0, 4]}]}], "states": []}`)

	duck := db.NewLazy(db.Config{DataDir: dir})
	t.Cleanup(func() { duck.Close() })
	s := NewTerrainService(NewRegionService(dir), NewBorderService(dir, duck), NewEventBus(), config.Default())
	return s, dir
}

func TestNoRegion(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.SetResolution(ctx, 2, raster.ReduceMax); !errors.Is(err, ErrNoRegion) {
		t.Fatalf("SetResolution err = %v, want ErrNoRegion", err)
	}
	if _, _, err := s.Contours(ctx, contour.Options{Interval: 10}); !errors.Is(err, ErrNoRegion) {
		t.Fatalf("Contours err = %v, want ErrNoRegion", err)
	}
	if _, _, err := s.Nearest(0, 0); !errors.Is(err, ErrNoRegion) {
		t.Fatalf("Nearest err = %v, want ErrNoRegion", err)
	}
}

func TestLoadRegion(t *testing.T) {
	s, _ := newTestService(t)

	snap, err := s.LoadRegion(context.Background(), "ramp.json")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Region != "ramp.json" || snap.Bucketed.Width != 8 || snap.Bucketed.Height != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Transform.Width != 8 || snap.Transform.Mode != layout.Bars {
		t.Fatalf("transform = %+v", snap.Transform)
	}
	if s.Snapshot() != snap {
		t.Fatal("loaded snapshot is not current")
	}
}

func TestLoadRegionRejectsBadNames(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.LoadRegion(ctx, "../ramp.json"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("traversal err = %v, want ErrInvalidName", err)
	}
	if _, err := s.LoadRegion(ctx, "absent.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v, want ErrNotFound", err)
	}
}

func TestSetResolution(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, err := s.LoadRegion(ctx, "ramp.json"); err != nil {
		t.Fatal(err)
	}

	snap, err := s.SetResolution(ctx, 2, raster.ReduceMin)
	if err != nil {
		t.Fatal(err)
	}
	b := snap.Bucketed
	if b.Width != 4 || b.Height != 2 || b.BucketSize != 2 || b.Reducer != raster.ReduceMin {
		t.Fatalf("bucketed = %dx%d n=%d %v", b.Width, b.Height, b.BucketSize, b.Reducer)
	}
	if v, _ := b.Elevation.At(1, 3); v != 62 {
		t.Fatalf("bucket (1,3) = %v, want 62", v)
	}
	if snap.Transform.BucketSize != 2 || snap.Transform.Width != 4 {
		t.Fatalf("transform = %+v", snap.Transform)
	}

	if _, err := s.SetResolution(ctx, 0, raster.ReduceMax); !errors.Is(err, raster.ErrInvalidBucketSize) {
		t.Fatalf("n=0 err = %v", err)
	}
	if _, err := s.SetResolution(ctx, 16, raster.ReduceMax); !errors.Is(err, layout.ErrEmptyGrid) {
		t.Fatalf("n=16 err = %v", err)
	}
	if s.Snapshot().Bucketed.BucketSize != 2 {
		t.Fatal("failed request changed the current snapshot")
	}
}

func TestSetResolutionDiscardsStaleResult(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, err := s.LoadRegion(ctx, "ramp.json"); err != nil {
		t.Fatal(err)
	}

	// A second request arrives while the first is between aggregation and
	// publication.
	var newer *Snapshot
	var newerErr error
	s.afterAggregate = func() {
		s.afterAggregate = nil
		newer, newerErr = s.SetResolution(ctx, 2, raster.ReduceMax)
	}

	if _, err := s.SetResolution(ctx, 4, raster.ReduceMax); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("stale request err = %v, want ErrSuperseded", err)
	}
	if newerErr != nil {
		t.Fatal(newerErr)
	}
	if cur := s.Snapshot(); cur != newer || cur.Bucketed.BucketSize != 2 {
		t.Fatalf("current bucket size = %d, want 2 from the newer request", cur.Bucketed.BucketSize)
	}
}

func TestSetLayoutKeepsResolution(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	// Before a region the mode is remembered for the next load.
	if _, err := s.SetLayout(layout.Surface, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadRegion(ctx, "ramp.json"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetResolution(ctx, 2, raster.ReduceMax); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Transform.Mode; got != layout.Surface {
		t.Fatalf("mode = %v, want surface", got)
	}

	snap, err := s.SetLayout(layout.Points, 3)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Transform.Mode != layout.Points || snap.Transform.Spacing() != 3 || snap.Bucketed.BucketSize != 2 {
		t.Fatalf("transform = %+v", snap.Transform)
	}
	if _, err := s.SetLayout(layout.Mode(9), 0); !errors.Is(err, layout.ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
}

func TestBordersFollowLayout(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, err := s.LoadRegion(ctx, "ramp.json"); err != nil {
		t.Fatal(err)
	}
	snap, err := s.LoadBorders(ctx, "line.json")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Borders.Len() != 1 {
		t.Fatalf("segments = %d, want 1", snap.Borders.Len())
	}
	before := snap.Borders.Segments()[0]

	m, ok, err := s.Nearest(2.1, 2)
	if err != nil || !ok || m.Segment.Entity != "A" {
		t.Fatalf("nearest = %+v %v %v", m, ok, err)
	}

	snap, err = s.SetLayout(layout.Surface, 0)
	if err != nil {
		t.Fatal(err)
	}
	after := snap.Borders.Segments()[0]
	if after.AX == before.AX {
		t.Fatal("border render positions not rebuilt for the new layout")
	}
	if after.AXLon != before.AXLon || after.AXLat != before.AXLat {
		t.Fatal("geographic endpoints changed with the layout")
	}
}

func TestContoursMatchSequentialTrace(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	snap, err := s.LoadRegion(ctx, "ramp.json")
	if err != nil {
		t.Fatal(err)
	}

	for _, style := range []contour.Style{contour.FirstCrossing, contour.CellSegments} {
		lines, _, err := s.ContourLines(ctx, 15, style)
		if err != nil {
			t.Fatal(err)
		}
		want, err := contour.TraceGrid(snap.Bucketed.Elevation, snap.Bucketed.Stats, 15, style)
		if err != nil {
			t.Fatal(err)
		}
		if len(lines) == 0 || !reflect.DeepEqual(lines, want) {
			t.Fatalf("style %d: parallel trace differs from sequential (%d vs %d lines)", style, len(lines), len(want))
		}
	}

	if _, _, err := s.ContourLines(ctx, 1e-9, contour.FirstCrossing); !errors.Is(err, contour.ErrTooManyLevels) {
		t.Fatalf("fine interval err = %v, want ErrTooManyLevels", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := s.ContourLines(cancelled, 15, contour.FirstCrossing); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled err = %v", err)
	}
}

func TestEventsPublished(t *testing.T) {
	s, _ := newTestService(t)
	ch := s.Bus().Subscribe()
	defer s.Bus().Unsubscribe(ch)

	snap, err := s.LoadRegion(context.Background(), "ramp.json")
	if err != nil {
		t.Fatal(err)
	}
	e := <-ch
	if e.Resource != ResourceRegion || e.ID != "ramp.json" || e.Generation != snap.Generation {
		t.Fatalf("event = %+v", e)
	}
}

func TestCatalogs(t *testing.T) {
	s, dir := newTestService(t)
	writeFile(t, filepath.Join(dir, "regions", "notes.txt"), "ignored")

	regions, err := s.regions.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 1 || regions[0].Name != "ramp.json" || regions[0].FileType != "Raster" {
		t.Fatalf("regions = %+v", regions)
	}

	empty := NewBorderService(filepath.Join(dir, "nowhere"), nil)
	files, err := empty.List()
	if err != nil || files == nil || len(files) != 0 {
		t.Fatalf("missing dir list = %v, %v", files, err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		12:          "12 B",
		2048:        "2.0 KB",
		5 * 1 << 20: "5.0 MB",
	}
	for in, want := range tests {
		if got := formatSize(in); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

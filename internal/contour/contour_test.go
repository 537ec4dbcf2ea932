package contour

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
)

func grid(t *testing.T, rows [][]float64) raster.Grid {
	t.Helper()
	g, err := raster.GridFromRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
		interval float64
		want     []float64
	}{
		{"basic", 10, 55, 20, []float64{20, 40}},
		{"inclusive max", 0, 40, 20, []float64{0, 20, 40}},
		{"negative min", -15, 12, 10, []float64{-10, 0, 10}},
		{"zero interval", 0, 100, 0, nil},
		{"negative interval", 0, 100, -5, nil},
		{"above range", 1, 9, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Levels(raster.Stats{Min: tt.min, Max: tt.max}, tt.interval)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("levels=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevelsRejectsTooFineInterval(t *testing.T) {
	stats := raster.Stats{Min: 0, Max: 4000}
	for _, interval := range []float64{1e-9, 4000.0 / MaxLevels, math.SmallestNonzeroFloat64} {
		if _, err := Levels(stats, interval); !errors.Is(err, ErrTooManyLevels) {
			t.Errorf("interval %g: err=%v, want ErrTooManyLevels", interval, err)
		}
	}

	levels, err := Levels(stats, 4000.0/(MaxLevels-1))
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) > MaxLevels {
		t.Fatalf("%d levels, want at most %d", len(levels), MaxLevels)
	}

	g := grid(t, [][]float64{{0, 4000}, {0, 4000}})
	if _, err := TraceGrid(g, stats, 1e-9, FirstCrossing); !errors.Is(err, ErrTooManyLevels) {
		t.Fatalf("TraceGrid err=%v, want ErrTooManyLevels", err)
	}
}

func TestTraceFirstCrossing(t *testing.T) {
	g := grid(t, [][]float64{
		{0, 10},
		{0, 10},
	})

	lines := TraceLevel(g, 5, FirstCrossing)
	if len(lines) != 1 {
		t.Fatalf("lines=%d, want 1", len(lines))
	}
	want := []GridPoint{{X: 0.5, Y: 0}}
	if !reflect.DeepEqual(lines[0].Points, want) {
		t.Fatalf("points=%v, want %v", lines[0].Points, want)
	}
}

func TestTraceScanOrder(t *testing.T) {
	// Only the right and left edges cross; right comes first.
	g := grid(t, [][]float64{
		{0, 0},
		{8, 8},
	})
	lines := TraceLevel(g, 2, FirstCrossing)
	if len(lines) != 1 {
		t.Fatalf("lines=%d, want 1", len(lines))
	}
	if got := lines[0].Points[0]; got != (GridPoint{X: 1, Y: 0.25}) {
		t.Fatalf("point=%v, want right edge at t=0.25", got)
	}
}

func TestTraceTiesCountAsAbove(t *testing.T) {
	g := grid(t, [][]float64{
		{5, 5},
		{5, 5},
	})
	if lines := TraceLevel(g, 5, FirstCrossing); len(lines) != 0 {
		t.Fatalf("flat cell at level crossed: %v", lines)
	}

	g = grid(t, [][]float64{
		{5, 4},
		{5, 5},
	})
	lines := TraceLevel(g, 5, FirstCrossing)
	if len(lines) != 1 || lines[0].Points[0] != (GridPoint{X: 0, Y: 0}) {
		t.Fatalf("lines=%v, want crossing at the tied corner", lines)
	}
}

func TestTraceSkipsNoData(t *testing.T) {
	g := grid(t, [][]float64{
		{0, 10, 0},
		{0, math.NaN(), 0},
	})
	if lines := TraceLevel(g, 5, FirstCrossing); len(lines) != 0 {
		t.Fatalf("lines=%v, want none", lines)
	}
}

func TestTraceOnePerCell(t *testing.T) {
	g := grid(t, [][]float64{
		{0, 0, 0, 0},
		{0, 10, 10, 0},
		{0, 10, 10, 0},
		{0, 0, 0, 0},
	})
	lines := TraceLevel(g, 5, FirstCrossing)
	// The center cell is entirely above; the 8 around it cross.
	if len(lines) != 8 {
		t.Fatalf("lines=%d, want 8", len(lines))
	}
	for _, l := range lines {
		if len(l.Points) != 1 {
			t.Fatalf("line has %d points, want 1", len(l.Points))
		}
	}
}

func TestTraceCellSegmentsSaddle(t *testing.T) {
	g := grid(t, [][]float64{
		{10, 0},
		{0, 10},
	})
	lines := TraceLevel(g, 5, CellSegments)
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(lines))
	}
	for _, l := range lines {
		if len(l.Points) != 2 {
			t.Fatalf("saddle piece has %d points, want 2", len(l.Points))
		}
	}
	// Center (5) ties with the level, counts as above like tl: tr is cut off.
	want := []GridPoint{{X: 0.5, Y: 0}, {X: 1, Y: 0.5}}
	if !reflect.DeepEqual(lines[0].Points, want) {
		t.Fatalf("first piece=%v, want %v", lines[0].Points, want)
	}
}

func TestTraceEmptyForBadInterval(t *testing.T) {
	g := grid(t, [][]float64{{0, 10}, {0, 10}})
	tr, _ := layout.New(layout.Bars, 2, 2, 1)
	for _, interval := range []float64{0, -1} {
		got, err := Trace(g, raster.Stats{Min: 0, Max: 10}, Options{Interval: interval}, tr)
		if err != nil || len(got) != 0 {
			t.Fatalf("interval %v: segments=%v err=%v, want none", interval, got, err)
		}
	}
}

func TestTraceRenderSpace(t *testing.T) {
	g := grid(t, [][]float64{
		{0, 10},
		{0, 10},
	})
	tr, err := layout.New(layout.Bars, 2, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Interval: 5, Exaggeration: 2, Lift: DefaultLift}
	segs, err := Trace(g, raster.Stats{Min: 0, Max: 10}, opts, tr)
	if err != nil {
		t.Fatal(err)
	}

	var five *Isoline
	for i := range segs {
		if segs[i].Level == 5 {
			five = &segs[i]
		}
	}
	if five == nil {
		t.Fatalf("no segment at level 5: %v", segs)
	}
	want := Point3{X: 0, Y: 5*2 + DefaultLift, Z: -2}
	if five.Points[0] != want {
		t.Fatalf("point=%v, want %v", five.Points[0], want)
	}
}

func TestFeatureCollection(t *testing.T) {
	tr, _ := layout.New(layout.Surface, 3, 3, 1)
	b := raster.Bounds{Left: 0, Right: 2, Top: 2, Bottom: 0}
	lines := []Line{
		{Level: 100, Points: []GridPoint{{X: 1, Y: 1}}},
		{Level: 200, Points: []GridPoint{{X: 0, Y: 0}, {X: 2, Y: 2}}},
	}
	fc := FeatureCollection(lines, tr, b)
	if len(fc.Features) != 2 {
		t.Fatalf("features=%d, want 2", len(fc.Features))
	}
	if p, ok := fc.Features[0].Geometry.(orb.Point); !ok || p != (orb.Point{1, 1}) {
		t.Fatalf("point feature=%v", fc.Features[0].Geometry)
	}
	ls, ok := fc.Features[1].Geometry.(orb.LineString)
	if !ok || ls[0] != (orb.Point{0, 2}) || ls[1] != (orb.Point{2, 0}) {
		t.Fatalf("line feature=%v", fc.Features[1].Geometry)
	}
	if fc.Features[1].Properties["elevation"] != 200.0 {
		t.Fatalf("elevation=%v", fc.Features[1].Properties["elevation"])
	}
}

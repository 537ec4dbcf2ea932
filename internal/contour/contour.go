// Package contour extracts isolines from an elevation grid with a cell-local
// marching-squares pass.
//
// The tracer does not chain crossings into connected polylines: every cell a
// level crosses yields its own short line, anchored on the cell's edges.
package contour

import (
	"errors"
	"fmt"
	"math"

	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
)

// DefaultLift raises isolines above the terrain surface to avoid z-fighting.
const DefaultLift = 0.5

// MaxLevels bounds the number of levels one trace may request.
const MaxLevels = 1000

// ErrTooManyLevels is returned when the interval is too fine for the
// elevation range.
var ErrTooManyLevels = errors.New("too many contour levels")

// Style selects what a crossing cell emits.
type Style int

const (
	// FirstCrossing emits the first edge crossing found, scanning
	// top, right, bottom, left, as a one-point line.
	FirstCrossing Style = iota
	// CellSegments emits every crossing of the cell: one two-point line,
	// or two for a saddle cell.
	CellSegments
)

var styleNames = [...]string{FirstCrossing: "first-crossing", CellSegments: "cell-segments"}

// ParseStyle maps a wire name onto a Style.
func ParseStyle(s string) (Style, error) {
	for st, name := range styleNames {
		if name == s {
			return Style(st), nil
		}
	}
	return 0, fmt.Errorf("unknown contour style %q", s)
}

func (s Style) String() string {
	if s >= FirstCrossing && s <= CellSegments {
		return styleNames[s]
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// Options configure a trace.
type Options struct {
	Interval     float64
	Exaggeration float64
	Lift         float64
	Style        Style
}

// GridPoint is a fractional grid position: X along columns, Y along rows.
type GridPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is one cell's isoline piece in grid space.
type Line struct {
	Level  float64
	Points []GridPoint
}

// Point3 is a render-space position; Y is up.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Isoline is one isoline piece in render space.
type Isoline struct {
	Level  float64  `json:"level"`
	Points []Point3 `json:"points"`
}

// Levels returns ceil(min/interval)·interval, stepping by interval, up to
// and including max. A non-positive interval yields no levels. An interval
// that would yield more than MaxLevels levels is rejected.
func Levels(stats raster.Stats, interval float64) ([]float64, error) {
	if !(interval > 0) || math.IsInf(interval, 0) || stats.Max < stats.Min {
		return nil, nil
	}
	if span := (stats.Max - stats.Min) / interval; !(span < MaxLevels) {
		return nil, fmt.Errorf("%w: interval %g over %g..%g exceeds %d levels",
			ErrTooManyLevels, interval, stats.Min, stats.Max, MaxLevels)
	}
	first := math.Ceil(stats.Min/interval) * interval
	var levels []float64
	for i := 0; i < MaxLevels; i++ {
		level := first + float64(i)*interval
		if level > stats.Max {
			break
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// TraceGrid runs every level over g and returns grid-space lines.
func TraceGrid(g raster.Grid, stats raster.Stats, interval float64, style Style) ([]Line, error) {
	levels, err := Levels(stats, interval)
	if err != nil {
		return nil, err
	}
	tr := newTracer(g)
	var lines []Line
	for _, level := range levels {
		lines = tr.level(level, style, lines)
	}
	return lines, nil
}

// TraceLevel runs a single level over g. Levels are independent, so
// callers may trace them concurrently.
func TraceLevel(g raster.Grid, level float64, style Style) []Line {
	return newTracer(g).level(level, style, nil)
}

// Trace runs every level over g and places the result in render space.
func Trace(g raster.Grid, stats raster.Stats, opts Options, t layout.Transform) ([]Isoline, error) {
	lines, err := TraceGrid(g, stats, opts.Interval, opts.Style)
	if err != nil {
		return nil, err
	}
	return ToRender(lines, opts, t), nil
}

// ToRender converts grid-space lines to render space. Heights are the level
// times the exaggeration plus the lift.
func ToRender(lines []Line, opts Options, t layout.Transform) []Isoline {
	segments := make([]Isoline, 0, len(lines))
	for _, l := range lines {
		y := l.Level*opts.Exaggeration + opts.Lift
		pts := make([]Point3, len(l.Points))
		for i, p := range l.Points {
			x, z := t.GridToRenderF(p.Y, p.X)
			pts[i] = Point3{X: x, Y: y, Z: z}
		}
		segments = append(segments, Isoline{Level: l.Level, Points: pts})
	}
	return segments
}

type tracer struct {
	grid    raster.Grid
	visited []bool
}

func newTracer(g raster.Grid) *tracer {
	cells := 0
	if g.Width > 1 && g.Height > 1 {
		cells = (g.Width - 1) * (g.Height - 1)
	}
	return &tracer{grid: g, visited: make([]bool, cells)}
}

// cell corners, clockwise from the top-left.
type corners struct {
	tl, tr, br, bl float64
}

func (t *tracer) corners(row, col int) (corners, bool) {
	var c corners
	var ok [4]bool
	c.tl, ok[0] = t.grid.At(row, col)
	c.tr, ok[1] = t.grid.At(row, col+1)
	c.br, ok[2] = t.grid.At(row+1, col+1)
	c.bl, ok[3] = t.grid.At(row+1, col)
	return c, ok[0] && ok[1] && ok[2] && ok[3]
}

func (t *tracer) level(level float64, style Style, lines []Line) []Line {
	clear(t.visited)
	w := t.grid.Width - 1
	for row := 0; row < t.grid.Height-1; row++ {
		for col := 0; col < w; col++ {
			idx := row*w + col
			if t.visited[idx] {
				continue
			}
			t.visited[idx] = true

			c, ok := t.corners(row, col)
			if !ok {
				continue
			}
			crossings := c.crossings(level, float64(row), float64(col))
			if len(crossings) == 0 {
				continue
			}
			switch style {
			case CellSegments:
				lines = append(lines, c.segments(level, crossings)...)
			default:
				lines = append(lines, Line{Level: level, Points: crossings[:1:1]})
			}
		}
	}
	return lines
}

// crossings returns the interpolated points where level crosses the cell's
// edges in top, right, bottom, left order. A corner equal to the level
// counts as above it.
func (c corners) crossings(level, row, col float64) []GridPoint {
	var pts []GridPoint
	if t, ok := crossing(c.tl, c.tr, level); ok {
		pts = append(pts, GridPoint{X: col + t, Y: row})
	}
	if t, ok := crossing(c.tr, c.br, level); ok {
		pts = append(pts, GridPoint{X: col + 1, Y: row + t})
	}
	if t, ok := crossing(c.bl, c.br, level); ok {
		pts = append(pts, GridPoint{X: col + t, Y: row + 1})
	}
	if t, ok := crossing(c.tl, c.bl, level); ok {
		pts = append(pts, GridPoint{X: col, Y: row + t})
	}
	return pts
}

func crossing(v0, v1, level float64) (float64, bool) {
	if (v0 >= level) == (v1 >= level) {
		return 0, false
	}
	return (level - v0) / (v1 - v0), true
}

// segments pairs a cell's crossings. With four crossings the cell is a
// saddle; the cell-center average decides which diagonal stays connected.
func (c corners) segments(level float64, pts []GridPoint) []Line {
	if len(pts) != 4 {
		return []Line{{Level: level, Points: pts}}
	}
	top, right, bottom, left := pts[0], pts[1], pts[2], pts[3]
	center := (c.tl + c.tr + c.br + c.bl) / 4
	if (center >= level) == (c.tl >= level) {
		// tl and br join through the center; cut off tr and bl.
		return []Line{
			{Level: level, Points: []GridPoint{top, right}},
			{Level: level, Points: []GridPoint{bottom, left}},
		}
	}
	return []Line{
		{Level: level, Points: []GridPoint{left, top}},
		{Level: level, Points: []GridPoint{right, bottom}},
	}
}

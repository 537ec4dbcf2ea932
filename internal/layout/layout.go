// Package layout maps between grid indices, render-space positions and
// geographic coordinates for each of the renderer's layout modes.
//
// Render space is the renderer's horizontal x/z plane with the grid centered
// on the origin; row 0 is the northern edge of the raster.
package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-terrain/internal/raster"
)

var (
	// ErrUnknownMode is returned for modes outside Bars, Points and Surface.
	ErrUnknownMode = errors.New("unknown layout mode")
	// ErrEmptyGrid is returned when a transform is requested for a grid
	// with no cells.
	ErrEmptyGrid = errors.New("empty grid")
)

// Mode selects how grid indices are spaced in render space.
type Mode int

const (
	// Bars places one bar per bucket, spaced by the bucket size.
	Bars Mode = iota
	// Points places one point per bucket at unit spacing, or at an
	// explicit point scale.
	Points
	// Surface is a unit-spaced vertex grid; the mesh is scaled externally.
	Surface
)

var modeNames = [...]string{Bars: "bars", Points: "points", Surface: "surface"}

// ParseMode maps a wire name onto a Mode.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) String() string {
	if m.Valid() {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid reports whether m is a defined mode.
func (m Mode) Valid() bool { return m >= Bars && m <= Surface }

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// GeoPoint is a longitude/latitude pair in degrees.
type GeoPoint struct {
	Lon float64 `json:"lon" doc:"Longitude in degrees"`
	Lat float64 `json:"lat" doc:"Latitude in degrees"`
}

// Transform is the coordinate mapping for one grid under one mode. It is a
// plain value; a new one is built whenever the mode, grid or bucket size
// changes.
type Transform struct {
	Mode       Mode
	Width      int
	Height     int
	BucketSize int
	// PointScale overrides the unit spacing of Points mode when positive.
	PointScale float64
}

// New returns the transform for a width×height grid.
func New(mode Mode, width, height, bucketSize int) (Transform, error) {
	if !mode.Valid() {
		return Transform{}, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
	if width <= 0 || height <= 0 {
		return Transform{}, fmt.Errorf("%w: %dx%d", ErrEmptyGrid, width, height)
	}
	if bucketSize < 1 {
		return Transform{}, fmt.Errorf("%w: %d", raster.ErrInvalidBucketSize, bucketSize)
	}
	return Transform{Mode: mode, Width: width, Height: height, BucketSize: bucketSize}, nil
}

// WithPointScale returns a copy using s as the Points spacing.
func (t Transform) WithPointScale(s float64) Transform {
	t.PointScale = s
	return t
}

// Spacing is the render-space distance between neighbouring indices.
func (t Transform) Spacing() float64 {
	switch t.Mode {
	case Bars:
		return float64(t.BucketSize)
	case Points:
		if t.PointScale > 0 {
			return t.PointScale
		}
		return 1
	case Surface:
		return 1
	default:
		panic(fmt.Sprintf("layout: mode %d not handled", int(t.Mode)))
	}
}

// origin is the render-space position of index (0, 0).
func (t Transform) origin() (x, z float64) {
	s := t.Spacing()
	switch t.Mode {
	case Bars, Points:
		return -float64(t.Width-1) * s / 2, -float64(t.Height-1) * s / 2
	case Surface:
		return -float64(t.Width) / 2, -float64(t.Height) / 2
	default:
		panic(fmt.Sprintf("layout: mode %d not handled", int(t.Mode)))
	}
}

// GridToRender maps an index to its render-space position.
func (t Transform) GridToRender(row, col int) (x, z float64) {
	return t.GridToRenderF(float64(row), float64(col))
}

// GridToRenderF maps a fractional index, such as an interpolated contour
// crossing, to render space.
func (t Transform) GridToRenderF(row, col float64) (x, z float64) {
	ox, oz := t.origin()
	s := t.Spacing()
	return ox + col*s, oz + row*s
}

// RenderToGrid returns the index nearest to (x, z), clamped to the grid.
// The cell may hold no data; deciding what to do with it is up to callers.
func (t Transform) RenderToGrid(x, z float64) (row, col int) {
	ox, oz := t.origin()
	s := t.Spacing()
	col = clampIndex(math.Round((x-ox)/s), t.Width)
	row = clampIndex(math.Round((z-oz)/s), t.Height)
	return row, col
}

func clampIndex(v float64, dim int) int {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > float64(dim-1):
		return dim - 1
	default:
		return int(v)
	}
}

// Footprint is the render-space rectangle the grid covers. Bars and points
// extend half a spacing past the outermost centers; a surface ends at its
// outermost vertices.
func (t Transform) Footprint() orb.Bound {
	x0, z0 := t.GridToRender(0, 0)
	x1, z1 := t.GridToRender(t.Height-1, t.Width-1)
	b := orb.Bound{Min: orb.Point{x0, z0}, Max: orb.Point{x1, z1}}
	if t.Mode == Surface {
		return b
	}
	return b.Pad(t.Spacing() / 2)
}

// InsideFootprint reports whether (x, z) lies within the footprint.
func (t Transform) InsideFootprint(x, z float64) bool {
	return t.Footprint().Contains(orb.Point{x, z})
}

// RenderToGeo maps a render-space position to longitude/latitude. Points
// outside the footprint saturate to the nearest edge of b.
func (t Transform) RenderToGeo(x, z float64, b raster.Bounds) GeoPoint {
	fp := t.Footprint()
	u := clamp01(fraction(x, fp.Min[0], fp.Max[0]))
	v := clamp01(fraction(z, fp.Min[1], fp.Max[1]))
	return GeoPoint{
		Lon: b.Left + u*(b.Right-b.Left),
		Lat: b.Top - v*(b.Top-b.Bottom),
	}
}

// GeoToRender maps longitude/latitude into render space. It does not clamp:
// positions outside b land outside the footprint.
func (t Transform) GeoToRender(lon, lat float64, b raster.Bounds) (x, z float64) {
	fp := t.Footprint()
	u := fraction(lon, b.Left, b.Right)
	v := fraction(lat, b.Top, b.Bottom)
	return fp.Min[0] + u*(fp.Max[0]-fp.Min[0]), fp.Min[1] + v*(fp.Max[1]-fp.Min[1])
}

func fraction(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

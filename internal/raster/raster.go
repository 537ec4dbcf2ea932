// Package raster holds the elevation data model: nullable sample grids,
// geographic bounds, the meters-per-pixel scale and bucket aggregation.
package raster

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMalformed is returned when a raster fails load-boundary validation.
	ErrMalformed = errors.New("malformed raster")
	// ErrInvalidBucketSize is returned for bucket sizes below 1.
	ErrInvalidBucketSize = errors.New("invalid bucket size")
	// ErrUnknownReducer is returned for reducers outside the closed set.
	ErrUnknownReducer = errors.New("unknown reducer")
)

// Bounds is a geographic bounding box in degrees.
type Bounds struct {
	Left   float64 `json:"left" yaml:"left" doc:"Western longitude" example:"-10"`
	Right  float64 `json:"right" yaml:"right" doc:"Eastern longitude" example:"10"`
	Top    float64 `json:"top" yaml:"top" doc:"Northern latitude" example:"5"`
	Bottom float64 `json:"bottom" yaml:"bottom" doc:"Southern latitude" example:"-5"`
}

// Validate rejects non-finite or inverted bounds.
func (b Bounds) Validate() error {
	for _, v := range []float64{b.Left, b.Right, b.Top, b.Bottom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bounds %+v", ErrMalformed, b)
		}
	}
	if b.Right < b.Left || b.Top < b.Bottom {
		return fmt.Errorf("%w: inverted bounds %+v", ErrMalformed, b)
	}
	return nil
}

// Stats summarizes the valid samples of a grid.
type Stats struct {
	Min  float64 `json:"min" yaml:"min" doc:"Lowest valid elevation"`
	Max  float64 `json:"max" yaml:"max" doc:"Highest valid elevation"`
	Mean float64 `json:"mean" yaml:"mean" doc:"Mean of valid elevations"`
}

// Grid is a row-major width×height field of elevation samples where any
// cell may hold no data. No data is a distinct state, never zero.
type Grid struct {
	Width  int
	Height int
	cells  []float64
}

// NewGrid returns a grid whose cells all hold no data.
func NewGrid(width, height int) Grid {
	cells := make([]float64, width*height)
	for i := range cells {
		cells[i] = math.NaN()
	}
	return Grid{Width: width, Height: height, cells: cells}
}

// GridFromRows builds a grid from row slices; a NaN entry means no data.
// All rows must share the length of the first.
func GridFromRows(rows [][]float64) (Grid, error) {
	if len(rows) == 0 {
		return Grid{}, nil
	}
	g := NewGrid(len(rows[0]), len(rows))
	for r, row := range rows {
		if len(row) != g.Width {
			return Grid{}, fmt.Errorf("%w: row %d has %d cells, want %d", ErrMalformed, r, len(row), g.Width)
		}
		copy(g.cells[r*g.Width:], row)
	}
	return g, nil
}

// At returns the sample at (row, col) and whether it holds data.
func (g Grid) At(row, col int) (float64, bool) {
	v := g.cells[row*g.Width+col]
	return v, !math.IsNaN(v)
}

// Set stores a sample. Storing NaN clears the cell.
func (g Grid) Set(row, col int, v float64) {
	g.cells[row*g.Width+col] = v
}

// Clear marks (row, col) as no data.
func (g Grid) Clear(row, col int) {
	g.cells[row*g.Width+col] = math.NaN()
}

// Len returns the number of cells.
func (g Grid) Len() int { return len(g.cells) }

// Clone returns an independent copy.
func (g Grid) Clone() Grid {
	cells := make([]float64, len(g.cells))
	copy(cells, g.cells)
	return Grid{Width: g.Width, Height: g.Height, cells: cells}
}

// Nullable returns the cells row-major with nil for no data, the shape used
// on the wire.
func (g Grid) Nullable() []*float64 {
	out := make([]*float64, len(g.cells))
	for i, v := range g.cells {
		if math.IsNaN(v) {
			continue
		}
		v := v
		out[i] = &v
	}
	return out
}

// Stats computes min/max/mean over valid cells. The second result is false
// when the grid holds no valid cell, in which case Stats is zero.
func (g Grid) Stats() (Stats, bool) {
	var (
		s     = Stats{Min: math.Inf(1), Max: math.Inf(-1)}
		sum   float64
		count int
	)
	for _, v := range g.cells {
		if math.IsNaN(v) {
			continue
		}
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		sum += v
		count++
	}
	if count == 0 {
		return Stats{}, false
	}
	s.Mean = sum / float64(count)
	return s, true
}

// Raw is a loaded elevation raster. It is immutable once loaded.
type Raw struct {
	Width     int
	Height    int
	Elevation Grid
	Bounds    Bounds
	Stats     Stats
}

// NewRaw validates the parts of a raster and derives its stats.
func NewRaw(elevation Grid, bounds Bounds) (*Raw, error) {
	r := &Raw{
		Width:     elevation.Width,
		Height:    elevation.Height,
		Elevation: elevation,
		Bounds:    bounds,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.Stats, _ = elevation.Stats()
	return r, nil
}

// Validate is the load-boundary check; the algorithms assume it passed.
func (r *Raw) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrMalformed, r.Width, r.Height)
	}
	if r.Elevation.Width != r.Width || r.Elevation.Height != r.Height {
		return fmt.Errorf("%w: grid is %dx%d, raster is %dx%d",
			ErrMalformed, r.Elevation.Width, r.Elevation.Height, r.Width, r.Height)
	}
	if r.Elevation.Len() != r.Width*r.Height {
		return fmt.Errorf("%w: %d samples for %dx%d", ErrMalformed, r.Elevation.Len(), r.Width, r.Height)
	}
	return r.Bounds.Validate()
}

// Scale returns the raster's meters-per-pixel scale.
func (r *Raw) Scale() Scale {
	return ComputeScale(r.Bounds, r.Width, r.Height)
}

package raster

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Reducer collapses the valid samples of one bucket into a single value.
type Reducer int

const (
	ReduceMax Reducer = iota
	ReduceMin
	ReduceAverage
	ReduceMedian
)

var reducerNames = [...]string{
	ReduceMax:     "max",
	ReduceMin:     "min",
	ReduceAverage: "average",
	ReduceMedian:  "median",
}

// ParseReducer maps a wire name onto a Reducer.
func ParseReducer(s string) (Reducer, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "mean" || name == "avg" {
		name = "average"
	}
	for r, n := range reducerNames {
		if n == name {
			return Reducer(r), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownReducer, s)
}

func (r Reducer) String() string {
	if r.Valid() {
		return reducerNames[r]
	}
	return fmt.Sprintf("Reducer(%d)", int(r))
}

// Valid reports whether r is one of the four defined reducers.
func (r Reducer) Valid() bool {
	return r >= ReduceMax && r <= ReduceMedian
}

// MarshalText implements encoding.TextMarshaler.
func (r Reducer) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownReducer, int(r))
	}
	return []byte(reducerNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reducer) UnmarshalText(text []byte) error {
	parsed, err := ParseReducer(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// reduce applies r to values, which it may reorder. The second result is
// false when values is empty.
func (r Reducer) reduce(values []float64) (float64, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	switch r {
	case ReduceMax:
		return floats.Max(values), true
	case ReduceMin:
		return floats.Min(values), true
	case ReduceAverage:
		return floats.Sum(values) / float64(n), true
	case ReduceMedian:
		sort.Float64s(values)
		if n%2 == 1 {
			return values[n/2], true
		}
		return (values[n/2-1] + values[n/2]) / 2, true
	default:
		panic(fmt.Sprintf("raster: reducer %d not handled", int(r)))
	}
}

// Window selects a rectangular sub-region of a raster in source pixels.
type Window struct {
	Row    int
	Col    int
	Height int
	Width  int
}

// clamp intersects w with a width×height raster.
func (w Window) clamp(width, height int) Window {
	if w.Row < 0 {
		w.Height += w.Row
		w.Row = 0
	}
	if w.Col < 0 {
		w.Width += w.Col
		w.Col = 0
	}
	w.Height = max(0, min(w.Height, height-w.Row))
	w.Width = max(0, min(w.Width, width-w.Col))
	return w
}

// Bucketed is a raster downsampled by an integer bucket size.
type Bucketed struct {
	Width             int
	Height            int
	Elevation         Grid
	BucketSize        int
	Reducer           Reducer
	BucketSizeMetersX float64
	BucketSizeMetersY float64
	Stats             Stats
}

// Aggregate downsamples raw into ⌊W/n⌋×⌊H/n⌋ buckets using reducer.
// n = 1 reproduces the input through the same path.
func Aggregate(raw *Raw, n int, reducer Reducer) (*Bucketed, error) {
	return AggregateWindow(raw, Window{Height: raw.Height, Width: raw.Width}, n, reducer)
}

// AggregateWindow downsamples the part of raw selected by win. The window
// is clipped to the raster; trailing rows and columns that do not fill a
// whole bucket are dropped.
func AggregateWindow(raw *Raw, win Window, n int, reducer Reducer) (*Bucketed, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidBucketSize, n)
	}
	if !reducer.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownReducer, int(reducer))
	}

	win = win.clamp(raw.Width, raw.Height)
	outW, outH := win.Width/n, win.Height/n
	out := NewGrid(outW, outH)
	scale := raw.Scale()
	result := &Bucketed{
		Width:             outW,
		Height:            outH,
		Elevation:         out,
		BucketSize:        n,
		Reducer:           reducer,
		BucketSizeMetersX: scale.MetersPerPixelX * float64(n),
		BucketSizeMetersY: scale.MetersPerPixelY * float64(n),
	}
	// A bucket larger than the window leaves no buckets.
	if outW == 0 || outH == 0 {
		return result, nil
	}
	lastRow, lastCol := win.Row+win.Height, win.Col+win.Width

	// One scratch buffer serves every bucket of this call; n never
	// exceeds the window here.
	scratch := make([]float64, 0, n*n)
	for br := 0; br < outH; br++ {
		r0 := win.Row + br*n
		for bc := 0; bc < outW; bc++ {
			c0 := win.Col + bc*n
			scratch = scratch[:0]
			for r := r0; r < r0+n && r < lastRow; r++ {
				for c := c0; c < c0+n && c < lastCol; c++ {
					if v, ok := raw.Elevation.At(r, c); ok {
						scratch = append(scratch, v)
					}
				}
			}
			if v, ok := reducer.reduce(scratch); ok {
				out.Set(br, bc, v)
			}
		}
	}

	result.Stats, _ = out.Stats()
	return result, nil
}

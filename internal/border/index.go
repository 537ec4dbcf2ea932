package border

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/plat-terrain/internal/raster"
)

// DefaultCellSizeDeg is the edge of one index cell in degrees.
const DefaultCellSizeDeg = 0.25

// MinCellSizeDeg is the smallest cell edge an index accepts, about 1 km.
const MinCellSizeDeg = 0.01

type cell struct {
	ix, iy int
}

// Index bins segments by the lon/lat cells their bounding boxes overlap.
// It is built once per dataset and never mutated afterwards.
type Index struct {
	cellSize float64
	cells    map[cell][]int
	segments []Segment
}

// Match is the result of a nearest-segment query.
type Match struct {
	Index   int     `json:"index" doc:"Position of the segment in the segment list"`
	Segment Segment `json:"segment"`
	// Meters is measured on a local equirectangular projection at the query.
	Meters float64 `json:"meters" doc:"Distance to the segment in meters"`
}

// NewIndex indexes segments. A segment spanning several cells is stored in
// each of them. Non-positive cell sizes fall back to DefaultCellSizeDeg and
// positive ones are raised to at least MinCellSizeDeg.
func NewIndex(segments []Segment, cellSizeDeg float64) *Index {
	switch {
	case !(cellSizeDeg > 0) || math.IsInf(cellSizeDeg, 0):
		cellSizeDeg = DefaultCellSizeDeg
	case cellSizeDeg < MinCellSizeDeg:
		cellSizeDeg = MinCellSizeDeg
	}
	idx := &Index{
		cellSize: cellSizeDeg,
		cells:    make(map[cell][]int),
		segments: segments,
	}
	for i, s := range segments {
		b := s.Bound()
		lo, hi := idx.cellOf(b.Min), idx.cellOf(b.Max)
		for ix := lo.ix; ix <= hi.ix; ix++ {
			for iy := lo.iy; iy <= hi.iy; iy++ {
				c := cell{ix, iy}
				idx.cells[c] = append(idx.cells[c], i)
			}
		}
	}
	return idx
}

func (idx *Index) cellOf(p orb.Point) cell {
	return cell{
		ix: int(math.Floor(p.Lon() / idx.cellSize)),
		iy: int(math.Floor(p.Lat() / idx.cellSize)),
	}
}

// Len returns the number of indexed segments.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.segments)
}

// CellSize returns the cell edge in degrees.
func (idx *Index) CellSize() float64 { return idx.cellSize }

// Segments returns the indexed segments. Callers must not modify them.
func (idx *Index) Segments() []Segment {
	if idx == nil {
		return nil
	}
	return idx.segments
}

// Nearest finds the closest segment among those indexed in the query's
// cell and its eight neighbours. It reports false when the index is empty
// or no segment is that close.
func (idx *Index) Nearest(lon, lat float64) (Match, bool) {
	if idx.Len() == 0 {
		return Match{}, false
	}

	q := orb.Point{lon, lat}
	kx := raster.MetersPerDegree * math.Cos(lat*math.Pi/180)
	local := func(p orb.Point) orb.Point {
		return orb.Point{(p.Lon() - lon) * kx, (p.Lat() - lat) * raster.MetersPerDegree}
	}

	best, found := Match{Meters: math.Inf(1)}, false
	center := idx.cellOf(q)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, i := range idx.cells[cell{center.ix + dx, center.iy + dy}] {
				if found && i == best.Index {
					continue
				}
				s := idx.segments[i]
				d := planar.DistanceFromSegment(local(s.A()), local(s.B()), orb.Point{})
				if d < best.Meters || (d == best.Meters && i < best.Index) {
					best, found = Match{Index: i, Segment: s, Meters: d}, true
				}
			}
		}
	}
	return best, found
}

// Package border turns administrative-boundary polylines into segments and
// indexes them on a lon/lat cell grid for nearest-border queries.
package border

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
)

// ErrMalformed is returned for border data that cannot be decoded.
var ErrMalformed = errors.New("malformed border data")

// Kind distinguishes national from sub-national borders.
type Kind string

const (
	Country Kind = "country"
	State   Kind = "state"
)

// Line is one border polyline in lon/lat degrees.
type Line struct {
	Kind   Kind
	Entity string
	Points orb.LineString
}

// Segment is one straight piece of a border. The render-space endpoints
// depend on the layout; the geographic twin does not.
type Segment struct {
	AX float64 `json:"ax"`
	AZ float64 `json:"az"`
	BX float64 `json:"bx"`
	BZ float64 `json:"bz"`

	AXLon float64 `json:"axLon"`
	AXLat float64 `json:"axLat"`
	BXLon float64 `json:"bxLon"`
	BXLat float64 `json:"bxLat"`

	Kind   Kind   `json:"kind"`
	Entity string `json:"entity,omitempty"`
}

// A returns the first geographic endpoint.
func (s Segment) A() orb.Point { return orb.Point{s.AXLon, s.AXLat} }

// B returns the second geographic endpoint.
func (s Segment) B() orb.Point { return orb.Point{s.BXLon, s.BXLat} }

// Bound is the segment's geographic bounding box.
func (s Segment) Bound() orb.Bound {
	return orb.Bound{Min: s.A(), Max: s.A()}.Extend(s.B())
}

// Simplify runs Douglas-Peucker over every line with the given tolerance
// in degrees. A non-positive tolerance returns lines unchanged.
func Simplify(lines []Line, tolerance float64) []Line {
	if tolerance <= 0 {
		return lines
	}
	s := simplify.DouglasPeucker(tolerance)
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		l.Points = s.LineString(l.Points.Clone())
		out = append(out, l)
	}
	return out
}

// Build splits lines into segments placed by t over a raster covering b.
// Zero-length pieces are dropped.
func Build(lines []Line, t layout.Transform, b raster.Bounds) []Segment {
	var segments []Segment
	for _, l := range lines {
		for i := 1; i < len(l.Points); i++ {
			a, p := l.Points[i-1], l.Points[i]
			if a.Equal(p) {
				continue
			}
			ax, az := t.GeoToRender(a.Lon(), a.Lat(), b)
			bx, bz := t.GeoToRender(p.Lon(), p.Lat(), b)
			segments = append(segments, Segment{
				AX: ax, AZ: az, BX: bx, BZ: bz,
				AXLon: a.Lon(), AXLat: a.Lat(),
				BXLon: p.Lon(), BXLat: p.Lat(),
				Kind:   l.Kind,
				Entity: l.Entity,
			})
		}
	}
	return segments
}

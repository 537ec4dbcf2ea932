package contour

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
)

// FeatureCollection places grid-space lines on the map. One-point lines
// become Point features, longer ones LineStrings; each carries its level in
// the "elevation" property.
func FeatureCollection(lines []Line, t layout.Transform, b raster.Bounds) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range lines {
		ls := make(orb.LineString, len(l.Points))
		for i, p := range l.Points {
			x, z := t.GridToRenderF(p.Y, p.X)
			g := t.RenderToGeo(x, z, b)
			ls[i] = orb.Point{g.Lon, g.Lat}
		}

		var f *geojson.Feature
		if len(ls) == 1 {
			f = geojson.NewFeature(ls[0])
		} else {
			f = geojson.NewFeature(ls)
		}
		f.Properties["elevation"] = l.Level
		fc.Append(f)
	}
	return fc
}

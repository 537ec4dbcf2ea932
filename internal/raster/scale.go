package raster

import "math"

// MetersPerDegree is the equirectangular baseline for one degree of latitude.
const MetersPerDegree = 111320.0

// Scale converts raster pixels to ground meters.
type Scale struct {
	MetersPerPixelX float64 `json:"metersPerPixelX" doc:"Ground meters per column"`
	MetersPerPixelY float64 `json:"metersPerPixelY" doc:"Ground meters per row"`
	WidthMeters     float64 `json:"widthMeters" doc:"East-west extent in meters"`
	HeightMeters    float64 `json:"heightMeters" doc:"North-south extent in meters"`
}

// ComputeScale derives the scale of a width×height raster covering b.
// Longitude spans shrink with the cosine of the center latitude. Zero-span
// bounds give a zero scale; callers guard against it downstream.
func ComputeScale(b Bounds, width, height int) Scale {
	centerLat := (b.Top + b.Bottom) / 2 * math.Pi / 180
	s := Scale{
		WidthMeters:  math.Abs(b.Right-b.Left) * MetersPerDegree * math.Cos(centerLat),
		HeightMeters: math.Abs(b.Top-b.Bottom) * MetersPerDegree,
	}
	if width > 0 {
		s.MetersPerPixelX = s.WidthMeters / float64(width)
	}
	if height > 0 {
		s.MetersPerPixelY = s.HeightMeters / float64(height)
	}
	return s
}

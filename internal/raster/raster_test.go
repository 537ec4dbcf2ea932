package raster

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestComputeScale(t *testing.T) {
	s := ComputeScale(Bounds{Left: 10, Right: 12, Top: 61, Bottom: 59}, 200, 100)

	wantWidth := 2 * MetersPerDegree * math.Cos(60*math.Pi/180)
	if math.Abs(s.WidthMeters-wantWidth) > 1e-6 {
		t.Fatalf("widthMeters=%v, want %v", s.WidthMeters, wantWidth)
	}
	if s.HeightMeters != 2*MetersPerDegree {
		t.Fatalf("heightMeters=%v, want %v", s.HeightMeters, 2*MetersPerDegree)
	}
	if math.Abs(s.MetersPerPixelX-wantWidth/200) > 1e-9 {
		t.Fatalf("metersPerPixelX=%v, want %v", s.MetersPerPixelX, wantWidth/200)
	}
	if s.MetersPerPixelY != 2*MetersPerDegree/100 {
		t.Fatalf("metersPerPixelY=%v", s.MetersPerPixelY)
	}
}

func TestComputeScaleDegenerate(t *testing.T) {
	s := ComputeScale(Bounds{Left: 3, Right: 3, Top: 1, Bottom: 1}, 10, 10)
	if s != (Scale{}) {
		t.Fatalf("scale=%+v, want zero", s)
	}
}

func TestDecodeFlat(t *testing.T) {
	in := `{
		"width": 3, "height": 2,
		"elevation": [1, null, 3, 4, 5, null],
		"bounds": {"left": -1, "right": 1, "top": 1, "bottom": -1}
	}`
	raw, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if raw.Width != 3 || raw.Height != 2 {
		t.Fatalf("size=%dx%d, want 3x2", raw.Width, raw.Height)
	}
	if _, ok := raw.Elevation.At(0, 1); ok {
		t.Fatal("null cell decoded as data")
	}
	if v, ok := raw.Elevation.At(1, 1); !ok || v != 5 {
		t.Fatalf("(1,1)=%v/%v, want 5", v, ok)
	}
	if raw.Stats != (Stats{Min: 1, Max: 5, Mean: 13.0 / 4}) {
		t.Fatalf("stats=%+v", raw.Stats)
	}
}

func TestDecodeNestedKeepsStats(t *testing.T) {
	in := `{
		"width": 2, "height": 2,
		"elevation": [[0, 0], [null, 7]],
		"bounds": {"left": 0, "right": 1, "top": 1, "bottom": 0},
		"stats": {"min": -5, "max": 50, "mean": 9}
	}`
	raw, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if raw.Stats.Min != -5 || raw.Stats.Max != 50 {
		t.Fatalf("stats=%+v, want supplied stats", raw.Stats)
	}
	if v, ok := raw.Elevation.At(0, 0); !ok || v != 0 {
		t.Fatalf("zero elevation decoded as %v/%v", v, ok)
	}
	if _, ok := raw.Elevation.At(1, 0); ok {
		t.Fatal("null in a nested row decoded as data")
	}
	if v, ok := raw.Elevation.At(1, 1); !ok || v != 7 {
		t.Fatalf("(1,1) decoded as %v/%v, want 7", v, ok)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"count":  `{"width": 2, "height": 2, "elevation": [1, 2, 3], "bounds": {"left": 0, "right": 1, "top": 1, "bottom": 0}}`,
		"dims":   `{"width": 0, "height": 2, "elevation": [], "bounds": {"left": 0, "right": 1, "top": 1, "bottom": 0}}`,
		"bounds": `{"width": 1, "height": 1, "elevation": [1], "bounds": {"left": 2, "right": 1, "top": 1, "bottom": 0}}`,
		"none":   `{"width": 1, "height": 1, "bounds": {"left": 0, "right": 1, "top": 1, "bottom": 0}}`,
		"ragged": `{"width": 2, "height": 2, "elevation": [[1, 2, 3], [4]], "bounds": {"left": 0, "right": 1, "top": 1, "bottom": 0}}`,
		"rows":   `{"width": 2, "height": 2, "elevation": [[1, 2]], "bounds": {"left": 0, "right": 1, "top": 1, "bottom": 0}}`,
	}
	for name, in := range tests {
		if _, err := Decode(strings.NewReader(in)); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: err=%v, want ErrMalformed", name, err)
		}
	}
}

func TestEncodeNullRoundTrip(t *testing.T) {
	raw := mustRaw(t, [][]float64{{nan, 2}, {0, nan}}, unitBounds)

	var buf bytes.Buffer
	if err := Encode(&buf, raw); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"elevation":[null,2,0,null]`) {
		t.Fatalf("encoded=%s", buf.String())
	}

	back, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := back.Elevation.At(0, 0); ok {
		t.Fatal("no data became data")
	}
	if v, ok := back.Elevation.At(1, 0); !ok || v != 0 {
		t.Fatalf("(1,0)=%v/%v, want 0", v, ok)
	}
}

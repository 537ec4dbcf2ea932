package raster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// File is the JSON shape of a raster on disk and over the wire. Elevation
// is row-major with null for no data; a nested array of rows is accepted on
// input as well.
type File struct {
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Elevation json.RawMessage `json:"elevation"`
	Bounds    Bounds          `json:"bounds"`
	Stats     *Stats          `json:"stats,omitempty"`
}

// Decode reads and validates a raster. Missing stats are computed from the
// samples; supplied stats are kept as-is.
func Decode(r io.Reader) (*Raw, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decoding raster: %v", ErrMalformed, err)
	}
	return f.Raw()
}

// LoadFile reads a raster JSON file.
func LoadFile(path string) (*Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}

// Raw converts the wire shape into a validated raster.
func (f *File) Raw() (*Raw, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrMalformed, f.Width, f.Height)
	}
	samples, err := decodeSamples(f.Elevation, f.Width)
	if err != nil {
		return nil, err
	}
	if len(samples) != f.Width*f.Height {
		return nil, fmt.Errorf("%w: %d samples for %dx%d", ErrMalformed, len(samples), f.Width, f.Height)
	}

	g := NewGrid(f.Width, f.Height)
	for i, v := range samples {
		if v != nil {
			g.cells[i] = *v
		}
	}

	raw, err := NewRaw(g, f.Bounds)
	if err != nil {
		return nil, err
	}
	if f.Stats != nil {
		raw.Stats = *f.Stats
	}
	return raw, nil
}

// decodeSamples accepts a flat row-major array or an array of rows, each
// exactly width samples long.
func decodeSamples(data json.RawMessage, width int) ([]*float64, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: missing elevation", ErrMalformed)
	}

	var flat []*float64
	if err := json.Unmarshal(trimmed, &flat); err == nil {
		return flat, nil
	}

	var rows [][]*float64
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("%w: elevation: %v", ErrMalformed, err)
	}
	samples := make([]*float64, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d samples, want %d", ErrMalformed, i, len(row), width)
		}
		samples = append(samples, row...)
	}
	return samples, nil
}

// Encode writes raw in the flat wire shape.
func Encode(w io.Writer, raw *Raw) error {
	elevation, err := json.Marshal(raw.Elevation.Nullable())
	if err != nil {
		return err
	}
	stats := raw.Stats
	return json.NewEncoder(w).Encode(File{
		Width:     raw.Width,
		Height:    raw.Height,
		Elevation: elevation,
		Bounds:    raw.Bounds,
		Stats:     &stats,
	})
}

package border

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// Polyline is the wire shape of one border polyline: parallel lon/lat arrays.
type Polyline struct {
	Lon []float64 `json:"lon"`
	Lat []float64 `json:"lat"`
}

// Entity is a named country or state and its polylines.
type Entity struct {
	Name     string     `json:"name,omitempty"`
	Segments []Polyline `json:"segments"`
}

// Dataset is the JSON border format: {countries: [...], states: [...]}.
type Dataset struct {
	Countries []Entity `json:"countries"`
	States    []Entity `json:"states"`
}

// Lines flattens the dataset into polylines, countries first.
func (d *Dataset) Lines() ([]Line, error) {
	var lines []Line
	add := func(kind Kind, entities []Entity) error {
		for _, e := range entities {
			for i, p := range e.Segments {
				if len(p.Lon) != len(p.Lat) {
					return fmt.Errorf("%w: %s %q polyline %d has %d lon and %d lat values",
						ErrMalformed, kind, e.Name, i, len(p.Lon), len(p.Lat))
				}
				ls := make(orb.LineString, len(p.Lon))
				for j := range p.Lon {
					ls[j] = orb.Point{p.Lon[j], p.Lat[j]}
				}
				lines = append(lines, Line{Kind: kind, Entity: e.Name, Points: ls})
			}
		}
		return nil
	}
	if err := add(Country, d.Countries); err != nil {
		return nil, err
	}
	if err := add(State, d.States); err != nil {
		return nil, err
	}
	return lines, nil
}

// DecodeJSON reads the {countries, states} format.
func DecodeJSON(r io.Reader) ([]Line, error) {
	var d Dataset
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: decoding borders: %v", ErrMalformed, err)
	}
	return d.Lines()
}

// DecodeGeoJSON reads a FeatureCollection. The "kind" property selects
// country or state (country when absent) and "name" names the entity.
// Polygon rings are read as closed polylines; points are ignored.
func DecodeGeoJSON(data []byte) ([]Line, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing geojson: %v", ErrMalformed, err)
	}
	var lines []Line
	for _, f := range fc.Features {
		kind := parseKind(f.Properties.MustString("kind", string(Country)))
		name := f.Properties.MustString("name", "")
		lines = appendGeometry(lines, kind, name, f.Geometry)
	}
	return lines, nil
}

// LoadDuckDB reads border geometries from a GeoParquet file through DuckDB's
// spatial extension. The file needs a "geometry" column; optional "kind"
// and "name" columns are used when present.
func LoadDuckDB(ctx context.Context, db *sql.DB, path string) ([]Line, error) {
	cols, err := parquetColumns(ctx, db, path)
	if err != nil {
		return nil, err
	}
	kindExpr, nameExpr := "'country'", "''"
	if cols["kind"] {
		kindExpr = "coalesce(CAST(kind AS VARCHAR), 'country')"
	}
	if cols["name"] {
		nameExpr = "coalesce(CAST(name AS VARCHAR), '')"
	}
	query := fmt.Sprintf("SELECT %s, %s, ST_AsText(geometry) FROM read_parquet(?)", kindExpr, nameExpr)

	rows, err := db.QueryContext(ctx, query, path)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", path, err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var kind, name, text string
		if err := rows.Scan(&kind, &name, &text); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}
		geom, err := wkt.Unmarshal(text)
		if err != nil {
			return nil, fmt.Errorf("parsing wkt in %s: %w", path, err)
		}
		lines = appendGeometry(lines, parseKind(kind), name, geom)
	}
	return lines, rows.Err()
}

func parquetColumns(ctx context.Context, db *sql.DB, path string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM parquet_schema(?)", path)
	if err != nil {
		return nil, fmt.Errorf("reading schema of %s: %w", path, err)
	}
	defer rows.Close()

	cols, err := columnNames(rows)
	if err != nil {
		return nil, fmt.Errorf("reading schema of %s: %w", path, err)
	}
	if !cols["geometry"] {
		return nil, fmt.Errorf("%w: %s has no geometry column", ErrMalformed, path)
	}
	return cols, nil
}

// rowScanner is the part of *sql.Rows that columnNames reads.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// columnNames collects lowercased names from a single-column result.
func columnNames(rows rowScanner) (map[string]bool, error) {
	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

// LoadFile reads a .json or .geojson border file. GeoParquet files go
// through LoadDuckDB.
func LoadFile(path string) ([]Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson":
		return DecodeGeoJSON(data)
	case ".json":
		return DecodeJSON(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported border file type: %s", filepath.Ext(path))
	}
}

func parseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "state", "states", "province", "region":
		return State
	default:
		return Country
	}
}

func appendGeometry(lines []Line, kind Kind, name string, g orb.Geometry) []Line {
	add := func(ls orb.LineString) {
		if len(ls) > 1 {
			lines = append(lines, Line{Kind: kind, Entity: name, Points: ls})
		}
	}
	switch geom := g.(type) {
	case orb.LineString:
		add(geom)
	case orb.MultiLineString:
		for _, ls := range geom {
			add(ls)
		}
	case orb.Ring:
		add(orb.LineString(geom))
	case orb.Polygon:
		for _, r := range geom {
			add(orb.LineString(r))
		}
	case orb.MultiPolygon:
		for _, p := range geom {
			for _, r := range p {
				add(orb.LineString(r))
			}
		}
	case orb.Collection:
		for _, sub := range geom {
			lines = appendGeometry(lines, kind, name, sub)
		}
	}
	return lines
}

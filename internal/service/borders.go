package service

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-terrain/internal/border"
	"github.com/joeblew999/plat-terrain/internal/db"
)

// BorderService serves the border datasets in <data>/borders. GeoParquet
// datasets are read through DuckDB, which is opened on first use.
type BorderService struct {
	files catalog
	db    *db.Lazy
}

// NewBorderService creates a new border service.
func NewBorderService(dataDir string, duck *db.Lazy) *BorderService {
	return &BorderService{
		files: catalog{
			dir: filepath.Join(dataDir, "borders"),
			extToType: map[string]string{
				".json":       "JSON",
				".geojson":    "GeoJSON",
				".parquet":    "GeoParquet",
				".geoparquet": "GeoParquet",
			},
		},
		db: duck,
	}
}

// List returns all available border datasets.
func (s *BorderService) List() ([]DataFile, error) {
	return s.files.list()
}

// Load reads a border dataset by file name.
func (s *BorderService) Load(ctx context.Context, name string) ([]border.Line, error) {
	path, err := s.files.resolve(name)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".geoparquet":
		conn, err := s.db.Get(ctx)
		if err != nil {
			return nil, err
		}
		return border.LoadDuckDB(ctx, conn, path)
	default:
		return border.LoadFile(path)
	}
}

// BordersDir returns the path to the borders directory.
func (s *BorderService) BordersDir() string {
	return s.files.dir
}

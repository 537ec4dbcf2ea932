package service

import (
	"path/filepath"

	"github.com/joeblew999/plat-terrain/internal/raster"
)

// RegionService serves the elevation rasters in <data>/regions.
type RegionService struct {
	files catalog
}

// NewRegionService creates a new region service.
func NewRegionService(dataDir string) *RegionService {
	return &RegionService{files: catalog{
		dir:       filepath.Join(dataDir, "regions"),
		extToType: map[string]string{".json": "Raster"},
	}}
}

// List returns all available region rasters.
func (s *RegionService) List() ([]DataFile, error) {
	return s.files.list()
}

// Load reads and validates a region raster by file name.
func (s *RegionService) Load(name string) (*raster.Raw, error) {
	path, err := s.files.resolve(name)
	if err != nil {
		return nil, err
	}
	return raster.LoadFile(path)
}

// RegionsDir returns the path to the regions directory.
func (s *RegionService) RegionsDir() string {
	return s.files.dir
}

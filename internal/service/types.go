// Package service owns the terrain pipeline state behind the HTTP API:
// the data-directory catalogues and the current region snapshot.
package service

// DataFile is a region or border dataset in the data directory.
type DataFile struct {
	Name     string `json:"name" doc:"File name" example:"alps.json"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON"`
}

// Pipeline change resources carried by Event.Resource.
const (
	ResourceRegion     = "region"
	ResourceResolution = "resolution"
	ResourceLayout     = "layout"
	ResourceBorders    = "borders"
)

// Event represents a pipeline change.
type Event struct {
	Resource   string // e.g. "resolution"
	Action     string // "loaded", "updated"
	ID         string // region or dataset name, or the new setting
	Generation uint64 // snapshot version that carries the change
}

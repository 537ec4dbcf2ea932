package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-terrain/internal/config"
	"github.com/joeblew999/plat-terrain/internal/service"
)

type InfoHandler struct {
	dataDir string
	terrain *service.TerrainService
}

func NewInfoHandler(dataDir string, terrain *service.TerrainService) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, terrain: terrain}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name        string          `json:"name" doc:"Service name"`
	Version     string          `json:"version" doc:"Service version"`
	DataDir     string          `json:"data_dir" doc:"Data directory path"`
	Generation  uint64          `json:"generation" doc:"Current snapshot version"`
	Subscribers int             `json:"subscribers" doc:"Open event streams"`
	Defaults    config.Pipeline `json:"defaults" doc:"Pipeline defaults from the config file"`
	Features    []string        `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:        "plat-terrain",
		Version:     "0.1.0",
		DataDir:     h.dataDir,
		Generation:  h.terrain.Snapshot().Generation,
		Subscribers: h.terrain.Bus().Subscribers(),
		Defaults:    h.terrain.Defaults().Pipeline,
		Features:    []string{"aggregation", "contours", "borders", "geojson", "geoparquet", "duckdb"},
	}}, nil
}

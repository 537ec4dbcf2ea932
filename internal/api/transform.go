package api

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/service"
)

type GridPointInput struct {
	Row int `query:"row" minimum:"0" doc:"Grid row" example:"0"`
	Col int `query:"col" minimum:"0" doc:"Grid column" example:"0"`
}

type RenderPointInput struct {
	X float64 `query:"x" doc:"Render-space x"`
	Z float64 `query:"z" doc:"Render-space z"`
}

type GeoPointInput struct {
	Lon float64 `query:"lon" minimum:"-180" maximum:"180" doc:"Longitude in degrees"`
	Lat float64 `query:"lat" minimum:"-90" maximum:"90" doc:"Latitude in degrees"`
}

type RenderPointBody struct {
	X      float64 `json:"x" doc:"Render-space x"`
	Z      float64 `json:"z" doc:"Render-space z"`
	Inside bool    `json:"inside" doc:"Whether the point lies within the grid footprint"`
}

type GridPointBody struct {
	Row       int      `json:"row" doc:"Nearest grid row, clamped to the grid"`
	Col       int      `json:"col" doc:"Nearest grid column, clamped to the grid"`
	Elevation *float64 `json:"elevation" doc:"Aggregated elevation at the cell, null for no data"`
}

type GeoPointBody struct {
	layout.GeoPoint
	Inside bool `json:"inside" doc:"Whether the render point lies within the grid footprint"`
}

// RegisterTransform registers coordinate conversion routes. All of them
// use the current layout and aggregated grid.
func (h *APIHandler) RegisterTransform(api huma.API) {
	huma.Get(api, "/api/v1/transform/grid-to-render", h.GridToRender, huma.OperationTags("transform"))
	huma.Get(api, "/api/v1/transform/render-to-grid", h.RenderToGrid, huma.OperationTags("transform"))
	huma.Get(api, "/api/v1/transform/render-to-geo", h.RenderToGeo, huma.OperationTags("transform"))
	huma.Get(api, "/api/v1/transform/geo-to-render", h.GeoToRender, huma.OperationTags("transform"))
}

func (h *APIHandler) snapshot() (*service.Snapshot, error) {
	snap := h.svc.Terrain.Snapshot()
	if !snap.HasRegion() {
		return nil, apiError(service.ErrNoRegion)
	}
	return snap, nil
}

func (h *APIHandler) GridToRender(ctx context.Context, input *GridPointInput) (*struct{ Body RenderPointBody }, error) {
	snap, err := h.snapshot()
	if err != nil {
		return nil, err
	}
	t := snap.Transform
	if input.Row >= t.Height || input.Col >= t.Width {
		return nil, huma.Error422UnprocessableEntity(
			fmt.Sprintf("cell (%d, %d) is outside the %dx%d grid", input.Row, input.Col, t.Width, t.Height))
	}
	x, z := t.GridToRender(input.Row, input.Col)
	return &struct{ Body RenderPointBody }{Body: RenderPointBody{X: x, Z: z, Inside: true}}, nil
}

func (h *APIHandler) RenderToGrid(ctx context.Context, input *RenderPointInput) (*struct{ Body GridPointBody }, error) {
	snap, err := h.snapshot()
	if err != nil {
		return nil, err
	}
	row, col := snap.Transform.RenderToGrid(input.X, input.Z)
	body := GridPointBody{Row: row, Col: col}
	if v, ok := snap.Bucketed.Elevation.At(row, col); ok {
		body.Elevation = &v
	}
	return &struct{ Body GridPointBody }{Body: body}, nil
}

func (h *APIHandler) RenderToGeo(ctx context.Context, input *RenderPointInput) (*struct{ Body GeoPointBody }, error) {
	snap, err := h.snapshot()
	if err != nil {
		return nil, err
	}
	t := snap.Transform
	return &struct{ Body GeoPointBody }{Body: GeoPointBody{
		GeoPoint: t.RenderToGeo(input.X, input.Z, snap.Raw.Bounds),
		Inside:   t.InsideFootprint(input.X, input.Z),
	}}, nil
}

func (h *APIHandler) GeoToRender(ctx context.Context, input *GeoPointInput) (*struct{ Body RenderPointBody }, error) {
	snap, err := h.snapshot()
	if err != nil {
		return nil, err
	}
	t := snap.Transform
	x, z := t.GeoToRender(input.Lon, input.Lat, snap.Raw.Bounds)
	return &struct{ Body RenderPointBody }{Body: RenderPointBody{X: x, Z: z, Inside: t.InsideFootprint(x, z)}}, nil
}

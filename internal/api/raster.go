package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-terrain/internal/humastar"
	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
	"github.com/joeblew999/plat-terrain/internal/service"
)

// Summary describes the current pipeline state.
type Summary struct {
	Generation uint64 `json:"generation" doc:"Snapshot version; increases with every change"`
	Region     string `json:"region,omitempty" doc:"Loaded region file"`

	Width  int            `json:"width,omitempty" doc:"Raster width in pixels"`
	Height int            `json:"height,omitempty" doc:"Raster height in pixels"`
	Bounds *raster.Bounds `json:"bounds,omitempty"`
	Stats  *raster.Stats  `json:"stats,omitempty" doc:"Raster elevation stats"`
	Scale  *raster.Scale  `json:"scale,omitempty"`

	Resolution *Resolution `json:"resolution,omitempty"`

	Layout     string  `json:"layout" enum:"bars,points,surface" doc:"Layout mode"`
	PointScale float64 `json:"pointScale,omitempty" doc:"Points-mode spacing override"`

	BorderSet      string `json:"borderSet,omitempty" doc:"Loaded border dataset"`
	BorderSegments int    `json:"borderSegments" doc:"Number of indexed border segments"`
}

// Resolution describes the aggregated grid.
type Resolution struct {
	BucketSize        int          `json:"bucketSize" doc:"Source pixels per bucket edge"`
	Reducer           string       `json:"reducer" doc:"Bucket reducer"`
	Width             int          `json:"width" doc:"Aggregated grid width"`
	Height            int          `json:"height" doc:"Aggregated grid height"`
	BucketSizeMetersX float64      `json:"bucketSizeMetersX" doc:"Bucket width in meters"`
	BucketSizeMetersY float64      `json:"bucketSizeMetersY" doc:"Bucket height in meters"`
	Stats             raster.Stats `json:"stats" doc:"Aggregated elevation stats"`
}

// Actions offers the operations that make sense in the current state.
func (s Summary) Actions() []humastar.Action {
	if s.Resolution == nil {
		return []humastar.Action{{Rel: "regions", Href: "/api/v1/regions", Method: "GET", Title: "Pick a region"}}
	}
	return []humastar.Action{
		{Rel: "resolution", Href: "/api/v1/raster/resolution", Method: "PUT", Title: "Change resolution"},
		{Rel: "layout", Href: "/api/v1/layout", Method: "PUT", Title: "Change layout"},
		{Rel: "contours", Href: "/api/v1/contours", Method: "GET", Title: "Trace contours"},
	}
}

func summarize(snap *service.Snapshot) Summary {
	s := Summary{
		Generation: snap.Generation,
		Region:     snap.Region,
		Layout:     snap.Transform.Mode.String(),
		PointScale: snap.Transform.PointScale,
		BorderSet:  snap.BorderSet,
	}
	s.BorderSegments = snap.Borders.Len()
	if !snap.HasRegion() {
		return s
	}

	raw, b := snap.Raw, snap.Bucketed
	scale := raw.Scale()
	s.Width, s.Height = raw.Width, raw.Height
	s.Bounds, s.Stats, s.Scale = &raw.Bounds, &raw.Stats, &scale
	s.Resolution = &Resolution{
		BucketSize:        b.BucketSize,
		Reducer:           b.Reducer.String(),
		Width:             b.Width,
		Height:            b.Height,
		BucketSizeMetersX: b.BucketSizeMetersX,
		BucketSizeMetersY: b.BucketSizeMetersY,
		Stats:             b.Stats,
	}
	return s
}

// GridBody is an elevation grid on the wire; null marks no data.
type GridBody struct {
	Generation uint64       `json:"generation" doc:"Snapshot version the grid belongs to"`
	Source     string       `json:"source" enum:"raw,bucketed" doc:"Which grid this is"`
	Width      int          `json:"width" doc:"Grid width"`
	Height     int          `json:"height" doc:"Grid height"`
	BucketSize int          `json:"bucketSize" doc:"Source pixels per cell edge"`
	Elevation  []*float64   `json:"elevation" doc:"Row-major samples, null for no data"`
	Stats      raster.Stats `json:"stats"`
}

type GridInput struct {
	Source string `query:"source" enum:"raw,bucketed" default:"bucketed" doc:"Raw raster or aggregated grid"`
}

type ResolutionInput struct {
	Body struct {
		BucketSize int    `json:"bucketSize" minimum:"1" doc:"Source pixels per bucket edge" example:"4"`
		Reducer    string `json:"reducer,omitempty" enum:"max,min,average,median" default:"max" doc:"Bucket reducer"`
	}
}

type LayoutInput struct {
	Body struct {
		Mode       string  `json:"mode" enum:"bars,points,surface" doc:"Layout mode" example:"bars"`
		PointScale float64 `json:"pointScale,omitempty" minimum:"0" doc:"Points-mode spacing; 0 keeps unit spacing"`
	}
}

// RegisterRaster registers raster and pipeline-setting routes.
func (h *APIHandler) RegisterRaster(api huma.API) {
	huma.Get(api, "/api/v1/raster", h.GetRaster, huma.OperationTags("raster"))
	huma.Get(api, "/api/v1/raster/grid", h.GetGrid, huma.OperationTags("raster"))
	huma.Put(api, "/api/v1/raster/resolution", h.PutResolution, huma.OperationTags("raster"))
	huma.Put(api, "/api/v1/layout", h.PutLayout, huma.OperationTags("raster"))
}

func (h *APIHandler) GetRaster(ctx context.Context, input *struct{}) (*struct{ Body Summary }, error) {
	return &struct{ Body Summary }{Body: summarize(h.svc.Terrain.Snapshot())}, nil
}

func (h *APIHandler) GetGrid(ctx context.Context, input *GridInput) (*struct{ Body GridBody }, error) {
	snap := h.svc.Terrain.Snapshot()
	if !snap.HasRegion() {
		return nil, apiError(service.ErrNoRegion)
	}
	body := GridBody{Generation: snap.Generation, Source: input.Source}
	if input.Source == "raw" {
		body.Width, body.Height, body.BucketSize = snap.Raw.Width, snap.Raw.Height, 1
		body.Elevation, body.Stats = snap.Raw.Elevation.Nullable(), snap.Raw.Stats
	} else {
		b := snap.Bucketed
		body.Width, body.Height, body.BucketSize = b.Width, b.Height, b.BucketSize
		body.Elevation, body.Stats = b.Elevation.Nullable(), b.Stats
	}
	return &struct{ Body GridBody }{Body: body}, nil
}

func (h *APIHandler) PutResolution(ctx context.Context, input *ResolutionInput) (*struct{ Body Summary }, error) {
	reducer, err := raster.ParseReducer(input.Body.Reducer)
	if err != nil {
		return nil, apiError(err)
	}
	snap, err := h.svc.Terrain.SetResolution(ctx, input.Body.BucketSize, reducer)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body Summary }{Body: summarize(snap)}, nil
}

func (h *APIHandler) PutLayout(ctx context.Context, input *LayoutInput) (*struct{ Body Summary }, error) {
	mode, err := layout.ParseMode(input.Body.Mode)
	if err != nil {
		return nil, apiError(err)
	}
	snap, err := h.svc.Terrain.SetLayout(mode, input.Body.PointScale)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body Summary }{Body: summarize(snap)}, nil
}

package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-terrain/internal/border"
	"github.com/joeblew999/plat-terrain/internal/humastar"
)

type SegmentsInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Index of the first segment"`
	Limit  int `query:"limit" minimum:"1" maximum:"10000" default:"1000" doc:"Page size"`
}

type NearestBody struct {
	Found bool          `json:"found" doc:"Whether a segment lies in the query's neighbourhood"`
	Match *border.Match `json:"match,omitempty"`
}

// RegisterBorderQueries registers border segment and proximity routes.
func (h *APIHandler) RegisterBorderQueries(api huma.API) {
	huma.Get(api, "/api/v1/borders/segments", h.GetBorderSegments, huma.OperationTags("borders"))
	huma.Get(api, "/api/v1/borders/nearest", h.GetNearestBorder, huma.OperationTags("borders"))
}

func (h *APIHandler) GetBorderSegments(ctx context.Context, input *SegmentsInput) (*struct {
	Body humastar.PageBody[border.Segment]
}, error) {
	snap, err := h.snapshot()
	if err != nil {
		return nil, err
	}
	return &struct {
		Body humastar.PageBody[border.Segment]
	}{Body: humastar.Page(snap.Borders.Segments(), input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetNearestBorder(ctx context.Context, input *GeoPointInput) (*struct{ Body NearestBody }, error) {
	m, ok, err := h.svc.Terrain.Nearest(input.Lon, input.Lat)
	if err != nil {
		return nil, apiError(err)
	}
	body := NearestBody{Found: ok}
	if ok {
		body.Match = &m
	}
	return &struct{ Body NearestBody }{Body: body}, nil
}

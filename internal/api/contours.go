package api

import (
	"context"
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-terrain/internal/contour"
)

// ContourInput selects the isolines to trace. Parameters left out fall back
// to the pipeline defaults from the config file.
type ContourInput struct {
	Interval     float64 `query:"interval" exclusiveMinimum:"0" doc:"Elevation step between isolines; defaults to the configured interval" example:"100"`
	Style        string  `query:"style" enum:"first-crossing,cell-segments" default:"first-crossing" doc:"What each crossing cell emits"`
	Exaggeration float64 `query:"exaggeration" doc:"Vertical exaggeration applied to render heights; defaults to the configured value"`
	Lift         float64 `query:"lift" doc:"Render-space offset above the terrain; defaults to the configured value"`

	set map[string]bool
}

// Resolve records which optional parameters the request carried.
func (i *ContourInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	q := u.Query()
	i.set = map[string]bool{
		"interval":     q.Has("interval"),
		"exaggeration": q.Has("exaggeration"),
		"lift":         q.Has("lift"),
	}
	return nil
}

// options merges the request over the configured defaults.
func (i *ContourInput) options(defaults contour.Options) (contour.Options, error) {
	style, err := contour.ParseStyle(i.Style)
	if err != nil {
		return contour.Options{}, huma.Error422UnprocessableEntity(err.Error())
	}
	opts := defaults
	opts.Style = style
	if i.set["interval"] {
		opts.Interval = i.Interval
	}
	if i.set["exaggeration"] {
		opts.Exaggeration = i.Exaggeration
	}
	if i.set["lift"] {
		opts.Lift = i.Lift
	}
	return opts, nil
}

type ContourBody struct {
	Generation uint64            `json:"generation" doc:"Snapshot version the isolines belong to"`
	Interval   float64           `json:"interval" doc:"Elevation step between isolines"`
	Style      string            `json:"style" doc:"Tracing style"`
	Levels     []float64         `json:"levels" doc:"Traced levels, ascending"`
	Segments   []contour.Isoline `json:"segments" doc:"Render-space isoline pieces"`
}

type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// RegisterContours registers isoline routes.
func (h *APIHandler) RegisterContours(api huma.API) {
	huma.Get(api, "/api/v1/contours", h.GetContours, huma.OperationTags("contours"))
	huma.Get(api, "/api/v1/contours/geojson", h.GetContoursGeoJSON, huma.OperationTags("contours"))
}

func (h *APIHandler) GetContours(ctx context.Context, input *ContourInput) (*struct{ Body ContourBody }, error) {
	opts, err := input.options(h.svc.Terrain.Defaults().Pipeline.ContourOptions())
	if err != nil {
		return nil, err
	}
	segments, snap, err := h.svc.Terrain.Contours(ctx, opts)
	if err != nil {
		return nil, apiError(err)
	}
	// Contours already traced these levels, so the count is in range.
	levels, _ := contour.Levels(snap.Bucketed.Stats, opts.Interval)
	if levels == nil {
		levels = []float64{}
	}
	return &struct{ Body ContourBody }{Body: ContourBody{
		Generation: snap.Generation,
		Interval:   opts.Interval,
		Style:      opts.Style.String(),
		Levels:     levels,
		Segments:   segments,
	}}, nil
}

func (h *APIHandler) GetContoursGeoJSON(ctx context.Context, input *ContourInput) (*GeoJSONOutput, error) {
	opts, err := input.options(h.svc.Terrain.Defaults().Pipeline.ContourOptions())
	if err != nil {
		return nil, err
	}
	lines, snap, err := h.svc.Terrain.ContourLines(ctx, opts.Interval, opts.Style)
	if err != nil {
		return nil, apiError(err)
	}
	data, err := json.Marshal(contour.FeatureCollection(lines, snap.Transform, snap.Raw.Bounds))
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode GeoJSON", err)
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Body: data}, nil
}

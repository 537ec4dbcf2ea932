// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-terrain/internal/border"
	"github.com/joeblew999/plat-terrain/internal/contour"
	"github.com/joeblew999/plat-terrain/internal/humastar"
	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
	"github.com/joeblew999/plat-terrain/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Regions *service.RegionService
	Borders *service.BorderService
	Terrain *service.TerrainService
}

// Types

type NameInput struct {
	Name string `path:"name" doc:"Dataset file name" example:"alps.json"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

var regionActions = []humastar.ActionDef{
	{Rel: "load", Pattern: "/api/v1/regions/%s/load", Method: "POST", Title: "Load region"},
}

var borderActions = []humastar.ActionDef{
	{Rel: "load", Pattern: "/api/v1/borders/%s/load", Method: "POST", Title: "Load border dataset"},
}

// DataFileList lists the datasets of one kind and which one is loaded.
type DataFileList struct {
	Files   []service.DataFile `json:"files" doc:"Available datasets"`
	Current string             `json:"current,omitempty" doc:"Name of the loaded dataset"`

	actions []humastar.ActionDef
}

// Actions links every dataset that is not loaded to its load operation.
func (l DataFileList) Actions() []humastar.Action {
	var actions []humastar.Action
	for _, f := range l.Files {
		if f.Name != l.Current {
			actions = append(actions, humastar.ActionsFor(f.Name, l.actions)...)
		}
	}
	return actions
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterRegions registers region catalogue routes.
func (h *APIHandler) RegisterRegions(api huma.API) {
	huma.Get(api, "/api/v1/regions", h.ListRegions, huma.OperationTags("regions"))
	huma.Post(api, "/api/v1/regions/{name}/load", h.LoadRegion, huma.OperationTags("regions"))
}

// RegisterBorders registers border catalogue routes.
func (h *APIHandler) RegisterBorders(api huma.API) {
	huma.Get(api, "/api/v1/borders", h.ListBorders, huma.OperationTags("borders"))
	huma.Post(api, "/api/v1/borders/{name}/load", h.LoadBorders, huma.OperationTags("borders"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) ListRegions(ctx context.Context, input *struct{}) (*struct{ Body DataFileList }, error) {
	files, err := h.svc.Regions.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list regions", err)
	}
	return &struct{ Body DataFileList }{Body: DataFileList{
		Files:   files,
		Current: h.svc.Terrain.Snapshot().Region,
		actions: regionActions,
	}}, nil
}

func (h *APIHandler) LoadRegion(ctx context.Context, input *NameInput) (*struct{ Body Summary }, error) {
	snap, err := h.svc.Terrain.LoadRegion(ctx, input.Name)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body Summary }{Body: summarize(snap)}, nil
}

func (h *APIHandler) ListBorders(ctx context.Context, input *struct{}) (*struct{ Body DataFileList }, error) {
	files, err := h.svc.Borders.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list border datasets", err)
	}
	return &struct{ Body DataFileList }{Body: DataFileList{
		Files:   files,
		Current: h.svc.Terrain.Snapshot().BorderSet,
		actions: borderActions,
	}}, nil
}

func (h *APIHandler) LoadBorders(ctx context.Context, input *NameInput) (*struct{ Body Summary }, error) {
	snap, err := h.svc.Terrain.LoadBorders(ctx, input.Name)
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body Summary }{Body: summarize(snap)}, nil
}

// apiError maps service and core errors onto HTTP statuses.
func apiError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrInvalidName):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrNoRegion), errors.Is(err, service.ErrSuperseded):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, raster.ErrInvalidBucketSize),
		errors.Is(err, raster.ErrUnknownReducer),
		errors.Is(err, raster.ErrMalformed),
		errors.Is(err, layout.ErrUnknownMode),
		errors.Is(err, layout.ErrEmptyGrid),
		errors.Is(err, contour.ErrTooManyLevels),
		errors.Is(err, border.ErrMalformed):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("request cancelled", err)
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}

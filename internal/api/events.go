package api

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-terrain/internal/humastar"
	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
	"github.com/joeblew999/plat-terrain/internal/service"
)

// PipelineSignals is the Datastar signal set describing the pipeline.
type PipelineSignals struct {
	Generation uint64 `json:"generation"`
	Region     string `json:"region"`
	BucketSize int    `json:"bucketsize"`
	Reducer    string `json:"reducer"`
	Layout     string `json:"layout"`
	BorderSet  string `json:"borderset"`
}

func pipelineSignals(snap *service.Snapshot) PipelineSignals {
	s := PipelineSignals{
		Generation: snap.Generation,
		Region:     snap.Region,
		Layout:     snap.Transform.Mode.String(),
		BorderSet:  snap.BorderSet,
	}
	if snap.HasRegion() {
		s.BucketSize = snap.Bucketed.BucketSize
		s.Reducer = snap.Bucketed.Reducer.String()
	}
	return s
}

// RegisterEvents registers the Datastar streams.
func (h *APIHandler) RegisterEvents(api huma.API) {
	huma.Get(api, "/api/v1/events", h.Events, huma.OperationTags(humastar.StreamTag))
	huma.Post(api, "/api/v1/ui/resolution", h.UIResolution, huma.OperationTags(humastar.StreamTag))
	huma.Post(api, "/api/v1/ui/layout", h.UILayout, huma.OperationTags(humastar.StreamTag))
}

// Events streams the current pipeline signals, then one patch per change.
func (h *APIHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	bus := h.svc.Terrain.Bus()
	return humastar.Stream(func(sse humastar.SSE) {
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		sse.Signals(pipelineSignals(h.svc.Terrain.Snapshot()))
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				sse.Signals(pipelineSignals(h.svc.Terrain.Snapshot()))
				sse.DispatchCustomEvent("pipeline-changed", map[string]any{
					"resource":   ev.Resource,
					"action":     ev.Action,
					"id":         ev.ID,
					"generation": ev.Generation,
				})
			}
		}
	}), nil
}

// UIResolution applies the bucketsize and reducer signals.
func (h *APIHandler) UIResolution(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	return humastar.Stream(func(sse humastar.SSE) {
		n, err := signals.WholeInt("bucketsize")
		if err != nil {
			sse.Error(fmt.Sprintf("%v: %v", raster.ErrInvalidBucketSize, err))
			return
		}
		reducer, err := raster.ParseReducer(signals.String("reducer"))
		if err != nil {
			sse.Error(err.Error())
			return
		}
		snap, err := h.svc.Terrain.SetResolution(ctx, n, reducer)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Signals(pipelineSignals(snap))
		sse.Success("Resolution updated")
	}), nil
}

// UILayout applies the layout and pointscale signals.
func (h *APIHandler) UILayout(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	return humastar.Stream(func(sse humastar.SSE) {
		mode, err := layout.ParseMode(signals.String("layout"))
		if err != nil {
			sse.Error(err.Error())
			return
		}
		snap, err := h.svc.Terrain.SetLayout(mode, signals.Float("pointscale"))
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Signals(pipelineSignals(snap))
		sse.Success("Layout updated")
	}), nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/joeblew999/plat-terrain/internal/border"
	"github.com/joeblew999/plat-terrain/internal/config"
	"github.com/joeblew999/plat-terrain/internal/contour"
	"github.com/joeblew999/plat-terrain/internal/layout"
	"github.com/joeblew999/plat-terrain/internal/raster"
)

var (
	// ErrNoRegion is returned by operations that need a loaded raster.
	ErrNoRegion = errors.New("no region loaded")
	// ErrSuperseded is returned when a newer request made the result stale;
	// the stale result is discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// Snapshot is one complete pipeline state. Snapshots are never modified
// after they are published; every change publishes a new one.
type Snapshot struct {
	Generation uint64
	Region     string
	Raw        *raster.Raw
	Bucketed   *raster.Bucketed
	// Transform carries the layout mode and point scale even before a
	// region is loaded; its grid size is zero until then.
	Transform layout.Transform
	BorderSet string
	Borders   *border.Index

	regionID uint64
	lines    []border.Line
}

// HasRegion reports whether the snapshot carries a raster.
func (s *Snapshot) HasRegion() bool {
	return s != nil && s.Raw != nil && s.Bucketed != nil
}

// TerrainService owns the current snapshot. Reads are lock-free; changes are
// computed outside the lock and published with a single pointer swap.
type TerrainService struct {
	regions  *RegionService
	borders  *BorderService
	bus      *EventBus
	defaults config.Config

	current atomic.Pointer[Snapshot]
	// tickets orders resolution requests; region loads advance it too so
	// pending requests against the old region are dropped. Only the newest
	// ticket may publish.
	tickets atomic.Uint64
	// regionSeq identifies loaded rasters; only the newest load may publish.
	regionSeq atomic.Uint64

	mu         sync.Mutex // serializes commits
	generation uint64

	aggregates singleflight.Group

	// afterAggregate runs between aggregation and commit; tests use it to
	// interleave requests.
	afterAggregate func()
}

// NewTerrainService creates a service with no region loaded.
func NewTerrainService(regions *RegionService, borders *BorderService, bus *EventBus, defaults config.Config) *TerrainService {
	s := &TerrainService{
		regions:  regions,
		borders:  borders,
		bus:      bus,
		defaults: defaults,
	}
	s.current.Store(&Snapshot{
		Transform: layout.Transform{
			Mode:       defaults.Pipeline.Layout,
			PointScale: defaults.Pipeline.PointScale,
		},
	})
	return s
}

// Snapshot returns the current pipeline state.
func (s *TerrainService) Snapshot() *Snapshot {
	return s.current.Load()
}

// Defaults returns the configured pipeline defaults.
func (s *TerrainService) Defaults() config.Config {
	return s.defaults
}

// Bus returns the event bus changes are published on.
func (s *TerrainService) Bus() *EventBus {
	return s.bus
}

// LoadRegion reads a region raster and aggregates it with the configured
// bucket size and reducer, clamped so the grid is never empty.
func (s *TerrainService) LoadRegion(ctx context.Context, name string) (*Snapshot, error) {
	raw, err := s.regions.Load(name)
	if err != nil {
		return nil, err
	}
	return s.SetRaster(ctx, name, raw)
}

// SetRaster makes raw the current region under the given name.
func (s *TerrainService) SetRaster(ctx context.Context, name string, raw *raster.Raw) (*Snapshot, error) {
	s.tickets.Add(1)
	id := s.regionSeq.Add(1)

	p := s.defaults.Pipeline
	n := min(p.BucketSize, raw.Width, raw.Height)
	b, err := s.aggregate(id, raw, n, p.Reducer)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := s.commit(func(cur *Snapshot) (*Snapshot, error) {
		if id != s.regionSeq.Load() {
			return nil, ErrSuperseded
		}
		next := *cur
		next.Region, next.Raw, next.Bucketed, next.regionID = name, raw, b, id
		if err := s.place(&next); err != nil {
			return nil, err
		}
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ResourceRegion, "loaded", name, snap)
	return snap, nil
}

// SetResolution re-aggregates the current region. Identical concurrent
// requests share one aggregation. When a newer request or region load
// publishes first, this one returns ErrSuperseded and changes nothing.
func (s *TerrainService) SetResolution(ctx context.Context, n int, reducer raster.Reducer) (*Snapshot, error) {
	ticket := s.tickets.Add(1)
	base := s.current.Load()
	if !base.HasRegion() {
		return nil, ErrNoRegion
	}

	b, err := s.aggregate(base.regionID, base.Raw, n, reducer)
	if err != nil {
		return nil, err
	}
	if s.afterAggregate != nil {
		s.afterAggregate()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := s.commit(func(cur *Snapshot) (*Snapshot, error) {
		if ticket != s.tickets.Load() || cur.regionID != base.regionID {
			return nil, ErrSuperseded
		}
		next := *cur
		next.Bucketed = b
		if err := s.place(&next); err != nil {
			return nil, err
		}
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ResourceResolution, "updated", fmt.Sprintf("%d/%s", n, reducer), snap)
	return snap, nil
}

func (s *TerrainService) aggregate(regionID uint64, raw *raster.Raw, n int, reducer raster.Reducer) (*raster.Bucketed, error) {
	key := fmt.Sprintf("%d/%d/%d", regionID, n, reducer)
	v, err, _ := s.aggregates.Do(key, func() (any, error) {
		return raster.Aggregate(raw, n, reducer)
	})
	if err != nil {
		return nil, err
	}
	b := v.(*raster.Bucketed)
	if b.Width == 0 || b.Height == 0 {
		return nil, fmt.Errorf("%w: bucket size %d leaves no buckets in a %dx%d raster",
			layout.ErrEmptyGrid, n, raw.Width, raw.Height)
	}
	return b, nil
}

// SetLayout switches the layout mode. Without a region the mode is kept
// for the next load.
func (s *TerrainService) SetLayout(mode layout.Mode, pointScale float64) (*Snapshot, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", layout.ErrUnknownMode, int(mode))
	}
	snap, err := s.commit(func(cur *Snapshot) (*Snapshot, error) {
		next := *cur
		next.Transform.Mode, next.Transform.PointScale = mode, pointScale
		if err := s.place(&next); err != nil {
			return nil, err
		}
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ResourceLayout, "updated", mode.String(), snap)
	return snap, nil
}

// LoadBorders reads a border dataset, simplifies it with the configured
// tolerance and indexes it against the current region.
func (s *TerrainService) LoadBorders(ctx context.Context, name string) (*Snapshot, error) {
	lines, err := s.borders.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.SetBorderLines(name, lines)
}

// SetBorderLines makes lines the current border dataset.
func (s *TerrainService) SetBorderLines(name string, lines []border.Line) (*Snapshot, error) {
	lines = border.Simplify(lines, s.defaults.Borders.SimplifyTolerance)
	snap, err := s.commit(func(cur *Snapshot) (*Snapshot, error) {
		next := *cur
		next.BorderSet, next.lines = name, lines
		if err := s.place(&next); err != nil {
			return nil, err
		}
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ResourceBorders, "loaded", name, snap)
	return snap, nil
}

// place rebuilds the parts of next that depend on the grid and layout.
func (s *TerrainService) place(next *Snapshot) error {
	if !next.HasRegion() {
		return nil
	}
	t, err := layout.New(next.Transform.Mode, next.Bucketed.Width, next.Bucketed.Height, next.Bucketed.BucketSize)
	if err != nil {
		return err
	}
	next.Transform = t.WithPointScale(next.Transform.PointScale)

	next.Borders = nil
	if len(next.lines) > 0 {
		segments := border.Build(next.lines, next.Transform, next.Raw.Bounds)
		next.Borders = border.NewIndex(segments, s.defaults.Borders.CellSizeDeg)
	}
	return nil
}

// commit publishes the snapshot fn derives from the current one.
func (s *TerrainService) commit(fn func(cur *Snapshot) (*Snapshot, error)) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.current.Load())
	if err != nil {
		return nil, err
	}
	s.generation++
	next.Generation = s.generation
	s.current.Store(next)
	return next, nil
}

func (s *TerrainService) publish(resource, action, id string, snap *Snapshot) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(Event{Resource: resource, Action: action, ID: id, Generation: snap.Generation})
}

// ContourLines traces the current bucketed grid in grid space. Levels are
// traced in parallel; the result is in level order.
func (s *TerrainService) ContourLines(ctx context.Context, interval float64, style contour.Style) ([]contour.Line, *Snapshot, error) {
	snap := s.current.Load()
	if !snap.HasRegion() {
		return nil, nil, ErrNoRegion
	}

	g := snap.Bucketed.Elevation
	levels, err := contour.Levels(snap.Bucketed.Stats, interval)
	if err != nil {
		return nil, nil, err
	}
	traced := make([][]contour.Line, len(levels))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, level := range levels {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			traced[i] = contour.TraceLevel(g, level, style)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return slices.Concat(traced...), snap, nil
}

// Contours traces the current bucketed grid and places it in render space.
func (s *TerrainService) Contours(ctx context.Context, opts contour.Options) ([]contour.Isoline, *Snapshot, error) {
	lines, snap, err := s.ContourLines(ctx, opts.Interval, opts.Style)
	if err != nil {
		return nil, nil, err
	}
	return contour.ToRender(lines, opts, snap.Transform), snap, nil
}

// Nearest finds the border segment closest to lon/lat. It reports false
// when no border dataset is loaded or nothing is near.
func (s *TerrainService) Nearest(lon, lat float64) (border.Match, bool, error) {
	snap := s.current.Load()
	if !snap.HasRegion() {
		return border.Match{}, false, ErrNoRegion
	}
	m, ok := snap.Borders.Nearest(lon, lat)
	return m, ok, nil
}

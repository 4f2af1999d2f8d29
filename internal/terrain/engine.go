package terrain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/sandtable/internal/depth"
	"github.com/banshee-data/sandtable/internal/monitoring"
	"github.com/banshee-data/sandtable/internal/units"
)

// ErrNoSink indicates the engine was configured without a terrain sink.
var ErrNoSink = errors.New("terrain: no sink configured")

// SnapshotStore persists published height grids. Implemented by
// internal/terrain/store; the interface lives here so the engine does not
// depend on the storage layer.
type SnapshotStore interface {
	SaveHeights(resolution int, values []float64, reason string) error
	LoadLatestHeights() (resolution int, values []float64, err error)
}

// Config holds the engine's startup configuration. All values are read once
// at construction and static thereafter.
type Config struct {
	UpdateInterval  time.Duration // processing cadence (default 50ms)
	MinDistance     float64       // metres, nearest valid depth (default 0.5)
	MaxDistance     float64       // metres, farthest valid depth (default 1.5)
	SmoothingFactor float64       // [0,1]: temporal damping, 1 = frozen, 0 = instant
	BlendRange      float64       // [0,1]: normalized-height band for layer cross-fade

	HeightmapResolution int // square height grid dimension (default 129)
	AlphamapResolution  int // square blend grid dimension (default HeightmapResolution)

	Layers []Layer
	Sink   Sink

	// Queue is the frame buffer between the camera callback and the engine.
	// Created with the default capacity when nil.
	Queue *depth.FrameQueue

	// Store, when set, persists the published height grid every
	// SnapshotInterval and on shutdown, and seeds the previous grid from the
	// latest snapshot at startup.
	Store            SnapshotStore
	SnapshotInterval time.Duration // default 5 minutes

	// StatsInterval is the cadence of the advisory grid statistics log line.
	// Zero selects 30 seconds; negative disables it.
	StatsInterval time.Duration
}

// Status is a point-in-time view of engine progress for diagnostics.
type Status struct {
	Ticks            uint64           `json:"ticks"`
	FramesProcessed  uint64           `json:"frames_processed"`
	SkippedTicks     uint64           `json:"skipped_ticks"`
	LastTickUnixNano int64            `json:"last_tick_unix_nano"`
	Queue            depth.QueueStats `json:"queue"`
	HeightStats      GridStats        `json:"height_stats"`
}

// Engine owns the depth-to-terrain pipeline: it drains the frame queue on a
// fixed interval, runs resampling, height integration and layer blending over
// every grid cell, and publishes the result to the sink. All grid state is
// owned by the Run goroutine; the queue is the only producer-shared
// structure.
type Engine struct {
	cfg   Config
	stack *LayerStack
	queue *depth.FrameQueue
	sink  Sink
	store SnapshotStore

	minDepth uint16 // millimetres
	maxDepth uint16

	cur     *HeightGrid // written this tick
	prev    *HeightGrid // published last tick, read-only during a tick
	alpha   *AlphaGrid
	scratch []float64 // per-cell weight vector, reused across cells

	// Counters are atomic so Status can be served concurrently with ticks.
	ticks    atomic.Uint64
	frames   atomic.Uint64
	skipped  atomic.Uint64
	lastTick atomic.Int64 // unix nanos

	// obs is a copy of the latest published grid for observers (HTTP
	// handlers, websocket stream). Guarded separately so readers never touch
	// the live double buffers.
	obsMu     sync.RWMutex
	obsValues []float64
	obsStats  GridStats
}

// NewEngine validates the configuration and builds an engine. Configuration
// errors are fatal: the pipeline must not start half-wired.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Sink == nil {
		return nil, ErrNoSink
	}
	stack, err := NewLayerStack(cfg.Layers)
	if err != nil {
		return nil, err
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 50 * time.Millisecond
	}
	if cfg.MinDistance == 0 && cfg.MaxDistance == 0 {
		cfg.MinDistance, cfg.MaxDistance = 0.5, 1.5
	}
	if cfg.MinDistance < 0 || cfg.MaxDistance <= cfg.MinDistance {
		return nil, fmt.Errorf("terrain: invalid depth range [%v, %v] metres", cfg.MinDistance, cfg.MaxDistance)
	}
	if cfg.SmoothingFactor < 0 || cfg.SmoothingFactor > 1 {
		return nil, fmt.Errorf("terrain: smoothing factor %v outside [0,1]", cfg.SmoothingFactor)
	}
	if cfg.BlendRange < 0 || cfg.BlendRange > 1 {
		return nil, fmt.Errorf("terrain: blend range %v outside [0,1]", cfg.BlendRange)
	}
	if cfg.HeightmapResolution <= 0 {
		cfg.HeightmapResolution = 129
	}
	if cfg.AlphamapResolution <= 0 {
		cfg.AlphamapResolution = cfg.HeightmapResolution
	}
	if cfg.Queue == nil {
		cfg.Queue = depth.NewFrameQueue(depth.DefaultQueueCapacity)
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = 5 * time.Minute
	}
	if cfg.StatsInterval == 0 {
		cfg.StatsInterval = 30 * time.Second
	}

	e := &Engine{
		cfg:      cfg,
		stack:    stack,
		queue:    cfg.Queue,
		sink:     cfg.Sink,
		store:    cfg.Store,
		minDepth: units.MetresToDepthSample(cfg.MinDistance),
		maxDepth: units.MetresToDepthSample(cfg.MaxDistance),
		cur:      NewHeightGrid(cfg.HeightmapResolution),
		prev:     NewHeightGrid(cfg.HeightmapResolution),
		alpha:    NewAlphaGrid(cfg.AlphamapResolution, stack.Len()),
		scratch:  make([]float64, stack.Len()),
	}

	if e.store != nil {
		e.restoreFromStore()
	}
	return e, nil
}

// restoreFromStore seeds the previous height grid from the latest snapshot so
// the terrain resumes where it left off instead of rising from a flat plane.
func (e *Engine) restoreFromStore() {
	res, values, err := e.store.LoadLatestHeights()
	if err != nil {
		monitoring.Logf("[Engine] No height snapshot restored: %v", err)
		return
	}
	if res != e.cfg.HeightmapResolution || len(values) != res*res {
		monitoring.Logf("[Engine] Ignoring snapshot at resolution %d (running at %d)",
			res, e.cfg.HeightmapResolution)
		return
	}
	copy(e.prev.Values, values)
	monitoring.Logf("[Engine] Restored %dx%d height snapshot", res, res)
}

// HandleFrame is the camera delivery callback: it enqueues the frame and
// returns immediately. Register it as the source's FrameHandler.
func (e *Engine) HandleFrame(f *depth.Frame) {
	e.queue.Push(f)
}

// Queue exposes the frame queue (for wiring and diagnostics).
func (e *Engine) Queue() *depth.FrameQueue { return e.queue }

// Layers returns the sorted layer stack.
func (e *Engine) Layers() []Layer { return e.stack.Layers() }

// Run drives the pipeline until the context is cancelled. On shutdown a
// final snapshot is persisted when a store is configured.
func (e *Engine) Run(ctx context.Context) error {
	monitoring.Logf("[Engine] Starting: %v interval, %dx%d heights, %dx%d alpha, %d layers, depth %d-%d mm",
		e.cfg.UpdateInterval, e.cfg.HeightmapResolution, e.cfg.HeightmapResolution,
		e.cfg.AlphamapResolution, e.cfg.AlphamapResolution, e.stack.Len(), e.minDepth, e.maxDepth)

	ticker := time.NewTicker(e.cfg.UpdateInterval)
	defer ticker.Stop()

	var statsC, snapC <-chan time.Time
	if e.cfg.StatsInterval > 0 {
		statsTicker := time.NewTicker(e.cfg.StatsInterval)
		defer statsTicker.Stop()
		statsC = statsTicker.C
	}
	if e.store != nil {
		snapTicker := time.NewTicker(e.cfg.SnapshotInterval)
		defer snapTicker.Stop()
		snapC = snapTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			e.persistSnapshot("shutdown")
			monitoring.Logf("[Engine] Stopping: context cancelled")
			return ctx.Err()
		case now := <-ticker.C:
			e.step(now)
		case <-statsC:
			e.logStats()
		case <-snapC:
			e.persistSnapshot("periodic")
		}
	}
}

// step runs one pipeline tick. Returns true when a frame was processed,
// false when the queue was empty (a skipped tick, not an error: the camera
// may simply be slower than the configured interval).
func (e *Engine) step(now time.Time) bool {
	frame, ok := e.queue.TryPop()
	if !ok {
		e.ticks.Add(1)
		e.skipped.Add(1)
		return false
	}

	// Height pass: integrate resampled depth against the previous grid.
	hres := e.cur.Resolution
	for gy := 0; gy < hres; gy++ {
		for gx := 0; gx < hres; gx++ {
			s, ok := Resample(frame, gx, gy, hres, hres)
			e.cur.set(gx, gy, integrateHeight(
				e.prev.At(gx, gy), s, ok, e.minDepth, e.maxDepth, e.cfg.SmoothingFactor))
		}
	}
	e.sink.SetHeights(0, 0, e.cur)

	// Blend pass: instantaneous normalized height at alpha resolution.
	// Invalid cells blend as height 0, the lowest band.
	ares := e.alpha.Resolution
	for ay := 0; ay < ares; ay++ {
		for ax := 0; ax < ares; ax++ {
			s, ok := Resample(frame, ax, ay, ares, ares)
			h := 0.0
			if classifyDepth(s, ok, e.minDepth, e.maxDepth) {
				h = normalizedHeight(s, e.minDepth, e.maxDepth)
			}
			blendWeights(e.stack, h, e.cfg.BlendRange, e.scratch)
			copy(e.alpha.cell(ax, ay), e.scratch)
		}
	}
	e.sink.SetBlendWeights(0, 0, e.alpha)

	// The grid just published becomes next tick's "previous".
	e.cur, e.prev = e.prev, e.cur

	e.ticks.Add(1)
	e.frames.Add(1)
	e.lastTick.Store(now.UnixNano())
	e.publishObservation()

	monitoring.Debugf("[Engine] Tick %d: processed %dx%d frame", e.ticks.Load(), frame.Width, frame.Height)
	return true
}

// publishObservation copies the just-published grid for concurrent readers.
func (e *Engine) publishObservation() {
	published := e.prev // after the swap, prev holds the published values
	e.obsMu.Lock()
	if len(e.obsValues) != len(published.Values) {
		e.obsValues = make([]float64, len(published.Values))
	}
	copy(e.obsValues, published.Values)
	e.obsStats = ComputeGridStats(e.obsValues)
	e.obsMu.Unlock()
}

// SnapshotHeights returns a copy of the most recently published height grid.
// Safe to call from any goroutine; returns resolution 0 before the first
// processed tick.
func (e *Engine) SnapshotHeights() (resolution int, values []float64) {
	e.obsMu.RLock()
	defer e.obsMu.RUnlock()
	if len(e.obsValues) == 0 {
		return 0, nil
	}
	out := make([]float64, len(e.obsValues))
	copy(out, e.obsValues)
	return e.cfg.HeightmapResolution, out
}

// Status reports current counters and grid statistics. Safe to call from any
// goroutine.
func (e *Engine) Status() Status {
	e.obsMu.RLock()
	stats := e.obsStats
	e.obsMu.RUnlock()
	return Status{
		Ticks:            e.ticks.Load(),
		FramesProcessed:  e.frames.Load(),
		SkippedTicks:     e.skipped.Load(),
		LastTickUnixNano: e.lastTick.Load(),
		Queue:            e.queue.Stats(),
		HeightStats:      stats,
	}
}

// Params reports the engine's effective configuration.
func (e *Engine) Params() map[string]interface{} {
	return map[string]interface{}{
		"update_interval":      e.cfg.UpdateInterval.String(),
		"min_distance_m":       e.cfg.MinDistance,
		"max_distance_m":       e.cfg.MaxDistance,
		"min_depth_mm":         e.minDepth,
		"max_depth_mm":         e.maxDepth,
		"smoothing_factor":     e.cfg.SmoothingFactor,
		"blend_range":          e.cfg.BlendRange,
		"heightmap_resolution": e.cfg.HeightmapResolution,
		"alphamap_resolution":  e.cfg.AlphamapResolution,
		"layers":               e.stack.Layers(),
	}
}

func (e *Engine) logStats() {
	s := e.Status()
	monitoring.Logf("[Engine] ticks=%d frames=%d skipped=%d queue=%d dropped=%d heights min=%.3f max=%.3f mean=%.3f sd=%.3f",
		s.Ticks, s.FramesProcessed, s.SkippedTicks, s.Queue.Depth, s.Queue.Dropped,
		s.HeightStats.Min, s.HeightStats.Max, s.HeightStats.Mean, s.HeightStats.StdDev)
}

func (e *Engine) persistSnapshot(reason string) {
	if e.store == nil {
		return
	}
	res, values := e.SnapshotHeights()
	if res == 0 {
		return
	}
	if err := e.store.SaveHeights(res, values, reason); err != nil {
		monitoring.Logf("[Engine] Failed to persist height snapshot (%s): %v", reason, err)
		return
	}
	monitoring.Debugf("[Engine] Persisted height snapshot (%s)", reason)
}

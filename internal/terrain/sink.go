package terrain

import "sync"

// Sink is the narrow terrain/render collaborator interface. The engine
// publishes whole-grid replacements at grid origin each tick. Grids passed in
// are only valid for the duration of the call; sinks that retain data must
// copy (the engine reuses the buffers on the next tick).
type Sink interface {
	SetHeights(originX, originY int, heights *HeightGrid)
	SetBlendWeights(originX, originY int, alpha *AlphaGrid)
}

// NullSink discards published grids. Useful when running headless for
// diagnostics only.
type NullSink struct{}

func (NullSink) SetHeights(int, int, *HeightGrid)     {}
func (NullSink) SetBlendWeights(int, int, *AlphaGrid) {}

// defaultRecordingKeep bounds a zero-value RecordingSink. A pipeline ticking
// at 20Hz publishes megabytes of grid copies per second, so retention has to
// be capped even when the caller never sets one.
const defaultRecordingKeep = 16

// RecordingSink copies recently published grids for later inspection. Test
// double for the render collaborator. Retention is bounded: once Keep grids
// of a kind are held, recording a new one evicts the oldest.
type RecordingSink struct {
	// Keep is the per-kind retention bound. Zero means defaultRecordingKeep.
	Keep int

	mu      sync.Mutex
	heights []*HeightGrid
	alphas  []*AlphaGrid
}

func (r *RecordingSink) keep() int {
	if r.Keep > 0 {
		return r.Keep
	}
	return defaultRecordingKeep
}

// SetHeights records a deep copy of the published height grid.
func (r *RecordingSink) SetHeights(_, _ int, heights *HeightGrid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heights = append(r.heights, heights.Clone())
	if drop := len(r.heights) - r.keep(); drop > 0 {
		r.heights = append(r.heights[:0], r.heights[drop:]...)
	}
}

// SetBlendWeights records a deep copy of the published alpha grid.
func (r *RecordingSink) SetBlendWeights(_, _ int, alpha *AlphaGrid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alphas = append(r.alphas, alpha.Clone())
	if drop := len(r.alphas) - r.keep(); drop > 0 {
		r.alphas = append(r.alphas[:0], r.alphas[drop:]...)
	}
}

// Heights returns the recorded height grids in publication order.
func (r *RecordingSink) Heights() []*HeightGrid {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*HeightGrid, len(r.heights))
	copy(out, r.heights)
	return out
}

// Alphas returns the recorded alpha grids in publication order.
func (r *RecordingSink) Alphas() []*AlphaGrid {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*AlphaGrid, len(r.alphas))
	copy(out, r.alphas)
	return out
}

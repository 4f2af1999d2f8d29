package terrain

// AlphaGrid holds per-cell texture blend weights over the layer stack.
// Invariant: for every cell the weights across layers are non-negative and
// sum to 1. The grid is rebuilt in full each tick; nothing persists across
// ticks.
type AlphaGrid struct {
	Resolution int
	LayerCount int
	Weights    []float64 // (y*Resolution + x)*LayerCount + layer
}

// NewAlphaGrid allocates a zeroed weight grid.
func NewAlphaGrid(resolution, layerCount int) *AlphaGrid {
	return &AlphaGrid{
		Resolution: resolution,
		LayerCount: layerCount,
		Weights:    make([]float64, resolution*resolution*layerCount),
	}
}

// At returns the weight of one layer at cell (x, y).
func (a *AlphaGrid) At(x, y, layer int) float64 {
	return a.Weights[(y*a.Resolution+x)*a.LayerCount+layer]
}

// cell returns the mutable weight slice for (x, y).
func (a *AlphaGrid) cell(x, y int) []float64 {
	base := (y*a.Resolution + x) * a.LayerCount
	return a.Weights[base : base+a.LayerCount]
}

// Clone returns a deep copy.
func (a *AlphaGrid) Clone() *AlphaGrid {
	out := NewAlphaGrid(a.Resolution, a.LayerCount)
	copy(out.Weights, a.Weights)
	return out
}

// blendWeights fills out with the per-layer weight vector for a cell at the
// given normalized height. Invalid cells pass height 0, which lands them in
// the lowest band, matching their height being reset toward baseline.
//
// The active layer is the lowest i whose successor threshold still bounds the
// height (h <= layer[i+1].Height); above all thresholds the last layer takes
// the cell outright. Within the blend band below a boundary the active layer
// cross-fades linearly into the next.
func blendWeights(stack *LayerStack, h, blendRange float64, out []float64) {
	for i := range out {
		out[i] = 0
	}
	n := stack.Len()
	if n == 1 {
		out[0] = 1
		return
	}

	active := n - 1
	for i := 0; i+1 < n; i++ {
		if h <= stack.At(i + 1).Height {
			active = i
			break
		}
	}
	if active == n-1 {
		out[active] = 1
		return
	}

	next := active + 1
	blendStart := stack.At(active).Height
	if s := stack.At(next).Height - blendRange; s > blendStart {
		blendStart = s
	}
	f := invLerp(blendStart, stack.At(next).Height, h)
	out[active] = 1 - f
	out[next] = f
}

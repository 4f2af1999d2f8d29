package terrain

// HeightGrid is a square grid of normalized height values in [0,1]. The
// engine keeps two of them (current and previous) and swaps them each tick so
// "read previous, write current" never races with itself.
type HeightGrid struct {
	Resolution int
	Values     []float64 // row-major, Resolution*Resolution
}

// NewHeightGrid allocates a zeroed grid.
func NewHeightGrid(resolution int) *HeightGrid {
	return &HeightGrid{
		Resolution: resolution,
		Values:     make([]float64, resolution*resolution),
	}
}

// At returns the value at (x, y).
func (g *HeightGrid) At(x, y int) float64 {
	return g.Values[y*g.Resolution+x]
}

func (g *HeightGrid) set(x, y int, v float64) {
	g.Values[y*g.Resolution+x] = v
}

// Clone returns a deep copy.
func (g *HeightGrid) Clone() *HeightGrid {
	out := NewHeightGrid(g.Resolution)
	copy(out.Values, g.Values)
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// invLerp returns where v sits between a and b, clamped to [0,1]. A
// degenerate span (b <= a) snaps to 0 or 1 so a zero blend range produces a
// hard seam instead of dividing by zero.
func invLerp(a, b, v float64) float64 {
	if b <= a {
		if v >= b {
			return 1
		}
		return 0
	}
	return clamp01((v - a) / (b - a))
}

// classifyDepth reports whether a resampled depth sample is usable. Bounds
// are inclusive; ok=false marks a no-data cell from the resampler.
func classifyDepth(sample uint16, ok bool, minDepth, maxDepth uint16) bool {
	return ok && sample >= minDepth && sample <= maxDepth
}

// normalizedHeight converts a valid depth sample to normalized height.
// Closer surfaces (smaller depth) yield higher terrain: depth at minDepth
// maps to 1, at maxDepth to 0.
func normalizedHeight(sample, minDepth, maxDepth uint16) float64 {
	span := float64(maxDepth) - float64(minDepth)
	if span <= 0 {
		return 0
	}
	return clamp01(1 - (float64(sample)-float64(minDepth))/span)
}

// integrateHeight produces the published height for one cell. Valid samples
// move from the previous value toward the target with weight 1-smoothing (an
// exponential temporal filter: smoothing near 1 damps heavily, near 0 tracks
// immediately). Invalid or missing samples reset toward baseline 0 with full
// weight, so stale peaks collapse instead of lingering.
func integrateHeight(prev float64, sample uint16, ok bool, minDepth, maxDepth uint16, smoothing float64) float64 {
	if !classifyDepth(sample, ok, minDepth, maxDepth) {
		return lerp(prev, 0, 1.0)
	}
	target := normalizedHeight(sample, minDepth, maxDepth)
	return lerp(prev, target, 1.0-smoothing)
}

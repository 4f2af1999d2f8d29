package terrain

import (
	"math"
	"testing"
)

func TestClassifyDepthInclusiveBounds(t *testing.T) {
	const minD, maxD = 500, 1500
	cases := []struct {
		sample uint16
		ok     bool
		valid  bool
	}{
		{500, true, true},   // exactly at min: valid
		{1500, true, true},  // exactly at max: valid
		{499, true, false},  // one unit below min: invalid
		{1501, true, false}, // one unit above max: invalid
		{1000, true, true},
		{1000, false, false}, // no-data overrides the value
	}
	for _, c := range cases {
		if got := classifyDepth(c.sample, c.ok, minD, maxD); got != c.valid {
			t.Fatalf("classifyDepth(%d, ok=%v) = %v, want %v", c.sample, c.ok, got, c.valid)
		}
	}
}

func TestNormalizedHeightEndpointsAndMonotonic(t *testing.T) {
	const minD, maxD = 500, 1500

	if h := normalizedHeight(minD, minD, maxD); h != 1 {
		t.Fatalf("height at minDepth = %v, want 1", h)
	}
	if h := normalizedHeight(maxD, minD, maxD); h != 0 {
		t.Fatalf("height at maxDepth = %v, want 0", h)
	}

	prev := math.Inf(1)
	for s := uint16(minD); s <= maxD; s += 50 {
		h := normalizedHeight(s, minD, maxD)
		if h > prev {
			t.Fatalf("height not monotonically decreasing at sample %d", s)
		}
		prev = h
	}
}

func TestIntegrateHeightSingleStep(t *testing.T) {
	const minD, maxD = 500, 1500

	// A valid sample moves exactly (1-smoothing) of the distance to target.
	prev := 0.2
	sample := uint16(500) // target height 1.0
	got := integrateHeight(prev, sample, true, minD, maxD, 0.9)
	want := prev + (1.0-prev)*0.1
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("smoothed step = %v, want %v", got, want)
	}
}

func TestIntegrateHeightConvergesUnderConstantInput(t *testing.T) {
	const minD, maxD = 500, 1500
	sample := uint16(1000) // target height 0.5

	h := 0.0
	for i := 0; i < 400; i++ {
		h = integrateHeight(h, sample, true, minD, maxD, 0.95)
	}
	if math.Abs(h-0.5) > 1e-3 {
		t.Fatalf("expected convergence to 0.5, got %v", h)
	}
}

// Invalid samples reset with full weight in a single tick; the asymmetry
// against the smoothed rise of valid samples is intentional.
func TestIntegrateHeightInvalidFullReset(t *testing.T) {
	const minD, maxD = 500, 1500

	got := integrateHeight(0.8, maxD+1, true, minD, maxD, 0.95)
	if got != 0 {
		t.Fatalf("out-of-range sample should reset to 0 in one tick, got %v", got)
	}
	got = integrateHeight(0.8, 0, false, minD, maxD, 0.95)
	if got != 0 {
		t.Fatalf("no-data cell should reset to 0 in one tick, got %v", got)
	}
}

func TestIntegrateHeightZeroSmoothingTracksInstantly(t *testing.T) {
	const minD, maxD = 500, 1500
	got := integrateHeight(0.1, 750, true, minD, maxD, 0)
	want := normalizedHeight(750, minD, maxD)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("zero smoothing should track target %v, got %v", want, got)
	}
}

func TestInvLerpDegenerateSpan(t *testing.T) {
	if f := invLerp(0.5, 0.5, 0.4); f != 0 {
		t.Fatalf("below a zero span should clamp to 0, got %v", f)
	}
	if f := invLerp(0.5, 0.5, 0.5); f != 1 {
		t.Fatalf("at a zero span boundary should clamp to 1, got %v", f)
	}
}

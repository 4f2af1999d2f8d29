package terrain

import (
	"math"
	"testing"
)

func mustStack(t *testing.T, layers ...Layer) *LayerStack {
	t.Helper()
	s, err := NewLayerStack(layers)
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	return s
}

func assertWeightsSumToOne(t *testing.T, w []float64) {
	t.Helper()
	sum := 0.0
	for i, v := range w {
		if v < 0 {
			t.Fatalf("weight %d is negative: %v", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Fatalf("weights sum to %v, want 1.0 (%v)", sum, w)
	}
}

// The worked scenario: layers at 0, 0.5, 1.0 with blend range 0.1 and height
// 0.47 cross-fades 30/70 between the bottom two layers.
func TestBlendWeightsScenario(t *testing.T) {
	stack := mustStack(t,
		Layer{Name: "sand", Height: 0.0},
		Layer{Name: "grass", Height: 0.5},
		Layer{Name: "rock", Height: 1.0},
	)

	w := make([]float64, 3)
	blendWeights(stack, 0.47, 0.1, w)

	want := []float64{0.3, 0.7, 0.0}
	for i := range want {
		if math.Abs(w[i]-want[i]) > 1e-9 {
			t.Fatalf("weights = %v, want %v", w, want)
		}
	}
	assertWeightsSumToOne(t, w)
}

func TestBlendWeightsSingleLayer(t *testing.T) {
	stack := mustStack(t, Layer{Name: "sand", Height: 0.3})
	w := make([]float64, 1)

	for _, h := range []float64{0, 0.3, 0.99, 1} {
		blendWeights(stack, h, 0.2, w)
		if w[0] != 1 {
			t.Fatalf("single layer must always win: height %v gave %v", h, w)
		}
	}
}

func TestBlendWeightsAboveAllThresholds(t *testing.T) {
	stack := mustStack(t,
		Layer{Name: "sand", Height: 0.0},
		Layer{Name: "grass", Height: 0.4},
	)
	w := make([]float64, 2)
	blendWeights(stack, 0.9, 0.1, w)
	if w[1] != 1 || w[0] != 0 {
		t.Fatalf("height above all thresholds should assign the last layer, got %v", w)
	}
}

func TestBlendWeightsBelowBandIsPureActiveLayer(t *testing.T) {
	stack := mustStack(t,
		Layer{Name: "sand", Height: 0.0},
		Layer{Name: "grass", Height: 0.5},
	)
	w := make([]float64, 2)
	blendWeights(stack, 0.2, 0.1, w) // below blendStart 0.4
	if w[0] != 1 || w[1] != 0 {
		t.Fatalf("height below the blend band should be pure layer 0, got %v", w)
	}
}

func TestBlendWeightsInvalidCellLowestBand(t *testing.T) {
	stack := mustStack(t,
		Layer{Name: "sand", Height: 0.0},
		Layer{Name: "grass", Height: 0.5},
		Layer{Name: "rock", Height: 1.0},
	)
	w := make([]float64, 3)
	// Invalid cells blend as height 0.
	blendWeights(stack, 0, 0.1, w)
	if w[0] != 1 {
		t.Fatalf("invalid cell should weight the lowest layer, got %v", w)
	}
	assertWeightsSumToOne(t, w)
}

// Property sweep: for many layer configurations, blend ranges and heights,
// the weight vector is a valid partition of unity.
func TestBlendWeightsAlwaysPartitionOfUnity(t *testing.T) {
	stacks := []*LayerStack{
		mustStack(t, Layer{Height: 0.5}),
		mustStack(t, Layer{Height: 0.0}, Layer{Height: 1.0}),
		mustStack(t, Layer{Height: 0.0}, Layer{Height: 0.25}, Layer{Height: 0.5}, Layer{Height: 0.75}),
		mustStack(t, Layer{Height: 0.2}, Layer{Height: 0.2}, Layer{Height: 0.8}), // duplicate thresholds
	}
	for _, stack := range stacks {
		w := make([]float64, stack.Len())
		for _, blendRange := range []float64{0, 0.05, 0.5, 1} {
			for h := 0.0; h <= 1.0; h += 0.01 {
				blendWeights(stack, h, blendRange, w)
				assertWeightsSumToOne(t, w)
			}
		}
	}
}

func TestBlendRangeZeroHardSeam(t *testing.T) {
	stack := mustStack(t,
		Layer{Name: "sand", Height: 0.0},
		Layer{Name: "grass", Height: 0.5},
	)
	w := make([]float64, 2)

	blendWeights(stack, 0.4999, 0, w)
	if w[0] != 1 {
		t.Fatalf("just below the threshold with zero range should be pure layer 0, got %v", w)
	}
	blendWeights(stack, 0.5, 0, w)
	if w[1] != 1 {
		t.Fatalf("at the threshold with zero range should be pure layer 1, got %v", w)
	}
}

func TestNewLayerStackSortsAndValidates(t *testing.T) {
	s := mustStack(t,
		Layer{Name: "rock", Height: 0.9},
		Layer{Name: "sand", Height: 0.1},
		Layer{Name: "grass", Height: 0.5},
	)
	if s.At(0).Name != "sand" || s.At(1).Name != "grass" || s.At(2).Name != "rock" {
		t.Fatalf("stack not sorted ascending: %v", s.Layers())
	}

	if _, err := NewLayerStack(nil); err != ErrNoLayers {
		t.Fatalf("expected ErrNoLayers, got %v", err)
	}
	if _, err := NewLayerStack([]Layer{{Name: "bad", Height: 1.5}}); err == nil {
		t.Fatalf("expected threshold validation error")
	}
}

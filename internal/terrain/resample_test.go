package terrain

import (
	"testing"

	"github.com/banshee-data/sandtable/internal/depth"
)

func gradientFrame(w, h int) *depth.Frame {
	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = uint16(i % 65536)
	}
	return &depth.Frame{Width: w, Height: h, Samples: samples}
}

func TestResampleMapping(t *testing.T) {
	f := gradientFrame(8, 4)

	// Cell (0,0) maps to sample 0; the last cell maps inside the frame.
	if s, ok := Resample(f, 0, 0, 4, 4); !ok || s != f.Samples[0] {
		t.Fatalf("cell (0,0): got %d ok=%v", s, ok)
	}
	// gx=3 of 4 over width 8: sx = 3*8/4 = 6; gy=3 of 4 over height 4: sy = 3.
	if s, ok := Resample(f, 3, 3, 4, 4); !ok || s != f.Samples[3*8+6] {
		t.Fatalf("cell (3,3): got %d ok=%v, want %d", s, ok, f.Samples[3*8+6])
	}
}

// Resampling a 640x480 frame onto a 513x513 grid must never index outside
// the sample payload.
func TestResampleNeverOutOfBounds(t *testing.T) {
	f := gradientFrame(640, 480)
	for gy := 0; gy < 513; gy++ {
		for gx := 0; gx < 513; gx++ {
			// Resample panics on out-of-range access; reaching the end of
			// the loops is the assertion.
			Resample(f, gx, gy, 513, 513)
		}
	}
}

func TestResampleTruncatedFrameIsNoData(t *testing.T) {
	f := gradientFrame(8, 4)
	f.Samples = f.Samples[:8] // only the first row survived

	if _, ok := Resample(f, 0, 0, 4, 4); !ok {
		t.Fatalf("first row should still resolve")
	}
	if _, ok := Resample(f, 0, 3, 4, 4); ok {
		t.Fatalf("cell past the truncated payload must be no-data")
	}
}

func TestResampleNilAndDegenerate(t *testing.T) {
	if _, ok := Resample(nil, 0, 0, 4, 4); ok {
		t.Fatalf("nil frame must be no-data")
	}
	f := gradientFrame(8, 4)
	if _, ok := Resample(f, 0, 0, 0, 4); ok {
		t.Fatalf("zero grid dimension must be no-data")
	}
}

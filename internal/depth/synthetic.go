package depth

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/banshee-data/sandtable/internal/monitoring"
)

// DuneField generates procedural sand-dune depth frames: a base plane with
// travelling ridges. Used by the synthetic camera source in dev mode and by
// the simcam tool for exercising the UDP path.
type DuneField struct {
	Width    int
	Height   int
	MinDepth uint16 // millimetres, nearest surface (highest terrain)
	MaxDepth uint16 // millimetres, the sand table base plane

	// DropoutRate in [0,1] replaces that fraction of samples with zero,
	// mimicking the invalid returns real depth sensors produce at grazing
	// angles. Zero disables dropouts.
	DropoutRate float64

	rng *rand.Rand
}

// NewDuneField creates a generator with the given dimensions and depth range.
func NewDuneField(width, height int, minDepth, maxDepth uint16) *DuneField {
	return &DuneField{
		Width:    width,
		Height:   height,
		MinDepth: minDepth,
		MaxDepth: maxDepth,
		rng:      rand.New(rand.NewSource(1)),
	}
}

// Frame renders the dune field at time t (seconds). The returned frame is
// freshly allocated and safe to hand to the queue.
func (d *DuneField) Frame(t float64) *Frame {
	w, h := d.Width, d.Height
	samples := make([]uint16, w*h)
	span := float64(d.MaxDepth) - float64(d.MinDepth)

	for y := 0; y < h; y++ {
		fy := float64(y) / float64(h)
		for x := 0; x < w; x++ {
			fx := float64(x) / float64(w)

			// Two ridge systems drifting in opposite directions plus a
			// central mound. Relief stays in [0,1].
			relief := 0.35 +
				0.25*math.Sin(2*math.Pi*(3*fx)+0.6*t)*math.Cos(2*math.Pi*(2*fy)-0.4*t) +
				0.20*math.Exp(-((fx-0.5)*(fx-0.5)+(fy-0.5)*(fy-0.5))*8)
			if relief < 0 {
				relief = 0
			} else if relief > 1 {
				relief = 1
			}

			if d.DropoutRate > 0 && d.rng.Float64() < d.DropoutRate {
				samples[y*w+x] = 0
				continue
			}
			// Higher relief means the surface is closer to the camera.
			samples[y*w+x] = uint16(float64(d.MaxDepth) - relief*span)
		}
	}
	return &Frame{Width: w, Height: h, Samples: samples}
}

// SyntheticSourceConfig configures the procedural camera source.
type SyntheticSourceConfig struct {
	Width         int           // frame width (default 320)
	Height        int           // frame height (default 240)
	FrameInterval time.Duration // delivery cadence (default 33ms, ~30fps)
	MinDepth      uint16        // millimetres (default 500)
	MaxDepth      uint16        // millimetres (default 1500)
	DropoutRate   float64       // fraction of invalid samples per frame
	Handler       FrameHandler
}

// SyntheticSource delivers procedurally generated depth frames at a fixed
// rate. It stands in for a physical camera during development and tests, the
// same role the mock serial port plays for the radar path.
type SyntheticSource struct {
	cfg   SyntheticSourceConfig
	field *DuneField
}

// NewSyntheticSource creates a synthetic camera with defaults applied.
func NewSyntheticSource(cfg SyntheticSourceConfig) *SyntheticSource {
	if cfg.Width <= 0 {
		cfg.Width = 320
	}
	if cfg.Height <= 0 {
		cfg.Height = 240
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 33 * time.Millisecond
	}
	if cfg.MinDepth == 0 {
		cfg.MinDepth = 500
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 1500
	}
	field := NewDuneField(cfg.Width, cfg.Height, cfg.MinDepth, cfg.MaxDepth)
	field.DropoutRate = cfg.DropoutRate
	return &SyntheticSource{cfg: cfg, field: field}
}

// Start delivers frames until the context is cancelled.
func (s *SyntheticSource) Start(ctx context.Context) error {
	if s.cfg.Handler == nil {
		return ErrNoHandler
	}
	monitoring.Logf("[SyntheticSource] Starting %dx%d at %v interval",
		s.cfg.Width, s.cfg.Height, s.cfg.FrameInterval)

	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.cfg.Handler(s.field.Frame(now.Sub(start).Seconds()))
		}
	}
}

// Close releases nothing; the synthetic source holds no device.
func (s *SyntheticSource) Close() error { return nil }

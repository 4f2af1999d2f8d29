package terrain

import "github.com/banshee-data/sandtable/internal/depth"

// Resample maps target grid cell (gx, gy) in a gw×gh grid onto a source
// sample of the frame using nearest-neighbour floor mapping:
//
//	sx = floor(gx * fw / gw), sy = floor(gy * fh / gh)
//
// Returns ok=false when the resolved index falls outside the frame's sample
// payload (truncated or malformed frame); the caller treats that as no-data
// rather than an error.
func Resample(f *depth.Frame, gx, gy, gw, gh int) (uint16, bool) {
	if f == nil || f.Width <= 0 || f.Height <= 0 || gw <= 0 || gh <= 0 {
		return 0, false
	}
	sx := gx * f.Width / gw
	sy := gy * f.Height / gh
	idx := sy*f.Width + sx
	if idx < 0 || idx >= len(f.Samples) {
		return 0, false
	}
	return f.Samples[idx], true
}

// Package depth provides depth-camera frame acquisition: the frame type, the
// bounded frame queue between the camera delivery thread and the processing
// loop, and the camera sources (synthetic, UDP, serial).
package depth

// Frame is one immutable depth snapshot from the camera. Samples are 16-bit
// depth values in millimetres, row-major, length Width*Height. A Frame is
// owned by the queue from Push until it is popped; consumers must not retain
// it past a processing tick.
type Frame struct {
	Width   int
	Height  int
	Samples []uint16
}

// SampleCount returns the expected number of samples for the frame dimensions.
func (f *Frame) SampleCount() int {
	return f.Width * f.Height
}

// Complete reports whether the frame carries a full sample payload. Truncated
// frames are still accepted by the pipeline; cells that resolve past the
// payload are treated as no-data.
func (f *Frame) Complete() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Samples) == f.SampleCount()
}

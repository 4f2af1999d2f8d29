// Package units provides unit conversions shared across the depth pipeline.
//
// Camera configuration is expressed in metres (human-friendly), while depth
// samples arrive as 16-bit millimetre counts. All conversions between the two
// live here so the boundary stays in one place.
package units

import "math"

// MaxDepthSampleMillimetres is the largest depth a 16-bit sample can encode.
const MaxDepthSampleMillimetres = math.MaxUint16

// MetresToMillimetres converts a distance in metres to millimetres.
func MetresToMillimetres(m float64) float64 {
	return m * 1000.0
}

// MillimetresToMetres converts a distance in millimetres to metres.
func MillimetresToMetres(mm float64) float64 {
	return mm / 1000.0
}

// MetresToDepthSample converts a configured distance in metres to the 16-bit
// millimetre representation used by depth samples. Values outside the sample
// range are clamped rather than wrapped, so a misconfigured bound degrades to
// the nearest representable depth instead of aliasing.
func MetresToDepthSample(m float64) uint16 {
	mm := math.Round(MetresToMillimetres(m))
	if mm <= 0 {
		return 0
	}
	if mm >= MaxDepthSampleMillimetres {
		return MaxDepthSampleMillimetres
	}
	return uint16(mm)
}

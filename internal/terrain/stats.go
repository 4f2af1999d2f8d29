package terrain

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GridStats summarises a published height grid for the advisory diagnostics
// stream. Not part of pipeline correctness.
type GridStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// ComputeGridStats summarises the given values. Returns the zero value for an
// empty slice.
func ComputeGridStats(values []float64) GridStats {
	if len(values) == 0 {
		return GridStats{}
	}
	return GridStats{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   stat.Mean(values, nil),
		StdDev: stat.StdDev(values, nil),
	}
}

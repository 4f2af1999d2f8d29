// Package terrain converts queued depth frames into a height grid and
// per-layer texture blend weights. The engine runs the fixed-cadence pipeline:
// resample the frame onto the grids, integrate depth into temporally smoothed
// heights, and rebuild the layer blend weights each tick.
package terrain

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoLayers indicates an attempt to build a pipeline without any terrain
// layers. The blend stage has nothing to assign weights to, so the engine
// refuses to start.
var ErrNoLayers = errors.New("terrain: no layers configured")

// Layer is one terrain texture layer with its normalized activation
// threshold. Layers activate bottom-up: a cell's height selects the highest
// layer whose threshold it has passed, cross-faded with the next layer over
// the configured blend range.
type Layer struct {
	Name   string  `json:"name"`
	Height float64 `json:"height"` // activation threshold in [0,1]
}

// LayerStack is an ordered set of layers, always sorted ascending by
// threshold. The blend engine's adjacent-pair search depends on this order.
type LayerStack struct {
	layers []Layer
}

// NewLayerStack validates and sorts the layer set.
func NewLayerStack(layers []Layer) (*LayerStack, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}
	for _, l := range layers {
		if l.Height < 0 || l.Height > 1 {
			return nil, fmt.Errorf("terrain: layer %q threshold %v outside [0,1]", l.Name, l.Height)
		}
	}
	sorted := make([]Layer, len(layers))
	copy(sorted, layers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Height < sorted[j].Height })
	return &LayerStack{layers: sorted}, nil
}

// Len returns the number of layers.
func (s *LayerStack) Len() int { return len(s.layers) }

// At returns the layer at index i, lowest threshold first.
func (s *LayerStack) At(i int) Layer { return s.layers[i] }

// Layers returns a copy of the sorted layer slice.
func (s *LayerStack) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

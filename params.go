package cmaa

import "github.com/gogpu/cmaa/internal/kernel"

// Tunable constants of the passes. EdgeThreshold and LocalContrastFactor can
// be overridden per manager with WithEdgeThreshold and
// WithLocalContrastFactor; the blend weights are fixed.
const (
	// EdgeThreshold is the BT.601 luma difference, on a 0..1 scale, above
	// which the boundary between two neighbors is an edge.
	EdgeThreshold float32 = 13.0 / 255

	// LocalContrastFactor drops an edge whose contrast is below this fraction
	// of the strongest edge touching either of its pixels.
	LocalContrastFactor float32 = 0.5

	// BlockSize is the side of the pixel block one mini buffer texel covers.
	BlockSize = kernel.BlockSize
)

// Blend weights, the fraction of the neighbor across an edge mixed into a
// pixel, by edge shape.
const (
	WeightStraight float32 = 1.0 / 8
	WeightRunEnd   float32 = 3.0 / 16
	WeightCorner   float32 = 1.0 / 4

	// MaxBlend caps the total neighbor weight of one pixel.
	MaxBlend float32 = kernel.MaxBlend
)

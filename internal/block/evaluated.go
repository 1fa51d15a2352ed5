package block

import "cubespace.dev/internal/geom"

// Evaluated is the derived occupancy/appearance form of a block, cached
// per table index by the space.
type Evaluated struct {
	// Color is the aggregate surface color, alpha meaning coverage.
	Color geom.Rgba
	// Emission is light radiated by the block's surfaces.
	Emission geom.Rgb
	// Opaque reports that no light passes through the block.
	Opaque bool
	// Visible reports that the block renders at all.
	Visible bool
}

// AirEvaluated is the evaluation of Air: invisible and empty.
var AirEvaluated = Evaluated{}

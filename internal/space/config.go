package space

import "cubespace.dev/internal/geom"

// LightMode selects how per-cell illumination is computed.
type LightMode uint8

const (
	// LightRays derives illumination by casting sample rays and relaxing
	// incrementally after edits.
	LightRays LightMode = iota
	// LightNone disables the light field; every cell reads as fully lit.
	LightNone
)

// Physics holds the global characteristics of a space. The zero value maps
// to the defaults below.
type Physics struct {
	// SkyColor is the ambient light arriving from outside the bounds.
	SkyColor geom.Rgb

	Light LightMode

	// MaxRayDistance is the farthest a light sample ray travels, in cubes.
	MaxRayDistance int

	// RelightThreshold is the packed per-channel difference above which a
	// recomputed cell invalidates its neighbors. 1 keeps single-quantum
	// flicker from propagating forever.
	RelightThreshold uint8
}

func (p *Physics) applyDefaults() {
	if p.SkyColor == (geom.Rgb{}) {
		p.SkyColor = geom.Rgb{R: 0.79, G: 0.87, B: 1.0}
	}
	if p.MaxRayDistance <= 0 {
		p.MaxRayDistance = 30
	}
	if p.RelightThreshold == 0 {
		p.RelightThreshold = 1
	}
}

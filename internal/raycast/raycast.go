// Package raycast walks a ray through the integer cube lattice, visiting
// every cell the ray passes through in order (Amanatides & Woo traversal).
package raycast

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"cubespace.dev/internal/geom"
)

// Step is one visited cube and the distance along the ray at which the ray
// entered it.
type Step struct {
	Cube     geom.Vec3i
	Distance float64
}

// Caster enumerates lattice cubes along a ray. The zero value is not
// usable; construct with New.
type Caster struct {
	cube   geom.Vec3i
	step   geom.Vec3i
	tMax   mgl64.Vec3
	tDelta mgl64.Vec3
	t      float64
	first  bool
}

// New prepares traversal of the ray origin + t*dir for t >= 0. Distances
// are reported in units of dir's length, so callers normally pass a unit
// vector. A zero direction yields only the origin cube.
func New(origin, dir mgl64.Vec3) *Caster {
	c := &Caster{
		cube:  cubeContaining(origin),
		first: true,
	}
	for axis := 0; axis < 3; axis++ {
		d := dir[axis]
		switch {
		case d > 0:
			c.step = withAxis(c.step, axis, 1)
			c.tDelta[axis] = 1 / d
			c.tMax[axis] = (math.Floor(origin[axis]) + 1 - origin[axis]) / d
		case d < 0:
			c.step = withAxis(c.step, axis, -1)
			c.tDelta[axis] = -1 / d
			c.tMax[axis] = (origin[axis] - math.Floor(origin[axis])) / -d
		default:
			c.tDelta[axis] = math.Inf(1)
			c.tMax[axis] = math.Inf(1)
		}
	}
	return c
}

// Next returns the next cube along the ray, starting with the cube
// containing the origin. It never returns false for a nonzero direction;
// the caller bounds the walk by distance or region.
func (c *Caster) Next() (Step, bool) {
	if c.first {
		c.first = false
		return Step{Cube: c.cube, Distance: 0}, true
	}
	axis := 0
	if c.tMax[1] < c.tMax[axis] {
		axis = 1
	}
	if c.tMax[2] < c.tMax[axis] {
		axis = 2
	}
	if math.IsInf(c.tMax[axis], 1) {
		return Step{}, false
	}
	c.t = c.tMax[axis]
	c.tMax[axis] += c.tDelta[axis]
	switch axis {
	case 0:
		c.cube.X += c.step.X
	case 1:
		c.cube.Y += c.step.Y
	default:
		c.cube.Z += c.step.Z
	}
	return Step{Cube: c.cube, Distance: c.t}, true
}

func cubeContaining(p mgl64.Vec3) geom.Vec3i {
	return geom.Vec3i{
		X: int(math.Floor(p[0])),
		Y: int(math.Floor(p[1])),
		Z: int(math.Floor(p[2])),
	}
}

func withAxis(v geom.Vec3i, axis, s int) geom.Vec3i {
	switch axis {
	case 0:
		v.X = s
	case 1:
		v.Y = s
	default:
		v.Z = s
	}
	return v
}

package space

import "cubespace.dev/internal/geom"

// GridArray is a dense caller-shaped copy of a region, produced by
// Extract.
type GridArray[V any] struct {
	grid geom.Grid
	data []V
}

func (a GridArray[V]) Bounds() geom.Grid { return a.grid }

// Data exposes the backing slice in the same x-major order Grid.Index
// uses. Callers must not grow it.
func (a GridArray[V]) Data() []V { return a.data }

// At returns the element for p. p must be inside the array's bounds.
func (a GridArray[V]) At(p geom.Vec3i) V {
	i, ok := a.grid.Index(p)
	if !ok {
		var zero V
		return zero
	}
	return a.data[i]
}

// Extract copies a portion of the space out in a caller-chosen format.
// Cells of region outside the space bounds read as Air lit by the sky.
// The space is borrowed shared for the duration, so f must not mutate it;
// a mutation attempt fails with ErrConcurrentAccess.
func Extract[V any](sp *Space, region geom.Grid, f func(data *BlockData, light PackedLight) V) (GridArray[V], error) {
	if err := sp.guard.lockShared(); err != nil {
		return GridArray[V]{}, err
	}
	defer sp.guard.unlockShared()

	out := GridArray[V]{grid: region, data: make([]V, 0, region.Volume())}
	region.ForEach(func(p geom.Vec3i) {
		if ci, ok := sp.grid.Index(p); ok {
			light := sp.lighting[ci]
			if sp.physics.Light == LightNone {
				light = PackedOne
			}
			out.data = append(out.data, f(&sp.blockData[sp.contents[ci]], light))
		} else {
			out.data = append(out.data, f(&nothingData, sp.packedSky))
		}
	})
	return out, nil
}

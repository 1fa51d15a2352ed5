// Package chunk groups cells into fixed-size cubical batches and
// precomputes which chunks a consumer must visit for a given view
// distance, ordered near to far.
package chunk

import (
	"math"
	"sort"

	"cubespace.dev/internal/geom"
	"cubespace.dev/internal/mathx"
)

// Size is the chunk side length in cells.
const Size = 16

// Pos is a chunk-space coordinate: the cell coordinate divided by Size
// with floor semantics.
type Pos struct {
	X int
	Y int
	Z int
}

// ToChunk returns the chunk containing the cell.
func ToChunk(cell geom.Vec3i) Pos {
	return Pos{
		X: mathx.FloorDiv(cell.X, Size),
		Y: mathx.FloorDiv(cell.Y, Size),
		Z: mathx.FloorDiv(cell.Z, Size),
	}
}

// Grid returns the cell region the chunk covers.
func (p Pos) Grid() geom.Grid {
	return geom.MustGrid(
		geom.Vec3i{X: p.X * Size, Y: p.Y * Size, Z: p.Z * Size},
		geom.Vec3i{X: Size, Y: Size, Z: Size},
	)
}

func (p Pos) add(v geom.Vec3i) Pos {
	return Pos{X: p.X + v.X, Y: p.Y + v.Y, Z: p.Z + v.Z}
}

// Chart is the precomputed pattern of chunks within view distance of a
// viewpoint chunk. One chart serves every viewpoint by translation; it is
// rebuilt only when the view distance changes.
//
// Only one octant of offsets is stored; Chunks mirrors it across the three
// coordinate planes.
type Chart struct {
	viewDistance float64
	octant       []geom.Vec3i
}

// New builds a chart for the given view distance in cells. Negative and
// NaN distances are treated as zero.
func New(viewDistance float64) *Chart {
	c := &Chart{}
	c.rebuild(sanitizeDistance(viewDistance))
	return c
}

func sanitizeDistance(d float64) float64 {
	if math.IsNaN(d) || d < 0 {
		return 0
	}
	return d
}

func (c *Chart) rebuild(viewDistance float64) {
	c.viewDistance = viewDistance

	// Work in the non-negative octant, where each stored offset is also
	// the nearest-corner coordinate of its chunk.
	inChunks := viewDistance / Size
	distanceSquared := int(math.Ceil(inChunks * inChunks))

	// Candidate coordinates run 0..=distanceSquared; the farthest-corner
	// filter below prunes the excess.
	c.octant = c.octant[:0]
	for x := 0; x <= distanceSquared; x++ {
		for y := 0; y <= distanceSquared; y++ {
			for z := 0; z <= distanceSquared; z++ {
				v := geom.Vec3i{X: x, Y: y, Z: z}
				// Measure from the farthest corner of the viewpoint's own
				// chunk (subtract 1, clamped to 0) so the chart covers
				// every viewpoint inside that chunk: the kept region is
				// the Minkowski sum of the view sphere and a chunk cube.
				m := geom.Vec3i{
					X: mathx.MaxInt(v.X-1, 0),
					Y: mathx.MaxInt(v.Y-1, 0),
					Z: mathx.MaxInt(v.Z-1, 0),
				}
				if m.MagSquared() <= distanceSquared {
					c.octant = append(c.octant, v)
				}
			}
		}
	}

	// Distance order, coordinates as a deterministic tiebreak.
	sort.Slice(c.octant, func(i, j int) bool {
		a, b := c.octant[i], c.octant[j]
		am, bm := a.MagSquared(), b.MagSquared()
		if am != bm {
			return am < bm
		}
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
}

// ResizeIfNeeded rebuilds the chart when the (sanitized) distance differs
// from the stored one; otherwise the chart and its allocations are
// untouched.
func (c *Chart) ResizeIfNeeded(viewDistance float64) {
	d := sanitizeDistance(viewDistance)
	if d != c.viewDistance {
		c.rebuild(d)
	}
}

// ViewDistance returns the sanitized distance the chart was built for.
func (c *Chart) ViewDistance() float64 { return c.viewDistance }

// Chunks lists the chunks within view distance of origin, nearest first.
// Walking the slice backward visits the exact same set farthest first.
func (c *Chart) Chunks(origin Pos) []Pos {
	out := make([]Pos, 0, len(c.octant)*8)
	for _, v := range c.octant {
		for _, m := range mirror(v) {
			out = append(out, origin.add(m))
		}
	}
	return out
}

// mirror expands one octant offset across the three coordinate planes,
// skipping duplicates where a coordinate is zero.
func mirror(v geom.Vec3i) []geom.Vec3i {
	out := make([]geom.Vec3i, 0, 8)
	xs := [2]int{-v.X, v.X}
	ys := [2]int{-v.Y, v.Y}
	zs := [2]int{-v.Z, v.Z}
	for xi := 0; xi < 2; xi++ {
		if xi == 1 && xs[0] == xs[1] {
			continue
		}
		for yi := 0; yi < 2; yi++ {
			if yi == 1 && ys[0] == ys[1] {
				continue
			}
			for zi := 0; zi < 2; zi++ {
				if zi == 1 && zs[0] == zs[1] {
					continue
				}
				out = append(out, geom.Vec3i{X: xs[xi], Y: ys[yi], Z: zs[zi]})
			}
		}
	}
	return out
}

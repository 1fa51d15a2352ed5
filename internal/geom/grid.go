package geom

import (
	"fmt"
	"math"
)

// Grid is an axis-aligned box of cells: a lower corner plus per-axis sizes.
// It is an immutable value; all methods return new grids.
//
// A cell (x, y, z) is inside the grid when lower <= coordinate < lower+size
// on every axis.
type Grid struct {
	lower Vec3i
	size  Vec3i
}

// NewGrid validates that every size is positive, that lower+size does not
// overflow, and that the total volume fits in an int index.
func NewGrid(lower, size Vec3i) (Grid, error) {
	ls := lower.ToArray()
	ss := size.ToArray()
	for i := 0; i < 3; i++ {
		if ss[i] <= 0 {
			return Grid{}, fmt.Errorf("grid size must be positive on every axis, got %v", size)
		}
		if ls[i] > math.MaxInt-ss[i] {
			return Grid{}, fmt.Errorf("grid upper bound overflows on axis %d", i)
		}
	}
	if ss[0] > math.MaxInt/ss[1] || ss[0]*ss[1] > math.MaxInt/ss[2] {
		return Grid{}, fmt.Errorf("grid volume overflows: %v", size)
	}
	return Grid{lower: lower, size: size}, nil
}

// MustGrid is NewGrid for statically known-good dimensions.
func MustGrid(lower, size Vec3i) Grid {
	g, err := NewGrid(lower, size)
	if err != nil {
		panic(err)
	}
	return g
}

// GridForCube is the grid spanning (0,0,0) to (n,n,n).
func GridForCube(n int) Grid {
	return MustGrid(Vec3i{}, Vec3i{n, n, n})
}

// Single is the one-cell grid containing only p.
func Single(p Vec3i) Grid {
	return Grid{lower: p, size: Vec3i{1, 1, 1}}
}

func (g Grid) Lower() Vec3i { return g.lower }
func (g Grid) Size() Vec3i  { return g.size }

// Upper is the exclusive upper corner.
func (g Grid) Upper() Vec3i { return g.lower.Add(g.size) }

func (g Grid) Volume() int { return g.size.X * g.size.Y * g.size.Z }

func (g Grid) Contains(p Vec3i) bool {
	d := p.Sub(g.lower)
	return d.X >= 0 && d.X < g.size.X &&
		d.Y >= 0 && d.Y < g.size.Y &&
		d.Z >= 0 && d.Z < g.size.Z
}

// ContainsGrid reports whether every cell of o is inside g.
func (g Grid) ContainsGrid(o Grid) bool {
	gu, ou := g.Upper(), o.Upper()
	return o.lower.X >= g.lower.X && ou.X <= gu.X &&
		o.lower.Y >= g.lower.Y && ou.Y <= gu.Y &&
		o.lower.Z >= g.lower.Z && ou.Z <= gu.Z
}

// Intersection returns the overlapping region, if any.
func (g Grid) Intersection(o Grid) (Grid, bool) {
	lo := Vec3i{
		X: max(g.lower.X, o.lower.X),
		Y: max(g.lower.Y, o.lower.Y),
		Z: max(g.lower.Z, o.lower.Z),
	}
	gu, ou := g.Upper(), o.Upper()
	hi := Vec3i{
		X: min(gu.X, ou.X),
		Y: min(gu.Y, ou.Y),
		Z: min(gu.Z, ou.Z),
	}
	if hi.X <= lo.X || hi.Y <= lo.Y || hi.Z <= lo.Z {
		return Grid{}, false
	}
	return Grid{lower: lo, size: hi.Sub(lo)}, true
}

func (g Grid) Translate(offset Vec3i) Grid {
	return Grid{lower: g.lower.Add(offset), size: g.size}
}

// Index flattens p to a dense array index in x-major order, matching the
// iteration order of ForEach. Returns false when p is outside the grid.
func (g Grid) Index(p Vec3i) (int, bool) {
	d := p.Sub(g.lower)
	if d.X < 0 || d.X >= g.size.X ||
		d.Y < 0 || d.Y >= g.size.Y ||
		d.Z < 0 || d.Z >= g.size.Z {
		return 0, false
	}
	return (d.X*g.size.Y+d.Y)*g.size.Z + d.Z, true
}

// ForEach visits every cell in index order (x outermost, z innermost).
func (g Grid) ForEach(f func(Vec3i)) {
	u := g.Upper()
	for x := g.lower.X; x < u.X; x++ {
		for y := g.lower.Y; y < u.Y; y++ {
			for z := g.lower.Z; z < u.Z; z++ {
				f(Vec3i{x, y, z})
			}
		}
	}
}

func (g Grid) String() string {
	return fmt.Sprintf("Grid(%v+%v)", g.lower.ToArray(), g.size.ToArray())
}

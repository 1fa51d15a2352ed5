package geom

// Vec3i is an integer cell coordinate or offset.
type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3i) Sub(o Vec3i) Vec3i { return Vec3i{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3i) Scale(s int) Vec3i { return Vec3i{v.X * s, v.Y * s, v.Z * s} }

// MagSquared is the squared Euclidean magnitude.
func (v Vec3i) MagSquared() int { return v.X*v.X + v.Y*v.Y + v.Z*v.Z }

func Manhattan(a, b Vec3i) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dy + dz
}

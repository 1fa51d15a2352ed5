package geom

// Rgb is a linear RGB radiance or reflectance value. Components are
// expected to be finite and non-negative; the type is comparable so that
// block definitions embedding it can be used as map keys.
type Rgb struct {
	R float32
	G float32
	B float32
}

// Rgba is Rgb plus coverage alpha in [0, 1].
type Rgba struct {
	R float32
	G float32
	B float32
	A float32
}

var (
	RgbBlack = Rgb{}
	RgbWhite = Rgb{1, 1, 1}
)

func (c Rgb) Add(o Rgb) Rgb { return Rgb{c.R + o.R, c.G + o.G, c.B + o.B} }

func (c Rgb) Mul(o Rgb) Rgb { return Rgb{c.R * o.R, c.G * o.G, c.B * o.B} }

func (c Rgb) Scale(s float32) Rgb { return Rgb{c.R * s, c.G * s, c.B * s} }

// Clamp01 limits every channel to [0, 1].
func (c Rgb) Clamp01() Rgb {
	return Rgb{clampChannel(c.R), clampChannel(c.G), clampChannel(c.B)}
}

func (c Rgba) Rgb() Rgb { return Rgb{c.R, c.G, c.B} }

// Opaque reports full coverage.
func (c Rgba) Opaque() bool { return c.A >= 1 }

// Visible reports nonzero coverage.
func (c Rgba) Visible() bool { return c.A > 0 }

func clampChannel(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package space

import (
	"math"

	"cubespace.dev/internal/geom"
)

// PackedLight is the compact per-cell illumination value: three 8-bit
// linear RGB channels plus a status byte. It never holds partial or
// non-finite components.
type PackedLight uint32

type lightStatus uint8

const (
	// statusUninitialized marks a cell whose light has never been derived.
	statusUninitialized lightStatus = iota
	// statusOpaque marks a cell known to be inside an opaque block;
	// always fully dark.
	statusOpaque
	// statusVisible marks a cell carrying a derived light value.
	statusVisible
)

const (
	// PackedOpaque is the constant dark value assigned to opaque cells.
	PackedOpaque = PackedLight(uint32(statusOpaque) << 24)
	// PackedOne is full white light; used when light physics is disabled.
	PackedOne = PackedLight(uint32(statusVisible)<<24 | 0xFFFFFF)
)

// PackLight quantizes an RGB value into a valued PackedLight, clamping to
// the representable non-negative range.
func PackLight(c geom.Rgb) PackedLight {
	c = c.Clamp01()
	r := uint32(math.Round(float64(c.R) * 255))
	g := uint32(math.Round(float64(c.G) * 255))
	b := uint32(math.Round(float64(c.B) * 255))
	return PackedLight(uint32(statusVisible)<<24 | r<<16 | g<<8 | b)
}

func (l PackedLight) status() lightStatus { return lightStatus(l >> 24) }

// Valued reports whether the cell carries a derived light value.
func (l PackedLight) Valued() bool { return l.status() == statusVisible }

// Opaque reports the known-dark inside-an-opaque-block state.
func (l PackedLight) Opaque() bool { return l.status() == statusOpaque }

// Rgb unpacks the channels. Opaque and uninitialized values read as black.
func (l PackedLight) Rgb() geom.Rgb {
	return geom.Rgb{
		R: float32(l>>16&0xFF) / 255,
		G: float32(l>>8&0xFF) / 255,
		B: float32(l&0xFF) / 255,
	}
}

// lightPriority is the magnitude of a packed light difference: the largest
// per-channel delta, or the maximum when the status differs.
func lightPriority(a, b PackedLight) uint8 {
	if a == b {
		return 0
	}
	if a.status() != b.status() {
		return math.MaxUint8
	}
	d := uint8(0)
	for shift := 0; shift < 24; shift += 8 {
		ca := uint8(a >> shift)
		cb := uint8(b >> shift)
		var c uint8
		if ca > cb {
			c = ca - cb
		} else {
			c = cb - ca
		}
		if c > d {
			d = c
		}
	}
	return d
}

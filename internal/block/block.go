// Package block defines the deduplicatable block values stored in a space.
//
// A Block is an opaque, comparable value: two blocks that compare equal are
// the same block for interning purposes. Blocks are cheap to copy and are
// used directly as map keys by the space's block table.
package block

import (
	"errors"

	"cubespace.dev/internal/geom"
	"cubespace.dev/internal/listen"
)

// Block is a voxel definition. The concrete kinds are Atom (a plain colored
// cube), Recur (a reference to a nested sub-grid of voxels) and
// modifier-wrapped forms such as Rotated.
type Block interface {
	// evaluate derives the occupancy/appearance form, spending from the
	// recursion budget as it descends into nested voxel sources.
	evaluate(budget int) (Evaluated, error)

	// attach registers for invalidation of the evaluated form. Only
	// blocks backed by mutable sources deliver anything.
	attach(l listen.Listener[Change])
}

// Air is the canonical empty block filling all unset cells.
var Air Block = Atom{Name: "AIR"}

// Change is sent to listeners attached via Listen when the underlying
// definition of a block has changed, making cached evaluations stale.
type Change struct{}

// ErrTooDeep reports a block whose definition nests deeper than the
// evaluation budget allows, including self-referential definitions.
var ErrTooDeep = errors.New("block definition nests too deeply")

// evalBudget bounds nested-source descent during evaluation.
const evalBudget = 8

// Evaluate derives the Evaluated form of a block. It fails only for
// structurally invalid definitions (see ErrTooDeep).
func Evaluate(b Block) (Evaluated, error) {
	return b.evaluate(evalBudget)
}

// Listen attaches l to whatever mutable source backs b, if any. The
// registration lives until l reports dead.
func Listen(b Block, l listen.Listener[Change]) {
	b.attach(l)
}

// Atom is a homogeneous unit cube.
type Atom struct {
	Name     string
	Color    geom.Rgba
	Emission geom.Rgb
}

func (a Atom) evaluate(int) (Evaluated, error) {
	return Evaluated{
		Color:    a.Color,
		Emission: a.Emission,
		Opaque:   a.Color.Opaque(),
		Visible:  a.Color.Visible() || a.Emission != geom.RgbBlack,
	}, nil
}

func (a Atom) attach(listen.Listener[Change]) {}

// Source is a mutable sub-grid of voxels that a Recur block references.
// *space.Space implements it.
type Source interface {
	Bounds() geom.Grid
	BlockAt(p geom.Vec3i) Block
	ListenBlockChanges(l listen.Listener[Change])
}

// Recur is a block whose appearance is composed from the voxels of a
// nested source. Two Recur values are equal when they reference the same
// source with the same name and resolution.
type Recur struct {
	Name       string
	Resolution int
	Source     Source
}

func (r Recur) evaluate(budget int) (Evaluated, error) {
	if budget <= 0 {
		return Evaluated{}, ErrTooDeep
	}
	if r.Source == nil {
		return Evaluated{}, errors.New("recursive block has no source")
	}

	bounds := r.Source.Bounds()
	var (
		sumColor    geom.Rgb
		sumAlpha    float32
		sumEmission geom.Rgb
		allOpaque   = true
		anyVisible  = false
		evalErr     error
	)
	bounds.ForEach(func(p geom.Vec3i) {
		if evalErr != nil {
			return
		}
		ev, err := r.Source.BlockAt(p).evaluate(budget - 1)
		if err != nil {
			evalErr = err
			return
		}
		sumColor = sumColor.Add(ev.Color.Rgb().Scale(ev.Color.A))
		sumAlpha += ev.Color.A
		sumEmission = sumEmission.Add(ev.Emission)
		if !ev.Opaque {
			allOpaque = false
		}
		if ev.Visible {
			anyVisible = true
		}
	})
	if evalErr != nil {
		return Evaluated{}, evalErr
	}

	n := float32(bounds.Volume())
	color := geom.Rgba{A: sumAlpha / n}
	if sumAlpha > 0 {
		// Alpha-weighted mean so fully transparent voxels do not dilute
		// the surface color.
		rgb := sumColor.Scale(1 / sumAlpha)
		color.R, color.G, color.B = rgb.R, rgb.G, rgb.B
	}
	return Evaluated{
		Color:    color,
		Emission: sumEmission.Scale(1 / n),
		Opaque:   allOpaque,
		Visible:  anyVisible,
	}, nil
}

func (r Recur) attach(l listen.Listener[Change]) {
	r.Source.ListenBlockChanges(l)
}

// Rotation is a quarter-turn about the Y axis.
type Rotation uint8

const (
	RotY0 Rotation = iota
	RotY90
	RotY180
	RotY270
)

// Rotated wraps another block with an orientation. Rotation does not change
// the aggregate appearance, but rotated variants of a block intern as
// distinct values. The set of modifier forms is open-ended; consumers must
// not assume Rotated is the only wrapper.
type Rotated struct {
	Base Block
	Rot  Rotation
}

func (r Rotated) evaluate(budget int) (Evaluated, error) {
	if budget <= 0 {
		return Evaluated{}, ErrTooDeep
	}
	return r.Base.evaluate(budget - 1)
}

func (r Rotated) attach(l listen.Listener[Change]) {
	r.Base.attach(l)
}

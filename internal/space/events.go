package space

import "cubespace.dev/internal/geom"

// Change describes one mutation of a space, delivered synchronously to
// listeners before the mutating call returns.
type Change interface {
	isChange()
}

// CellChange: the block at Cube was replaced.
type CellChange struct {
	Cube geom.Vec3i
}

// LightChange: the packed light value at Cube changed.
type LightChange struct {
	Cube geom.Vec3i
}

// IndexChange: the given block index was reassigned and now refers to a
// different block value. Consumers caching per-index derived data must
// drop what they had for this index.
type IndexChange struct {
	Index BlockIndex
}

// IndexValueChange: the definition behind the given index changed in place;
// GetEvaluated results for cells holding it may differ.
type IndexValueChange struct {
	Index BlockIndex
}

// EveryCellChange: the whole volume was replaced; equivalent to CellChange
// for every cube and IndexChange for every index.
type EveryCellChange struct{}

func (CellChange) isChange()       {}
func (LightChange) isChange()      {}
func (IndexChange) isChange()      {}
func (IndexValueChange) isChange() {}
func (EveryCellChange) isChange()  {}

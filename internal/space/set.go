package space

import (
	"fmt"

	"cubespace.dev/internal/block"
	"cubespace.dev/internal/geom"
)

// Set replaces the block at p. It returns false (and no error) when the
// cell already holds an equal block. All side effects (change
// notifications, light invalidation) are delivered before Set returns.
//
// On failure nothing is mutated: the contents array and the interning
// table change together or not at all.
func (sp *Space) Set(p geom.Vec3i, b block.Block) (bool, error) {
	if err := sp.guard.lockExclusive(); err != nil {
		return false, err
	}
	defer sp.guard.unlockExclusive()
	return sp.setLocked(p, b)
}

func (sp *Space) setLocked(p geom.Vec3i, b block.Block) (bool, error) {
	ci, ok := sp.grid.Index(p)
	if !ok {
		return false, OutOfBoundsError{Modification: geom.Single(p), Bounds: sp.grid}
	}

	oldIndex := sp.contents[ci]
	if sp.blockData[oldIndex].block == b {
		// No change.
		return false, nil
	}

	if _, present := sp.blockToIndex[b]; !present && sp.blockData[oldIndex].count == 1 {
		// Replacing the sole occupant of an index with a brand-new block:
		// reuse the index in place. A read-modify-write of a single block
		// then keeps its index, so consumers caching per-index derived
		// data need not rebuild unrelated entries.
		data, err := sp.newBlockData(b, oldIndex)
		if err != nil {
			return false, fmt.Errorf("evaluating block: %w", err)
		}
		data.count = 1

		old := &sp.blockData[oldIndex]
		delete(sp.blockToIndex, old.block)
		if old.gate != nil {
			old.gate.Close()
		}
		sp.blockData[oldIndex] = data
		sp.blockToIndex[b] = oldIndex

		sp.notifier.Notify(IndexChange{Index: oldIndex})
		sp.sideEffectsOfSet(oldIndex, p, ci)
		return true, nil
	}

	// Find or allocate the new index first; it is the only step that can
	// fail.
	newIndex, err := sp.ensureBlockIndex(b)
	if err != nil {
		return false, err
	}

	old := &sp.blockData[oldIndex]
	old.count--
	if old.count == 0 {
		delete(sp.blockToIndex, old.block)
		old.tombstone()
	}

	sp.blockData[newIndex].count++
	sp.contents[ci] = newIndex

	sp.sideEffectsOfSet(newIndex, p, ci)
	return true, nil
}

// ensureBlockIndex finds or assigns an index for b, reusing the
// lowest-numbered tombstoned slot before growing the table. The caller is
// responsible for incrementing the count.
func (sp *Space) ensureBlockIndex(b block.Block) (BlockIndex, error) {
	if index, ok := sp.blockToIndex[b]; ok {
		return index, nil
	}
	for i := range sp.blockData {
		if sp.blockData[i].count == 0 {
			index := BlockIndex(i)
			data, err := sp.newBlockData(b, index)
			if err != nil {
				return 0, fmt.Errorf("evaluating block: %w", err)
			}
			sp.blockData[i] = data
			sp.blockToIndex[b] = index
			sp.notifier.Notify(IndexChange{Index: index})
			return index, nil
		}
	}
	if len(sp.blockData) > maxBlockIndex {
		return 0, ErrTooManyBlocks
	}
	index := BlockIndex(len(sp.blockData))
	data, err := sp.newBlockData(b, index)
	if err != nil {
		return 0, fmt.Errorf("evaluating block: %w", err)
	}
	sp.blockData = append(sp.blockData, data)
	sp.blockToIndex[b] = index
	sp.notifier.Notify(IndexChange{Index: index})
	return index, nil
}

// sideEffectsOfSet delivers the consequences of a block change: light
// invalidation and cell notification. ci is the contents index for p.
func (sp *Space) sideEffectsOfSet(index BlockIndex, p geom.Vec3i, ci int) {
	if sp.physics.Light == LightRays {
		sp.sideEffectsOfLightAt(index, p, ci)
	}
	sp.notifier.Notify(CellChange{Cube: p})
}

// Fill replaces blocks in region with per-cell computed values. A nil
// result from f leaves that cell unchanged. Regions extending outside the
// bounds are rejected before any change; otherwise the operation stops at
// the first failing cell, leaving earlier cells modified.
func (sp *Space) Fill(region geom.Grid, f func(geom.Vec3i) block.Block) error {
	if err := sp.guard.lockExclusive(); err != nil {
		return err
	}
	defer sp.guard.unlockExclusive()
	return sp.fillLocked(region, f)
}

func (sp *Space) fillLocked(region geom.Grid, f func(geom.Vec3i) block.Block) error {
	if !sp.grid.ContainsGrid(region) {
		return OutOfBoundsError{Modification: region, Bounds: sp.grid}
	}
	lo, hi := region.Lower(), region.Upper()
	for x := lo.X; x < hi.X; x++ {
		for y := lo.Y; y < hi.Y; y++ {
			for z := lo.Z; z < hi.Z; z++ {
				p := geom.Vec3i{X: x, Y: y, Z: z}
				if b := f(p); b != nil {
					if _, err := sp.setLocked(p, b); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// FillUniform replaces every block in region with b. Filling the entire
// bounds is an atomic full replace that reinitializes the table.
func (sp *Space) FillUniform(region geom.Grid, b block.Block) error {
	if err := sp.guard.lockExclusive(); err != nil {
		return err
	}
	defer sp.guard.unlockExclusive()

	if !sp.grid.ContainsGrid(region) {
		return OutOfBoundsError{Modification: region, Bounds: sp.grid}
	}
	if region != sp.grid {
		return sp.fillLocked(region, func(geom.Vec3i) block.Block { return b })
	}

	// Whole-space overwrite: rebuild the table from scratch.
	data, err := sp.newBlockData(b, 0)
	if err != nil {
		return fmt.Errorf("evaluating block: %w", err)
	}
	data.count = sp.grid.Volume()

	for i := range sp.blockData {
		if sp.blockData[i].gate != nil {
			sp.blockData[i].gate.Close()
		}
	}
	sp.blockData = []BlockData{data}
	sp.blockToIndex = map[block.Block]BlockIndex{b: 0}
	for i := range sp.contents {
		sp.contents[i] = 0
	}

	if sp.physics.Light == LightRays {
		sp.queue.clear()
		if data.evaluated.Opaque {
			for i := range sp.lighting {
				sp.lighting[i] = PackedOpaque
			}
		} else {
			for i := range sp.lighting {
				sp.lighting[i] = sp.packedSky
			}
			sp.grid.ForEach(func(p geom.Vec3i) {
				sp.lightNeedsUpdate(p, maxLightPriority)
			})
		}
	}
	sp.notifier.Notify(EveryCellChange{})
	return nil
}

// SetPhysics replaces the global characteristics. Changing the light mode
// reinitializes the light field and queues a full recomputation.
func (sp *Space) SetPhysics(physics Physics) error {
	if err := sp.guard.lockExclusive(); err != nil {
		return err
	}
	defer sp.guard.unlockExclusive()

	physics.applyDefaults()
	old := sp.physics
	sp.physics = physics
	sp.packedSky = PackLight(physics.SkyColor)

	if physics.Light != old.Light || physics.SkyColor != old.SkyColor {
		sp.lighting = sp.initialLighting()
		sp.queue.clear()
		if physics.Light == LightRays {
			sp.grid.ForEach(func(p geom.Vec3i) {
				if i, ok := sp.grid.Index(p); ok && !sp.lighting[i].Opaque() {
					sp.lightNeedsUpdate(p, maxLightPriority)
				}
			})
		}
	}
	return nil
}

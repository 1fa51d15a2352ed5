package space

import (
	"fmt"
	"slices"

	"cubespace.dev/internal/block"
	"cubespace.dev/internal/geom"
)

// StepInfo is the work accounting for one Step call.
type StepInfo struct {
	// ReevaluatedBlocks is the number of block definitions whose cached
	// evaluation was rebuilt after a definition change.
	ReevaluatedBlocks int `json:"reevaluated_blocks"`

	Light LightUpdateInfo `json:"light"`
}

// Step advances the space's background work on the caller's goroutine:
// first it re-evaluates block definitions that reported changes, then it
// drains at most lightBudget queued light updates. A host event loop calls
// this once per tick with a budget sized to its frame time.
func (sp *Space) Step(lightBudget int) (StepInfo, error) {
	if err := sp.guard.lockExclusive(); err != nil {
		return StepInfo{}, err
	}
	defer sp.guard.unlockExclusive()

	var info StepInfo
	n, err := sp.reevaluateChangedBlocks()
	info.ReevaluatedBlocks = n
	if err != nil {
		return info, err
	}
	info.Light = sp.updateLightingFromQueue(lightBudget)
	return info, nil
}

// reevaluateChangedBlocks processes definition-change notifications
// collected since the previous Step. Indices are handled in ascending
// order so the work is deterministic.
func (sp *Space) reevaluateChangedBlocks() (int, error) {
	indices := sp.todo.drain()
	if len(indices) == 0 {
		return 0, nil
	}
	slices.Sort(indices)

	// Indices whose opacity flipped need their cells' light re-derived.
	opacityChanged := make(map[BlockIndex]bool)

	count := 0
	for _, index := range indices {
		if int(index) >= len(sp.blockData) {
			continue
		}
		data := &sp.blockData[index]
		if data.count == 0 {
			// Tombstoned since the notification; nothing references it.
			continue
		}
		sp.notifier.Notify(IndexValueChange{Index: index})
		ev, err := block.Evaluate(data.block)
		if err != nil {
			// The stale evaluation stays in place; the caller decides
			// whether to repair or replace the definition.
			return count, fmt.Errorf("re-evaluating block index %d: %w", index, err)
		}
		if ev.Opaque != data.evaluated.Opaque {
			opacityChanged[index] = true
		}
		data.evaluated = ev
		count++
	}

	if len(opacityChanged) > 0 && sp.physics.Light == LightRays {
		// One pass over the contents finds every affected cell.
		sp.grid.ForEach(func(p geom.Vec3i) {
			ci, _ := sp.grid.Index(p)
			index := sp.contents[ci]
			if !opacityChanged[index] {
				return
			}
			sp.sideEffectsOfLightAt(index, p, ci)
		})
	}
	return count, nil
}

// sideEffectsOfLightAt re-derives the light consequences for one cell
// whose occupying block (or its opacity) changed: the cell itself is
// assigned the known-dark constant or queued, and its transparent
// neighbors are invalidated at maximum priority.
func (sp *Space) sideEffectsOfLightAt(index BlockIndex, p geom.Vec3i, ci int) {
	if sp.blockData[index].evaluated.Opaque {
		// The value is already known: dark. Assign it directly instead
		// of queueing a needless computation.
		sp.lighting[ci] = PackedOpaque
		sp.notifier.Notify(LightChange{Cube: p})
	} else {
		sp.lightNeedsUpdate(p, maxLightPriority)
	}
	for _, f := range geom.AllFaces {
		n := p.Add(f.Normal())
		// Opaque neighbors stay definitely-black inside.
		if !sp.GetEvaluated(n).Opaque {
			sp.lightNeedsUpdate(n, maxLightPriority)
		}
	}
}

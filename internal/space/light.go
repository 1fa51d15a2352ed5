package space

import (
	"github.com/go-gl/mathgl/mgl64"

	"cubespace.dev/internal/geom"
	"cubespace.dev/internal/raycast"
)

// maxLightPriority marks invalidations caused by opacity changes, which
// must be recomputed before mere brightness adjustments.
const maxLightPriority = 255

// raysPerFace is the fixed fan of sample directions cast through each
// unblocked face: the face normal plus a 3x3 cone tilted around it. The
// set is deterministic, so recomputed values depend only on grid state.
var raysPerFace [6][9]mgl64.Vec3

func init() {
	tilts := [3]float64{-0.6, 0, 0.6}
	for fi, f := range geom.AllFaces {
		n := f.Normal()
		normal := mgl64.Vec3{float64(n.X), float64(n.Y), float64(n.Z)}
		// Tangent axes: the two axes other than the face's own.
		var t1, t2 mgl64.Vec3
		t1[(f.Axis()+1)%3] = 1
		t2[(f.Axis()+2)%3] = 1
		ri := 0
		for _, u := range tilts {
			for _, v := range tilts {
				dir := normal.Add(t1.Mul(u)).Add(t2.Mul(v))
				raysPerFace[fi][ri] = dir.Normalize()
				ri++
			}
		}
	}
}

const totalRayCount = 6 * 9

// LightUpdateInfo reports one drain pass over the light update queue.
type LightUpdateInfo struct {
	// UpdateCount is the number of cells recomputed in this pass.
	UpdateCount int `json:"update_count"`
	// QueueCount is the number of cells still queued after the pass.
	QueueCount int `json:"queue_count"`
	// MaxQueuePriority is the highest remaining priority after the pass.
	MaxQueuePriority uint8 `json:"max_queue_priority"`
}

// lightNeedsUpdate queues p for recomputation, raising its priority if it
// is already queued. Out-of-bounds and known-opaque cells are skipped.
func (sp *Space) lightNeedsUpdate(p geom.Vec3i, priority uint8) {
	ci, ok := sp.grid.Index(p)
	if !ok {
		return
	}
	if sp.blockData[sp.contents[ci]].evaluated.Opaque {
		return
	}
	sp.queue.push(p, priority)
}

// updateLightingFromQueue recomputes up to budget queued cells in priority
// order, propagating bounded further invalidation as values move.
func (sp *Space) updateLightingFromQueue(budget int) LightUpdateInfo {
	var info LightUpdateInfo
	if sp.physics.Light != LightRays {
		return info
	}
	for info.UpdateCount < budget {
		p, _, ok := sp.queue.pop()
		if !ok {
			break
		}
		ci, inGrid := sp.grid.Index(p)
		if !inGrid {
			continue
		}
		info.UpdateCount++

		newLight := sp.computeLightForCube(p, ci)
		diff := lightPriority(sp.lighting[ci], newLight)
		if diff == 0 {
			continue
		}
		sp.lighting[ci] = newLight
		sp.notifier.Notify(LightChange{Cube: p})
		if diff > sp.physics.RelightThreshold {
			// An immediate surface hit reads this cell's own light, so
			// the cell settles again along with its neighbors. The
			// reflected fraction is below one, so the feedback decays
			// and the requeueing terminates.
			sp.lightNeedsUpdate(p, diff)
			for _, f := range geom.AllFaces {
				sp.lightNeedsUpdate(p.Add(f.Normal()), diff)
			}
		}
	}
	info.QueueCount = sp.queue.len()
	info.MaxQueuePriority = sp.queue.peekPriority()
	return info
}

// computeLightForCube derives the settled light value for one cell by
// casting the fixed ray fan from its center. Rays toward a face-adjacent
// opaque cube strike its surface immediately, so neighboring emitters and
// lit walls feed the cell; walls reflect a fraction of the cell's own
// light back, so enclosed cells decay toward dark over repeated updates.
func (sp *Space) computeLightForCube(p geom.Vec3i, ci int) PackedLight {
	ev := sp.blockData[sp.contents[ci]].evaluated
	if ev.Opaque {
		return PackedOpaque
	}

	origin := mgl64.Vec3{
		float64(p.X) + 0.5,
		float64(p.Y) + 0.5,
		float64(p.Z) + 0.5,
	}
	maxDistance := float64(sp.physics.MaxRayDistance)

	var sum geom.Rgb
	for fi := range geom.AllFaces {
		for _, dir := range raysPerFace[fi] {
			sum = sum.Add(sp.traceLightRay(p, origin, dir, maxDistance))
		}
	}

	// Accumulate then normalize: the result does not depend on the order
	// faces were visited.
	light := sum.Scale(1.0 / totalRayCount).Add(ev.Emission)
	return PackLight(light)
}

// traceLightRay walks one sample ray outward and returns its contribution:
// the sky color if it leaves the bounds, the lit reflectance of the opaque
// surface it strikes, or black if it dies within the grid.
func (sp *Space) traceLightRay(start geom.Vec3i, origin, dir mgl64.Vec3, maxDistance float64) geom.Rgb {
	caster := raycast.New(origin, dir)
	prev := start
	for {
		st, ok := caster.Next()
		if !ok || st.Distance > maxDistance {
			return geom.RgbBlack
		}
		if st.Cube == start {
			continue
		}
		ci, inGrid := sp.grid.Index(st.Cube)
		if !inGrid {
			return sp.physics.SkyColor
		}
		ev := sp.blockData[sp.contents[ci]].evaluated
		if ev.Opaque {
			// Diffuse reflection: the struck surface re-emits the light
			// settled in the cell the ray came from, filtered by the
			// surface color, plus the block's own emission.
			pi, _ := sp.grid.Index(prev)
			return ev.Color.Rgb().Mul(sp.lighting[pi].Rgb()).Add(ev.Emission)
		}
		prev = st.Cube
	}
}

// EvaluateLight drains the light update queue to convergence: it stops
// when the queue is empty or the highest remaining priority is at most
// epsilon. progress, if non-nil, is called after every drain pass. Returns
// the total number of cell updates performed.
//
// This is the blocking non-interactive mode; interactive hosts should use
// Step's bounded drain instead.
func (sp *Space) EvaluateLight(epsilon uint8, progress func(LightUpdateInfo)) (int, error) {
	if err := sp.guard.lockExclusive(); err != nil {
		return 0, err
	}
	defer sp.guard.unlockExclusive()

	total := 0
	for {
		info := sp.updateLightingFromQueue(evaluatePassBudget)
		if progress != nil {
			progress(info)
		}
		total += info.UpdateCount
		if info.QueueCount == 0 || info.MaxQueuePriority <= epsilon {
			return total, nil
		}
	}
}

// evaluatePassBudget is the drain granularity of EvaluateLight, chosen so
// progress callbacks fire often enough to be useful.
const evaluatePassBudget = 4096

// initialLighting builds the starting light array for the current physics
// and contents: dark inside opaque blocks, sky everywhere else.
func (sp *Space) initialLighting() []PackedLight {
	lighting := make([]PackedLight, len(sp.contents))
	if sp.physics.Light == LightNone {
		for i := range lighting {
			lighting[i] = PackedOne
		}
		return lighting
	}
	for i, index := range sp.contents {
		if sp.blockData[index].evaluated.Opaque {
			lighting[i] = PackedOpaque
		} else {
			lighting[i] = sp.packedSky
		}
	}
	return lighting
}

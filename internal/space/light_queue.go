package space

import (
	"container/heap"

	"cubespace.dev/internal/geom"
)

// lightQueue is the set of cells awaiting light recomputation, ordered by
// priority (expected magnitude of change). Entries are deduplicated by
// cube; re-inserting an already queued cube may raise but never lower its
// priority. Ties break on cube coordinates so drain order is deterministic.
type lightQueue struct {
	entries lightHeap
	byCube  map[geom.Vec3i]*lightEntry
}

type lightEntry struct {
	cube     geom.Vec3i
	priority uint8
	index    int // heap position
}

func newLightQueue() *lightQueue {
	return &lightQueue{byCube: make(map[geom.Vec3i]*lightEntry)}
}

func (q *lightQueue) push(cube geom.Vec3i, priority uint8) {
	if e, ok := q.byCube[cube]; ok {
		if priority > e.priority {
			e.priority = priority
			heap.Fix(&q.entries, e.index)
		}
		return
	}
	e := &lightEntry{cube: cube, priority: priority}
	q.byCube[cube] = e
	heap.Push(&q.entries, e)
}

func (q *lightQueue) pop() (geom.Vec3i, uint8, bool) {
	if len(q.entries) == 0 {
		return geom.Vec3i{}, 0, false
	}
	e := heap.Pop(&q.entries).(*lightEntry)
	delete(q.byCube, e.cube)
	return e.cube, e.priority, true
}

// peekPriority is the highest queued priority, or 0 when empty.
func (q *lightQueue) peekPriority() uint8 {
	if len(q.entries) == 0 {
		return 0
	}
	return q.entries[0].priority
}

func (q *lightQueue) len() int { return len(q.entries) }

func (q *lightQueue) clear() {
	q.entries = nil
	q.byCube = make(map[geom.Vec3i]*lightEntry)
}

type lightHeap []*lightEntry

func (h lightHeap) Len() int { return len(h) }

func (h lightHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	if a.cube.X != b.cube.X {
		return a.cube.X < b.cube.X
	}
	if a.cube.Y != b.cube.Y {
		return a.cube.Y < b.cube.Y
	}
	return a.cube.Z < b.cube.Z
}

func (h lightHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *lightHeap) Push(x any) {
	e := x.(*lightEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *lightHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

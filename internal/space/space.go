// Package space implements the in-memory world store: a bounded grid of
// cells referencing interned block definitions, a packed per-cell light
// field kept approximately consistent by incremental ray-cast relaxation,
// and synchronous change notification for consumers such as mesh builders.
//
// A space has a single logical owner. Mutations are rejected with
// ErrConcurrentAccess while any other borrow is outstanding; read accessors
// are total and never fail.
package space

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"

	"cubespace.dev/internal/block"
	"cubespace.dev/internal/geom"
	"cubespace.dev/internal/listen"
)

// BlockIndex numbers distinct blocks within a space. Indices may be
// reassigned after any mutation; listeners receive IndexChange when that
// happens.
type BlockIndex uint16

const maxBlockIndex = math.MaxUint16

// Space is the world store.
type Space struct {
	grid    geom.Grid
	physics Physics

	// blockToIndex is the reverse interning map. Invariant: exactly the
	// indices with count > 0 appear here, each mapping its block value to
	// its unique index.
	blockToIndex map[block.Block]BlockIndex
	blockData    []BlockData

	// contents holds one block index per cell, in geom.Grid.Index order.
	contents []BlockIndex

	// lighting parallels contents.
	lighting  []PackedLight
	queue     *lightQueue
	packedSky PackedLight

	notifier listen.Notifier[Change]

	// todo collects indices whose definitions changed and need
	// re-evaluation on the next Step. Guarded by its own mutex because
	// nested sources notify during their own mutations.
	todo todoSet

	guard guard
}

// BlockData is the interpretation of one block index: the interned block,
// its usage count, and its cached evaluation.
type BlockData struct {
	block     block.Block
	count     int
	evaluated block.Evaluated
	gate      *listen.Gate
}

func (d *BlockData) Block() block.Block         { return d.block }
func (d *BlockData) Count() int                 { return d.count }
func (d *BlockData) Evaluated() block.Evaluated { return d.evaluated }

// nothingData stands in for cells outside the bounds.
var nothingData = BlockData{block: block.Air, evaluated: block.AirEvaluated}

type todoSet struct {
	mu      sync.Mutex
	indices map[BlockIndex]struct{}
}

func (t *todoSet) add(i BlockIndex) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indices == nil {
		t.indices = make(map[BlockIndex]struct{})
	}
	t.indices[i] = struct{}{}
}

func (t *todoSet) drain() []BlockIndex {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.indices) == 0 {
		return nil
	}
	out := make([]BlockIndex, 0, len(t.indices))
	for i := range t.indices {
		out = append(out, i)
	}
	clear(t.indices)
	return out
}

// New constructs a space filled with Air over the given bounds.
func New(grid geom.Grid, physics Physics) *Space {
	physics.applyDefaults()
	volume := grid.Volume()

	sp := &Space{
		grid:         grid,
		physics:      physics,
		blockToIndex: map[block.Block]BlockIndex{block.Air: 0},
		blockData: []BlockData{{
			block:     block.Air,
			count:     volume,
			evaluated: block.AirEvaluated,
		}},
		contents:  make([]BlockIndex, volume),
		queue:     newLightQueue(),
		packedSky: PackLight(physics.SkyColor),
	}
	sp.lighting = sp.initialLighting()
	return sp
}

// Empty is New with default physics.
func Empty(grid geom.Grid) *Space {
	return New(grid, Physics{})
}

// EmptyPositive is a test shorthand: bounds from the origin with the given
// sizes.
func EmptyPositive(wx, wy, wz int) *Space {
	return Empty(geom.MustGrid(geom.Vec3i{}, geom.Vec3i{X: wx, Y: wy, Z: wz}))
}

// Bounds returns the grid; no blocks exist outside it.
func (sp *Space) Bounds() geom.Grid { return sp.grid }

// Physics returns the current global characteristics.
func (sp *Space) Physics() Physics { return sp.physics }

// Get returns the block at p, or Air outside the bounds. Never fails.
func (sp *Space) Get(p geom.Vec3i) block.Block {
	if i, ok := sp.grid.Index(p); ok {
		return sp.blockData[sp.contents[i]].block
	}
	return block.Air
}

// GetEvaluated returns the cached evaluation of the block at p, or the Air
// evaluation outside the bounds. Never fails.
func (sp *Space) GetEvaluated(p geom.Vec3i) block.Evaluated {
	if i, ok := sp.grid.Index(p); ok {
		return sp.blockData[sp.contents[i]].evaluated
	}
	return block.AirEvaluated
}

// GetLight returns the packed light at p. Outside the bounds it returns
// the sky value; with light physics disabled it returns full white.
// The value is eventually consistent: exact only once the update queue has
// drained. Never fails.
func (sp *Space) GetLight(p geom.Vec3i) PackedLight {
	if sp.physics.Light == LightNone {
		return PackedOne
	}
	if i, ok := sp.grid.Index(p); ok {
		return sp.lighting[i]
	}
	return sp.packedSky
}

// BlockIndexAt returns the internal index for the cell, which may be used
// for efficient bulk processing but may be reassigned by any mutation.
func (sp *Space) BlockIndexAt(p geom.Vec3i) (BlockIndex, bool) {
	if i, ok := sp.grid.Index(p); ok {
		return sp.contents[i], true
	}
	return 0, false
}

// BlockData returns the table of index interpretations, including
// tombstoned (count zero) slots. The caller must not mutate it.
func (sp *Space) BlockData() []BlockData { return sp.blockData }

// DistinctBlocks returns every block value with at least one occurrence.
func (sp *Space) DistinctBlocks() []block.Block {
	out := make([]block.Block, 0, len(sp.blockData))
	for i := range sp.blockData {
		if sp.blockData[i].count > 0 {
			out = append(out, sp.blockData[i].block)
		}
	}
	return out
}

// Listen registers a listener for changes to this space. Delivery is
// synchronous, on the mutating goroutine, before the mutation returns.
// The registration lives until the listener reports dead.
func (sp *Space) Listen(l listen.Listener[Change]) {
	sp.notifier.Listen(l)
}

// BlockAt implements block.Source so that a space can back a Recur block.
func (sp *Space) BlockAt(p geom.Vec3i) block.Block { return sp.Get(p) }

// ListenBlockChanges implements block.Source: cell-level changes of this
// space invalidate the evaluation of any Recur block referencing it.
func (sp *Space) ListenBlockChanges(l listen.Listener[block.Change]) {
	sp.notifier.Listen(listen.Funcs[Change]{
		ReceiveFn: func(c Change) {
			switch c.(type) {
			case CellChange, EveryCellChange, IndexValueChange:
				l.Receive(block.Change{})
			}
		},
		AliveFn: l.Alive,
	})
}

// Digest is a deterministic fingerprint of the contents and light arrays,
// for convergence and replay comparisons.
func (sp *Space) Digest() string {
	h := sha256.New()
	var b2 [2]byte
	for _, v := range sp.contents {
		binary.LittleEndian.PutUint16(b2[:], uint16(v))
		h.Write(b2[:])
	}
	var b4 [4]byte
	for _, v := range sp.lighting {
		binary.LittleEndian.PutUint32(b4[:], uint32(v))
		h.Write(b4[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// indexListener builds the gated listener a block definition notifies when
// its underlying source mutates.
func (sp *Space) indexListener(index BlockIndex, gate *listen.Gate) listen.Listener[block.Change] {
	return listen.WithGate(gate, listen.Funcs[block.Change]{
		ReceiveFn: func(block.Change) { sp.todo.add(index) },
	})
}

// newBlockData evaluates b and wires up definition-change listening.
// It mutates nothing on failure.
func (sp *Space) newBlockData(b block.Block, index BlockIndex) (BlockData, error) {
	ev, err := block.Evaluate(b)
	if err != nil {
		return BlockData{}, err
	}
	gate := &listen.Gate{}
	block.Listen(b, sp.indexListener(index, gate))
	return BlockData{block: b, evaluated: ev, gate: gate}, nil
}

// tombstone resets a freed slot to the canonical empty state.
func (d *BlockData) tombstone() {
	if d.gate != nil {
		d.gate.Close()
	}
	*d = BlockData{block: block.Air, evaluated: block.AirEvaluated}
}

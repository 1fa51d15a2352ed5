package space

import (
	"errors"
	"testing"

	"cubespace.dev/internal/block"
	"cubespace.dev/internal/geom"
	"cubespace.dev/internal/listen"
)

var (
	stone = block.Atom{Name: "STONE", Color: geom.Rgba{R: 0.5, G: 0.5, B: 0.5, A: 1}}
	dirt  = block.Atom{Name: "DIRT", Color: geom.Rgba{R: 0.4, G: 0.3, B: 0.2, A: 1}}
	glass = block.Atom{Name: "GLASS", Color: geom.Rgba{R: 0.9, G: 0.9, B: 1, A: 0.2}}
	lamp  = block.Atom{Name: "LAMP", Color: geom.Rgba{R: 1, G: 1, B: 0.8, A: 1}, Emission: geom.Rgb{R: 2, G: 2, B: 1.6}}
)

// consistencyCheck verifies the interning invariants: per-index counts
// match the contents array, every live index is in the reverse map, and
// the reverse map holds nothing else.
func consistencyCheck(t *testing.T, sp *Space) {
	t.Helper()

	counts := make(map[BlockIndex]int)
	for _, index := range sp.contents {
		counts[index]++
	}
	live := 0
	for i := range sp.blockData {
		index := BlockIndex(i)
		d := &sp.blockData[i]
		if d.count != counts[index] {
			t.Fatalf("index %d: stored count %d, actual occurrences %d", i, d.count, counts[index])
		}
		if d.count > 0 {
			live++
			got, ok := sp.blockToIndex[d.block]
			if !ok || got != index {
				t.Fatalf("index %d: reverse map lookup gave (%v, %v)", i, got, ok)
			}
		}
	}
	if len(sp.blockToIndex) != live {
		t.Fatalf("reverse map has %d entries, want %d live indices", len(sp.blockToIndex), live)
	}
	if len(sp.lighting) != len(sp.contents) {
		t.Fatalf("lighting length %d != contents length %d", len(sp.lighting), len(sp.contents))
	}
}

func TestNew_StartsAsAir(t *testing.T) {
	sp := EmptyPositive(2, 3, 4)
	consistencyCheck(t, sp)

	if got := sp.Get(geom.Vec3i{X: 1, Y: 2, Z: 3}); got != block.Air {
		t.Fatalf("Get = %v, want Air", got)
	}
	if got := sp.Get(geom.Vec3i{X: -1, Y: 0, Z: 0}); got != block.Air {
		t.Fatalf("outside Get = %v, want Air", got)
	}
	if got := len(sp.DistinctBlocks()); got != 1 {
		t.Fatalf("DistinctBlocks = %d, want 1", got)
	}
}

func TestSet_Basic(t *testing.T) {
	sp := EmptyPositive(2, 2, 2)
	p := geom.Vec3i{X: 0, Y: 0, Z: 0}

	changed, err := sp.Set(p, stone)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !changed {
		t.Fatal("first set should report a change")
	}
	if got := sp.Get(p); got != block.Block(stone) {
		t.Fatalf("Get = %v, want stone", got)
	}
	consistencyCheck(t, sp)

	// Setting the same block again is a no-op.
	changed, err = sp.Set(p, stone)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if changed {
		t.Fatal("idempotent set should report no change")
	}
	consistencyCheck(t, sp)
}

func TestSet_InternsEqualBlocks(t *testing.T) {
	sp := EmptyPositive(4, 1, 1)
	a := geom.Vec3i{X: 0, Y: 0, Z: 0}
	b := geom.Vec3i{X: 2, Y: 0, Z: 0}

	mustSet(t, sp, a, stone)
	mustSet(t, sp, b, stone)

	ia, _ := sp.BlockIndexAt(a)
	ib, _ := sp.BlockIndexAt(b)
	if ia != ib {
		t.Fatalf("equal blocks got distinct indices %d and %d", ia, ib)
	}
	if got := len(sp.DistinctBlocks()); got != 2 { // air + stone
		t.Fatalf("DistinctBlocks = %d, want 2", got)
	}
	consistencyCheck(t, sp)
}

func TestSet_InPlaceReplaceKeepsIndex(t *testing.T) {
	sp := EmptyPositive(3, 1, 1)
	p := geom.Vec3i{X: 1, Y: 0, Z: 0}
	mustSet(t, sp, p, stone)
	before, _ := sp.BlockIndexAt(p)

	sink := &listen.Sink[Change]{}
	sp.Listen(sink)

	// stone occurs exactly once and dirt is new, so the index is reused
	// in place.
	mustSet(t, sp, p, dirt)
	after, _ := sp.BlockIndexAt(p)
	if after != before {
		t.Fatalf("index changed from %d to %d on sole-occupant replace", before, after)
	}

	sawIndexChange := false
	for _, c := range sink.Drain() {
		if ic, ok := c.(IndexChange); ok && ic.Index == before {
			sawIndexChange = true
		}
	}
	if !sawIndexChange {
		t.Fatal("in-place replace must notify IndexChange")
	}
	consistencyCheck(t, sp)
}

func TestSet_ReusesTombstonedIndex(t *testing.T) {
	sp := EmptyPositive(5, 1, 1)
	mustSet(t, sp, geom.Vec3i{X: 0, Y: 0, Z: 0}, stone)
	mustSet(t, sp, geom.Vec3i{X: 1, Y: 0, Z: 0}, stone)
	mustSet(t, sp, geom.Vec3i{X: 2, Y: 0, Z: 0}, dirt)
	dirtIndex, _ := sp.BlockIndexAt(geom.Vec3i{X: 2, Y: 0, Z: 0})

	// Overwrite the only dirt cell with stone; dirt's index becomes free.
	mustSet(t, sp, geom.Vec3i{X: 2, Y: 0, Z: 0}, stone)
	consistencyCheck(t, sp)

	// Two air cells remain, so the overwritten cell is not a sole
	// occupant and the in-place fast path cannot fire; the new block
	// takes the lowest freed slot instead of growing the table.
	mustSet(t, sp, geom.Vec3i{X: 3, Y: 0, Z: 0}, glass)
	glassIndex, _ := sp.BlockIndexAt(geom.Vec3i{X: 3, Y: 0, Z: 0})
	if glassIndex != dirtIndex {
		t.Fatalf("new block got index %d, want freed index %d", glassIndex, dirtIndex)
	}
	consistencyCheck(t, sp)
}

func TestSet_OutOfBounds(t *testing.T) {
	sp := EmptyPositive(2, 2, 2)
	_, err := sp.Set(geom.Vec3i{X: 2, Y: 0, Z: 0}, stone)
	var oob OutOfBoundsError
	if !errors.As(err, &oob) {
		t.Fatalf("err = %v, want OutOfBoundsError", err)
	}
	consistencyCheck(t, sp)
}

func TestSet_EvaluationFailureMutatesNothing(t *testing.T) {
	sp := EmptyPositive(2, 2, 2)
	p := geom.Vec3i{X: 0, Y: 0, Z: 0}
	mustSet(t, sp, p, stone)
	digest := sp.Digest()

	if _, err := sp.Set(p, block.Recur{Name: "broken"}); err == nil {
		t.Fatal("expected an evaluation error")
	}
	if sp.Get(p) != block.Block(stone) {
		t.Fatal("failed set must leave the cell unchanged")
	}
	if sp.Digest() != digest {
		t.Fatal("failed set must leave the space unchanged")
	}
	consistencyCheck(t, sp)
}

func TestFill_StopsAtFirstFailure(t *testing.T) {
	sp := EmptyPositive(3, 1, 1)
	calls := 0
	err := sp.Fill(sp.Bounds(), func(p geom.Vec3i) block.Block {
		calls++
		if p.X == 1 {
			return block.Recur{Name: "broken"}
		}
		return stone
	})
	if err == nil {
		t.Fatal("expected failure from the broken cell")
	}
	if calls != 2 {
		t.Fatalf("fill visited %d cells, want 2", calls)
	}
	// The prefix before the failing cell stays modified.
	if sp.Get(geom.Vec3i{X: 0, Y: 0, Z: 0}) != block.Block(stone) {
		t.Fatal("cell before the failure should be set")
	}
	if sp.Get(geom.Vec3i{X: 2, Y: 0, Z: 0}) != block.Air {
		t.Fatal("cell after the failure should be untouched")
	}
	consistencyCheck(t, sp)
}

func TestFill_NilLeavesCellAlone(t *testing.T) {
	sp := EmptyPositive(2, 1, 1)
	mustSet(t, sp, geom.Vec3i{X: 0, Y: 0, Z: 0}, dirt)
	err := sp.Fill(sp.Bounds(), func(p geom.Vec3i) block.Block {
		if p.X == 0 {
			return nil
		}
		return stone
	})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if sp.Get(geom.Vec3i{X: 0, Y: 0, Z: 0}) != block.Block(dirt) {
		t.Fatal("nil result must not overwrite the cell")
	}
	consistencyCheck(t, sp)
}

func TestFill_RejectsRegionOutsideBounds(t *testing.T) {
	sp := EmptyPositive(2, 2, 2)
	region := geom.MustGrid(geom.Vec3i{X: 1, Y: 0, Z: 0}, geom.Vec3i{X: 2, Y: 1, Z: 1})
	err := sp.Fill(region, func(geom.Vec3i) block.Block { return stone })
	var oob OutOfBoundsError
	if !errors.As(err, &oob) {
		t.Fatalf("err = %v, want OutOfBoundsError", err)
	}
	if sp.Get(geom.Vec3i{X: 1, Y: 0, Z: 0}) != block.Air {
		t.Fatal("rejected fill must not modify anything")
	}
}

func TestFillUniform_WholeSpaceRebuildsTable(t *testing.T) {
	sp := EmptyPositive(3, 3, 3)
	mustSet(t, sp, geom.Vec3i{X: 0, Y: 0, Z: 0}, stone)
	mustSet(t, sp, geom.Vec3i{X: 1, Y: 1, Z: 1}, dirt)

	sink := &listen.Sink[Change]{}
	sp.Listen(sink)

	if err := sp.FillUniform(sp.Bounds(), glass); err != nil {
		t.Fatalf("fill uniform: %v", err)
	}
	consistencyCheck(t, sp)

	if got := len(sp.DistinctBlocks()); got != 1 {
		t.Fatalf("DistinctBlocks = %d, want 1", got)
	}
	sp.Bounds().ForEach(func(p geom.Vec3i) {
		if sp.Get(p) != block.Block(glass) {
			t.Fatalf("cell %v not replaced", p)
		}
	})

	sawEvery := false
	for _, c := range sink.Drain() {
		if _, ok := c.(EveryCellChange); ok {
			sawEvery = true
		}
	}
	if !sawEvery {
		t.Fatal("whole-space replace must notify EveryCellChange")
	}
}

func TestFillUniform_PartialRegion(t *testing.T) {
	sp := EmptyPositive(4, 1, 1)
	region := geom.MustGrid(geom.Vec3i{X: 1, Y: 0, Z: 0}, geom.Vec3i{X: 2, Y: 1, Z: 1})
	if err := sp.FillUniform(region, stone); err != nil {
		t.Fatalf("fill uniform: %v", err)
	}
	for x := 0; x < 4; x++ {
		p := geom.Vec3i{X: x, Y: 0, Z: 0}
		want := block.Air
		if x == 1 || x == 2 {
			want = stone
		}
		if sp.Get(p) != block.Block(want) {
			t.Fatalf("cell %v = %v, want %v", p, sp.Get(p), want)
		}
	}
	consistencyCheck(t, sp)
}

func TestListen_CellChangeDelivered(t *testing.T) {
	sp := EmptyPositive(2, 2, 2)
	sink := &listen.Sink[Change]{}
	sp.Listen(sink)

	p := geom.Vec3i{X: 1, Y: 0, Z: 1}
	mustSet(t, sp, p, stone)

	sawCell := false
	for _, c := range sink.Drain() {
		if cc, ok := c.(CellChange); ok && cc.Cube == p {
			sawCell = true
		}
	}
	if !sawCell {
		t.Fatal("no CellChange for the mutated cube")
	}
}

func TestListen_ReentrantMutationRejected(t *testing.T) {
	sp := EmptyPositive(2, 2, 2)
	var reentrant error
	delivered := false
	sp.Listen(listen.Funcs[Change]{
		ReceiveFn: func(Change) {
			delivered = true
			_, reentrant = sp.Set(geom.Vec3i{X: 1, Y: 1, Z: 1}, dirt)
		},
	})

	mustSet(t, sp, geom.Vec3i{X: 0, Y: 0, Z: 0}, stone)
	if !delivered {
		t.Fatal("listener never ran")
	}
	if !errors.Is(reentrant, ErrConcurrentAccess) {
		t.Fatalf("re-entrant set: err = %v, want ErrConcurrentAccess", reentrant)
	}
	// The rejected mutation must not have happened.
	if sp.Get(geom.Vec3i{X: 1, Y: 1, Z: 1}) != block.Air {
		t.Fatal("re-entrant set leaked a mutation")
	}
	consistencyCheck(t, sp)
}

func TestDigest_TracksContent(t *testing.T) {
	sp := EmptyPositive(2, 2, 2)
	before := sp.Digest()
	mustSet(t, sp, geom.Vec3i{X: 0, Y: 1, Z: 0}, stone)
	if sp.Digest() == before {
		t.Fatal("digest unchanged after a mutation")
	}

	other := EmptyPositive(2, 2, 2)
	mustSet(t, other, geom.Vec3i{X: 0, Y: 1, Z: 0}, stone)
	if sp.Digest() != other.Digest() {
		t.Fatal("identical spaces must share a digest")
	}
}

func TestExtract_CopiesRegionUnderSharedBorrow(t *testing.T) {
	sp := EmptyPositive(2, 2, 2)
	mustSet(t, sp, geom.Vec3i{X: 0, Y: 0, Z: 0}, stone)

	// The region pokes outside; outside cells read as air under sky.
	region := geom.MustGrid(geom.Vec3i{X: -1, Y: 0, Z: 0}, geom.Vec3i{X: 3, Y: 1, Z: 1})
	arr, err := Extract(sp, region, func(d *BlockData, l PackedLight) block.Block {
		return d.Block()
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := arr.At(geom.Vec3i{X: -1, Y: 0, Z: 0}); got != block.Air {
		t.Fatalf("outside cell = %v, want Air", got)
	}
	if got := arr.At(geom.Vec3i{X: 0, Y: 0, Z: 0}); got != block.Block(stone) {
		t.Fatalf("inside cell = %v, want stone", got)
	}
	if got := len(arr.Data()); got != region.Volume() {
		t.Fatalf("Data length = %d, want %d", got, region.Volume())
	}
}

func TestExtract_MutationDuringExtractRejected(t *testing.T) {
	sp := EmptyPositive(2, 2, 2)
	var inner error
	_, err := Extract(sp, sp.Bounds(), func(*BlockData, PackedLight) int {
		if inner == nil {
			_, inner = sp.Set(geom.Vec3i{}, stone)
		}
		return 0
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !errors.Is(inner, ErrConcurrentAccess) {
		t.Fatalf("mutation during extract: err = %v, want ErrConcurrentAccess", inner)
	}
}

func mustSet(t *testing.T, sp *Space, p geom.Vec3i, b block.Block) {
	t.Helper()
	if _, err := sp.Set(p, b); err != nil {
		t.Fatalf("set %v: %v", p, err)
	}
}

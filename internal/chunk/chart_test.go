package chunk

import (
	"math"
	"reflect"
	"testing"

	"cubespace.dev/internal/geom"
	"cubespace.dev/internal/mathx"
)

func TestToChunk_Consistency(t *testing.T) {
	region := geom.MustGrid(geom.Vec3i{X: -17, Y: -17, Z: -17}, geom.Vec3i{X: 40, Y: 40, Z: 40})
	region.ForEach(func(p geom.Vec3i) {
		if !ToChunk(p).Grid().Contains(p) {
			t.Fatalf("cell %v not inside its own chunk %v", p, ToChunk(p))
		}
	})
}

func TestChart_ZeroDistance(t *testing.T) {
	chart := New(0)
	origin := Pos{X: 1, Y: 2, Z: 3}
	got := chart.Chunks(origin)
	if want := []Pos{origin}; !reflect.DeepEqual(got, want) {
		t.Fatalf("zero distance: got %v, want %v", got, want)
	}
}

func TestChart_EpsilonDistance(t *testing.T) {
	chart := New(0.00001)
	got := chart.Chunks(Pos{})
	want := []Pos{
		{0, 0, 0},
		// Face neighbors.
		{0, 0, -1}, {0, 0, 1},
		{0, -1, 0}, {0, 1, 0},
		{-1, 0, 0}, {1, 0, 0},
		// Edge neighbors.
		{0, -1, -1}, {0, -1, 1}, {0, 1, -1}, {0, 1, 1},
		{-1, 0, -1}, {-1, 0, 1}, {1, 0, -1}, {1, 0, 1},
		{-1, -1, 0}, {-1, 1, 0}, {1, -1, 0}, {1, 1, 0},
		// Corner neighbors.
		{-1, -1, -1}, {-1, -1, 1}, {-1, 1, -1}, {-1, 1, 1},
		{1, -1, -1}, {1, -1, 1}, {1, 1, -1}, {1, 1, 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("epsilon distance:\n got %v\nwant %v", got, want)
	}
}

func TestChart_RadiusBreakPoints(t *testing.T) {
	assertCount := func(distanceInChunks float64, want int) {
		t.Helper()
		chart := New(distanceInChunks * Size)
		got := len(chart.Chunks(Pos{}))
		if got != want {
			t.Fatalf("distance %v chunks: got %d chunks, want %d", distanceInChunks, got, want)
		}
	}
	assertCount(0.00, 1)
	// The whole neighborhood appears as soon as the sphere pokes out of
	// the viewpoint's chunk, and nothing more until past one chunk.
	assertCount(0.01, 3*3*3)
	assertCount(0.99, 3*3*3)
	assertCount(1.00, 3*3*3)
	assertCount(1.01, 3*3*3+3*3*6+3*12)
}

// Walking the slice backward must visit farthest first, so distance is
// non-increasing.
func TestChart_BackwardWalkIsFarthestFirst(t *testing.T) {
	chart := New(7 * Size)
	origin := Pos{X: 10, Y: 3, Z: 100}
	chunks := chart.Chunks(origin)
	prev := -1
	for i := len(chunks) - 1; i >= 0; i-- {
		p := chunks[i]
		d := geom.Vec3i{X: p.X - origin.X, Y: p.Y - origin.Y, Z: p.Z - origin.Z}.MagSquared()
		if prev >= 0 && d > prev {
			t.Fatalf("distance increased from %d to %d at backward position %d", prev, d, len(chunks)-1-i)
		}
		prev = d
	}
}

// Every chunk must come after all chunks that are strictly nearer on
// every axis.
func TestChart_Sorting(t *testing.T) {
	chart := New(4 * Size)
	var seen []Pos
	for _, p := range chart.Chunks(Pos{}) {
		pa := [3]int{mathx.AbsInt(p.X), mathx.AbsInt(p.Y), mathx.AbsInt(p.Z)}
		for _, q := range seen {
			qa := [3]int{mathx.AbsInt(q.X), mathx.AbsInt(q.Y), mathx.AbsInt(q.Z)}
			if pa == qa {
				continue
			}
			if pa[0] > qa[0] || pa[1] > qa[1] || pa[2] > qa[2] {
				continue
			}
			t.Fatalf("%v sorted after %v but is nearer on every axis", p, q)
		}
		seen = append(seen, p)
	}
}

func TestChart_ResizeMatchesFreshBuild(t *testing.T) {
	fresh := New(200)
	resized := New(300)
	resized.ResizeIfNeeded(200)
	if !reflect.DeepEqual(fresh.Chunks(Pos{}), resized.Chunks(Pos{})) {
		t.Fatal("resized chart differs from freshly built chart")
	}
	if fresh.ViewDistance() != resized.ViewDistance() {
		t.Fatalf("view distance mismatch: %v vs %v", fresh.ViewDistance(), resized.ViewDistance())
	}
}

func TestChart_SanitizesBadDistances(t *testing.T) {
	for _, d := range []float64{-5, math.NaN()} {
		chart := New(d)
		if got := chart.Chunks(Pos{}); len(got) != 1 {
			t.Fatalf("distance %v: got %d chunks, want 1", d, len(got))
		}
	}
}

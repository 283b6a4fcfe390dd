package subd

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/subd-patches/pkg/math"
)

// bowtieMesh returns two quads sharing three corners (two edges):
// A = {0,1,2,3}, B = {3,2,1,4}.
func bowtieMesh() *Mesh {
	positions := []math.Vec3{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 2, Y: 2},
	}
	return polygonMesh(positions, [][]uint32{
		{0, 1, 2, 3},
		{3, 2, 1, 4},
	})
}

func TestRepair_DetectsValenceTwo(t *testing.T) {
	c := prepared(t, bowtieMesh())

	if len(c.repairList) != 2 {
		t.Fatalf("expected both quads queued for repair, got %v", c.repairList)
	}
	a := c.quads[0]
	if corner := a.cornerOf(c.vertexPos[2]); a.valence[corner] != 2 {
		t.Errorf("shared corner valence = %d, want 2", a.valence[corner])
	}
}

func TestRepair_MergesPair(t *testing.T) {
	c := prepared(t, bowtieMesh())
	before := liveQuads(c)

	c.repairValenceTwo()

	if got := liveQuads(c); got != before-1 {
		t.Errorf("live quads = %d, want %d", got, before-1)
	}
	b := c.quads[1]
	if !b.degenerate || !b.dropped {
		t.Errorf("partner quad: degenerate=%v dropped=%v, want both true", b.degenerate, b.dropped)
	}

	pos := func(v uint32) PositionIndex { return c.vertexPos[v] }
	a := c.quads[0]
	want := [4]PositionIndex{pos(0), pos(1), pos(4), pos(3)}
	if a.corners != want {
		t.Errorf("merged corners = %v, want %v", a.corners, want)
	}
	if a.vertices[2] != 4 {
		t.Errorf("merged corner vertex = %d, want 4", a.vertices[2])
	}
	for k := 0; k < 4; k++ {
		if a.valence[k] != 3 {
			t.Errorf("merged corner %d: valence %d, want 3", k, a.valence[k])
		}
	}
	if c.stats.MergedQuads != 1 {
		t.Errorf("MergedQuads = %d, want 1", c.stats.MergedQuads)
	}
}

func TestRepair_ConvertOutput(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	out, err := Convert(bowtieMesh(), Options{Logger: zap.New(core)})
	if err != nil {
		t.Fatal(err)
	}

	if len(out.QuadPatches) != 1 {
		t.Fatalf("expected 1 quad patch after merge, got %d", len(out.QuadPatches))
	}
	if out.CountDiagnostics(ValenceTwo) != 2 {
		t.Errorf("expected 2 ValenceTwo diagnostics, got %v", out.Diagnostics)
	}
	if out.HasErrors() {
		t.Errorf("merge should not produce errors: %v", out.Diagnostics)
	}
	if logs.FilterMessage("quad shares two edges with a neighbor").Len() != 2 {
		t.Error("expected valence-two warnings in the log")
	}
}

func TestRepair_NoPartnerDropsQuad(t *testing.T) {
	c := prepared(t, gridMesh(1))
	c.repairList = []int{0}

	c.repairValenceTwo()

	if !c.quads[0].degenerate || !c.quads[0].dropped {
		t.Error("quad without partner should be dropped")
	}
	if c.stats.DroppedQuads != 1 {
		t.Errorf("DroppedQuads = %d, want 1", c.stats.DroppedQuads)
	}
	found := false
	for _, d := range c.diagnostics {
		if d.Kind == StructuralFault {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a StructuralFault diagnostic, got %v", c.diagnostics)
	}
}

func TestSharedAndUniqueCorners(t *testing.T) {
	a := newPatch(4)
	a.corners = [4]PositionIndex{0, 1, 2, 3}
	b := newPatch(4)
	b.corners = [4]PositionIndex{3, 2, 1, 4}

	if n := sharedCorners(&a, &b); n != 3 {
		t.Errorf("sharedCorners = %d, want 3", n)
	}
	if i := uniqueCorner(&a, &b); i != 0 {
		t.Errorf("uniqueCorner(a, b) = %d, want 0", i)
	}
	if i := uniqueCorner(&b, &a); i != 3 {
		t.Errorf("uniqueCorner(b, a) = %d, want 3", i)
	}
}

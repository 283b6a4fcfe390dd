package subd

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/subd-patches/pkg/math"
)

// prepared runs the pipeline up to adjacency.
func prepared(t *testing.T, m *Mesh) *converter {
	t.Helper()
	c := mustConverter(t, m)
	c.reconstruct()
	c.findBoundaryEdges()
	c.patchBoundaries()
	c.buildEdgeIndex()
	c.computeAdjacency()
	return c
}

func TestAdjacency_RegularInteriorVertex(t *testing.T) {
	c := prepared(t, gridMesh(2))

	// Vertex 4 is the grid center.
	center := c.vertexPos[4]
	seen := 0
	for i, q := range c.quads {
		if q.degenerate {
			continue
		}
		corner := q.cornerOf(center)
		if corner < 0 {
			t.Fatalf("quad %d does not touch the center", i)
		}
		seen++
		if q.valence[corner] != 4 {
			t.Errorf("quad %d: center valence = %d, want 4", i, q.valence[corner])
		}
	}
	if seen != 4 {
		t.Errorf("expected 4 quads around the center, got %d", seen)
	}
	if len(c.diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", c.diagnostics)
	}
}

func TestAdjacency_CenterNeighbors(t *testing.T) {
	c := prepared(t, gridMesh(2))

	// Quad 0 is vertices {0, 1, 4, 3}; corner 2 sits on the center.
	// Sweeping from edge 1-4 crosses quad {1,2,5,4} (edge neighbor 5) and
	// quad {4,5,8,7} (far corner 8, edge neighbor 7) before the stop quad.
	pos := func(v uint32) PositionIndex { return c.vertexPos[v] }
	q := c.quads[0]
	if q.corners != [4]PositionIndex{pos(0), pos(1), pos(4), pos(3)} {
		t.Fatalf("unexpected quad 0 corners %v", q.corners)
	}

	start := int(q.prefix[1]) - q.n
	end := int(q.prefix[2]) - q.n
	got := q.neighbors[start:end]
	want := []PositionIndex{pos(5), pos(8), pos(7)}
	if len(got) != len(want) {
		t.Fatalf("center neighbors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("center neighbors = %v, want %v", got, want)
			break
		}
	}
}

func TestAdjacency_PrefixIsRunningOffset(t *testing.T) {
	c := prepared(t, gridMesh(3))

	for i, q := range c.quads {
		if q.degenerate {
			continue
		}
		prev := uint8(q.n)
		for k := 0; k < q.n; k++ {
			if q.prefix[k] < prev {
				t.Errorf("quad %d: prefix %v not monotonic", i, q.prefix)
			}
			prev = q.prefix[k]
		}
		if int(q.prefix[q.n-1]) != q.n+q.count {
			t.Errorf("quad %d: last prefix %d, want %d", i, q.prefix[q.n-1], q.n+q.count)
		}
	}
}

func TestAdjacency_ClosedCube(t *testing.T) {
	c := prepared(t, cubeMesh())

	if c.stats.BoundaryEdges != 0 {
		t.Errorf("expected closed cube, got %d boundary edges", c.stats.BoundaryEdges)
	}
	if len(c.quads) != 6 {
		t.Fatalf("expected 6 quads, got %d", len(c.quads))
	}
	for i, q := range c.quads {
		for k := 0; k < 4; k++ {
			if q.valence[k] != 3 {
				t.Errorf("quad %d corner %d: valence %d, want 3", i, k, q.valence[k])
			}
		}
		if q.count != 4 {
			t.Errorf("quad %d: %d neighbors, want 4", i, q.count)
		}
		if q.prefix != [4]uint8{5, 6, 7, 8} {
			t.Errorf("quad %d: prefix %v, want [5 6 7 8]", i, q.prefix)
		}
	}
	if len(c.diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", c.diagnostics)
	}
}

func TestAdjacency_SingleQuadCornersSeeTwins(t *testing.T) {
	c := prepared(t, gridMesh(1))

	q := c.quads[0]
	for k := 0; k < 4; k++ {
		if q.valence[k] != 3 {
			t.Errorf("corner %d: valence %d, want 3", k, q.valence[k])
		}
	}
	for k := 0; k < q.count; k++ {
		twin := q.neighbors[k]
		if int(twin) < c.stats.Positions {
			t.Errorf("neighbor %d is %d, expected a twin position", k, twin)
		}
		if c.posVertex[twin] != q.vertices[k] {
			t.Errorf("twin %d maps to vertex %d, want %d", twin, c.posVertex[twin], q.vertices[k])
		}
	}
}

func TestAdjacency_TriangleFan(t *testing.T) {
	// Six triangles around a center vertex.
	positions := []math.Vec3{
		{X: 0, Y: 0},
		{X: 2, Y: 0}, {X: 1, Y: 2}, {X: -1, Y: 2}, {X: -2, Y: 0}, {X: -1, Y: -2}, {X: 1, Y: -2},
	}
	var polys [][]uint32
	for i := uint32(1); i <= 6; i++ {
		polys = append(polys, []uint32{0, i, i%6 + 1})
	}
	c := prepared(t, polygonMesh(positions, polys))

	for i, tri := range c.tris {
		if tri.valence[0] != 6 {
			t.Errorf("triangle %d: center valence %d, want 6", i, tri.valence[0])
		}
		// A triangle adds one neighbor per crossed patch.
		if got := int(tri.prefix[0]) - 3; got != 4 {
			t.Errorf("triangle %d: %d center neighbors, want 4", i, got)
		}
	}
}

// quadFanMesh builds n quads around vertex 0. Ring vertices 1..2n alternate
// between spokes (odd) and outer corners (even); quad i is
// {0, spoke i, outer i, spoke i+1}.
func quadFanMesh(n int) *Mesh {
	positions := []math.Vec3{{}}
	for k := 0; k < 2*n; k++ {
		angle := float64(k) * gomath.Pi / float64(n)
		radius := 1.0
		if k%2 == 1 {
			radius = 1.5
		}
		positions = append(positions, math.Vec3{
			X: float32(radius * gomath.Cos(angle)),
			Y: float32(radius * gomath.Sin(angle)),
		})
	}
	ring := func(k int) uint32 { return uint32(1 + k%(2*n)) }

	var polys [][]uint32
	for i := 0; i < n; i++ {
		polys = append(polys, []uint32{0, ring(2 * i), ring(2*i + 1), ring(2*i + 2)})
	}
	return polygonMesh(positions, polys)
}

func countKind(ds []Diagnostic, kind DiagnosticKind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func TestAdjacency_QuadFanLimits(t *testing.T) {
	tests := []struct {
		name         string
		quads        int
		wantValence  uint8
		wantPrefix   [4]uint8
		wantOverflow bool
		wantSweep    bool
	}{
		// 2*(12-2)-1 = 19 center neighbors, all corners fit.
		{"valence 12", 12, 12, [4]uint8{23, 26, 27, 30}, false, false},
		// 27 center neighbors fit; the remaining corners are truncated.
		{"valence 16", 16, 16, [4]uint8{31, 32, 32, 32}, true, false},
		// The sweep stops after the hop limit.
		{"valence 31", 31, MaxQuadNeighborCount + 2, [4]uint8{32, 32, 32, 32}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := prepared(t, quadFanMesh(tt.quads))
			center := c.vertexPos[0]

			for i, q := range c.quads {
				if q.degenerate {
					continue
				}
				corner := q.cornerOf(center)
				if corner != 0 {
					t.Fatalf("quad %d: center at corner %d, want 0", i, corner)
				}
				if q.valence[0] != tt.wantValence {
					t.Errorf("quad %d: center valence = %d, want %d", i, q.valence[0], tt.wantValence)
				}
				if q.prefix != tt.wantPrefix {
					t.Errorf("quad %d: prefix = %v, want %v", i, q.prefix, tt.wantPrefix)
				}
				if int(q.prefix[3]) > MaxPointCount {
					t.Errorf("quad %d: prefix %d exceeds %d slots", i, q.prefix[3], MaxPointCount)
				}
			}

			if got := countKind(c.diagnostics, CapacityOverflow) > 0; got != tt.wantOverflow {
				t.Errorf("CapacityOverflow reported = %v, want %v", got, tt.wantOverflow)
			}
			if got := countKind(c.diagnostics, SweepFault) > 0; got != tt.wantSweep {
				t.Errorf("SweepFault reported = %v, want %v", got, tt.wantSweep)
			}
			if !tt.wantOverflow && !tt.wantSweep && len(c.diagnostics) != 0 {
				t.Errorf("unexpected diagnostics: %v", c.diagnostics)
			}
		})
	}
}

func TestAdjacency_DegenerateTriangleDeadEnd(t *testing.T) {
	positions := []math.Vec3{{X: 0}, {X: 1}, {Y: 1}}
	m := polygonMesh(positions, [][]uint32{{0, 0, 1}})

	out, err := Convert(m, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if out.CountDiagnostics(SweepFault) == 0 {
		t.Errorf("expected a dead-end SweepFault, got %v", out.Diagnostics)
	}
	if len(out.TrianglePatches) != 1 {
		t.Errorf("expected the triangle to be emitted, got %d triangle patches", len(out.TrianglePatches))
	}
}

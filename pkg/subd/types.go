// Package subd converts a triangulated polygon mesh into a quad/triangle
// control mesh for hardware-tessellated Catmull-Clark subdivision surfaces.
//
// The converter rebuilds quads from triangle pairs, closes open boundaries
// with zero-area quads, sweeps around every corner to collect valence and
// neighboring control points, repairs quad pairs that share two edges, and
// packs the result into flat patch and index buffers grouped by material.
package subd

import (
	"errors"

	"github.com/Faultbox/subd-patches/pkg/math"
)

// Patch layout limits. A patch (corners plus neighbors) must fit into
// MaxPointCount control points.
const (
	MaxPointCount            = 32
	MaxQuadNeighborCount     = MaxPointCount - 4
	MaxTriangleNeighborCount = MaxPointCount - 3
)

// irregularPenalty is added to a patch sort score when any corner valence is not 4.
const irregularPenalty = 1000000

// ErrInvalidMesh is returned when the input arrays are inconsistent.
var ErrInvalidMesh = errors.New("invalid input mesh")

// PositionIndex identifies a deduplicated control-mesh position.
type PositionIndex int32

// NoPosition marks an unused position slot.
const NoPosition PositionIndex = -1

// InputSubset is a named material range of the input triangle list.
type InputSubset struct {
	Name          string
	StartTriangle int
	TriangleCount int
}

// Mesh is an indexed triangle list as produced by a mesh builder.
//
// Triangle t uses Indices[3t:3t+3]. PolygonIDs[t] names the polygon the
// triangle was cut from and never decreases with t. SubsetIDs[t] indexes
// Subsets; when SubsetIDs is nil it is derived from the subset ranges.
type Mesh struct {
	Positions  []math.Vec3
	Indices    []uint32
	PolygonIDs []int32
	SubsetIDs  []int
	Subsets    []InputSubset
}

// TriangleCount returns the number of input triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// PatchKind distinguishes the two patch arrays.
type PatchKind uint8

const (
	KindQuad PatchKind = iota
	KindTriangle
)

// String returns the kind name.
func (k PatchKind) String() string {
	if k == KindQuad {
		return "quad"
	}
	return "triangle"
}

// PatchRef addresses a patch in one of the two homogeneous patch arrays.
type PatchRef struct {
	Kind  PatchKind
	Index int
}

var noPatch = PatchRef{Kind: KindQuad, Index: -1}

func (r PatchRef) valid() bool {
	return r.Index >= 0
}

// patch is a working quad or triangle. Triangles use the first three slots.
type patch struct {
	corners  [4]PositionIndex
	vertices [4]uint32
	n        int

	polygon int32
	subset  int

	valence   [4]uint8
	prefix    [4]uint8
	neighbors [MaxTriangleNeighborCount]PositionIndex
	count     int

	// degenerate patches are topology only and never serialized.
	degenerate bool
	// dropped patches were removed by valence-two repair and no longer
	// take part in topology either.
	dropped bool
}

func newPatch(n int) patch {
	p := patch{n: n}
	for i := range p.corners {
		p.corners[i] = NoPosition
	}
	p.clearAdjacency()
	return p
}

// neighborCapacity is the number of neighbor slots left after the corners.
func (p *patch) neighborCapacity() int {
	if p.n == 4 {
		return MaxQuadNeighborCount
	}
	return MaxTriangleNeighborCount
}

func (p *patch) clearAdjacency() {
	p.valence = [4]uint8{}
	p.prefix = [4]uint8{}
	for i := range p.neighbors {
		p.neighbors[i] = NoPosition
	}
	p.count = 0
}

// cornerOf returns the corner slot holding pos, or -1.
func (p *patch) cornerOf(pos PositionIndex) int {
	for i := 0; i < p.n; i++ {
		if p.corners[i] == pos {
			return i
		}
	}
	return -1
}

func (p *patch) irregular() bool {
	for i := 0; i < p.n; i++ {
		if p.valence[i] != 4 {
			return true
		}
	}
	return false
}

// PatchData is the per-patch vertex record uploaded to the GPU.
type PatchData struct {
	Valence [4]uint8
	Prefix  [4]uint8
}

// PatchIndices holds the mesh vertex indices of one patch: corners first in
// winding order, then neighbors in sweep order.
type PatchIndices [MaxPointCount]uint32

// Subset is a contiguous range of sorted patches sharing one material.
type Subset struct {
	Name          string
	MeshSubsetID  int
	IsQuadPatches bool
	StartPatch    int
	PatchCount    int
}

// Stats summarizes one conversion.
type Stats struct {
	InputTriangles  int
	Positions       int
	Quads           int
	Triangles       int
	BoundaryEdges   int
	DegenerateQuads int
	MergedQuads     int
	DroppedQuads    int
	IrregularQuads  int
	IrregularTris   int
	MaxValence      int
	Bounds          math.Bounds
}

// PatchMesh is the converter output.
type PatchMesh struct {
	QuadPatches     []PatchData
	QuadIndices     []PatchIndices
	TrianglePatches []PatchData
	TriangleIndices []PatchIndices
	QuadSubsets     []Subset
	TriangleSubsets []Subset

	Stats       Stats
	Diagnostics []Diagnostic
}

// Subsets returns quad subsets followed by triangle subsets, the order in
// which the patch buffers are written.
func (pm *PatchMesh) Subsets() []Subset {
	out := make([]Subset, 0, len(pm.QuadSubsets)+len(pm.TriangleSubsets))
	out = append(out, pm.QuadSubsets...)
	return append(out, pm.TriangleSubsets...)
}

package subd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/subd-patches/pkg/math"
)

// converter owns every working container of one conversion.
type converter struct {
	mesh      *Mesh
	subsetIDs []int
	opts      Options
	log       *zap.Logger

	positions []math.Vec3
	posVertex []uint32
	vertexPos []PositionIndex
	posLookup map[math.Vec3]PositionIndex

	quads []patch
	tris  []patch

	boundary      map[edgeKey]edgeUse
	boundaryCount []int
	twins         map[PositionIndex]PositionIndex
	edges         map[edgeKey][]PatchRef

	repairList []int
	merged     []int

	stats       Stats
	diagnostics []Diagnostic
}

// Convert builds subdivision patch buffers for m.
//
// An error is returned only when the input arrays are inconsistent. Topology
// problems are reported through opts.Logger and PatchMesh.Diagnostics and
// degrade the affected patches instead of failing the conversion.
func Convert(m *Mesh, opts Options) (*PatchMesh, error) {
	c, err := newConverter(m, opts)
	if err != nil {
		return nil, err
	}
	return c.run(), nil
}

func newConverter(m *Mesh, opts Options) (*converter, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil mesh", ErrInvalidMesh)
	}
	subsetIDs, err := validate(m)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c := &converter{
		mesh:      m,
		subsetIDs: subsetIDs,
		opts:      opts,
		log:       log,
		posLookup: make(map[math.Vec3]PositionIndex),
		vertexPos: make([]PositionIndex, len(m.Positions)),
		boundary:  make(map[edgeKey]edgeUse),
		twins:     make(map[PositionIndex]PositionIndex),
	}
	for i := range c.vertexPos {
		c.vertexPos[i] = NoPosition
	}
	c.stats.InputTriangles = m.TriangleCount()
	return c, nil
}

// validate checks the parallel arrays and resolves per-triangle subset ids.
func validate(m *Mesh) ([]int, error) {
	if len(m.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidMesh, len(m.Indices))
	}
	triCount := m.TriangleCount()

	if len(m.PolygonIDs) != triCount {
		return nil, fmt.Errorf("%w: %d polygon ids for %d triangles", ErrInvalidMesh, len(m.PolygonIDs), triCount)
	}

	for i, idx := range m.Indices {
		if int(idx) >= len(m.Positions) {
			return nil, fmt.Errorf("%w: index %d at %d out of range (%d vertices)", ErrInvalidMesh, idx, i, len(m.Positions))
		}
	}

	if m.SubsetIDs != nil {
		if len(m.SubsetIDs) != triCount {
			return nil, fmt.Errorf("%w: %d subset ids for %d triangles", ErrInvalidMesh, len(m.SubsetIDs), triCount)
		}
		for t, id := range m.SubsetIDs {
			if id < 0 || (len(m.Subsets) > 0 && id >= len(m.Subsets)) {
				return nil, fmt.Errorf("%w: triangle %d has subset id %d", ErrInvalidMesh, t, id)
			}
		}
		return m.SubsetIDs, nil
	}

	ids := make([]int, triCount)
	for s, sub := range m.Subsets {
		end := sub.StartTriangle + sub.TriangleCount
		if sub.StartTriangle < 0 || sub.TriangleCount < 0 || end > triCount {
			return nil, fmt.Errorf("%w: subset %q range [%d,%d) outside %d triangles",
				ErrInvalidMesh, sub.Name, sub.StartTriangle, end, triCount)
		}
		for t := sub.StartTriangle; t < end; t++ {
			ids[t] = s
		}
	}
	return ids, nil
}

func (c *converter) run() *PatchMesh {
	c.reconstruct()
	c.findBoundaryEdges()
	c.patchBoundaries()

	c.buildEdgeIndex()
	c.computeAdjacency()
	c.repairValenceTwo()

	c.sortPatches()
	out := c.serialize()
	c.release()

	c.log.Debug("subdivision patches built",
		zap.Int("positions", out.Stats.Positions),
		zap.Int("quads", out.Stats.Quads),
		zap.Int("triangles", out.Stats.Triangles),
		zap.Int("boundaryEdges", out.Stats.BoundaryEdges),
		zap.Int("diagnostics", len(out.Diagnostics)))
	return out
}

// release drops the working containers; only the output survives.
func (c *converter) release() {
	c.positions = nil
	c.posVertex = nil
	c.vertexPos = nil
	c.posLookup = nil
	c.quads = nil
	c.tris = nil
	c.boundary = nil
	c.boundaryCount = nil
	c.twins = nil
	c.edges = nil
	c.repairList = nil
	c.merged = nil
}

func (c *converter) patchAt(r PatchRef) *patch {
	if r.Kind == KindQuad {
		return &c.quads[r.Index]
	}
	return &c.tris[r.Index]
}

func (c *converter) subsetName(id int) string {
	if id >= 0 && id < len(c.mesh.Subsets) {
		return c.mesh.Subsets[id].Name
	}
	return ""
}

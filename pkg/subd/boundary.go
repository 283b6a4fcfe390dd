package subd

import (
	"sort"

	"go.uber.org/zap"
)

// edgeKey identifies an undirected edge: smaller position in the high
// 32 bits, larger in the low 32 bits.
type edgeKey uint64

func makeEdgeKey(a, b PositionIndex) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey(uint64(uint32(a))<<32 | uint64(uint32(b)))
}

// edgeUse is the patch corner that starts an edge in winding order.
type edgeUse struct {
	ref    PatchRef
	corner int
}

func (u edgeUse) less(o edgeUse) bool {
	if u.ref.Kind != o.ref.Kind {
		return u.ref.Kind < o.ref.Kind
	}
	if u.ref.Index != o.ref.Index {
		return u.ref.Index < o.ref.Index
	}
	return u.corner < o.corner
}

// eachPatch calls fn for every patch that still takes part in topology,
// quads first.
func (c *converter) eachPatch(fn func(ref PatchRef, p *patch)) {
	for i := range c.quads {
		if !c.quads[i].dropped {
			fn(PatchRef{KindQuad, i}, &c.quads[i])
		}
	}
	for i := range c.tris {
		if !c.tris[i].dropped {
			fn(PatchRef{KindTriangle, i}, &c.tris[i])
		}
	}
}

// findBoundaryEdges toggles every patch edge in the edge map. Edges seen
// twice cancel out; what is left is referenced by exactly one patch.
func (c *converter) findBoundaryEdges() {
	c.eachPatch(func(ref PatchRef, p *patch) {
		for i := 0; i < p.n; i++ {
			key := makeEdgeKey(p.corners[i], p.corners[(i+1)%p.n])
			if _, ok := c.boundary[key]; ok {
				delete(c.boundary, key)
				continue
			}
			c.boundary[key] = edgeUse{ref: ref, corner: i}
		}
	})

	c.boundaryCount = make([]int, len(c.positions))
	for key := range c.boundary {
		c.boundaryCount[PositionIndex(key>>32)]++
		c.boundaryCount[PositionIndex(uint32(key))]++
	}
	for pos, n := range c.boundaryCount {
		if n > 2 {
			c.report(NonManifold, "position has more than two boundary edges",
				zap.Int("position", pos), zap.Int("boundaryEdges", n))
		}
	}

	c.stats.BoundaryEdges = len(c.boundary)
}

// twinOf returns the degenerate copy of pos, creating it on first use.
func (c *converter) twinOf(pos PositionIndex) PositionIndex {
	if t, ok := c.twins[pos]; ok {
		return t
	}
	t := PositionIndex(len(c.positions))
	c.positions = append(c.positions, c.positions[pos])
	c.posVertex = append(c.posVertex, c.posVertex[pos])
	c.twins[pos] = t
	return t
}

// patchBoundaries closes every boundary edge with a zero-area quad tying
// the edge to copies of its endpoints, so each edge has two patches.
func (c *converter) patchBoundaries() {
	uses := make([]edgeUse, 0, len(c.boundary))
	for _, u := range c.boundary {
		uses = append(uses, u)
	}
	sort.Slice(uses, func(i, j int) bool { return uses[i].less(uses[j]) })

	for _, u := range uses {
		p := c.patchAt(u.ref)
		a := p.corners[u.corner]
		b := p.corners[(u.corner+1)%p.n]
		subset := p.subset

		ta := c.twinOf(a)
		tb := c.twinOf(b)

		q := newPatch(4)
		q.corners = [4]PositionIndex{ta, tb, b, a}
		if c.opts.FlipWinding {
			q.corners = [4]PositionIndex{a, b, tb, ta}
		}
		for i, pos := range q.corners {
			q.vertices[i] = c.posVertex[pos]
		}
		q.polygon = -1
		q.subset = subset
		q.degenerate = true
		c.quads = append(c.quads, q)
	}

	c.stats.DegenerateQuads = len(uses)
	clear(c.boundary)
}

// buildEdgeIndex maps every edge to the patches using it, quads first and
// in ascending index order.
func (c *converter) buildEdgeIndex() {
	c.edges = make(map[edgeKey][]PatchRef, 2*(len(c.quads)+len(c.tris)))
	c.eachPatch(func(ref PatchRef, p *patch) {
		for i := 0; i < p.n; i++ {
			key := makeEdgeKey(p.corners[i], p.corners[(i+1)%p.n])
			c.edges[key] = append(c.edges[key], ref)
		}
	})
}

// patchAcross returns the first patch other than exclude that uses edge
// (a, b), or noPatch.
func (c *converter) patchAcross(a, b PositionIndex, exclude PatchRef) PatchRef {
	for _, ref := range c.edges[makeEdgeKey(a, b)] {
		if ref != exclude {
			return ref
		}
	}
	return noPatch
}

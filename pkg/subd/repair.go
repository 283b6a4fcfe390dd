package subd

import (
	"go.uber.org/zap"
)

// sharedCorners counts the corners of a that also appear in b.
func sharedCorners(a, b *patch) int {
	n := 0
	for i := 0; i < a.n; i++ {
		if b.cornerOf(a.corners[i]) >= 0 {
			n++
		}
	}
	return n
}

// uniqueCorner returns the first corner of a that b does not have, or -1.
func uniqueCorner(a, b *patch) int {
	for i := 0; i < a.n; i++ {
		if b.cornerOf(a.corners[i]) < 0 {
			return i
		}
	}
	return -1
}

// repairValenceTwo merges quad pairs sharing three corners. The first quad
// of a pair absorbs the second: its corner opposite its own unique corner is
// replaced by the partner's unique corner, and the partner is dropped.
// Quads without a partner are dropped. Merged quads get fresh adjacency.
func (c *converter) repairValenceTwo() {
	work := c.repairList
	for len(work) > 0 {
		ai := work[0]
		work = work[1:]
		a := &c.quads[ai]

		partner := -1
		for k, bi := range work {
			if sharedCorners(a, &c.quads[bi]) == 3 {
				partner = k
				break
			}
		}
		if partner < 0 {
			c.report(StructuralFault, "valence-two quad has no partner, dropping it",
				zap.Int("quad", ai), zap.Int32("polygon", a.polygon))
			a.degenerate = true
			a.dropped = true
			c.stats.DroppedQuads++
			continue
		}

		bi := work[partner]
		work = append(work[:partner:partner], work[partner+1:]...)
		b := &c.quads[bi]

		ua := uniqueCorner(a, b)
		ub := uniqueCorner(b, a)
		if ua < 0 || ub < 0 {
			c.report(MalformedInput, "quad pair lookup failed during repair",
				zap.Int("quad", ai), zap.Int("partner", bi))
			continue
		}

		opp := (ua + 2) % 4
		a.corners[opp] = b.corners[ub]
		a.vertices[opp] = b.vertices[ub]
		a.clearAdjacency()

		b.degenerate = true
		// b must not stay an edge user or the merged quad's edges get three patches.
		b.dropped = true

		c.merged = append(c.merged, ai)
		c.stats.MergedQuads++
		c.log.Debug("merged valence-two quad pair",
			zap.Int("quad", ai), zap.Int("partner", bi))
	}

	if len(c.merged) == 0 {
		return
	}

	c.buildEdgeIndex()
	for _, i := range c.merged {
		c.computePatchAdjacency(PatchRef{KindQuad, i})
		if corner := c.quads[i].valenceTwoCorner(); corner >= 0 {
			c.report(ValenceTwo, "merged quad still has a valence-two corner",
				zap.Int("quad", i), zap.Int("corner", corner))
		}
	}
}

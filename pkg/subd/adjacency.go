package subd

import (
	"go.uber.org/zap"
)

// computeAdjacency fills valence, prefix and neighbors for every real patch
// and queues quads with a valence-two corner for repair.
func (c *converter) computeAdjacency() {
	for i := range c.quads {
		if c.quads[i].degenerate {
			continue
		}
		ref := PatchRef{KindQuad, i}
		c.computePatchAdjacency(ref)
		if corner := c.quads[i].valenceTwoCorner(); corner >= 0 {
			c.report(ValenceTwo, "quad shares two edges with a neighbor",
				zap.Int("quad", i), zap.Int("corner", corner),
				zap.Int32("polygon", c.quads[i].polygon))
			c.repairList = append(c.repairList, i)
		}
	}
	for i := range c.tris {
		c.computePatchAdjacency(PatchRef{KindTriangle, i})
	}
}

// valenceTwoCorner returns the first corner with valence two, or -1.
func (p *patch) valenceTwoCorner() int {
	for i := 0; i < p.n; i++ {
		if p.valence[i] == 2 {
			return i
		}
	}
	return -1
}

func (c *converter) computePatchAdjacency(ref PatchRef) {
	p := c.patchAt(ref)
	p.clearAdjacency()
	for corner := 0; corner < p.n; corner++ {
		c.sweepCorner(ref, p, corner)
	}
}

// sweepCorner walks around the corner's position, starting across the edge
// to the previous corner and stopping at the patch across the edge to the
// next corner. Each patch crossed adds one to the valence and contributes
// its far corner (quads only, not on the first step) and its next edge
// neighbor to the neighbor list.
func (c *converter) sweepCorner(ref PatchRef, p *patch, corner int) {
	pivot := p.corners[corner]
	sweep := p.corners[(corner+p.n-1)%p.n]
	stop := p.corners[(corner+1)%p.n]
	stopPatch := c.patchAcross(pivot, stop, ref)

	capacity := p.neighborCapacity()
	overflow := 0
	add := func(pos PositionIndex) {
		if p.count >= capacity {
			overflow++
			return
		}
		p.neighbors[p.count] = pos
		p.count++
	}

	fields := func() []zap.Field {
		return []zap.Field{
			zap.Stringer("patchKind", ref.Kind), zap.Int("patch", ref.Index),
			zap.Int("corner", corner), zap.Int32("position", int32(pivot)),
		}
	}

	hops := 0
	current := ref
	for {
		next := c.patchAcross(sweep, pivot, current)
		if !next.valid() {
			c.report(SweepFault, "corner sweep reached a dead end", fields()...)
			break
		}
		if next == stopPatch {
			break
		}
		if hops >= MaxQuadNeighborCount {
			c.report(SweepFault, "corner sweep exceeded hop limit", fields()...)
			break
		}

		q := c.patchAt(next)
		at := q.cornerOf(pivot)
		if at < 0 {
			c.report(MalformedInput, "edge index lists a patch without the pivot", fields()...)
			break
		}

		nb := q.corners[(at+1)%q.n]
		if nb == sweep {
			nb = q.corners[(at+q.n-1)%q.n]
		}
		if q.n == 4 && hops > 0 {
			add(q.corners[(at+2)%4])
		}
		add(nb)

		sweep = nb
		current = next
		hops++
	}

	if overflow > 0 {
		c.report(CapacityOverflow, "neighbor list truncated",
			append(fields(), zap.Int("dropped", overflow), zap.Int("capacity", capacity))...)
	}

	p.valence[corner] = uint8(2 + hops)
	p.prefix[corner] = uint8(p.n + p.count)
}

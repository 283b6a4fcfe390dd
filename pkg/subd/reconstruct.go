package subd

import (
	"go.uber.org/zap"
)

// positionOf returns the deduplicated position of mesh vertex v.
// Positions are merged on exact coordinate equality.
func (c *converter) positionOf(v uint32) PositionIndex {
	if p := c.vertexPos[v]; p != NoPosition {
		return p
	}

	pos := c.mesh.Positions[v]
	p, ok := c.posLookup[pos]
	if !ok {
		p = PositionIndex(len(c.positions))
		c.positions = append(c.positions, pos)
		c.posVertex = append(c.posVertex, v)
		c.posLookup[pos] = p
		c.stats.Bounds.Extend(pos)
	}
	c.vertexPos[v] = p
	return p
}

func (c *converter) triangleCorners(t int) (pos [3]PositionIndex, verts [3]uint32) {
	for i := 0; i < 3; i++ {
		verts[i] = c.mesh.Indices[3*t+i]
		pos[i] = c.positionOf(verts[i])
	}
	return pos, verts
}

// reconstruct groups consecutive triangles of the same polygon into patches.
func (c *converter) reconstruct() {
	ids := c.mesh.PolygonIDs
	n := c.mesh.TriangleCount()

	for start := 0; start < n; {
		end := start + 1
		for end < n && ids[end] == ids[start] {
			end++
		}
		if end < n && ids[end] < ids[start] {
			c.report(MalformedInput, "polygon ids decrease",
				zap.Int("triangle", end), zap.Int32("polygon", ids[end]), zap.Int32("previous", ids[start]))
		}

		switch end - start {
		case 1:
			c.addTriangle(start)
		case 2:
			if !c.addQuad(start) {
				c.addTriangle(start)
				c.addTriangle(start + 1)
			}
		default:
			c.report(MalformedInput, "polygon has more than two triangles, emitting triangles",
				zap.Int32("polygon", ids[start]), zap.Int("triangles", end-start))
			for t := start; t < end; t++ {
				c.addTriangle(t)
			}
		}
		start = end
	}

	c.stats.Positions = len(c.positions)
}

func (c *converter) addTriangle(t int) {
	pos, verts := c.triangleCorners(t)
	p := newPatch(3)
	copy(p.corners[:], pos[:])
	copy(p.vertices[:], verts[:])
	p.polygon = c.mesh.PolygonIDs[t]
	p.subset = c.subsetIDs[t]
	c.tris = append(c.tris, p)
}

// addQuad merges triangles t and t+1 into a quad. It returns false when the
// pair does not share exactly one edge.
func (c *converter) addQuad(t int) bool {
	pa, va := c.triangleCorners(t)
	pb, vb := c.triangleCorners(t + 1)

	extra := -1
	for i, p := range pb {
		if p == pa[0] || p == pa[1] || p == pa[2] {
			continue
		}
		if extra >= 0 {
			c.report(MalformedInput, "triangle pair shares no edge",
				zap.Int32("polygon", c.mesh.PolygonIDs[t]), zap.Int("triangle", t))
			return false
		}
		extra = i
	}
	if extra < 0 {
		c.report(MalformedInput, "no fourth corner for quad",
			zap.Int32("polygon", c.mesh.PolygonIDs[t]), zap.Int("triangle", t))
		return false
	}

	// The second triangle walks the shared edge backwards; the new corner
	// goes between the edge's endpoints in the first triangle.
	after := 2
	n1 := pb[(extra+1)%3]
	n2 := pb[(extra+2)%3]
	found := false
	for i := 0; i < 3; i++ {
		if pa[i] == n2 && pa[(i+1)%3] == n1 {
			after = i
			found = true
			break
		}
	}
	if !found {
		c.report(MalformedInput, "triangle pair winding disagrees, appending fourth corner",
			zap.Int32("polygon", c.mesh.PolygonIDs[t]), zap.Int("triangle", t))
	}

	q := newPatch(4)
	for i, j := 0, 0; i < 4; i++ {
		if i == after+1 {
			q.corners[i] = pb[extra]
			q.vertices[i] = vb[extra]
			continue
		}
		q.corners[i] = pa[j]
		q.vertices[i] = va[j]
		j++
	}
	q.polygon = c.mesh.PolygonIDs[t]
	q.subset = c.subsetIDs[t]
	c.quads = append(c.quads, q)
	return true
}

package subd

// packPatches writes the live patches of ps into parallel patch data and
// index buffers. Neighbor positions are written as the mesh vertex they
// came from.
func (c *converter) packPatches(ps []patch) ([]PatchData, []PatchIndices) {
	live := 0
	for i := range ps {
		if !ps[i].degenerate {
			live++
		}
	}
	if live == 0 {
		return nil, nil
	}

	data := make([]PatchData, 0, live)
	indices := make([]PatchIndices, 0, live)
	for i := range ps {
		p := &ps[i]
		if p.degenerate {
			continue
		}

		var pd PatchData
		var idx PatchIndices
		for k := 0; k < p.n; k++ {
			pd.Valence[k] = p.valence[k]
			pd.Prefix[k] = p.prefix[k]
			idx[k] = p.vertices[k]
			c.stats.MaxValence = max(c.stats.MaxValence, int(p.valence[k]))
		}
		for k := 0; k < p.count; k++ {
			idx[p.n+k] = c.posVertex[p.neighbors[k]]
		}

		data = append(data, pd)
		indices = append(indices, idx)
	}
	return data, indices
}

func countIrregular(ps []patch) int {
	n := 0
	for i := range ps {
		if !ps[i].degenerate && ps[i].irregular() {
			n++
		}
	}
	return n
}

// serialize produces the converter output from the sorted patch arrays.
func (c *converter) serialize() *PatchMesh {
	out := &PatchMesh{}
	out.QuadPatches, out.QuadIndices = c.packPatches(c.quads)
	out.TrianglePatches, out.TriangleIndices = c.packPatches(c.tris)
	out.QuadSubsets = c.buildSubsets(c.quads, true)
	out.TriangleSubsets = c.buildSubsets(c.tris, false)

	c.stats.Quads = len(out.QuadPatches)
	c.stats.Triangles = len(out.TrianglePatches)
	c.stats.IrregularQuads = countIrregular(c.quads)
	c.stats.IrregularTris = countIrregular(c.tris)

	out.Stats = c.stats
	out.Diagnostics = c.diagnostics
	return out
}

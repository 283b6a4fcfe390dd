package subd

import (
	"sort"
)

// score orders patches material-subset-major with regular patches first.
// The irregular penalty dwarfs any realistic subset id, so every irregular
// patch sorts after every regular one; this ordering is relied on by
// existing consumers and must not change. Degenerate patches score 0.
func (p *patch) score() int {
	if p.degenerate {
		return 0
	}
	s := p.subset
	if p.irregular() {
		s += irregularPenalty
	}
	return s
}

func sortByScore(ps []patch) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].score() < ps[j].score()
	})
}

func (c *converter) sortPatches() {
	sortByScore(c.quads)
	sortByScore(c.tris)
}

// buildSubsets walks sorted patches and opens a subset whenever the
// material subset changes. Degenerate patches are skipped and do not
// advance the output offset.
func (c *converter) buildSubsets(ps []patch, quads bool) []Subset {
	var subsets []Subset
	offset := 0
	for i := range ps {
		p := &ps[i]
		if p.degenerate {
			continue
		}
		if n := len(subsets); n == 0 || subsets[n-1].MeshSubsetID != p.subset {
			subsets = append(subsets, Subset{
				Name:          c.subsetName(p.subset),
				MeshSubsetID:  p.subset,
				IsQuadPatches: quads,
				StartPatch:    offset,
			})
		}
		subsets[len(subsets)-1].PatchCount++
		offset++
	}
	return subsets
}

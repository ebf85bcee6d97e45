package gluing

import (
	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/libtri/perm"
)

// ChainCollapser searches a pairing by first searching it with its layered chains removed, then expanding
// each chain with the few permutations its facets can take on their own.
//
// A layered chain starts at a tetrahedron glued to itself along two facets, and continues through
// tetrahedra joined two facets at a time.  The results are exactly those of a direct Searcher.
type ChainCollapser struct {
	p     *pairing.FacetPairing
	opts  SearchOpts
	use   UseGluings
	s     *Searcher
	m     int     // levels of the reduced search
	cands [][]int // feasible S3 indices per chain level
	chain [][]pairing.TetFacet
}

// NewChainCollapser prepares a collapsed search of pairing p, whose automorphisms are autos.
func NewChainCollapser(p *pairing.FacetPairing, autos []pairing.Isomorphism, opts SearchOpts, use UseGluings) *ChainCollapser {
	c := &ChainCollapser{
		p:    p,
		opts: opts,
		use:  use,
	}

	skip := make(map[pairing.TetFacet]bool)
	var nested []pairing.TetFacet
	for _, links := range findChains(p) {
		seq := expansionOrder(p, links)
		c.chain = append(c.chain, seq)
		c.cands = append(c.cands, chainCandidates(p, seq, opts)...)
		nested = append(nested, seq...)
		for _, f := range seq {
			skip[f] = true
			skip[p.Dest(f)] = true
		}
	}

	order := SearchOrder(p, skip)
	c.m = len(order)
	order = append(order, nested...)

	s := newSearcher(p, autos, opts, use, order)
	s.searchLen = c.m
	s.checkCanonical = false
	s.onReached = func() { c.expand(c.m) }
	c.s = s
	return c
}

// Chains returns the chain facets in the order they are expanded, one slice per chain.
func (c *ChainCollapser) Chains() [][]pairing.TetFacet {
	return c.chain
}

// Reduced returns the pairing with every chain facet turned into boundary.
func (c *ChainCollapser) Reduced() *pairing.FacetPairing {
	q := c.p.Clone()
	for _, seq := range c.chain {
		for _, f := range seq {
			q.Unmatch(f)
		}
	}
	return q
}

// RunSearch runs the whole search; use(nil) is the last call.
func (c *ChainCollapser) RunSearch() {
	if c.m > 0 {
		c.s.RunSearch(-1)
		return
	}
	s := c.s
	s.started = true
	c.expand(0)
	s.level = -1
	c.use(nil)
}

// expand searches the chain levels from level onward on top of the reduced gluings.
func (c *ChainCollapser) expand(level int) {
	s := c.s
	if level == len(s.order) {
		saved := s.level
		s.level = level
		if s.admissible() && s.isCanonical() {
			c.use(s)
		}
		s.level = saved
		return
	}

	face := s.order[level]
	adj := c.p.Dest(face)
	oriented := c.opts.OrientableOnly
	rooted := false
	if oriented && s.orient[face.Tet] == 0 {
		s.orient[face.Tet] = 1
		rooted = true
	}
	for _, k := range c.cands[level-c.m] {
		if oriented && s.orient[adj.Tet] != 0 && s.orient[adj.Tet] != s.orientationFor(face, adj, k) {
			continue
		}
		s.permIdx[face.Index()] = k
		s.permIdx[adj.Index()] = perm.InvS3[k]
		if !s.glue(level) {
			continue
		}
		c.expand(level + 1)
		s.unglue(level)
	}
	s.permIdx[face.Index()] = -1
	s.permIdx[adj.Index()] = -1
	if rooted {
		s.orient[face.Tet] = 0
	}
}

// findChains returns the facets of each layered chain: the self-glued facet of its base, then the two
// facets leading out of each tetrahedron along the chain, then the far end's facet if the far end is
// glued to itself as well.  Chains share no tetrahedra.
func findChains(p *pairing.FacetPairing) [][]pairing.TetFacet {
	var chains [][]pairing.TetFacet
	used := make(map[int]bool)
	for base := 0; base < p.Size(); base++ {
		if used[base] {
			continue
		}
		for f := 0; f < 4; f++ {
			d := p.DestOf(base, f)
			if p.IsBoundary(d) || d.Tet != base || d.Facet <= f {
				continue
			}
			facets := []pairing.TetFacet{{Tet: base, Facet: f}}
			tets := []int{base}
			onChain := map[int]bool{base: true}
			fp := pairing.NewFacetPair(f, d.Facet).Complement()
			tet := base
			for {
				d1, d2 := p.DestOf(tet, fp.Lower), p.DestOf(tet, fp.Upper)
				if p.IsBoundary(d1) || p.IsBoundary(d2) {
					break
				}
				if d1.Tet == tet {
					if d1 == (pairing.TetFacet{Tet: tet, Facet: fp.Upper}) {
						facets = append(facets, pairing.TetFacet{Tet: tet, Facet: fp.Lower})
					}
					break
				}
				if d2.Tet != d1.Tet || onChain[d1.Tet] {
					break
				}
				facets = append(facets, pairing.TetFacet{Tet: tet, Facet: fp.Lower}, pairing.TetFacet{Tet: tet, Facet: fp.Upper})
				tet = d1.Tet
				tets = append(tets, tet)
				onChain[tet] = true
				fp = pairing.NewFacetPair(d1.Facet, d2.Facet).Complement()
			}

			disjoint := true
			for _, t := range tets {
				if used[t] {
					disjoint = false
				}
			}
			if disjoint {
				for _, t := range tets {
					used[t] = true
				}
				chains = append(chains, facets)
			}
			break
		}
	}
	return chains
}

// expansionOrder returns the chain facets in expansion order: from the far end inward, with every link
// controlled from its outer side, and the base loop last.
func expansionOrder(p *pairing.FacetPairing, chain []pairing.TetFacet) []pairing.TetFacet {
	loop, links := chain[0], chain[1:]
	var seq []pairing.TetFacet
	if len(links)%2 == 1 {
		seq = append(seq, links[len(links)-1])
		links = links[:len(links)-1]
	}
	for i := len(links) - 2; i >= 0; i -= 2 {
		seq = append(seq, p.Dest(links[i]), p.Dest(links[i+1]))
	}
	return append(seq, loop)
}

// chainCandidates returns, per chain facet, the S3 indices it takes in some admissible gluing of the chain
// facets alone.  Orientation is left to the expansion.
func chainCandidates(p *pairing.FacetPairing, seq []pairing.TetFacet, opts SearchOpts) [][]int {
	seen := make([][6]bool, len(seq))
	local := SearchOpts{
		FiniteOnly: opts.FiniteOnly,
		Oracle:     opts.Oracle,
	}
	s := newSearcher(p, nil, local, func(g Gluings) {}, seq)
	s.checkCanonical = false
	s.onReached = func() {
		for i, f := range seq {
			seen[i][s.permIdx[f.Index()]] = true
		}
	}
	s.RunSearch(-1)

	cands := make([][]int, len(seq))
	for i := range seq {
		for k := 0; k < 6; k++ {
			if seen[i][k] {
				cands[i] = append(cands[i], k)
			}
		}
	}
	return cands
}

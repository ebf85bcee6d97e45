package pairing

// FollowChain walks a layered chain starting from the given facets of tet, stepping to the next tetrahedron
// while both facets are glued to one common other tetrahedron.
//
// It returns the last tetrahedron reached and the two facets through which the chain would continue.
func (p *FacetPairing) FollowChain(tet int, facets FacetPair) (int, FacetPair) {
	for {
		d1 := p.DestOf(tet, facets.Lower)
		if p.IsBoundary(d1) || d1.Tet == tet {
			return tet, facets
		}
		d2 := p.DestOf(tet, facets.Upper)
		if p.IsBoundary(d2) || d2.Tet != d1.Tet {
			return tet, facets
		}
		tet = d1.Tet
		facets = NewFacetPair(d1.Facet, d2.Facet).Complement()
	}
}

// chainTets returns the tetrahedra of the chain whose base tetrahedron is glued to itself along facet f.
func (p *FacetPairing) chainTets(base, f int) map[int]struct{} {
	tets := map[int]struct{}{base: {}}
	facets := NewFacetPair(f, p.DestOf(base, f).Facet).Complement()
	tet := base
	for {
		d1 := p.DestOf(tet, facets.Lower)
		if p.IsBoundary(d1) || d1.Tet == tet {
			return tets
		}
		d2 := p.DestOf(tet, facets.Upper)
		if p.IsBoundary(d2) || d2.Tet != d1.Tet {
			return tets
		}
		tet = d1.Tet
		tets[tet] = struct{}{}
		facets = NewFacetPair(d1.Facet, d2.Facet).Complement()
	}
}

// selfGluedFacets calls visit(base, f) for every facet f of base glued to a later facet of base itself.
func (p *FacetPairing) selfGluedFacets(visit func(base, f int) bool) bool {
	for base := 0; base < p.size; base++ {
		for f := 0; f < 3; f++ {
			d := p.DestOf(base, f)
			if !p.IsBoundary(d) && d.Tet == base && d.Facet > f {
				if visit(base, f) {
					return true
				}
			}
		}
	}
	return false
}

// HasTripleEdge reports whether some tetrahedron has three or more facets glued to one other tetrahedron.
func (p *FacetPairing) HasTripleEdge() bool {
	for t := 0; t < p.size; t++ {
		var count [4]int
		var to [4]int
		n := 0
		for f := 0; f < 4; f++ {
			d := p.DestOf(t, f)
			if p.IsBoundary(d) || d.Tet == t {
				continue
			}
			found := false
			for i := 0; i < n; i++ {
				if to[i] == d.Tet {
					count[i]++
					found = true
					if count[i] >= 3 {
						return true
					}
				}
			}
			if !found {
				to[n] = d.Tet
				count[n] = 1
				n++
			}
		}
	}
	return false
}

// HasBrokenDoubleEndedChain reports whether the pairing contains two one-ended chains whose far ends meet
// one common tetrahedron without closing into a double-ended chain.
func (p *FacetPairing) HasBrokenDoubleEndedChain() bool {
	return p.selfGluedFacets(p.brokenChainFrom)
}

func (p *FacetPairing) brokenChainFrom(base, f int) bool {
	end, fp := p.FollowChain(base, NewFacetPair(f, p.DestOf(base, f).Facet).Complement())

	for _, xy := range [2][2]int{{fp.Lower, fp.Upper}, {fp.Upper, fp.Lower}} {
		x, y := xy[0], xy[1]
		d := p.DestOf(end, x)
		if p.IsBoundary(d) || d.Tet == end {
			continue
		}
		t2 := d.Tet
		for g := 0; g < 4; g++ {
			if g == d.Facet {
				continue
			}
			end2, q := p.FollowChain(t2, NewFacetPair(d.Facet, g).Complement())
			if p.DestOf(end2, q.Lower) != (TetFacet{end2, q.Upper}) {
				continue
			}
			if p.DestOf(end, y) == (TetFacet{t2, g}) {
				continue
			}
			if !disjoint(p.chainTets(base, f), p.chainTets(end2, q.Lower)) {
				continue
			}
			return true
		}
	}
	return false
}

// HasOneEndedChainWithDoubleHandle reports whether a one-ended chain ends on two distinct tetrahedra that are
// themselves joined along two further facets.
func (p *FacetPairing) HasOneEndedChainWithDoubleHandle() bool {
	return p.selfGluedFacets(func(base, f int) bool {
		end, fp := p.FollowChain(base, NewFacetPair(f, p.DestOf(base, f).Facet).Complement())
		d1 := p.DestOf(end, fp.Lower)
		d2 := p.DestOf(end, fp.Upper)
		if p.IsBoundary(d1) || p.IsBoundary(d2) {
			return false
		}
		if d1.Tet == end || d2.Tet == end || d1.Tet == d2.Tet {
			return false
		}
		count := 0
		for g := 0; g < 4; g++ {
			if g == d1.Facet {
				continue
			}
			d := p.DestOf(d1.Tet, g)
			if !p.IsBoundary(d) && d.Tet == d2.Tet {
				count++
			}
		}
		return count >= 2
	})
}

func disjoint(a, b map[int]struct{}) bool {
	for t := range a {
		if _, exists := b[t]; exists {
			return false
		}
	}
	return true
}

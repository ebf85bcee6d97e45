package pairing

import (
	"github.com/fine-structures/tricensus/tri3"
)

// UseFacetPairing receives each generated pairing with its automorphisms.
// A final call with (nil, nil) marks the end of generation.
type UseFacetPairing func(p *FacetPairing, autos []Isomorphism)

// FindAllPairings generates every connected canonical pairing of nTets tetrahedra, once per isomorphism class.
//
// boundary states whether closed (BoolFalse) and / or bounded (BoolTrue) pairings are wanted.  If bounded pairings
// are allowed, nBdryFacets >= 0 asks for exactly that many boundary facets and nBdryFacets < 0 allows any number.
//
// If newThread is set, generation runs on its own goroutine and FindAllPairings returns immediately.
// Parameters that admit no pairing (no tetrahedra, an odd or unattainable facet count) yield only the final
// (nil, nil) call, and false is returned.
func FindAllPairings(nTets int, boundary tri3.BoolSet, nBdryFacets int, use UseFacetPairing, newThread bool) bool {
	gen := &pairingGen{
		allowClosed: boundary.HasFalse(),
		allowBdry:   boundary.HasTrue(),
		nBdry:       nBdryFacets,
		use:         use,
	}
	if !gen.attainable(nTets) {
		if newThread {
			go use(nil, nil)
		} else {
			use(nil, nil)
		}
		return false
	}

	gen.p = NewFacetPairing(nTets)
	if newThread {
		go gen.run()
	} else {
		gen.run()
	}
	return true
}

type pairingGen struct {
	p           *FacetPairing
	allowClosed bool
	allowBdry   bool
	nBdry       int
	use         UseFacetPairing
}

func (gen *pairingGen) attainable(nTets int) bool {
	if nTets <= 0 || nTets > tri3.MaxTets {
		return false
	}
	if !gen.allowClosed && !gen.allowBdry {
		return false
	}
	if gen.allowBdry && gen.nBdry >= 0 {
		if gen.nBdry%2 == 1 || gen.nBdry > 2*nTets+2 {
			return false
		}
		if gen.nBdry == 0 && !gen.allowClosed {
			return false
		}
	}
	return true
}

func (gen *pairingGen) run() {
	gen.extend(0, 1, 0)
	gen.use(nil, nil)
}

// extend decides facet pos onwards; tetrahedra 0..reached-1 are connected to tetrahedron 0 so far.
//
// Destinations within a tetrahedron are chosen in non-decreasing order and new tetrahedra are entered through
// facet 0 in order, so only candidates of canonical form are built.
func (gen *pairingGen) extend(pos, reached, nBdry int) {
	p := gen.p
	N := len(p.dest)
	for pos < N && p.dest[pos] != FacetAt(pos) {
		pos++
	}
	if pos == N {
		if reached < p.size {
			return
		}
		if nBdry == 0 && !gen.allowClosed {
			return
		}
		if nBdry > 0 && !gen.allowBdry {
			return
		}
		if gen.allowBdry && gen.nBdry >= 0 && nBdry != gen.nBdry {
			return
		}
		if canonical, autos := p.IsCanonical(); canonical {
			gen.use(p.Clone(), autos)
		}
		return
	}

	f := FacetAt(pos)
	if f.Tet >= reached {
		return // disconnected
	}

	var prev TetFacet
	hasPrev := f.Facet > 0
	if hasPrev {
		prev = p.dest[pos-1]
	}

	// Glue to a later undecided facet of a reached tetrahedron
	for g := pos + 1; g < 4*reached; g++ {
		if p.dest[g] != FacetAt(g) {
			continue
		}
		dst := FacetAt(g)
		if hasPrev && dst.Compare(prev) < 0 {
			continue
		}
		p.Match(f, dst)
		gen.extend(pos+1, reached, nBdry)
		p.dest[pos] = f
		p.dest[g] = dst
	}

	// Glue to a new tetrahedron
	if reached < p.size {
		dst := TetFacet{reached, 0}
		if !hasPrev || dst.Compare(prev) >= 0 {
			p.Match(f, dst)
			gen.extend(pos+1, reached+1, nBdry)
			p.dest[pos] = f
			p.dest[dst.Index()] = dst
		}
	}

	// Leave as boundary
	if gen.allowBdry && (gen.nBdry < 0 || nBdry < gen.nBdry) {
		p.dest[pos] = p.Boundary()
		gen.extend(pos+1, reached, nBdry+1)
		p.dest[pos] = f
	}
}

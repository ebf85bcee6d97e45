package pairing

import (
	"fmt"

	"github.com/fine-structures/tricensus/libtri/perm"
)

// TetFacet names facet Facet (0..3, opposite vertex Facet) of tetrahedron Tet.
//
// For a pairing of N tetrahedra, (N, 0) is the boundary sentinel and sorts after every real facet.
type TetFacet struct {
	Tet   int
	Facet int
}

// FacetAt returns the facet with the given flat index 4*Tet+Facet.
func FacetAt(idx int) TetFacet {
	return TetFacet{idx >> 2, idx & 3}
}

func (f TetFacet) Index() int {
	return 4*f.Tet + f.Facet
}

func (f TetFacet) Compare(g TetFacet) int {
	switch {
	case f.Tet < g.Tet:
		return -1
	case f.Tet > g.Tet:
		return 1
	case f.Facet < g.Facet:
		return -1
	case f.Facet > g.Facet:
		return 1
	}
	return 0
}

func (f TetFacet) String() string {
	return fmt.Sprintf("%d:%d", f.Tet, f.Facet)
}

// FacetPair is an unordered pair of distinct facets of one tetrahedron, held with Lower < Upper.
type FacetPair struct {
	Lower, Upper int
}

func NewFacetPair(a, b int) FacetPair {
	if a > b {
		a, b = b, a
	}
	return FacetPair{a, b}
}

// Complement returns the two facets not in fp.
func (fp FacetPair) Complement() FacetPair {
	var out [2]int
	n := 0
	for i := 0; i < 4; i++ {
		if i != fp.Lower && i != fp.Upper {
			out[n] = i
			n++
		}
	}
	return FacetPair{out[0], out[1]}
}

// FacetPairing matches the 4N facets of N tetrahedra in pairs, leaving the rest as boundary.
//
// A facet whose destination is itself is undecided; this only occurs while a pairing is being built.
type FacetPairing struct {
	size int
	dest []TetFacet
}

// NewFacetPairing returns a pairing of nTets tetrahedra with every facet undecided.
func NewFacetPairing(nTets int) *FacetPairing {
	p := &FacetPairing{
		size: nTets,
		dest: make([]TetFacet, 4*nTets),
	}
	for i := range p.dest {
		p.dest[i] = FacetAt(i)
	}
	return p
}

// Size returns the number of tetrahedra.
func (p *FacetPairing) Size() int {
	return p.size
}

// Boundary returns the boundary sentinel (Size(), 0).
func (p *FacetPairing) Boundary() TetFacet {
	return TetFacet{p.size, 0}
}

func (p *FacetPairing) Dest(f TetFacet) TetFacet {
	return p.dest[f.Index()]
}

func (p *FacetPairing) DestOf(tet, facet int) TetFacet {
	return p.dest[4*tet+facet]
}

// IsBoundaryFacet reports whether f is left unmatched.
func (p *FacetPairing) IsBoundaryFacet(f TetFacet) bool {
	return p.dest[f.Index()].Tet == p.size
}

// IsBoundary reports whether f is the boundary sentinel of this pairing.
func (p *FacetPairing) IsBoundary(f TetFacet) bool {
	return f.Tet == p.size
}

// IsDecided reports whether f has been matched or marked as boundary.
func (p *FacetPairing) IsDecided(f TetFacet) bool {
	return p.dest[f.Index()] != f
}

// Match glues facets f and g to each other.
func (p *FacetPairing) Match(f, g TetFacet) {
	p.dest[f.Index()] = g
	p.dest[g.Index()] = f
}

// Unmatch turns f, and its partner if it has one, into boundary facets.
func (p *FacetPairing) Unmatch(f TetFacet) {
	d := p.dest[f.Index()]
	if d.Tet < p.size && d != f {
		p.dest[d.Index()] = p.Boundary()
	}
	p.dest[f.Index()] = p.Boundary()
}

func (p *FacetPairing) Clone() *FacetPairing {
	q := &FacetPairing{
		size: p.size,
		dest: make([]TetFacet, len(p.dest)),
	}
	copy(q.dest, p.dest)
	return q
}

func (p *FacetPairing) Equal(q *FacetPairing) bool {
	if p.size != q.size {
		return false
	}
	for i, d := range p.dest {
		if q.dest[i] != d {
			return false
		}
	}
	return true
}

// Compare orders pairings of equal size by their destination sequences.
func (p *FacetPairing) Compare(q *FacetPairing) int {
	if p.size != q.size {
		return p.size - q.size
	}
	for i, d := range p.dest {
		if c := d.Compare(q.dest[i]); c != 0 {
			return c
		}
	}
	return 0
}

func (p *FacetPairing) NumBoundaryFacets() int {
	count := 0
	for _, d := range p.dest {
		if d.Tet == p.size {
			count++
		}
	}
	return count
}

func (p *FacetPairing) IsClosed() bool {
	return p.NumBoundaryFacets() == 0
}

// IsLesser reports whether f is matched and precedes its partner, i.e. f is the facet that carries the pair's gluing.
func (p *FacetPairing) IsLesser(f TetFacet) bool {
	d := p.dest[f.Index()]
	return d.Tet < p.size && f.Compare(d) < 0
}

// Isomorphism relabels tetrahedra and, within each tetrahedron, its facets (equivalently its vertices).
type Isomorphism struct {
	TetImage  []int
	FacetPerm []perm.Perm4
}

// IdentityIsomorphism returns the identity relabelling of nTets tetrahedra.
func IdentityIsomorphism(nTets int) Isomorphism {
	iso := Isomorphism{
		TetImage:  make([]int, nTets),
		FacetPerm: make([]perm.Perm4, nTets),
	}
	for i := range iso.TetImage {
		iso.TetImage[i] = i
		iso.FacetPerm[i] = perm.Identity
	}
	return iso
}

func (iso Isomorphism) Size() int {
	return len(iso.TetImage)
}

// Apply returns the image of f; the boundary sentinel maps to itself.
func (iso Isomorphism) Apply(f TetFacet) TetFacet {
	if f.Tet >= len(iso.TetImage) {
		return f
	}
	return TetFacet{iso.TetImage[f.Tet], iso.FacetPerm[f.Tet].Apply(f.Facet)}
}

func (iso Isomorphism) Inverse() Isomorphism {
	inv := Isomorphism{
		TetImage:  make([]int, len(iso.TetImage)),
		FacetPerm: make([]perm.Perm4, len(iso.TetImage)),
	}
	for t, img := range iso.TetImage {
		inv.TetImage[img] = t
		inv.FacetPerm[img] = iso.FacetPerm[t].Inverse()
	}
	return inv
}

func (iso Isomorphism) IsIdentity() bool {
	for t, img := range iso.TetImage {
		if img != t || iso.FacetPerm[t] != perm.Identity {
			return false
		}
	}
	return true
}

// ApplyTo returns the pairing obtained by relabelling p with iso.
func (iso Isomorphism) ApplyTo(p *FacetPairing) *FacetPairing {
	q := NewFacetPairing(p.size)
	for i, d := range p.dest {
		q.dest[iso.Apply(FacetAt(i)).Index()] = iso.Apply(d)
	}
	return q
}

// Package triang holds completed 3-dimensional triangulations and the properties a census reports about them.
package triang

import (
	"sort"
	"sync"

	"github.com/fine-structures/tricensus/libtri/linktrack"
	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/libtri/perm"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
)

// GluingSource supplies the gluings of a completed search.
type GluingSource interface {
	Pairing() *pairing.FacetPairing
	GluingPerm(f pairing.TetFacet) perm.Perm4
}

// Triangulation is a set of tetrahedra with some facets glued in pairs.
//
// Facet f of tetrahedron t is glued to facet gluing[t][f] of tetrahedron adj[t][f], with vertex v of t
// identified with vertex gluing[t][f][v] of the other tetrahedron.  adj is -1 for boundary facets.
type Triangulation struct {
	nTets  int
	adj    [][4]int
	gluing [][4]perm.Perm4

	analysed bool
	info     tri3.TriInfo
	degrees  []int // degree per edge class
	isoSig   string
}

var triPool = sync.Pool{
	New: func() interface{} {
		return new(Triangulation)
	},
}

// New returns nTets tetrahedra with every facet on the boundary.
func New(nTets int) *Triangulation {
	X := triPool.Get().(*Triangulation)
	X.init(nTets)
	return X
}

func (X *Triangulation) init(nTets int) {
	X.nTets = nTets
	if cap(X.adj) < nTets {
		X.adj = make([][4]int, nTets)
		X.gluing = make([][4]perm.Perm4, nTets)
	}
	X.adj = X.adj[:nTets]
	X.gluing = X.gluing[:nTets]
	for t := range X.adj {
		X.adj[t] = [4]int{-1, -1, -1, -1}
		X.gluing[t] = [4]perm.Perm4{perm.Identity, perm.Identity, perm.Identity, perm.Identity}
	}
	X.invalidate()
}

func (X *Triangulation) invalidate() {
	X.analysed = false
	X.isoSig = ""
	X.degrees = X.degrees[:0]
}

// FromGluings builds the triangulation described by a completed gluing search.
func FromGluings(src GluingSource) *Triangulation {
	p := src.Pairing()
	X := New(p.Size())
	for i := 0; i < 4*p.Size(); i++ {
		f := pairing.FacetAt(i)
		if p.IsBoundaryFacet(f) {
			continue
		}
		d := p.Dest(f)
		X.adj[f.Tet][f.Facet] = d.Tet
		X.gluing[f.Tet][f.Facet] = src.GluingPerm(f)
	}
	return X
}

// Join glues facet f of tetrahedron tet to the facet of tetrahedron other given by g.Apply(f).
func (X *Triangulation) Join(tet, f, other int, g perm.Perm4) error {
	if tet < 0 || tet >= X.nTets || other < 0 || other >= X.nTets || f < 0 || f > 3 || !g.IsValid() {
		return errors.Wrapf(tri3.ErrBadGluing, "%d:%d -> %d via %v", tet, f, other, g)
	}
	f2 := g.Apply(f)
	if tet == other && f2 == f {
		return errors.Wrapf(tri3.ErrBadGluing, "%d:%d glued to itself", tet, f)
	}
	if X.adj[tet][f] >= 0 || X.adj[other][f2] >= 0 {
		return errors.Wrapf(tri3.ErrBadGluing, "%d:%d or %d:%d is already glued", tet, f, other, f2)
	}
	X.adj[tet][f] = other
	X.gluing[tet][f] = g
	X.adj[other][f2] = tet
	X.gluing[other][f2] = g.Inverse()
	X.invalidate()
	return nil
}

func (X *Triangulation) NumTets() int {
	return X.nTets
}

// Adjacent returns the tetrahedron glued to facet f of tet, or -1, and the gluing permutation.
func (X *Triangulation) Adjacent(tet, f int) (int, perm.Perm4) {
	return X.adj[tet][f], X.gluing[tet][f]
}

// Pairing returns the facet pairing underlying X.
func (X *Triangulation) Pairing() *pairing.FacetPairing {
	p := pairing.NewFacetPairing(X.nTets)
	for t := range X.adj {
		for f := 0; f < 4; f++ {
			src := pairing.TetFacet{Tet: t, Facet: f}
			if X.adj[t][f] < 0 {
				p.Unmatch(src)
			} else {
				p.Match(src, pairing.TetFacet{Tet: X.adj[t][f], Facet: X.gluing[t][f].Apply(f)})
			}
		}
	}
	return p
}

func (X *Triangulation) GluingPerm(f pairing.TetFacet) perm.Perm4 {
	return X.gluing[f.Tet][f.Facet]
}

func (X *Triangulation) Info() tri3.TriInfo {
	X.analyse()
	return X.info
}

func (X *Triangulation) IsValid() bool {
	return X.Info().Valid
}

func (X *Triangulation) IsFinite() bool {
	return X.Info().Finite
}

func (X *Triangulation) IsOrientable() bool {
	return X.Info().Orientable
}

func (X *Triangulation) IsClosed() bool {
	return X.Info().Closed
}

func (X *Triangulation) NumVertices() int {
	return X.Info().NumVertices
}

func (X *Triangulation) NumEdges() int {
	return X.Info().NumEdges
}

// EdgeDegrees returns the degree of every edge class, in ascending order.
func (X *Triangulation) EdgeDegrees() []int {
	X.analyse()
	return append([]int(nil), X.degrees...)
}

// Relabel returns a copy of X in which tetrahedron t becomes tetPerm[t] and its vertex v becomes vtxPerms[t][v].
func (X *Triangulation) Relabel(tetPerm []int, vtxPerms []perm.Perm4) *Triangulation {
	Y := New(X.nTets)
	for t := range X.adj {
		nt := tetPerm[t]
		for f := 0; f < 4; f++ {
			nf := vtxPerms[t].Apply(f)
			u := X.adj[t][f]
			if u < 0 {
				continue
			}
			Y.adj[nt][nf] = tetPerm[u]
			Y.gluing[nt][nf] = vtxPerms[u].Compose(X.gluing[t][f]).Compose(vtxPerms[t].Inverse())
		}
	}
	return Y
}

func (X *Triangulation) MakeCopy() tri3.TriState {
	return X.Clone()
}

func (X *Triangulation) Clone() *Triangulation {
	Y := New(X.nTets)
	copy(Y.adj, X.adj)
	copy(Y.gluing, X.gluing)
	return Y
}

func (X *Triangulation) Reclaim() {
	if X != nil {
		triPool.Put(X)
	}
}

// unionFind is a plain forest with path halving, for one-off analysis.
type unionFind []int

func newUnionFind(n int) unionFind {
	uf := make(unionFind, n)
	for i := range uf {
		uf[i] = i
	}
	return uf
}

func (uf unionFind) find(i int) int {
	for uf[i] != i {
		uf[i] = uf[uf[i]]
		i = uf[i]
	}
	return i
}

func (uf unionFind) union(a, b int) bool {
	a, b = uf.find(a), uf.find(b)
	if a == b {
		return false
	}
	uf[a] = b
	return true
}

// analyse computes vertex, edge and orientation data.
//
// A vertex link has one triangle per corner.  Its Euler characteristic is V - E + F with F the corner
// count, E = (3F + boundary)/2 and V the number of distinct edge ends meeting the vertex.  A link with
// boundary must be a disc (chi 1), a closed link other than a sphere makes the vertex ideal.
func (X *Triangulation) analyse() {
	if X.analysed {
		return
	}
	X.analysed = true
	n := X.nTets

	corners := newUnionFind(4 * n)
	ends := newUnionFind(16 * n) // directed edge end (t, v, u): the end at v of edge vu
	edges := newUnionFind(6 * n)
	nBdry := 0
	for t := 0; t < n; t++ {
		for f := 0; f < 4; f++ {
			u := X.adj[t][f]
			if u < 0 {
				nBdry++
				continue
			}
			g := X.gluing[t][f]
			for v := 0; v < 4; v++ {
				if v == f {
					continue
				}
				corners.union(4*t+v, 4*u+g.Apply(v))
				for w := 0; w < 4; w++ {
					if w == f || w == v {
						continue
					}
					ends.union(16*t+4*v+w, 16*u+4*g.Apply(v)+g.Apply(w))
					if v < w {
						edges.union(6*t+linktrack.EdgeNumber[v][w], 6*u+linktrack.EdgeNumber[g.Apply(v)][g.Apply(w)])
					}
				}
			}
		}
	}

	info := tri3.TriInfo{
		NumTets:       n,
		NumBdryFacets: nBdry,
		Closed:        nBdry == 0,
		Valid:         true,
		Finite:        true,
	}

	// edges
	degree := make(map[int]int)
	for t := 0; t < n; t++ {
		for e := 0; e < 6; e++ {
			degree[edges.find(6*t+e)]++
			a, b := linktrack.EdgeVertices[e][0], linktrack.EdgeVertices[e][1]
			if ends.find(16*t+4*a+b) == ends.find(16*t+4*b+a) {
				info.Valid = false
			}
		}
	}
	X.degrees = X.degrees[:0]
	for _, d := range degree {
		X.degrees = append(X.degrees, d)
	}
	sort.Ints(X.degrees)
	info.NumEdges = len(X.degrees)
	if len(X.degrees) > 0 {
		info.MinEdgeDegree = X.degrees[0]
		info.MaxEdgeDegree = X.degrees[len(X.degrees)-1]
	}

	// vertex links
	type linkCount struct {
		F, bdry int
		ends    map[int]struct{}
	}
	links := make(map[int]*linkCount)
	for t := 0; t < n; t++ {
		for v := 0; v < 4; v++ {
			r := corners.find(4*t + v)
			lc := links[r]
			if lc == nil {
				lc = &linkCount{ends: make(map[int]struct{})}
				links[r] = lc
			}
			lc.F++
			for f := 0; f < 4; f++ {
				if f != v && X.adj[t][f] < 0 {
					lc.bdry++
				}
			}
			for u := 0; u < 4; u++ {
				if u != v {
					lc.ends[ends.find(16*t+4*v+u)] = struct{}{}
				}
			}
		}
	}
	info.NumVertices = len(links)
	for _, lc := range links {
		E := (3*lc.F + lc.bdry) / 2
		chi := len(lc.ends) - E + lc.F
		if lc.bdry == 0 {
			if chi != 2 {
				info.Finite = false
			}
		} else if chi != 1 {
			info.Valid = false
		}
	}

	info.Orientable = X.orientable()
	X.info = info
}

// orientable assigns signs to tetrahedra across every gluing and reports whether no conflict arises.
func (X *Triangulation) orientable() bool {
	orient := make([]int, X.nTets)
	var stack []int
	for start := 0; start < X.nTets; start++ {
		if orient[start] != 0 {
			continue
		}
		orient[start] = 1
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			t := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for f := 0; f < 4; f++ {
				u := X.adj[t][f]
				if u < 0 {
					continue
				}
				want := -orient[t]
				if X.gluing[t][f].Sign() < 0 {
					want = orient[t]
				}
				if orient[u] == 0 {
					orient[u] = want
					stack = append(stack, u)
				} else if orient[u] != want {
					return false
				}
			}
		}
	}
	return true
}

// Package gluing searches the gluing permutations of a fixed facet pairing for admissible triangulations.
//
// The search assigns one of the six permutations of S3 to each matched facet pair in a fixed order,
// pruning as soon as an edge is identified with itself in reverse or a vertex link can no longer be a
// sphere or disc.  Only gluing sets that are lexicographically least under the pairing's automorphisms
// are reported, so each triangulation is found once per isomorphism class.
package gluing

import (
	"github.com/fine-structures/tricensus/libtri/linktrack"
	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/libtri/perm"
	"github.com/fine-structures/tricensus/libtri/triang"
)

// DebugChecks enables internal consistency panics, e.g. that a full search unwinds every class.
var DebugChecks = false

// PurgeFlags select classes of triangulations that may be dropped from the results.
type PurgeFlags uint8

const (
	PurgeNonMinimal      PurgeFlags = 1 // not minimal: can be reduced by a 3-2 move or by a low-degree edge
	PurgeNonPrime        PurgeFlags = 2 // not prime
	PurgeNonMinimalPrime            = PurgeNonMinimal | PurgeNonPrime
	PurgeP2Reducible     PurgeFlags = 4 // contains an embedded two-sided projective plane
)

// Oracle selects how partial gluings are judged.
type Oracle uint8

const (
	// LinkOracle prunes with edge and vertex link tracking as gluings are made.
	LinkOracle Oracle = iota

	// CompletionOracle prunes nothing and judges only completed triangulations.
	CompletionOracle
)

// SearchOpts constrains a gluing search.
type SearchOpts struct {
	OrientableOnly bool       // only orientable triangulations
	FiniteOnly     bool       // no ideal vertices
	Purge          PurgeFlags // classes that may be dropped
	Oracle         Oracle
}

// Gluings is a full or partial assignment of gluing permutations to a facet pairing.
type Gluings interface {
	Pairing() *pairing.FacetPairing

	// PermIndex returns the S3 index assigned to matched facet f, or a negative value if none is assigned yet.
	PermIndex(f pairing.TetFacet) int

	// GluingPerm returns the permutation mapping the vertices of f's tetrahedron to those of its partner's.
	GluingPerm(f pairing.TetFacet) perm.Perm4

	// IsComplete reports whether every matched facet has a permutation.
	IsComplete() bool

	// Depth returns how many facet pairs have been assigned.
	Depth() int
}

// UseGluings receives each accepted or partial result; a final nil marks the end of RunSearch.
//
// The Gluings passed is only valid during the call.
type UseGluings func(g Gluings)

// Searcher walks the gluing permutations of one pairing.
type Searcher struct {
	p     *pairing.FacetPairing
	autos []pairing.Isomorphism
	opts  SearchOpts
	use   UseGluings

	order     []pairing.TetFacet // controlling facet of each matched pair
	searchLen int                // levels run by the main loop; the rest are expanded by onReached
	permIdx   []int              // per facet; -1 unset, -2 / -1 before the first parity-matched value
	orient    []int8             // per tetrahedron: 0 unknown, else +1 / -1
	claim     []int              // per level: tetrahedron whose orientation this level fixed, or -1
	root      []int              // per level: tetrahedron this level oriented from scratch, or -1

	trk       *linktrack.Tracker
	edgeUndo  []linktrack.Undo
	vtxUndo   []linktrack.Undo
	trackEdge bool
	trackVtx  bool
	purgeLow  bool // edges of degree 1 or 2 may be pruned

	level   int
	started bool

	checkCanonical bool
	onReached      func() // called instead of accept when level reaches searchLen < len(order)
}

// NewSearcher prepares a search of pairing p, whose automorphisms are autos.
func NewSearcher(p *pairing.FacetPairing, autos []pairing.Isomorphism, opts SearchOpts, use UseGluings) *Searcher {
	return newSearcher(p, autos, opts, use, SearchOrder(p, nil))
}

func newSearcher(p *pairing.FacetPairing, autos []pairing.Isomorphism, opts SearchOpts, use UseGluings, order []pairing.TetFacet) *Searcher {
	n := p.Size()
	s := &Searcher{
		p:              p,
		autos:          autos,
		opts:           opts,
		use:            use,
		order:          order,
		searchLen:      len(order),
		permIdx:        make([]int, 4*n),
		orient:         make([]int8, n),
		claim:          make([]int, len(order)+1),
		root:           make([]int, len(order)+1),
		edgeUndo:       make([]linktrack.Undo, len(order)),
		vtxUndo:        make([]linktrack.Undo, len(order)),
		trackEdge:      opts.Oracle == LinkOracle,
		checkCanonical: true,
	}
	s.trackVtx = s.trackEdge && opts.FiniteOnly
	s.purgeLow = s.trackEdge &&
		opts.Purge&PurgeNonMinimalPrime == PurgeNonMinimalPrime &&
		opts.FiniteOnly && p.IsClosed() && n >= 3 &&
		(opts.OrientableOnly || opts.Purge&PurgeP2Reducible != 0)
	if s.trackEdge {
		s.trk = linktrack.New(n)
	}
	for i := range s.permIdx {
		s.permIdx[i] = -1
	}
	for i := range s.claim {
		s.claim[i] = -1
		s.root[i] = -1
	}
	return s
}

// SearchOrder lists the controlling facet of every matched pair not in skip.
//
// Pairs are taken breadth first: the next pair is the first (by lesser facet) with an end in an already
// reached tetrahedron, and that end controls it.  A canonical pairing yields its lesser facets in order.
func SearchOrder(p *pairing.FacetPairing, skip map[pairing.TetFacet]bool) []pairing.TetFacet {
	type facetPair struct {
		lo, hi pairing.TetFacet
	}
	var left []facetPair
	for i := 0; i < 4*p.Size(); i++ {
		f := pairing.FacetAt(i)
		if p.IsLesser(f) && !skip[f] {
			left = append(left, facetPair{f, p.Dest(f)})
		}
	}

	reached := make([]bool, p.Size())
	order := make([]pairing.TetFacet, 0, len(left))
	for len(left) > 0 {
		pick, ctrl := -1, pairing.TetFacet{}
		for i, fp := range left {
			if reached[fp.lo.Tet] {
				pick, ctrl = i, fp.lo
				break
			}
			if reached[fp.hi.Tet] {
				pick, ctrl = i, fp.hi
				break
			}
		}
		if pick < 0 {
			pick, ctrl = 0, left[0].lo
		}
		fp := left[pick]
		left = append(left[:pick], left[pick+1:]...)
		order = append(order, ctrl)
		reached[fp.lo.Tet] = true
		reached[fp.hi.Tet] = true
	}
	return order
}

func (s *Searcher) Pairing() *pairing.FacetPairing {
	return s.p
}

func (s *Searcher) Automorphisms() []pairing.Isomorphism {
	return s.autos
}

func (s *Searcher) Opts() SearchOpts {
	return s.opts
}

func (s *Searcher) PermIndex(f pairing.TetFacet) int {
	return s.permIdx[f.Index()]
}

func (s *Searcher) GluingPerm(f pairing.TetFacet) perm.Perm4 {
	d := s.p.Dest(f)
	return perm.Transposition(d.Facet, 3).Compose(perm.S3[s.permIdx[f.Index()]]).Compose(perm.Transposition(f.Facet, 3))
}

func (s *Searcher) IsComplete() bool {
	for _, f := range s.order {
		if s.permIdx[f.Index()] < 0 {
			return false
		}
	}
	return true
}

func (s *Searcher) Depth() int {
	return s.level
}

// Order returns the controlling facets in search order.
func (s *Searcher) Order() []pairing.TetFacet {
	return s.order
}

// Triangulation builds the triangulation of a complete assignment.
func (s *Searcher) Triangulation() *triang.Triangulation {
	return triang.FromGluings(s)
}

// searchStep names the transitions of the search loop.
type searchStep uint8

const (
	stepAdvance   searchStep = iota // move to the next permutation at the current level
	stepTryNext                     // glue the current permutation and test it
	stepBacktrack                   // the current level is exhausted
	stepAccept                      // every level in range is glued
)

// RunSearch continues the search from its current state.
//
// maxDepth < 0 searches to completion.  maxDepth == 0 passes the current state to use at once.  Otherwise,
// whenever maxDepth further levels have been glued, the partial state is passed to use and the search
// backtracks, so that each partial state can be suspended with DumpState and finished elsewhere.
// use(nil) is always the last call.
func (s *Searcher) RunSearch(maxDepth int) {
	defer s.use(nil)

	if !s.started {
		s.started = true
		s.level = 0
		if len(s.order) == 0 {
			s.accept()
			s.level = -1
			return
		}
		s.initLevel(0)
	} else if s.level < 0 {
		return
	} else if s.level >= s.searchLen {
		// a suspended state that was already complete
		s.accept()
		return
	}

	if maxDepth == 0 {
		s.use(s)
		return
	}

	minLevel := s.level
	maxLevel := s.searchLen + 1
	if maxDepth > 0 {
		maxLevel = s.level + maxDepth
	}

	step := stepAdvance
	for s.level >= minLevel {
		switch step {
		case stepAdvance:
			if s.advance() {
				step = stepTryNext
			} else {
				step = stepBacktrack
			}

		case stepTryNext:
			step = stepAdvance
			if !s.glue(s.level) {
				break
			}
			s.level++
			switch {
			case s.level == s.searchLen:
				step = stepAccept
			default:
				s.initLevel(s.level)
				if s.level == maxLevel {
					s.use(s)
					s.clearLevel(s.level)
					s.retreat()
				}
			}

		case stepAccept:
			if s.onReached != nil {
				s.onReached()
			} else {
				s.accept()
			}
			s.retreat()
			step = stepAdvance

		case stepBacktrack:
			s.clearLevel(s.level)
			s.level--
			if s.level >= minLevel {
				s.unglue(s.level)
			}
			step = stepAdvance
		}
	}

	if DebugChecks && minLevel == 0 && s.trk != nil && !s.trk.IsPristine() {
		panic("gluing: link tracker not unwound after a full search")
	}
}

// initLevel fixes orientation state on first arrival at a level.
func (s *Searcher) initLevel(level int) {
	face := s.order[level]
	adj := s.p.Dest(face)
	if !s.opts.OrientableOnly {
		return
	}
	if s.orient[face.Tet] == 0 {
		s.orient[face.Tet] = 1
		s.root[level] = face.Tet
	}
	if s.orient[adj.Tet] != 0 {
		// start one below the first permutation whose parity matches the two orientations
		k := 0
		if s.orient[face.Tet] == s.orient[adj.Tet] {
			k = 1
		}
		if (face.Facet != 3) != (adj.Facet != 3) {
			k ^= 1
		}
		s.permIdx[face.Index()] = k - 2
	}
}

// clearLevel resets the permutation and any orientation root of a level.
func (s *Searcher) clearLevel(level int) {
	face := s.order[level]
	s.permIdx[face.Index()] = -1
	s.permIdx[s.p.Dest(face).Index()] = -1
	if t := s.root[level]; t >= 0 {
		s.orient[t] = 0
		s.root[level] = -1
	}
}

// advance steps the permutation at the current level, reporting false once all are tried.
func (s *Searcher) advance() bool {
	face := s.order[s.level]
	adj := s.p.Dest(face)
	fi := face.Index()
	if s.opts.OrientableOnly && s.orient[adj.Tet] != 0 {
		s.permIdx[fi] += 2
	} else {
		s.permIdx[fi]++
	}
	if s.permIdx[fi] >= 6 {
		return false
	}
	s.permIdx[adj.Index()] = perm.InvS3[s.permIdx[fi]]
	return true
}

// orientationFor returns the sign adj's tetrahedron must have if face is glued with S3 index k.
func (s *Searcher) orientationFor(face, adj pairing.TetFacet, k int) int8 {
	parity := k
	if face.Facet != 3 {
		parity++
	}
	if adj.Facet != 3 {
		parity++
	}
	if parity%2 == 0 {
		return -s.orient[face.Tet]
	}
	return s.orient[face.Tet]
}

// glue merges the classes of the permutation installed at level, claiming an orientation if needed.
// It returns false, with nothing merged, if the gluing is rejected.
func (s *Searcher) glue(level int) bool {
	face := s.order[level]
	adj := s.p.Dest(face)

	if s.trackEdge {
		g := s.GluingPerm(face)
		eu, es := s.trk.MergeEdges(face, adj, g)
		if es&linktrack.EdgeTwisted != 0 || s.purgeEdges(es) {
			s.trk.Split(eu)
			return false
		}
		s.edgeUndo[level] = eu
		if s.trackVtx {
			vu, ls := s.trk.MergeVertices(face, adj, g)
			if ls&linktrack.LinkNonSphere != 0 {
				s.trk.Split(vu)
				s.trk.Split(eu)
				return false
			}
			s.vtxUndo[level] = vu
		}
	}

	if s.opts.OrientableOnly && s.orient[adj.Tet] == 0 {
		s.claim[level] = adj.Tet
		s.orient[adj.Tet] = s.orientationFor(face, adj, s.permIdx[face.Index()])
	}
	return true
}

// unglue reverts glue at level.
func (s *Searcher) unglue(level int) {
	if t := s.claim[level]; t >= 0 {
		s.orient[t] = 0
		s.claim[level] = -1
	}
	if s.trackVtx {
		s.trk.Split(s.vtxUndo[level])
	}
	if s.trackEdge {
		s.trk.Split(s.edgeUndo[level])
	}
}

// retreat steps back from a completed level.
func (s *Searcher) retreat() {
	s.level--
	s.unglue(s.level)
}

// purgeEdges reports whether newly closed edges make the triangulation one the purge flags drop.
func (s *Searcher) purgeEdges(es linktrack.EdgeStatus) bool {
	if s.purgeLow && es&linktrack.EdgeClosedLow != 0 {
		return true
	}
	if s.opts.Purge&PurgeNonMinimal != 0 && es&linktrack.EdgeClosedDegree3 != 0 {
		for _, te := range s.trk.ClosedDegree3() {
			if s.ringTets(te) == 3 {
				return true
			}
		}
	}
	return false
}

// ringTets counts the distinct tetrahedra around a closed edge of degree 3.
func (s *Searcher) ringTets(te linktrack.TetEdge) int {
	a, b := linktrack.EdgeVertices[te.Edge][0], linktrack.EdgeVertices[te.Edge][1]
	var cd [2]int
	n := 0
	for v := 0; v < 4; v++ {
		if v != a && v != b {
			cd[n] = v
			n++
		}
	}
	exit, other := cd[0], cd[1]

	var tets [3]int
	tet := te.Tet
	for i := 0; i < 3; i++ {
		tets[i] = tet
		f := pairing.TetFacet{Tet: tet, Facet: exit}
		g := s.GluingPerm(f)
		tet = s.p.Dest(f).Tet
		exit, other = g.Apply(other), g.Apply(exit)
	}
	distinct := 1
	if tets[1] != tets[0] {
		distinct++
	}
	if tets[2] != tets[0] && tets[2] != tets[1] {
		distinct++
	}
	return distinct
}

// accept reports a complete assignment if it is admissible and canonical.
func (s *Searcher) accept() {
	if !s.admissible() {
		return
	}
	if s.checkCanonical && !s.isCanonical() {
		return
	}
	s.use(s)
}

// admissible judges a completed assignment.
func (s *Searcher) admissible() bool {
	if s.trackVtx {
		return s.trk.BoundaryCyclesOK()
	}
	X := triang.FromGluings(s)
	defer X.Reclaim()
	info := X.Info()
	if !info.Valid || (s.opts.FiniteOnly && !info.Finite) {
		return false
	}
	if s.opts.OrientableOnly && !info.Orientable {
		return false
	}
	return true
}

// isCanonical reports whether no automorphism of the pairing maps the gluings to a lexicographically smaller set.
func (s *Searcher) isCanonical() bool {
	for _, iso := range s.autos {
		if !s.notSmallerUnder(iso) {
			return false
		}
	}
	return true
}

func (s *Searcher) notSmallerUnder(iso pairing.Isomorphism) bool {
	n := 4 * s.p.Size()
	for i := 0; i < n; i++ {
		f := pairing.FacetAt(i)
		if !s.p.IsLesser(f) {
			continue
		}
		d := s.p.Dest(f)
		pa := iso.FacetPerm[f.Tet]
		pb := iso.FacetPerm[d.Tet]
		img := iso.Apply(f)
		other := pb.Inverse().Compose(s.GluingPerm(img)).Compose(pa)
		switch s.GluingPerm(f).Compare(other) {
		case -1:
			return true
		case 1:
			return false
		}
	}
	return true
}

// SkipPairing reports whether a search of p under opts can be skipped outright, because every triangulation
// it could produce would be purged.
func SkipPairing(p *pairing.FacetPairing, opts SearchOpts) bool {
	if opts.Purge&PurgeNonMinimalPrime != PurgeNonMinimalPrime || !opts.FiniteOnly || !p.IsClosed() || p.Size() < 3 {
		return false
	}
	if !opts.OrientableOnly && opts.Purge&PurgeP2Reducible == 0 {
		return false
	}
	return p.HasTripleEdge() || p.HasBrokenDoubleEndedChain() || p.HasOneEndedChainWithDoubleHandle()
}

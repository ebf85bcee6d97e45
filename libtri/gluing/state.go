package gluing

import (
	"io"

	"github.com/fine-structures/tricensus/libtri/linktrack"
	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/libtri/perm"
	"github.com/fine-structures/tricensus/libtri/tokens"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
)

// stateTag heads every suspended search.
const stateTag = "g3"

// DumpState writes the search state so that ReadSearcher can resume it, possibly in another process.
//
// Lines hold, in order: the tag, the pairing, the options and position, the tetrahedron orientations,
// the permutation index of every facet, the search order, the per-level claims and roots, and the forests.
func (s *Searcher) DumpState(out io.Writer) error {
	if s.onReached != nil {
		return errors.New("gluing: a chain expansion cannot be suspended")
	}
	w := tokens.NewWriter(out)
	w.Word(stateTag)
	w.EndLine()

	n := s.p.Size()
	w.Int(n)
	for i := 0; i < 4*n; i++ {
		d := s.p.Dest(pairing.FacetAt(i))
		w.Ints(d.Tet, d.Facet)
	}
	w.EndLine()

	w.Bool(s.opts.OrientableOnly)
	w.Bool(s.opts.FiniteOnly)
	w.Ints(int(s.opts.Purge), int(s.opts.Oracle))
	w.Bool(s.started)
	w.Int(s.level)
	w.EndLine()

	for _, o := range s.orient {
		w.Int(int(o))
	}
	w.EndLine()

	for _, k := range s.permIdx {
		w.Int(k)
	}
	w.EndLine()

	w.Int(len(s.order))
	for _, f := range s.order {
		w.Int(f.Index())
	}
	w.EndLine()

	for i := range s.claim {
		w.Ints(s.claim[i], s.root[i])
	}
	w.EndLine()

	if s.trk != nil {
		s.trk.WriteState(w)
	}
	return w.Flush()
}

// suspended is the raw content of a dumped search, before validation.
type suspended struct {
	p       *pairing.FacetPairing
	opts    SearchOpts
	started bool
	level   int
	orient  []int8
	permIdx []int
	order   []pairing.TetFacet
	claim   []int
	root    []int
	forests *linktrack.Tracker
}

// ReadSearcher resumes a search written by DumpState.
//
// Every field is range checked, then the recorded gluings are replayed on a fresh searcher and the
// resulting orientations, claims and link forests must match the stored ones.  Any failure is reported as
// tri3.ErrCorruptState.
func ReadSearcher(in io.Reader, use UseGluings) (*Searcher, error) {
	r := tokens.NewReader(in)
	st, err := readSuspended(r)
	if err != nil {
		return nil, err
	}

	s := newSearcher(st.p, st.p.FindAutomorphisms(), st.opts, use, st.order)
	if err := s.replay(st); err != nil {
		return nil, err
	}
	return s, nil
}

func readSuspended(r *tokens.Reader) (*suspended, error) {
	if tag := r.Word("tag"); r.Err() == nil && tag != stateTag {
		r.Fail("unknown tag %q", tag)
	}

	n := r.Int("tetrahedra", 1, tri3.MaxTets)
	if r.Err() != nil {
		return nil, r.Err()
	}
	dest := make([]pairing.TetFacet, 4*n)
	for i := range dest {
		dest[i].Tet = r.Int("pairing tetrahedron", 0, n)
		dest[i].Facet = r.Int("pairing facet", 0, 3)
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	p, err := pairing.FromDests(n, dest)
	if err != nil {
		return nil, errors.Wrap(tri3.ErrCorruptState, err.Error())
	}
	if !p.IsConnected() {
		return nil, errors.Wrap(tri3.ErrCorruptState, "pairing is disconnected")
	}

	st := &suspended{
		p:       p,
		orient:  make([]int8, n),
		permIdx: make([]int, 4*n),
	}
	st.opts.OrientableOnly = r.Bool("orientable")
	st.opts.FiniteOnly = r.Bool("finite")
	st.opts.Purge = PurgeFlags(r.Int("purge", 0, int(PurgeNonMinimalPrime|PurgeP2Reducible)))
	st.opts.Oracle = Oracle(r.Int("oracle", int(LinkOracle), int(CompletionOracle)))
	st.started = r.Bool("started")
	st.level = r.Int("level", -1, 2*n)

	for t := range st.orient {
		st.orient[t] = int8(r.Int("orientation", -1, 1))
	}
	for i := range st.permIdx {
		st.permIdx[i] = r.Int("permutation", -2, 5)
	}

	nOrder := r.Int("order length", 0, 2*n)
	used := make([]bool, 4*n)
	for i := 0; i < nOrder && r.Err() == nil; i++ {
		f := pairing.FacetAt(r.Int("order", 0, 4*n-1))
		if r.Err() != nil {
			break
		}
		d := p.Dest(f)
		if p.IsBoundary(d) || used[f.Index()] || used[d.Index()] {
			r.Fail("order entry %v is a boundary facet or repeats a pair", f)
			break
		}
		used[f.Index()], used[d.Index()] = true, true
		st.order = append(st.order, f)
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	if 2*len(st.order) != 4*n-p.NumBoundaryFacets() {
		r.Fail("order covers %d of %d facet pairs", len(st.order), (4*n-p.NumBoundaryFacets())/2)
	}
	if st.level > len(st.order) {
		r.Fail("level %d is beyond the order length %d", st.level, len(st.order))
	}

	st.claim = make([]int, len(st.order)+1)
	st.root = make([]int, len(st.order)+1)
	for i := range st.claim {
		st.claim[i] = r.Int("claim", -1, n-1)
		st.root[i] = r.Int("root", -1, n-1)
	}
	if st.opts.Oracle == LinkOracle && r.Err() == nil {
		st.forests = linktrack.ReadState(r, n)
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return st, nil
}

// replay reconstructs the state of st on a fresh searcher by regluing every recorded level.
func (s *Searcher) replay(st *suspended) error {
	corrupt := func(format string, args ...interface{}) error {
		return errors.Wrapf(tri3.ErrCorruptState, format, args...)
	}

	s.started = st.started
	glued := st.level
	if !st.started {
		if st.level != 0 {
			return corrupt("unstarted search at level %d", st.level)
		}
		glued = 0
	}

	for level := 0; level < glued; level++ {
		face := s.order[level]
		adj := s.p.Dest(face)
		k := st.permIdx[face.Index()]
		if k < 0 || st.permIdx[adj.Index()] != perm.InvS3[k] {
			return corrupt("level %d has no consistent permutation", level)
		}
		s.initLevel(level)
		if s.opts.OrientableOnly && s.orient[adj.Tet] != 0 && s.orientationFor(face, adj, k) != s.orient[adj.Tet] {
			return corrupt("level %d permutation contradicts the orientation", level)
		}
		s.permIdx[face.Index()] = k
		s.permIdx[adj.Index()] = perm.InvS3[k]
		s.level = level
		if !s.glue(level) {
			return corrupt("level %d gluing is inadmissible", level)
		}
	}

	if st.started && glued >= 0 && glued < len(s.order) {
		s.initLevel(glued)
	}
	s.level = st.level

	for i := range s.permIdx {
		if s.permIdx[i] != st.permIdx[i] {
			return corrupt("permutation of facet %v", pairing.FacetAt(i))
		}
	}
	for t := range s.orient {
		if s.orient[t] != st.orient[t] {
			return corrupt("orientation of tetrahedron %d", t)
		}
	}
	for i := range s.claim {
		if s.claim[i] != st.claim[i] || s.root[i] != st.root[i] {
			return corrupt("orientation claims at level %d", i)
		}
	}
	if s.trk != nil && !s.trk.SameState(st.forests) {
		return corrupt("link forests do not match the recorded gluings")
	}
	return nil
}

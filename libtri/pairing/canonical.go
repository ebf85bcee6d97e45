package pairing

import (
	"github.com/fine-structures/tricensus/libtri/perm"
)

// relabeller walks the relabellings of a connected pairing that label tetrahedra in order of first reference.
// Only these can produce a lexicographically minimal destination sequence.
type relabeller struct {
	p        *FacetPairing
	tetImg   []int
	tetPre   []int
	facetImg [][4]int // facetImg[t][f]: image facet of facet f of source tet t
	facetPre [][4]int // facetPre[k][j]: source facet mapping to facet j of image tet k
	next     int

	// check mode
	autos []Isomorphism

	// minimise mode
	seq     []TetFacet
	best    []TetFacet
	bestIso Isomorphism
}

func newRelabeller(p *FacetPairing) *relabeller {
	n := p.size
	r := &relabeller{
		p:        p,
		tetImg:   make([]int, n),
		tetPre:   make([]int, n),
		facetImg: make([][4]int, n),
		facetPre: make([][4]int, n),
	}
	for t := 0; t < n; t++ {
		r.tetImg[t] = -1
		r.tetPre[t] = -1
		r.facetImg[t] = [4]int{-1, -1, -1, -1}
		r.facetPre[t] = [4]int{-1, -1, -1, -1}
	}
	return r
}

func (r *relabeller) currentIso() Isomorphism {
	n := r.p.size
	iso := Isomorphism{
		TetImage:  make([]int, n),
		FacetPerm: make([]perm.Perm4, n),
	}
	copy(iso.TetImage, r.tetImg)
	for t := 0; t < n; t++ {
		for f := 0; f < 4; f++ {
			iso.FacetPerm[t][f] = uint8(r.facetImg[t][f])
		}
	}
	return iso
}

func (r *relabeller) startAt(t0 int) {
	r.tetImg[t0] = 0
	r.tetPre[0] = t0
	r.next = 1
}

func (r *relabeller) stopAt(t0 int) {
	r.tetImg[t0] = -1
	r.tetPre[0] = -1
}

type undoLabel struct {
	newTet   bool
	facet    bool
	tet, fac int // source facet labelled
	img, j   int // image facet assigned
}

// imageOf computes the image of the destination of source facet (pt, pf) under the current partial labelling,
// where want is the value the image is compared against.
//
// Unlabelled tetrahedra get the next label, entered via facet 0.  A labelled tetrahedron entered through a facet
// without an image takes its least free facet, since any other choice yields a larger sequence.
// The returned label must be undone with unlabel.
func (r *relabeller) imageOf(pt, pf int) (TetFacet, undoLabel) {
	var undo undoLabel
	d := r.p.dest[4*pt+pf]
	if d.Tet == r.p.size {
		return d, undo
	}
	if it := r.tetImg[d.Tet]; it < 0 {
		lab := r.next
		r.next++
		r.tetImg[d.Tet] = lab
		r.tetPre[lab] = d.Tet
		r.facetImg[d.Tet][d.Facet] = 0
		r.facetPre[lab][0] = d.Facet
		undo.newTet = true
		undo.tet, undo.fac, undo.img = d.Tet, d.Facet, lab
		return TetFacet{lab, 0}, undo
	} else if j := r.facetImg[d.Tet][d.Facet]; j >= 0 {
		return TetFacet{it, j}, undo
	} else {
		j := 0
		for r.facetPre[it][j] >= 0 {
			j++
		}
		r.facetImg[d.Tet][d.Facet] = j
		r.facetPre[it][j] = d.Facet
		undo.facet = true
		undo.tet, undo.fac, undo.img, undo.j = d.Tet, d.Facet, it, j
		return TetFacet{it, j}, undo
	}
}

func (r *relabeller) unlabel(undo undoLabel) {
	if undo.newTet {
		r.next--
		r.tetImg[undo.tet] = -1
		r.tetPre[undo.img] = -1
		r.facetImg[undo.tet][undo.fac] = -1
		r.facetPre[undo.img][0] = -1
	} else if undo.facet {
		r.facetImg[undo.tet][undo.fac] = -1
		r.facetPre[undo.img][undo.j] = -1
	}
}

// forEachPreimage calls visit for every source facet that may map to image position pos.
// Iteration stops once visit returns false.
func (r *relabeller) forEachPreimage(pos int, visit func(pt, pf int) bool) bool {
	k, i := pos>>2, pos&3
	pt := r.tetPre[k]
	if pf := r.facetPre[k][i]; pf >= 0 {
		return visit(pt, pf)
	}
	for f := 0; f < 4; f++ {
		if r.facetImg[pt][f] >= 0 {
			continue
		}
		r.facetImg[pt][f] = i
		r.facetPre[k][i] = f
		ok := visit(pt, f)
		r.facetImg[pt][f] = -1
		r.facetPre[k][i] = -1
		if !ok {
			return false
		}
	}
	return true
}

// check returns false as soon as some relabelling yields a smaller sequence, recording automorphisms otherwise.
func (r *relabeller) check(pos int) bool {
	if pos == len(r.p.dest) {
		r.autos = append(r.autos, r.currentIso())
		return true
	}
	cur := r.p.dest[pos]
	return r.forEachPreimage(pos, func(pt, pf int) bool {
		d := r.p.dest[4*pt+pf]

		// Labelling a tetrahedron is only worthwhile if the image can still match.
		if d.Tet < r.p.size && r.tetImg[d.Tet] >= 0 && r.facetImg[d.Tet][d.Facet] < 0 {
			it := r.tetImg[d.Tet]
			if it < cur.Tet {
				return false
			}
			if it > cur.Tet {
				return true
			}
		} else if d.Tet < r.p.size && r.tetImg[d.Tet] < 0 {
			if c := (TetFacet{r.next, 0}).Compare(cur); c != 0 {
				return c > 0
			}
		}

		img, undo := r.imageOf(pt, pf)
		ok := true
		if c := img.Compare(cur); c < 0 {
			ok = false
		} else if c == 0 {
			ok = r.check(pos + 1)
		}
		r.unlabel(undo)
		return ok
	})
}

// minimise searches for the least image sequence; it returns true if the best sequence was replaced.
// When tight is set, the sequence built so far equals the best one's prefix.
func (r *relabeller) minimise(pos int, tight bool) bool {
	if pos == len(r.p.dest) {
		if r.best == nil || !tight {
			r.best = append(r.best[:0], r.seq...)
			r.bestIso = r.currentIso()
			return true
		}
		return false
	}
	updated := false
	r.forEachPreimage(pos, func(pt, pf int) bool {
		img, undo := r.imageOf(pt, pf)
		r.seq[pos] = img
		childTight := false
		prune := false
		if r.best != nil && tight {
			c := img.Compare(r.best[pos])
			prune = c > 0
			childTight = c == 0
		}
		if !prune && r.minimise(pos+1, childTight) {
			updated = true
			tight = true
		}
		r.unlabel(undo)
		return true
	})
	return updated
}

// IsCanonical reports whether p is the lexicographically least relabelling of itself.
// If so, every automorphism of p is also returned (the identity included).
//
// Precondition: p is connected.
func (p *FacetPairing) IsCanonical() (bool, []Isomorphism) {
	if p.size == 0 {
		return true, nil
	}
	r := newRelabeller(p)
	for t0 := 0; t0 < p.size; t0++ {
		r.startAt(t0)
		ok := r.check(0)
		r.stopAt(t0)
		if !ok {
			return false, nil
		}
	}
	return true, r.autos
}

// FindAutomorphisms returns every relabelling that maps p to itself.
//
// Precondition: p is connected and canonical.
func (p *FacetPairing) FindAutomorphisms() []Isomorphism {
	_, autos := p.IsCanonical()
	return autos
}

// Canonical returns the canonical form of p and the isomorphism carrying p onto it.
//
// Precondition: p is connected and fully decided.
func (p *FacetPairing) Canonical() (*FacetPairing, Isomorphism) {
	if p.size == 0 {
		return p.Clone(), IdentityIsomorphism(0)
	}
	r := newRelabeller(p)
	r.seq = make([]TetFacet, len(p.dest))
	for t0 := 0; t0 < p.size; t0++ {
		r.startAt(t0)
		r.minimise(0, r.best != nil)
		r.stopAt(t0)
	}
	q := &FacetPairing{
		size: p.size,
		dest: append([]TetFacet(nil), r.best...),
	}
	return q, r.bestIso
}

package linktrack

import (
	"github.com/fine-structures/tricensus/libtri/tokens"
)

// WriteState writes the vertex and edge forests, one node per line.
func (t *Tracker) WriteState(w *tokens.Writer) {
	w.Ints(t.nTets, int(t.nVtxClasses), int(t.nEdgeClasses))
	w.EndLine()
	for i := range t.vtx {
		n := &t.vtx[i]
		w.Ints(int(n.Parent), int(n.Rank), int(n.Bdry), int(n.TwistUp))
		w.Ints(int(n.BdryEdges), int(n.BdryNext[0]), int(n.BdryNext[1]), int(n.BdryTwist[0]), int(n.BdryTwist[1]))
		w.EndLine()
	}
	for i := range t.edges {
		n := &t.edges[i]
		w.Ints(int(n.Parent), int(n.Rank), int(n.Size))
		w.Bool(n.Bounded)
		w.Int(int(n.TwistUp))
		w.EndLine()
	}
}

// ReadState reads forests written by WriteState for nTets tetrahedra.
//
// The returned tracker has an empty undo journal, so it is only suitable for comparison via SameState.
func ReadState(r *tokens.Reader, nTets int) *Tracker {
	if got := r.Int("tracker size", 0, 1<<16); got != nTets {
		r.Fail("tracker holds %d tetrahedra, expected %d", got, nTets)
		return nil
	}
	t := New(nTets)
	nv, ne := 4*nTets, 6*nTets
	t.nVtxClasses = int32(r.Int("vertex classes", 1, nv))
	t.nEdgeClasses = int32(r.Int("edge classes", 1, ne))
	for i := range t.vtx {
		n := &t.vtx[i]
		n.Parent = int32(r.Int("vertex parent", -1, nv-1))
		n.Rank = int32(r.Int("vertex rank", 0, nv))
		n.Bdry = int32(r.Int("vertex boundary", 0, 3*nv))
		n.TwistUp = Twist(r.Int("vertex twist", 0, 1))
		n.BdryEdges = int8(r.Int("corner boundary edges", 0, 3))
		n.BdryNext[0] = int32(r.Int("boundary next", 0, nv-1))
		n.BdryNext[1] = int32(r.Int("boundary next", 0, nv-1))
		n.BdryTwist[0] = Twist(r.Int("boundary twist", 0, 1))
		n.BdryTwist[1] = Twist(r.Int("boundary twist", 0, 1))
	}
	for i := range t.edges {
		n := &t.edges[i]
		n.Parent = int32(r.Int("edge parent", -1, ne-1))
		n.Rank = int32(r.Int("edge rank", 0, ne))
		n.Size = int32(r.Int("edge size", 1, ne))
		n.Bounded = r.Bool("edge bounded")
		n.TwistUp = Twist(r.Int("edge twist", 0, 1))
	}
	if r.Err() != nil {
		return nil
	}
	return t
}

// SameState reports whether t and o hold identical forests.
func (t *Tracker) SameState(o *Tracker) bool {
	if t.nTets != o.nTets || t.nVtxClasses != o.nVtxClasses || t.nEdgeClasses != o.nEdgeClasses {
		return false
	}
	for i := range t.vtx {
		if t.vtx[i] != o.vtx[i] {
			return false
		}
	}
	for i := range t.edges {
		if t.edges[i] != o.edges[i] {
			return false
		}
	}
	return true
}

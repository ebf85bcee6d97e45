// Package linktrack maintains the vertex and edge equivalence classes of a triangulation as its facets
// are glued one pair at a time, detecting bad vertex links and bad edges as soon as they appear.
//
// Vertex classes are tracked together with the boundary of their link:  every tetrahedron corner
// contributes a triangle to the link of its vertex, and the link boundary is kept as cycles of corners.
// Edge classes are plain union-find forests with orientation.
//
// Every merge returns an Undo, and Split reverts to it.  Merges must be unwound in LIFO order.
package linktrack

import (
	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/libtri/perm"
)

// Twist is the relative orientation between a node and the node it is linked to.
type Twist uint8

const (
	Untwisted Twist = 0
	Twisted   Twist = 1
)

// VertexNode is one tetrahedron corner, index 4*tet+vertex.
type VertexNode struct {
	Parent  int32 // -1 at a root
	Rank    int32
	Bdry    int32 // at a root: triangle edges on the link boundary of the whole class
	TwistUp Twist

	BdryEdges int8     // edges of this corner's own triangle still on the link boundary
	BdryNext  [2]int32 // neighbours along the boundary cycle, when 1 or 2 edges remain
	BdryTwist [2]Twist
}

// EdgeNode is one tetrahedron edge, index 6*tet+edge.
type EdgeNode struct {
	Parent  int32
	Rank    int32
	Size    int32 // at a root: number of tetrahedron edges in the class
	Bounded bool  // at a root: the class still has an open end
	TwistUp Twist
}

// LinkStatus reports what a vertex merge did to the affected links.
type LinkStatus uint8

const (
	LinkClosed    LinkStatus = 1 << iota // some link lost its last boundary edge
	LinkNonSphere                        // some link can no longer be a disc or sphere
)

// EdgeStatus reports what an edge merge did to the affected edges.
type EdgeStatus uint8

const (
	EdgeTwisted       EdgeStatus = 1 << iota // an edge is identified with itself in reverse
	EdgeClosedLow                            // an edge closed up with degree 1 or 2
	EdgeClosedDegree3                        // an edge closed up with degree 3
)

// TetEdge names edge Edge (index into EdgeVertices) of tetrahedron Tet.
type TetEdge struct {
	Tet, Edge int
}

// EdgeVertices lists the endpoints of the six edges of a tetrahedron.
var EdgeVertices = [6][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

// EdgeNumber[a][b] is the edge joining vertices a and b.
var EdgeNumber = [4][4]int{
	{-1, 0, 1, 2},
	{0, -1, 3, 4},
	{1, 3, -1, 5},
	{2, 4, 5, -1},
}

// Around the link triangle of corner v, the facets adjacent to facet f in either direction.
var (
	nextFacet = [4][4]int{{-1, 2, 3, 1}, {3, -1, 0, 2}, {1, 3, -1, 0}, {1, 2, 0, -1}}
	prevFacet = [4][4]int{{-1, 3, 1, 2}, {2, -1, 3, 0}, {3, 0, -1, 1}, {2, 0, 1, -1}}
)

// Undo marks the state of a Tracker before a merge.
type Undo struct {
	vtxMark   int32
	edgeMark  int32
	gluedMark int32
	nVtx      int32
	nEdge     int32
}

type vtxSave struct {
	idx  int32
	node VertexNode
}

type edgeSave struct {
	idx  int32
	node EdgeNode
}

// gluingStep describes the vertex merge in progress, so that link edges of a tetrahedron glued to itself
// can be told apart as they close one corner at a time.
type gluingStep struct {
	active bool
	face   pairing.TetFacet
	adj    pairing.TetFacet
	inv    perm.Perm4
	v      int
}

// Tracker holds the vertex and edge classes of nTets tetrahedra.
type Tracker struct {
	nTets int
	vtx   []VertexNode
	edges []EdgeNode
	glued []bool

	nVtxClasses  int32
	nEdgeClasses int32

	vtxLog   []vtxSave
	edgeLog  []edgeSave
	gluedLog []int32

	step    gluingStep
	closed3 []TetEdge
}

// New returns a tracker for nTets unglued tetrahedra.
func New(nTets int) *Tracker {
	t := &Tracker{
		nTets: nTets,
		vtx:   make([]VertexNode, 4*nTets),
		edges: make([]EdgeNode, 6*nTets),
		glued: make([]bool, 4*nTets),
	}
	t.Reset()
	return t
}

// Reset returns every corner and edge to its own class and clears the undo journal.
func (t *Tracker) Reset() {
	for i := range t.vtx {
		t.vtx[i] = pristineVertex(int32(i))
	}
	for i := range t.edges {
		t.edges[i] = pristineEdge()
	}
	for i := range t.glued {
		t.glued[i] = false
	}
	t.nVtxClasses = int32(len(t.vtx))
	t.nEdgeClasses = int32(len(t.edges))
	t.vtxLog = t.vtxLog[:0]
	t.edgeLog = t.edgeLog[:0]
	t.gluedLog = t.gluedLog[:0]
	t.step = gluingStep{}
	t.closed3 = t.closed3[:0]
}

func pristineVertex(i int32) VertexNode {
	return VertexNode{
		Parent:    -1,
		Bdry:      3,
		BdryEdges: 3,
		BdryNext:  [2]int32{i, i},
	}
}

func pristineEdge() EdgeNode {
	return EdgeNode{
		Parent:  -1,
		Size:    1,
		Bounded: true,
	}
}

func (t *Tracker) NumTets() int {
	return t.nTets
}

func (t *Tracker) NumVertexClasses() int {
	return int(t.nVtxClasses)
}

func (t *Tracker) NumEdgeClasses() int {
	return int(t.nEdgeClasses)
}

// IsPristine reports whether no merge is outstanding.
func (t *Tracker) IsPristine() bool {
	if int(t.nVtxClasses) != len(t.vtx) || int(t.nEdgeClasses) != len(t.edges) {
		return false
	}
	for i := range t.vtx {
		if t.vtx[i] != pristineVertex(int32(i)) || t.glued[i] {
			return false
		}
	}
	for i := range t.edges {
		if t.edges[i] != pristineEdge() {
			return false
		}
	}
	return true
}

func (t *Tracker) mark() Undo {
	return Undo{
		vtxMark:   int32(len(t.vtxLog)),
		edgeMark:  int32(len(t.edgeLog)),
		gluedMark: int32(len(t.gluedLog)),
		nVtx:      t.nVtxClasses,
		nEdge:     t.nEdgeClasses,
	}
}

// Split reverts every change made since u was issued.
func (t *Tracker) Split(u Undo) {
	for i := len(t.vtxLog) - 1; i >= int(u.vtxMark); i-- {
		s := t.vtxLog[i]
		t.vtx[s.idx] = s.node
	}
	t.vtxLog = t.vtxLog[:u.vtxMark]

	for i := len(t.edgeLog) - 1; i >= int(u.edgeMark); i-- {
		s := t.edgeLog[i]
		t.edges[s.idx] = s.node
	}
	t.edgeLog = t.edgeLog[:u.edgeMark]

	for i := len(t.gluedLog) - 1; i >= int(u.gluedMark); i-- {
		t.glued[t.gluedLog[i]] = false
	}
	t.gluedLog = t.gluedLog[:u.gluedMark]

	t.nVtxClasses = u.nVtx
	t.nEdgeClasses = u.nEdge
}

// vw returns corner i for writing.
func (t *Tracker) vw(i int32) *VertexNode {
	t.vtxLog = append(t.vtxLog, vtxSave{i, t.vtx[i]})
	return &t.vtx[i]
}

// ew returns edge i for writing.
func (t *Tracker) ew(i int32) *EdgeNode {
	t.edgeLog = append(t.edgeLog, edgeSave{i, t.edges[i]})
	return &t.edges[i]
}

func (t *Tracker) setGlued(f pairing.TetFacet) {
	idx := int32(f.Index())
	if !t.glued[idx] {
		t.glued[idx] = true
		t.gluedLog = append(t.gluedLog, idx)
	}
}

func (t *Tracker) vertexRoot(i int32) (int32, Twist) {
	var tw Twist
	for t.vtx[i].Parent >= 0 {
		tw ^= t.vtx[i].TwistUp
		i = t.vtx[i].Parent
	}
	return i, tw
}

func (t *Tracker) edgeRoot(i int32) (int32, Twist) {
	var tw Twist
	for t.edges[i].Parent >= 0 {
		tw ^= t.edges[i].TwistUp
		i = t.edges[i].Parent
	}
	return i, tw
}

// EdgeClass returns the degree of the class holding the given tetrahedron edge and whether it is still open.
func (t *Tracker) EdgeClass(tet, edge int) (degree int, bounded bool) {
	r, _ := t.edgeRoot(int32(6*tet + edge))
	return int(t.edges[r].Size), t.edges[r].Bounded
}

// SameVertexClass reports whether two tetrahedron corners are identified.
func (t *Tracker) SameVertexClass(tet1, v1, tet2, v2 int) bool {
	r1, _ := t.vertexRoot(int32(4*tet1 + v1))
	r2, _ := t.vertexRoot(int32(4*tet2 + v2))
	return r1 == r2
}

// ClosedDegree3 returns the edges that closed up with degree 3 during the last MergeEdges.
func (t *Tracker) ClosedDegree3() []TetEdge {
	return t.closed3
}

// MergeEdges identifies the edges of facet face with those of facet adj, where p maps the vertices of
// face's tetrahedron to those of adj's.
func (t *Tracker) MergeEdges(face, adj pairing.TetFacet, p perm.Perm4) (Undo, EdgeStatus) {
	u := t.mark()
	t.closed3 = t.closed3[:0]

	var status EdgeStatus
	v1 := face.Facet
	w1 := p.Apply(v1)
	for v2 := 0; v2 < 4; v2++ {
		if v2 == v1 {
			continue
		}
		w2 := p.Apply(v2)
		e := 5 - EdgeNumber[v1][v2]
		f := 5 - EdgeNumber[w1][w2]

		hasTwist := Untwisted
		if p[EdgeVertices[e][0]] > p[EdgeVertices[e][1]] {
			hasTwist = Twisted
		}

		eRoot, t1 := t.edgeRoot(int32(e + 6*face.Tet))
		fRoot, t2 := t.edgeRoot(int32(f + 6*adj.Tet))
		parentTwist := t1 ^ t2

		if eRoot == fRoot {
			t.ew(eRoot).Bounded = false
			if hasTwist != parentTwist {
				status |= EdgeTwisted
			}
			switch size := t.edges[eRoot].Size; {
			case size <= 2:
				status |= EdgeClosedLow
			case size == 3:
				status |= EdgeClosedDegree3
				t.closed3 = append(t.closed3, TetEdge{face.Tet, e})
			}
			continue
		}

		if t.edges[eRoot].Rank < t.edges[fRoot].Rank {
			eRoot, fRoot = fRoot, eRoot
		}
		sub := t.ew(fRoot)
		sub.Parent = eRoot
		sub.TwistUp = hasTwist ^ parentTwist
		root := t.ew(eRoot)
		if root.Rank == sub.Rank {
			root.Rank++
		}
		root.Size += sub.Size
		root.Bounded = root.Bounded && sub.Bounded
		t.nEdgeClasses--
	}
	return u, status
}

// MergeVertices identifies the corners of facet face with those of facet adj, where p maps the vertices of
// face's tetrahedron to those of adj's, and updates the link boundaries accordingly.
func (t *Tracker) MergeVertices(face, adj pairing.TetFacet, p perm.Perm4) (Undo, LinkStatus) {
	u := t.mark()
	t.setGlued(face)
	t.setGlued(adj)

	ft, ff := face.Tet, face.Facet
	at, af := adj.Tet, adj.Facet
	var status LinkStatus

	orientTwist := Untwisted
	if p.Sign() > 0 {
		orientTwist = Twisted
	}

	t.step = gluingStep{
		active: true,
		face:   face,
		adj:    adj,
		inv:    p.Inverse(),
	}
	defer func() { t.step.active = false }()

	for v := 0; v < 4; v++ {
		if v == ff {
			continue
		}
		w := p.Apply(v)
		vI := int32(v + 4*ft)
		wI := int32(w + 4*at)
		t.step.v = v

		hasTwist := orientTwist
		if (v == 3) != (w == 3) {
			hasTwist ^= 1
		}

		vRoot, t1 := t.vertexRoot(vI)
		wRoot, t2 := t.vertexRoot(wI)
		parentTwist := t1 ^ t2

		if vRoot == wRoot {
			root := t.vw(vRoot)
			root.Bdry -= 2
			if root.Bdry == 0 {
				status |= LinkClosed
			}
			if hasTwist != parentTwist {
				status |= LinkNonSphere
			}

			if vI == wI {
				// the link triangle is glued to itself along two of its edges
				if hasTwist == Untwisted && t.vtx[vI].BdryEdges < 3 && t.vtx[vI].BdryNext[0] != vI {
					n := t.vtx[vI]
					t.join(n.BdryNext[0], 1^n.BdryTwist[0], n.BdryNext[1], n.BdryTwist[1]^n.BdryTwist[0])
				}
				t.vw(vI).BdryEdges -= 2
				continue
			}

			switch {
			case t.isLoneEdge(vI) && t.isLoneEdge(wI):
				status |= LinkNonSphere
			case t.isPairedEdges(vI, wI):
				// the two remaining edges close the cycle
			default:
				vN, vT := t.boundaryNext(vI, ft, v, ff)
				wN, wT := t.boundaryNext(wI, at, w, af)
				switch {
				case vN[0] == wI && wN[1^vT[0]] == vI:
					t.join(vN[1], 0^vT[1], wN[0^vT[0]], (vT[0]^wT[0^vT[0]])^vT[1])
				case vN[1] == wI && wN[0^vT[1]] == vI:
					t.join(vN[0], 1^vT[0], wN[1^vT[1]], (vT[1]^wT[1^vT[1]])^vT[0])
				default:
					if !t.onSameCycle(vI, wI) {
						// joining two cycles of one link makes an annulus or worse
						status |= LinkNonSphere
					} else {
						t.join(vN[0], 1^vT[0], wN[1^hasTwist], vT[0]^(hasTwist^wT[1^hasTwist]))
						t.join(vN[1], 0^vT[1], wN[0^hasTwist], vT[1]^(hasTwist^wT[0^hasTwist]))
					}
				}
			}
			t.vw(vI).BdryEdges--
			t.vw(wI).BdryEdges--
			continue
		}

		// join two distinct classes
		if t.vtx[vRoot].Rank < t.vtx[wRoot].Rank {
			vRoot, wRoot = wRoot, vRoot
		}
		sub := t.vw(wRoot)
		sub.Parent = vRoot
		sub.TwistUp = hasTwist ^ parentTwist
		root := t.vw(vRoot)
		if root.Rank == sub.Rank {
			root.Rank++
		}
		root.Bdry += sub.Bdry - 2
		if root.Bdry == 0 {
			status |= LinkClosed
		}
		t.nVtxClasses--

		switch {
		case t.isLoneEdge(vI):
			if !t.isLoneEdge(wI) && t.vtx[wI].BdryEdges == 1 {
				n := t.vtx[wI]
				t.join(n.BdryNext[0], 1^n.BdryTwist[0], n.BdryNext[1], n.BdryTwist[0]^n.BdryTwist[1])
			}
		case t.isLoneEdge(wI):
			if t.vtx[vI].BdryEdges == 1 {
				n := t.vtx[vI]
				t.join(n.BdryNext[0], 1^n.BdryTwist[0], n.BdryNext[1], n.BdryTwist[0]^n.BdryTwist[1])
			}
		default:
			vN, vT := t.boundaryNext(vI, ft, v, ff)
			wN, wT := t.boundaryNext(wI, at, w, af)
			t.join(vN[0], 1^vT[0], wN[1^hasTwist], vT[0]^(hasTwist^wT[1^hasTwist]))
			t.join(vN[1], 0^vT[1], wN[0^hasTwist], vT[1]^(hasTwist^wT[0^hasTwist]))
		}
		t.vw(vI).BdryEdges--
		t.vw(wI).BdryEdges--
	}
	return u, status
}

// join makes adj follow id at the given end of id, with the given relative twist.
func (t *Tracker) join(id int32, end Twist, adj int32, tw Twist) {
	n := t.vw(id)
	n.BdryNext[end] = adj
	n.BdryTwist[end] = tw

	a := t.vw(adj)
	a.BdryNext[(end^1)^tw] = id
	a.BdryTwist[(end^1)^tw] = tw
}

// isLoneEdge reports whether corner i has one boundary edge left, forming a cycle on its own.
func (t *Tracker) isLoneEdge(i int32) bool {
	return t.vtx[i].BdryNext[0] == i && t.vtx[i].BdryEdges == 1
}

// isPairedEdges reports whether corners a and b each have one boundary edge left, and together form a cycle.
func (t *Tracker) isPairedEdges(a, b int32) bool {
	n := &t.vtx[a]
	return n.BdryNext[0] == b && n.BdryNext[1] == b && n.BdryEdges == 1 && t.vtx[b].BdryEdges == 1
}

// onSameCycle walks the boundary cycle through a, reporting whether it passes through b.
func (t *Tracker) onSameCycle(a, b int32) bool {
	ti := t.vtx[a].BdryNext[0]
	tt := t.vtx[a].BdryTwist[0]
	for ti != a && ti != b {
		n := &t.vtx[ti]
		ni := n.BdryNext[tt]
		tt ^= n.BdryTwist[tt]
		ti = ni
	}
	return ti == b
}

// isOpen reports whether the link edge of corner (tet, vert) lying in facet x is still on the link boundary.
func (t *Tracker) isOpen(tet, vert, x int) bool {
	if !t.glued[4*tet+x] {
		return true
	}
	st := &t.step
	if !st.active || st.adj.Tet != st.face.Tet || tet != st.face.Tet {
		return false
	}
	if x == st.adj.Facet {
		return st.inv.Apply(vert) > st.v
	}
	if x == st.face.Facet {
		return vert > st.v
	}
	return false
}

// boundaryNext returns the neighbours of corner i along its boundary cycle, as seen from the link edge in facet bf.
func (t *Tracker) boundaryNext(i int32, tet, vert, bf int) ([2]int32, [2]Twist) {
	n := &t.vtx[i]
	switch n.BdryEdges {
	case 3:
		return [2]int32{i, i}, [2]Twist{}
	case 2:
		var next [2]int32
		var tw [2]Twist
		if t.isOpen(tet, vert, nextFacet[vert][bf]) {
			next[0] = i
		} else {
			next[0], tw[0] = n.BdryNext[0], n.BdryTwist[0]
		}
		if t.isOpen(tet, vert, prevFacet[vert][bf]) {
			next[1] = i
		} else {
			next[1], tw[1] = n.BdryNext[1], n.BdryTwist[1]
		}
		return next, tw
	}
	return n.BdryNext, n.BdryTwist
}

// BoundaryCyclesOK reports whether every vertex class has at most one boundary cycle in its link.
//
// A link with two or more boundary cycles can never become a disc, whatever is glued later.
func (t *Tracker) BoundaryCyclesOK() bool {
	seen := make([]bool, len(t.vtx))
	cycles := make(map[int32]int)
	for i := range t.vtx {
		if t.vtx[i].BdryEdges == 0 || seen[i] {
			continue
		}
		start := int32(i)
		root, _ := t.vertexRoot(start)
		cycles[root]++
		if cycles[root] > 1 {
			return false
		}
		ti := start
		var tt Twist
		for {
			seen[ti] = true
			n := &t.vtx[ti]
			ni := n.BdryNext[tt]
			tt ^= n.BdryTwist[tt]
			ti = ni
			if ti == start {
				break
			}
		}
	}
	return true
}

// Vertex returns a copy of corner i.
func (t *Tracker) Vertex(i int) VertexNode {
	return t.vtx[i]
}

// Edge returns a copy of edge i.
func (t *Tracker) Edge(i int) EdgeNode {
	return t.edges[i]
}

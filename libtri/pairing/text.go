package pairing

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// TextRep returns the compact encoding: the destination "tet facet" of every facet in order, space separated.
// Boundary facets are written as the sentinel "N 0".
func (p *FacetPairing) TextRep() string {
	buf := strings.Builder{}
	buf.Grow(8 * len(p.dest))
	for i, d := range p.dest {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(strconv.Itoa(d.Tet))
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(d.Facet))
	}
	return buf.String()
}

// ParseTextRep reads a pairing written by TextRep.
func ParseTextRep(text string) (*FacetPairing, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields)%8 != 0 {
		return nil, errors.Wrapf(tri3.ErrBadPairingText, "expected a multiple of 8 values, got %d", len(fields))
	}
	nTets := len(fields) / 8
	if nTets > tri3.MaxTets {
		return nil, errors.Wrapf(tri3.ErrBadTetCount, "%d tetrahedra", nTets)
	}

	dest := make([]TetFacet, 4*nTets)
	for i := range dest {
		tet, err := strconv.Atoi(fields[2*i])
		if err != nil {
			return nil, errors.Wrap(tri3.ErrBadPairingText, err.Error())
		}
		facet, err := strconv.Atoi(fields[2*i+1])
		if err != nil {
			return nil, errors.Wrap(tri3.ErrBadPairingText, err.Error())
		}
		dest[i] = TetFacet{tet, facet}
	}
	return FromDests(nTets, dest)
}

// FromDests returns the pairing of nTets tetrahedra in which facet i is glued to dest[i].
func FromDests(nTets int, dest []TetFacet) (*FacetPairing, error) {
	if len(dest) != 4*nTets {
		return nil, errors.Wrapf(tri3.ErrBadPairing, "%d destinations for %d tetrahedra", len(dest), nTets)
	}
	p := NewFacetPairing(nTets)
	copy(p.dest, dest)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that p is a symmetric matching with no facet glued to itself or left undecided.
func (p *FacetPairing) Validate() error {
	for i, d := range p.dest {
		f := FacetAt(i)
		if d.Tet < 0 || d.Tet > p.size || d.Facet < 0 || d.Facet > 3 {
			return errors.Wrapf(tri3.ErrBadPairing, "facet %v has destination %v out of range", f, d)
		}
		if d.Tet == p.size {
			if d.Facet != 0 {
				return errors.Wrapf(tri3.ErrBadPairing, "facet %v has a malformed boundary destination", f)
			}
			continue
		}
		if d == f {
			return errors.Wrapf(tri3.ErrBadPairing, "facet %v is glued to itself", f)
		}
		if p.dest[d.Index()] != f {
			return errors.Wrapf(tri3.ErrBadPairing, "facet %v is glued to %v but not vice versa", f, d)
		}
	}
	return nil
}

// IsConnected reports whether every tetrahedron can be reached from tetrahedron 0 through glued facets.
func (p *FacetPairing) IsConnected() bool {
	if p.size <= 1 {
		return true
	}
	g := simple.NewUndirectedGraph()
	for t := 0; t < p.size; t++ {
		g.AddNode(simple.Node(t))
	}
	for i, d := range p.dest {
		t := i >> 2
		if d.Tet == p.size || d.Tet == t {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(t), T: simple.Node(d.Tet)})
	}
	return len(topo.ConnectedComponents(g)) == 1
}

// String returns the human-readable form, e.g. "0:1 0:0 1:0 bdry | 0:2 ...", tetrahedra separated by '|'.
func (p *FacetPairing) String() string {
	buf := strings.Builder{}
	for i, d := range p.dest {
		if i > 0 {
			if i&3 == 0 {
				buf.WriteString(" | ")
			} else {
				buf.WriteByte(' ')
			}
		}
		if d.Tet == p.size {
			buf.WriteString("bdry")
		} else {
			buf.WriteString(d.String())
		}
	}
	return buf.String()
}

type pairingExpr struct {
	Tets []*tetExpr `parser:"@@ ( \"|\" @@ )*"`
}

type tetExpr struct {
	Facets []*facetExpr `parser:"@@+"`
}

type facetExpr struct {
	Bdry bool      `parser:"  @\"bdry\""`
	Dest *destExpr `parser:"| @@"`
}

type destExpr struct {
	Tet   int `parser:"@Int \":\""`
	Facet int `parser:"@Int"`
}

var parsePairingExpr = participle.MustBuild[pairingExpr]()

// ParseString reads the human-readable form written by String.
func ParseString(str string) (*FacetPairing, error) {
	expr, err := parsePairingExpr.ParseString("", str)
	if err != nil {
		return nil, errors.Wrap(tri3.ErrBadPairingText, err.Error())
	}

	nTets := len(expr.Tets)
	if nTets > tri3.MaxTets {
		return nil, errors.Wrapf(tri3.ErrBadTetCount, "%d tetrahedra", nTets)
	}
	p := NewFacetPairing(nTets)
	for t, tet := range expr.Tets {
		if len(tet.Facets) != 4 {
			return nil, errors.Wrapf(tri3.ErrBadPairingText, "tetrahedron %d lists %d facets", t, len(tet.Facets))
		}
		for f, facet := range tet.Facets {
			if facet.Bdry {
				p.dest[4*t+f] = p.Boundary()
			} else {
				p.dest[4*t+f] = TetFacet{facet.Dest.Tet, facet.Dest.Facet}
			}
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

package triang

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fine-structures/tricensus/libtri/perm"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/pkg/errors"
)

const sigChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+-"

var sigValue = func() [256]int {
	var vals [256]int
	for i := range vals {
		vals[i] = -1
	}
	for i := 0; i < len(sigChars); i++ {
		vals[sigChars[i]] = i
	}
	return vals
}()

// Signature tokens, one per facet of the relabelled triangulation
const (
	tokBoundary = 0
	tokNewTet   = 1
	tokGlued    = 2 // + 24*label + S4 index
)

func tokenWidth(nTets int) int {
	if tokGlued+24*(nTets-1)+23 < len(sigChars) {
		return 1
	}
	return 2
}

// IsoSig returns a string that is equal for two triangulations exactly when they are isomorphic.
//
// Each connected component is relabelled by a breadth-first walk from every starting tetrahedron and vertex
// labelling, and the least resulting token sequence is kept.  Components are joined with '.' in sorted order.
func (X *Triangulation) IsoSig() string {
	if X.isoSig != "" || X.nTets == 0 {
		return X.isoSig
	}

	label := make([]int, X.nTets)
	vp := make([]perm.Perm4, X.nTets)
	seen := make([]bool, X.nTets)
	var comps []string
	var best, cur, members []int
	for start := 0; start < X.nTets; start++ {
		if seen[start] {
			continue
		}
		best = best[:0]
		members = members[:0]
		for t0 := start; t0 < X.nTets; t0++ {
			if t0 != start && !contains(members, t0) {
				continue
			}
			for _, sigma := range perm.S4 {
				cur, members = X.walk(t0, sigma, label, vp, cur[:0], members[:0])
				if len(best) == 0 || lessTokens(cur, best) {
					best = append(best[:0], cur...)
				}
			}
		}
		for _, t := range members {
			seen[t] = true
		}
		comps = append(comps, encodeTokens(len(members), best))
	}
	sort.Strings(comps)
	X.isoSig = strings.Join(comps, ".")
	return X.isoSig
}

// walk relabels the component of t0, giving t0 label 0 and vertex labelling sigma.
func (X *Triangulation) walk(t0 int, sigma perm.Perm4, label []int, vp []perm.Perm4, tokens, order []int) ([]int, []int) {
	for i := range label {
		label[i] = -1
	}
	label[t0] = 0
	vp[t0] = sigma
	order = append(order, t0)
	for i := 0; i < len(order); i++ {
		t := order[i]
		inv := vp[t].Inverse()
		for j := 0; j < 4; j++ {
			f := inv.Apply(j)
			u := X.adj[t][f]
			if u < 0 {
				tokens = append(tokens, tokBoundary)
				continue
			}
			g := X.gluing[t][f]
			if label[u] < 0 {
				label[u] = len(order)
				order = append(order, u)
				vp[u] = vp[t].Compose(g.Inverse())
				tokens = append(tokens, tokNewTet)
			} else {
				ng := vp[u].Compose(g).Compose(inv)
				tokens = append(tokens, tokGlued+24*label[u]+ng.S4Index())
			}
		}
	}
	return tokens, order
}

func contains(s []int, x int) bool {
	for _, v := range s {
		if v == x {
			return true
		}
	}
	return false
}

func lessTokens(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func encodeTokens(nTets int, tokens []int) string {
	w := tokenWidth(nTets)
	buf := make([]byte, 0, 1+w*len(tokens))
	buf = append(buf, sigChars[nTets])
	for _, tok := range tokens {
		if w == 2 {
			buf = append(buf, sigChars[tok>>6])
		}
		buf = append(buf, sigChars[tok&63])
	}
	return string(buf)
}

// FromIsoSig rebuilds a triangulation from its isomorphism signature.
func FromIsoSig(sig string) (*Triangulation, error) {
	var comps []*Triangulation
	total := 0
	for _, part := range strings.Split(sig, ".") {
		Y, err := componentFromSig(part)
		if err != nil {
			return nil, err
		}
		comps = append(comps, Y)
		total += Y.nTets
	}
	if len(comps) == 1 {
		return comps[0], nil
	}
	if total > tri3.MaxTets {
		return nil, errors.Wrapf(tri3.ErrBadTetCount, "signature of %d tetrahedra", total)
	}

	X := New(total)
	base := 0
	for _, Y := range comps {
		for t := 0; t < Y.nTets; t++ {
			for f := 0; f < 4; f++ {
				if u := Y.adj[t][f]; u >= 0 {
					X.adj[base+t][f] = base + u
					X.gluing[base+t][f] = Y.gluing[t][f]
				}
			}
		}
		base += Y.nTets
		Y.Reclaim()
	}
	return X, nil
}

func componentFromSig(sig string) (*Triangulation, error) {
	if len(sig) == 0 || sigValue[sig[0]] <= 0 {
		return nil, errors.Wrapf(tri3.ErrBadRecord, "bad signature %q", sig)
	}
	n := sigValue[sig[0]]
	w := tokenWidth(n)
	if len(sig) != 1+w*4*n {
		return nil, errors.Wrapf(tri3.ErrBadRecord, "signature %q has the wrong length", sig)
	}

	X := New(n)
	next := 1
	pos := 1
	for t := 0; t < n && t < next; t++ {
		for j := 0; j < 4; j++ {
			tok := 0
			for k := 0; k < w; k++ {
				v := sigValue[sig[pos]]
				if v < 0 {
					X.Reclaim()
					return nil, errors.Wrapf(tri3.ErrBadRecord, "bad signature character %q", sig[pos])
				}
				tok = tok<<6 | v
				pos++
			}

			var err error
			switch {
			case tok == tokBoundary:
				if X.adj[t][j] >= 0 {
					err = errors.Wrapf(tri3.ErrBadRecord, "facet %d:%d is both glued and boundary", t, j)
				}
			case tok == tokNewTet:
				if next >= n {
					err = errors.Wrapf(tri3.ErrBadRecord, "signature %q names too many tetrahedra", sig)
				} else {
					err = X.Join(t, j, next, perm.Identity)
					next++
				}
			default:
				u := (tok - tokGlued) / 24
				k := (tok - tokGlued) % 24
				g := perm.S4[k]
				if u >= next {
					err = errors.Wrapf(tri3.ErrBadRecord, "facet %d:%d refers to an unseen tetrahedron", t, j)
				} else if X.adj[t][j] >= 0 {
					if X.adj[t][j] != u || X.gluing[t][j] != g {
						err = errors.Wrapf(tri3.ErrBadRecord, "facet %d:%d is glued inconsistently", t, j)
					}
				} else {
					err = X.Join(t, j, u, g)
				}
			}
			if err != nil {
				X.Reclaim()
				return nil, errors.Wrap(tri3.ErrBadRecord, err.Error())
			}
		}
	}
	if next != n {
		X.Reclaim()
		return nil, errors.Wrapf(tri3.ErrBadRecord, "signature %q is disconnected", sig)
	}
	return X, nil
}

// WriteAsString prints the parts of X selected by opts on one line.
func (X *Triangulation) WriteAsString(out io.Writer, opts tri3.PrintOpts) {
	var parts []string
	if opts.Label != "" {
		parts = append(parts, opts.Label)
	}
	if opts.IsoSig {
		parts = append(parts, X.IsoSig())
	}
	if opts.Pairing {
		parts = append(parts, "["+X.Pairing().String()+"]")
	}
	if opts.Gluings {
		parts = append(parts, X.GluingsString())
	}
	if opts.Info {
		parts = append(parts, FormatInfo(X.Info()))
	}
	fmt.Fprintln(out, strings.Join(parts, "  "))
}

// GluingsString lists, per tetrahedron, the destination and vertex map of each facet, e.g. "1:0(1023)".
func (X *Triangulation) GluingsString() string {
	buf := strings.Builder{}
	for t := range X.adj {
		if t > 0 {
			buf.WriteString(" | ")
		}
		for f := 0; f < 4; f++ {
			if f > 0 {
				buf.WriteByte(' ')
			}
			u, g := X.adj[t][f], X.gluing[t][f]
			if u < 0 {
				buf.WriteString("bdry")
			} else {
				fmt.Fprintf(&buf, "%d:%d(%v)", u, g.Apply(f), g)
			}
		}
	}
	return buf.String()
}

// FormatInfo renders the summary fields of info.
func FormatInfo(info tri3.TriInfo) string {
	flags := make([]byte, 0, 4)
	flag := func(on bool, c byte) {
		if on {
			flags = append(flags, c)
		} else {
			flags = append(flags, '-')
		}
	}
	flag(info.Orientable, 'o')
	flag(info.Finite, 'f')
	flag(info.Closed, 'c')
	flag(info.Valid, 'v')
	return fmt.Sprintf("%s V=%d E=%d deg=%d..%d", flags, info.NumVertices, info.NumEdges, info.MinEdgeDegree, info.MaxEdgeDegree)
}

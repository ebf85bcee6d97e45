package gluing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/libtri/triang"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// splitSearch runs every pairing to maxDepth, then resumes each dumped fragment in a fresh searcher.
func splitSearch(t *testing.T, nTets int, boundary tri3.BoolSet, nBdry int, opts SearchOpts, maxDepth int) (map[string]bool, []string) {
	sigs := make(map[string]bool)
	var dumps []string
	record := func(g Gluings) {
		X := triang.FromGluings(g)
		sig := X.IsoSig()
		X.Reclaim()
		require.False(t, sigs[sig], "%v found twice", sig)
		sigs[sig] = true
	}

	pairing.FindAllPairings(nTets, boundary, nBdry, func(p *pairing.FacetPairing, autos []pairing.Isomorphism) {
		if p == nil {
			return
		}
		var s *Searcher
		s = NewSearcher(p, autos, opts, func(g Gluings) {
			switch {
			case g == nil:
			case g.IsComplete():
				record(g)
			default:
				require.Same(t, s, g)
				buf := bytes.Buffer{}
				require.NoError(t, s.DumpState(&buf))
				dumps = append(dumps, buf.String())
			}
		})
		s.RunSearch(maxDepth)
	}, false)

	for _, dump := range dumps {
		s, err := ReadSearcher(strings.NewReader(dump), func(g Gluings) {
			if g != nil {
				record(g)
			}
		})
		require.NoError(t, err, dump)
		s.RunSearch(-1)
	}
	return sigs, dumps
}

func TestSplitSearchMatchesFull(t *testing.T) {
	withDebugChecks(t)

	for _, opts := range []SearchOpts{
		{FiniteOnly: true},
		{FiniteOnly: true, OrientableOnly: true},
		{OrientableOnly: true},
		{FiniteOnly: true, Oracle: CompletionOracle},
	} {
		full := runCensus(t, 3, tri3.BoolFalse, 0, opts, direct)
		for _, depth := range []int{0, 1, 2, 4} {
			got, dumps := splitSearch(t, 3, tri3.BoolFalse, 0, opts, depth)
			assert.Equal(t, full.sigs, got, "%+v depth %d", opts, depth)
			assert.NotEmpty(t, dumps)
		}
	}

	full := runCensus(t, 2, tri3.BoolTrue, -1, SearchOpts{FiniteOnly: true}, direct)
	got, _ := splitSearch(t, 2, tri3.BoolTrue, -1, SearchOpts{FiniteOnly: true}, 2)
	assert.Equal(t, full.sigs, got)
}

func TestDumpTwiceIsStable(t *testing.T) {
	_, dumps := splitSearch(t, 3, tri3.BoolFalse, 0, SearchOpts{FiniteOnly: true, OrientableOnly: true}, 3)
	require.NotEmpty(t, dumps)
	for _, dump := range dumps {
		s, err := ReadSearcher(strings.NewReader(dump), func(Gluings) {})
		require.NoError(t, err)
		buf := bytes.Buffer{}
		require.NoError(t, s.DumpState(&buf))
		assert.Equal(t, dump, buf.String())
	}
}

func TestCompleteDumpResumes(t *testing.T) {
	p, err := pairing.ParseString("0:1 0:0 0:3 0:2")
	require.NoError(t, err)
	var dumps []string
	s := NewSearcher(p, p.FindAutomorphisms(), SearchOpts{FiniteOnly: true}, nil)
	s.use = func(g Gluings) {
		if g != nil && g.IsComplete() {
			buf := bytes.Buffer{}
			require.NoError(t, s.DumpState(&buf))
			dumps = append(dumps, buf.String())
		}
	}
	s.RunSearch(-1)
	require.Len(t, dumps, 4)

	for _, dump := range dumps {
		n := 0
		r, err := ReadSearcher(strings.NewReader(dump), func(g Gluings) {
			if g != nil {
				assert.True(t, g.IsComplete())
				n++
			}
		})
		require.NoError(t, err)
		r.RunSearch(-1)
		assert.Equal(t, 1, n)
	}
}

func TestCorruptStateRejected(t *testing.T) {
	_, dumps := splitSearch(t, 3, tri3.BoolFalse, 0, SearchOpts{FiniteOnly: true, OrientableOnly: true}, 3)
	require.NotEmpty(t, dumps)
	dump := dumps[len(dumps)/2]

	lines := strings.Split(dump, "\n")
	replaceLine := func(i int, text string) string {
		out := append([]string(nil), lines...)
		out[i] = text
		return strings.Join(out, "\n")
	}
	allUnset := strings.TrimSpace(strings.Repeat("-1 ", len(strings.Fields(lines[4]))))
	allZero := strings.TrimSpace(strings.Repeat("0 ", len(strings.Fields(lines[3]))))

	bad := map[string]string{
		"empty":          "",
		"tag":            replaceLine(0, "g2"),
		"truncated":      dump[:len(dump)/2],
		"asymmetric":     replaceLine(1, strings.Replace(lines[1], "1", "2", 1)),
		"perm range":     replaceLine(4, strings.Replace(lines[4], "-1", "9", 1)),
		"perms unset":    replaceLine(4, allUnset),
		"no orientation": replaceLine(3, allZero),
		"level":          replaceLine(2, "1 1 0 0 1 99"),
		"forests":        replaceLine(len(lines)-2, "0 0 0 0 0 0 0 0 0 0"),
	}
	for name, text := range bad {
		_, err := ReadSearcher(strings.NewReader(text), func(Gluings) {})
		assert.ErrorIs(t, err, tri3.ErrCorruptState, name)
	}
}

func TestBoundaryOrderEntryRejected(t *testing.T) {
	p, err := pairing.ParseString("0:1 0:0 1:0 bdry | 0:2 bdry bdry bdry")
	require.NoError(t, err)
	buf := bytes.Buffer{}
	require.NoError(t, NewSearcher(p, nil, SearchOpts{}, func(Gluings) {}).DumpState(&buf))

	lines := strings.Split(buf.String(), "\n")
	require.Equal(t, "2", strings.Fields(lines[5])[0])
	for _, order := range []string{"2 0 7", "2 7 0", "2 0 1"} {
		out := append([]string(nil), lines...)
		out[5] = order
		_, err := ReadSearcher(strings.NewReader(strings.Join(out, "\n")), func(Gluings) {})
		assert.ErrorIs(t, err, tri3.ErrCorruptState, order)
	}
}

func TestChainExpansionNotDumpable(t *testing.T) {
	p, err := pairing.ParseString("0:1 0:0 1:0 1:1 | 0:2 0:3 1:3 1:2")
	require.NoError(t, err)
	c := NewChainCollapser(p, nil, SearchOpts{FiniteOnly: true}, func(Gluings) {})
	assert.Error(t, c.s.DumpState(&bytes.Buffer{}))
}

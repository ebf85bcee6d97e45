package gluing

import (
	"testing"

	"github.com/fine-structures/tricensus/libtri/pairing"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollapsedMatchesDirect(t *testing.T) {
	type run struct {
		n        int
		boundary tri3.BoolSet
		nBdry    int
	}
	for _, r := range []run{
		{1, tri3.BoolFalse, 0},
		{2, tri3.BoolFalse, 0},
		{3, tri3.BoolFalse, 0},
		{1, tri3.BoolTrue, -1},
		{2, tri3.BoolTrue, -1},
		{3, tri3.BoolTrue, 2},
	} {
		for _, opts := range []SearchOpts{
			{FiniteOnly: true},
			{FiniteOnly: true, OrientableOnly: true},
			{},
			{OrientableOnly: true},
			{FiniteOnly: true, Oracle: CompletionOracle},
		} {
			want := runCensus(t, r.n, r.boundary, r.nBdry, opts, direct)
			got := runCensus(t, r.n, r.boundary, r.nBdry, opts, collapsed)
			assert.Equal(t, want.sigs, got.sigs, "%+v %+v", r, opts)
		}
	}
}

func TestFindChains(t *testing.T) {
	// one tetrahedron folded onto itself twice: the whole pairing is a chain
	p, err := pairing.ParseString("0:1 0:0 0:3 0:2")
	require.NoError(t, err)
	c := NewChainCollapser(p, p.FindAutomorphisms(), SearchOpts{FiniteOnly: true}, func(Gluings) {})
	require.Len(t, c.Chains(), 1)
	assert.Equal(t, []pairing.TetFacet{{Tet: 0, Facet: 2}, {Tet: 0, Facet: 0}}, c.Chains()[0])
	assert.Equal(t, 4, c.Reduced().NumBoundaryFacets())

	// a two tetrahedron chain with both ends folded
	p, err = pairing.ParseString("0:1 0:0 1:0 1:1 | 0:2 0:3 1:3 1:2")
	require.NoError(t, err)
	c = NewChainCollapser(p, p.FindAutomorphisms(), SearchOpts{FiniteOnly: true}, func(Gluings) {})
	require.Len(t, c.Chains(), 1)
	chain := c.Chains()[0]
	require.Len(t, chain, 4)
	assert.Equal(t, pairing.TetFacet{Tet: 0, Facet: 0}, chain[3], "base loop expands last")
	assert.False(t, c.Reduced().IsClosed())
	assert.Equal(t, 8, c.Reduced().NumBoundaryFacets())

	// no self-glued facets, no chains
	p, err = pairing.ParseString("1:0 1:1 1:2 1:3 | 0:0 0:1 0:2 0:3")
	require.NoError(t, err)
	c = NewChainCollapser(p, p.FindAutomorphisms(), SearchOpts{FiniteOnly: true}, func(Gluings) {})
	assert.Empty(t, c.Chains())
	assert.True(t, c.Reduced().Equal(p))
}

func TestChainCandidatesPruneLinks(t *testing.T) {
	p, err := pairing.ParseString("0:1 0:0 0:3 0:2")
	require.NoError(t, err)
	seq := []pairing.TetFacet{{Tet: 0, Facet: 2}, {Tet: 0, Facet: 0}}

	link := chainCandidates(p, seq, SearchOpts{FiniteOnly: true})
	open := chainCandidates(p, seq, SearchOpts{Oracle: CompletionOracle})
	require.Len(t, link, 2)
	for i := range seq {
		assert.Len(t, open[i], 6)
		assert.NotEmpty(t, link[i])
		assert.Less(t, len(link[i]), 6, "facet %v", seq[i])
	}
}
